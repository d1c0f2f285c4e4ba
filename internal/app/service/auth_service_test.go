package service

import (
	"testing"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/mduc/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func setupAuthServiceTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	return NewAuthService(userRepo, testJWTSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	authService := setupAuthServiceTest(t)

	user, err := authService.Register(RegisterInput{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = authService.Register(RegisterInput{
		Email:    "new@example.com",
		Password: "other-password",
		Name:     "Duplicate",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Login(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, err := authService.Register(RegisterInput{
		Email:    "buyer@example.com",
		Password: "password123",
		Name:     "Buyer",
	})
	require.NoError(t, err)

	user, tokens, err := authService.Login("buyer@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", user.Email)
	require.NotNil(t, tokens)

	claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(model.RoleUser), claims.Role)

	_, _, err = authService.Login("buyer@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown accounts fail the same way as bad passwords.
	_, _, err = authService.Login("ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_GetProfile(t *testing.T) {
	authService := setupAuthServiceTest(t)

	created, err := authService.Register(RegisterInput{
		Email:    "buyer@example.com",
		Password: "password123",
		Name:     "Buyer",
	})
	require.NoError(t, err)

	user, err := authService.GetProfile(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, user.Email)

	_, err = authService.GetProfile(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService := setupAuthServiceTest(t)

	created, err := authService.Register(RegisterInput{
		Email:    "buyer@example.com",
		Password: "password123",
		Name:     "Buyer",
	})
	require.NoError(t, err)

	updated, err := authService.UpdateProfile(created.ID, UpdateProfileInput{
		Name:  "Buyer Renamed",
		Phone: "555-0101",
	})
	require.NoError(t, err)
	assert.Equal(t, "Buyer Renamed", updated.Name)
	assert.Equal(t, "555-0101", updated.Phone)

	// Email and role are untouched.
	assert.Equal(t, created.Email, updated.Email)
	assert.Equal(t, model.RoleUser, updated.Role)

	_, err = authService.UpdateProfile(9999, UpdateProfileInput{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
