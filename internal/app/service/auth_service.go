package service

import (
	"context"
	"errors"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/pkg/logger"
	"github.com/mduc/storefront-backend/pkg/redis"
	"github.com/mduc/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type UpdateProfileInput struct {
	Name  string
	Phone string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, error)
	Login(email, password string) (*model.User, *util.TokenPair, error)
	Logout(ctx context.Context, token string, expiry time.Duration) error
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, accessExpiry, refreshExpiry time.Duration) AuthService {
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, error) {
	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, nil)
		return nil, err
	}

	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, nil
}

func (s *authService) Login(email, password string) (*model.User, *util.TokenPair, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login rejected: password mismatch", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role),
		s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		logger.Error("Failed to generate token pair", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, err
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return user, tokens, nil
}

// Logout blacklists the presented access token for the remainder of
// its lifetime so it cannot be replayed.
func (s *authService) Logout(ctx context.Context, token string, expiry time.Duration) error {
	if err := redis.BlacklistToken(ctx, token, expiry); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}
	return nil
}

func (s *authService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile edits the caller's display fields. Email, password and
// role are not editable here.
func (s *authService) UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Name = input.Name
	user.Phone = input.Phone
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("User profile updated", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}
