package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func issueToken(t *testing.T, userID uint, role string) string {
	tokens, err := util.GenerateTokenPair(userID, "buyer@example.com", role,
		testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func setupAuthTestRouter(handler gin.HandlerFunc, mws ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append(mws, handler)
	router.GET("/protected", handlers...)
	return router
}

func whoAmI(c *gin.Context) {
	userID, _ := GetUserID(c)
	role, _ := GetUserRole(c)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	router := setupAuthTestRouter(whoAmI, m.Authenticate())

	t.Run("Valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, 7, "user"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
	})

	t.Run("Missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Expired token", func(t *testing.T) {
		tokens, err := util.GenerateTokenPair(7, "buyer@example.com", "user",
			testSecret, -time.Minute, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_TOKEN_EXPIRED")
	})
}

func TestOptionalAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	router := setupAuthTestRouter(whoAmI, m.OptionalAuthenticate())

	t.Run("No token continues as guest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":0`)
	})

	t.Run("Invalid token continues as guest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":0`)
	})

	t.Run("Valid token sets identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, 9, "user"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":9`)
	})
}

func TestRequireRole(t *testing.T) {
	m := NewAuthMiddleware(testSecret)
	router := setupAuthTestRouter(whoAmI, m.Authenticate(), m.RequireRole("staff", "admin"))

	t.Run("Staff allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, 1, string(model.RoleStaff)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Regular user forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, 2, string(model.RoleUser)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
