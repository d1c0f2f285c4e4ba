package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/service"
	apierrors "github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/internal/middleware"
)

type AuthController struct {
	authService  service.AuthService
	accessExpiry time.Duration
}

func NewAuthController(authService service.AuthService, accessExpiry time.Duration) *AuthController {
	return &AuthController{
		authService:  authService,
		accessExpiry: accessExpiry,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// Register creates a new buyer account
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	user, err := ctrl.authService.Register(service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			apierrors.Conflict(c, apierrors.AuthEmailAlreadyExists, "Email is already registered")
			return
		}
		log.Error("Registration failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusCreated, gin.H{"user": user})
}

// Login authenticates a user and issues a token pair
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apierrors.RespondWithError(c, http.StatusUnauthorized,
				apierrors.AuthInvalidCredentials, "Invalid email or password")
			return
		}
		log.Error("Login failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

// Logout blacklists the caller's current access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), parts[1], ctrl.accessExpiry); err != nil {
		log.Error("Logout failed", err, nil)
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OKMessage(c, http.StatusOK, "Logged out", nil)
}

// GetProfile returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetProfile(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(c, apierrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to load profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"user": user})
}

// UpdateProfile edits the authenticated user's name and phone
// PUT /api/v1/auth/me
func (ctrl *AuthController) UpdateProfile(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	user, err := ctrl.authService.UpdateProfile(userID, service.UpdateProfileInput{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apierrors.NotFound(c, apierrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to update profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"user": user})
}
