package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/pkg/redis"
	"github.com/mduc/storefront-backend/pkg/util"
)

// Context keys for the authenticated caller
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates the bearer token and rejects the request when
// it is missing, malformed, expired or blacklisted by a logout.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			log.Warn("Missing or malformed authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Session has expired")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		blacklisted, err := redis.IsTokenBlacklisted(c.Request.Context(), token)
		if err != nil {
			log.Error("Token blacklist check failed", err, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}
		if blacklisted {
			log.Warn("Rejected blacklisted token", map[string]interface{}{
				"user_id": claims.UserID,
				"path":    c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))

		log.Debug("User authenticated", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate sets caller info when a valid token is present
// and continues as guest otherwise. Used on routes that serve both
// authenticated and anonymous callers.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			log.Debug("No bearer token, continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Debug("Token validation failed, continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if blacklisted, _ := redis.IsTokenBlacklisted(c.Request.Context(), token); blacklisted {
			log.Debug("Blacklisted token, continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, model.UserRole(claims.Role))

		log.Debug("User authenticated (optional)", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// RequireRole gates a route to the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userRole, exists := c.Get(UserRoleKey)
		if !exists {
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzRoleNotFound, "Role information not found")
			c.Abort()
			return
		}

		role := userRole.(model.UserRole)
		userID, _ := GetUserID(c)

		for _, r := range roles {
			if role == model.UserRole(r) {
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, "Access denied")
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// GetUserID extracts the authenticated user ID from context.
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserRole extracts the authenticated role from context.
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}
