package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform API response body. Success responses carry
// ok=true and data; failures carry ok=false, an error code (codes.go)
// and a user-facing message.
type Envelope struct {
	OK      bool        `json:"ok"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK writes a success envelope
func OK(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Envelope{OK: true, Data: data})
}

// OKMessage writes a success envelope with a message and optional data
func OKMessage(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Envelope{OK: true, Data: data, Message: message})
}

// RespondWithError writes a failure envelope
// statusCode: HTTP status code
// errorCode: error code constant (see codes.go)
// message: user-facing message
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, Envelope{
		OK:      false,
		Error:   errorCode,
		Message: message,
	})
}

// Shortcuts for the common failure shapes

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have permission to perform this action"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Something went wrong. Please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}
