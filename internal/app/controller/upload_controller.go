package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/internal/middleware"
	"github.com/mduc/storefront-backend/internal/storage"
)

type UploadController struct {
	storage *storage.S3Storage
}

func NewUploadController(storage *storage.S3Storage) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL issues a presigned PUT URL for a product image
// POST /api/v1/admin/uploads/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	allowedTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
	}
	if err := ctrl.storage.ValidateContentType(req.ContentType, allowedTypes); err != nil {
		apierrors.BadRequest(c, apierrors.UploadInvalidFileType,
			"Only image files are allowed (JPEG, PNG, GIF, WEBP)")
		return
	}

	response, err := ctrl.storage.GeneratePresignedURL(req.Filename, req.ContentType, "products")
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apierrors.RespondWithError(c, http.StatusInternalServerError,
			apierrors.UploadFailed, "Failed to generate upload URL")
		return
	}

	log.Info("Presigned upload URL generated", map[string]interface{}{
		"filename": req.Filename,
		"key":      response.Key,
	})
	apierrors.OK(c, http.StatusOK, response)
}
