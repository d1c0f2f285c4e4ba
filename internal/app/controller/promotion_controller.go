package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/service"
	apierrors "github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/internal/middleware"
)

type PromotionController struct {
	promotionService service.PromotionService
}

func NewPromotionController(promotionService service.PromotionService) *PromotionController {
	return &PromotionController{
		promotionService: promotionService,
	}
}

type ValidatePromotionRequest struct {
	Code        string  `json:"code" binding:"required"`
	OrderAmount float64 `json:"order_amount" binding:"required,gt=0"`
}

type PromotionRequest struct {
	Code              string             `json:"code" binding:"required"`
	Description       string             `json:"description"`
	DiscountType      model.DiscountType `json:"discount_type" binding:"required"`
	DiscountValue     float64            `json:"discount_value" binding:"required,gt=0"`
	MinOrderAmount    *float64           `json:"min_order_amount"`
	MaxDiscountAmount *float64           `json:"max_discount_amount"`
	UsageLimit        *int               `json:"usage_limit"`
	PerUserLimit      *int               `json:"per_user_limit"`
	StartDate         *time.Time         `json:"start_date"`
	EndDate           *time.Time         `json:"end_date"`
	IsActive          *bool              `json:"is_active"`
}

func (r PromotionRequest) toInput() service.PromotionInput {
	return service.PromotionInput{
		Code:              r.Code,
		Description:       r.Description,
		DiscountType:      r.DiscountType,
		DiscountValue:     r.DiscountValue,
		MinOrderAmount:    r.MinOrderAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		UsageLimit:        r.UsageLimit,
		PerUserLimit:      r.PerUserLimit,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		IsActive:          r.IsActive,
	}
}

// promoRejectionCode maps a validation failure to its error code, or ""
// when the error is not a business rejection.
func promoRejectionCode(err error) string {
	switch {
	case errors.Is(err, service.ErrPromotionNotFound):
		return apierrors.PromoInvalidCode
	case errors.Is(err, service.ErrPromotionNotStarted):
		return apierrors.PromoNotStarted
	case errors.Is(err, service.ErrPromotionExpired):
		return apierrors.PromoExpired
	case errors.Is(err, service.ErrPromotionUsageLimit):
		return apierrors.PromoUsageLimitReached
	case errors.Is(err, service.ErrPromotionPerUserLimit):
		return apierrors.PromoPerUserLimitReached
	case errors.Is(err, service.ErrPromotionBelowMin):
		return apierrors.PromoBelowMinimum
	}
	return ""
}

// ValidatePromotion checks a code against an order amount without
// consuming a usage. Business rejections are 200 responses carrying
// valid=false, so clients can render the reason inline.
// POST /api/v1/promotions/validate
func (ctrl *PromotionController) ValidatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ValidatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	var userID *uint
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}

	result, err := ctrl.promotionService.Validate(req.Code, userID, req.OrderAmount)
	if err != nil {
		if code := promoRejectionCode(err); code != "" {
			apierrors.OK(c, http.StatusOK, gin.H{
				"valid":  false,
				"reason": code,
			})
			return
		}
		log.Error("Promotion validation failed", err, map[string]interface{}{
			"code": req.Code,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"valid":           true,
		"code":            result.Promotion.Code,
		"discount_type":   result.Promotion.DiscountType,
		"discount_amount": result.DiscountAmount,
	})
}

// GetPromotions lists all promotion definitions (admin)
// GET /api/v1/admin/promotions
func (ctrl *PromotionController) GetPromotions(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	promotions, err := ctrl.promotionService.List()
	if err != nil {
		log.Error("Failed to list promotions", err, nil)
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"promotions": promotions,
		"count":      len(promotions),
	})
}

// CreatePromotion adds a promotion definition (admin)
// POST /api/v1/admin/promotions
func (ctrl *PromotionController) CreatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	promotion, err := ctrl.promotionService.Create(req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromotionCodeExists):
			apierrors.Conflict(c, apierrors.PromoCodeExists, "Promotion code already exists")
		case errors.Is(err, service.ErrInvalidPromotion):
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Failed to create promotion", err, map[string]interface{}{
				"code": req.Code,
			})
			apierrors.InternalError(c, "")
		}
		return
	}

	apierrors.OK(c, http.StatusCreated, gin.H{"promotion": promotion})
}

// UpdatePromotion edits a promotion definition (admin)
// PUT /api/v1/admin/promotions/:id
func (ctrl *PromotionController) UpdatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	promotion, err := ctrl.promotionService.Update(id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromotionNotFound):
			apierrors.NotFound(c, apierrors.ResourceNotFound, "Promotion not found")
		case errors.Is(err, service.ErrPromotionCodeExists):
			apierrors.Conflict(c, apierrors.PromoCodeExists, "Promotion code already exists")
		case errors.Is(err, service.ErrInvalidPromotion):
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Failed to update promotion", err, map[string]interface{}{
				"promotion_id": id,
			})
			apierrors.InternalError(c, "")
		}
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"promotion": promotion})
}

// DeactivatePromotion turns a promotion off without deleting history (admin)
// DELETE /api/v1/admin/promotions/:id
func (ctrl *PromotionController) DeactivatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.promotionService.Deactivate(id); err != nil {
		if errors.Is(err, service.ErrPromotionNotFound) {
			apierrors.NotFound(c, apierrors.ResourceNotFound, "Promotion not found")
			return
		}
		log.Error("Failed to deactivate promotion", err, map[string]interface{}{
			"promotion_id": id,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OKMessage(c, http.StatusOK, "Promotion deactivated", nil)
}
