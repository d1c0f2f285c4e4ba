package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	// ErrPromotionNotFound covers unknown, deleted and deactivated codes
	// alike, so a caller cannot probe which codes exist.
	ErrPromotionNotFound     = errors.New("invalid promotion code")
	ErrPromotionNotStarted   = errors.New("promotion has not started yet")
	ErrPromotionExpired      = errors.New("promotion has expired")
	ErrPromotionUsageLimit   = errors.New("promotion usage limit reached")
	ErrPromotionPerUserLimit = errors.New("promotion usage limit for this account reached")
	ErrPromotionBelowMin     = errors.New("order amount is below the promotion minimum")
	ErrPromotionCodeExists   = errors.New("promotion code already exists")
	ErrInvalidPromotion      = errors.New("invalid promotion definition")
)

// ValidationResult is the outcome of a successful promotion check: the
// matched definition and the discount it would grant against the
// amount that was validated.
type ValidationResult struct {
	Promotion      *model.Promotion
	DiscountAmount float64
}

type PromotionInput struct {
	Code              string
	Description       string
	DiscountType      model.DiscountType
	DiscountValue     float64
	MinOrderAmount    *float64
	MaxDiscountAmount *float64
	UsageLimit        *int
	PerUserLimit      *int
	StartDate         *time.Time
	EndDate           *time.Time
	IsActive          *bool
}

type PromotionService interface {
	Validate(code string, userID *uint, orderAmount float64) (*ValidationResult, error)
	GetByID(id uint) (*model.Promotion, error)
	List() ([]model.Promotion, error)
	Create(input PromotionInput) (*model.Promotion, error)
	Update(id uint, input PromotionInput) (*model.Promotion, error)
	Deactivate(id uint) error
}

type promotionService struct {
	db        *gorm.DB
	promoRepo repository.PromotionRepository
}

func NewPromotionService(db *gorm.DB, promoRepo repository.PromotionRepository) PromotionService {
	return &promotionService{db: db, promoRepo: promoRepo}
}

// Validate checks a code against an order amount without consuming
// anything: no usage count moves and nothing is bound. A later checkout
// revalidates under the same rules before binding.
func (s *promotionService) Validate(code string, userID *uint, orderAmount float64) (*ValidationResult, error) {
	result, err := validatePromotion(s.db, code, userID, orderAmount, time.Now())
	if err != nil {
		logger.Info("Promotion validation rejected", map[string]interface{}{
			"code":         model.NormalizePromotionCode(code),
			"order_amount": orderAmount,
			"reason":       err.Error(),
		})
		return nil, err
	}

	logger.Info("Promotion validated", map[string]interface{}{
		"code":            result.Promotion.Code,
		"order_amount":    orderAmount,
		"discount_amount": result.DiscountAmount,
	})
	return result, nil
}

func (s *promotionService) GetByID(id uint) (*model.Promotion, error) {
	promotion, err := s.promoRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return promotion, nil
}

func (s *promotionService) List() ([]model.Promotion, error) {
	return s.promoRepo.FindAll()
}

func (s *promotionService) Create(input PromotionInput) (*model.Promotion, error) {
	if err := validatePromotionInput(input); err != nil {
		return nil, err
	}

	code := model.NormalizePromotionCode(input.Code)
	if _, err := s.promoRepo.FindByCode(code); err == nil {
		return nil, ErrPromotionCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	promotion := &model.Promotion{
		Code:              code,
		Description:       input.Description,
		DiscountType:      input.DiscountType,
		DiscountValue:     input.DiscountValue,
		MinOrderAmount:    input.MinOrderAmount,
		MaxDiscountAmount: input.MaxDiscountAmount,
		UsageLimit:        input.UsageLimit,
		PerUserLimit:      input.PerUserLimit,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
		IsActive:          true,
	}
	if input.IsActive != nil {
		promotion.IsActive = *input.IsActive
	}

	if err := s.promoRepo.Create(promotion); err != nil {
		return nil, err
	}

	logger.Info("Promotion created", map[string]interface{}{
		"promotion_id":   promotion.ID,
		"code":           promotion.Code,
		"discount_type":  promotion.DiscountType,
		"discount_value": promotion.DiscountValue,
	})
	return promotion, nil
}

// Update edits the definition going forward. Orders that already bound
// this promotion keep their frozen code and discount amount.
func (s *promotionService) Update(id uint, input PromotionInput) (*model.Promotion, error) {
	if err := validatePromotionInput(input); err != nil {
		return nil, err
	}

	promotion, err := s.promoRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}

	code := model.NormalizePromotionCode(input.Code)
	if code != promotion.Code {
		if _, err := s.promoRepo.FindByCode(code); err == nil {
			return nil, ErrPromotionCodeExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	promotion.Code = code
	promotion.Description = input.Description
	promotion.DiscountType = input.DiscountType
	promotion.DiscountValue = input.DiscountValue
	promotion.MinOrderAmount = input.MinOrderAmount
	promotion.MaxDiscountAmount = input.MaxDiscountAmount
	promotion.UsageLimit = input.UsageLimit
	promotion.PerUserLimit = input.PerUserLimit
	promotion.StartDate = input.StartDate
	promotion.EndDate = input.EndDate
	if input.IsActive != nil {
		promotion.IsActive = *input.IsActive
	}

	if err := s.promoRepo.Update(promotion); err != nil {
		return nil, err
	}

	logger.Info("Promotion updated", map[string]interface{}{
		"promotion_id": promotion.ID,
		"code":         promotion.Code,
	})
	return promotion, nil
}

func (s *promotionService) Deactivate(id uint) error {
	if _, err := s.promoRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPromotionNotFound
		}
		return err
	}

	if err := s.promoRepo.Deactivate(id); err != nil {
		return err
	}

	logger.Info("Promotion deactivated", map[string]interface{}{
		"promotion_id": id,
	})
	return nil
}

func validatePromotionInput(input PromotionInput) error {
	if model.NormalizePromotionCode(input.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidPromotion)
	}

	switch input.DiscountType {
	case model.DiscountPercentage:
		if input.DiscountValue <= 0 || input.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage value must be within (0, 100]", ErrInvalidPromotion)
		}
	case model.DiscountFixed:
		if input.DiscountValue <= 0 {
			return fmt.Errorf("%w: fixed value must be positive", ErrInvalidPromotion)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidPromotion, input.DiscountType)
	}

	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidPromotion)
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return fmt.Errorf("%w: usage limit must be positive", ErrInvalidPromotion)
	}
	if input.PerUserLimit != nil && *input.PerUserLimit <= 0 {
		return fmt.Errorf("%w: per-user limit must be positive", ErrInvalidPromotion)
	}
	return nil
}

// validatePromotion runs the full eligibility gauntlet against one code
// and computes the discount it would grant. It works on whatever handle
// it is given, so checkout can run it inside the binding transaction.
func validatePromotion(tx *gorm.DB, code string, userID *uint, orderAmount float64, now time.Time) (*ValidationResult, error) {
	var promotion model.Promotion
	if err := tx.Where("code = ?", model.NormalizePromotionCode(code)).
		First(&promotion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}

	if !promotion.IsActive {
		return nil, ErrPromotionNotFound
	}
	if promotion.StartDate != nil && now.Before(*promotion.StartDate) {
		return nil, ErrPromotionNotStarted
	}
	if promotion.EndDate != nil && now.After(*promotion.EndDate) {
		return nil, ErrPromotionExpired
	}
	if promotion.UsageLimit != nil && promotion.UsageCount >= *promotion.UsageLimit {
		return nil, ErrPromotionUsageLimit
	}
	if promotion.MinOrderAmount != nil && orderAmount < *promotion.MinOrderAmount {
		return nil, fmt.Errorf("%w: minimum order amount is %.2f", ErrPromotionBelowMin, *promotion.MinOrderAmount)
	}

	// Per-user limits only apply to attributable identities; guest
	// usage is bounded by the global limit alone.
	if userID != nil && promotion.PerUserLimit != nil {
		var used int64
		if err := tx.Model(&model.PromotionUsage{}).
			Where("promotion_id = ? AND user_id = ?", promotion.ID, *userID).
			Count(&used).Error; err != nil {
			return nil, err
		}
		if used >= int64(*promotion.PerUserLimit) {
			return nil, ErrPromotionPerUserLimit
		}
	}

	return &ValidationResult{
		Promotion:      &promotion,
		DiscountAmount: computeDiscount(&promotion, orderAmount),
	}, nil
}

// computeDiscount derives the discount a promotion grants against an
// order amount: percentage discounts are capped by max_discount_amount
// when set, and no discount ever exceeds the amount itself.
func computeDiscount(promotion *model.Promotion, orderAmount float64) float64 {
	var discount float64
	switch promotion.DiscountType {
	case model.DiscountPercentage:
		discount = orderAmount * promotion.DiscountValue / 100
		if promotion.MaxDiscountAmount != nil && discount > *promotion.MaxDiscountAmount {
			discount = *promotion.MaxDiscountAmount
		}
	case model.DiscountFixed:
		discount = promotion.DiscountValue
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	return roundMoney(discount)
}

// bindPromotion consumes one usage of an already-validated promotion
// inside the checkout transaction. The conditional increment both
// enforces the global limit and, on Postgres, takes the row lock that
// serializes concurrent binds of the same code, so the per-user
// recheck and usage insert run without races.
func bindPromotion(tx *gorm.DB, orderID uint, userID *uint, result *ValidationResult) error {
	promotion := result.Promotion

	res := tx.Model(&model.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", promotion.ID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		logger.Error("Failed to increment promotion usage count", res.Error, map[string]interface{}{
			"promotion_id": promotion.ID,
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPromotionUsageLimit
	}

	if userID != nil {
		if promotion.PerUserLimit != nil {
			var used int64
			if err := tx.Model(&model.PromotionUsage{}).
				Where("promotion_id = ? AND user_id = ?", promotion.ID, *userID).
				Count(&used).Error; err != nil {
				return err
			}
			if used >= int64(*promotion.PerUserLimit) {
				return ErrPromotionPerUserLimit
			}
		}

		usage := &model.PromotionUsage{
			PromotionID:    promotion.ID,
			UserID:         *userID,
			OrderID:        orderID,
			DiscountAmount: result.DiscountAmount,
			UsedAt:         time.Now(),
		}
		if err := tx.Create(usage).Error; err != nil {
			logger.Error("Failed to record promotion usage", err, map[string]interface{}{
				"promotion_id": promotion.ID,
				"order_id":     orderID,
			})
			return err
		}
	}

	logger.Info("Promotion bound to order", map[string]interface{}{
		"promotion_id":    promotion.ID,
		"code":            promotion.Code,
		"order_id":        orderID,
		"discount_amount": result.DiscountAmount,
	})
	return nil
}
