package repository

import (
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type PromotionRepository interface {
	Create(promotion *model.Promotion) error
	FindByID(id uint) (*model.Promotion, error)
	FindByCode(code string) (*model.Promotion, error)
	FindAll() ([]model.Promotion, error)
	Update(promotion *model.Promotion) error
	Deactivate(id uint) error
	CountUsageByUser(promotionID, userID uint) (int64, error)
}

type promotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &promotionRepository{db: db}
}

func (r *promotionRepository) Create(promotion *model.Promotion) error {
	if err := r.db.Create(promotion).Error; err != nil {
		logger.Error("Failed to create promotion in database", err, map[string]interface{}{
			"code": promotion.Code,
		})
		return err
	}

	logger.Debug("Promotion created in database", map[string]interface{}{
		"promotion_id": promotion.ID,
		"code":         promotion.Code,
	})
	return nil
}

func (r *promotionRepository) FindByID(id uint) (*model.Promotion, error) {
	var promotion model.Promotion
	if err := r.db.First(&promotion, id).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepository) FindByCode(code string) (*model.Promotion, error) {
	var promotion model.Promotion
	if err := r.db.Where("code = ?", model.NormalizePromotionCode(code)).
		First(&promotion).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepository) FindAll() ([]model.Promotion, error) {
	var promotions []model.Promotion
	if err := r.db.Order("created_at DESC").Find(&promotions).Error; err != nil {
		logger.Error("Failed to list promotions from database", err, nil)
		return nil, err
	}
	return promotions, nil
}

func (r *promotionRepository) Update(promotion *model.Promotion) error {
	if err := r.db.Save(promotion).Error; err != nil {
		logger.Error("Failed to update promotion in database", err, map[string]interface{}{
			"promotion_id": promotion.ID,
		})
		return err
	}
	return nil
}

func (r *promotionRepository) Deactivate(id uint) error {
	if err := r.db.Model(&model.Promotion{}).
		Where("id = ?", id).
		Update("is_active", false).Error; err != nil {
		logger.Error("Failed to deactivate promotion in database", err, map[string]interface{}{
			"promotion_id": id,
		})
		return err
	}
	return nil
}

// CountUsageByUser counts an authenticated user's successful bindings of a
// promotion; per_user_limit is enforced against this count.
func (r *promotionRepository) CountUsageByUser(promotionID, userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.PromotionUsage{}).
		Where("promotion_id = ? AND user_id = ?", promotionID, userID).
		Count(&count).Error; err != nil {
		logger.Error("Failed to count promotion usage in database", err, map[string]interface{}{
			"promotion_id": promotionID,
			"user_id":      userID,
		})
		return 0, err
	}
	return count, nil
}
