package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage" // 0 < value <= 100
	DiscountFixed      DiscountType = "fixed"      // currency amount > 0
)

type Promotion struct {
	ID            uint         `gorm:"primarykey" json:"id"`
	Code          string       `gorm:"uniqueIndex;not null" json:"code"` // stored upper-cased
	Description   string       `gorm:"type:text" json:"description"`
	DiscountType  DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue float64      `gorm:"not null" json:"discount_value"`

	MinOrderAmount    *float64 `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"` // caps a percentage discount
	UsageLimit        *int     `json:"usage_limit,omitempty"`         // global cap
	PerUserLimit      *int     `json:"per_user_limit,omitempty"`      // cap per authenticated identity

	StartDate *time.Time `gorm:"index" json:"start_date,omitempty"` // inclusive
	EndDate   *time.Time `gorm:"index" json:"end_date,omitempty"`   // inclusive
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`

	// Incremented exactly once per successful binding to an order,
	// never on validation-only calls.
	UsageCount int `gorm:"not null;default:0" json:"usage_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Promotion) TableName() string {
	return "promotions"
}

// NormalizePromotionCode canonicalizes a user-supplied code for lookup.
func NormalizePromotionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromotionUsage records one successful application of a promotion to an
// order by an authenticated user; per-user limits are enforced against
// these rows. Guest usages are not attributable and are not recorded.
type PromotionUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PromotionID    uint      `gorm:"not null;index" json:"promotion_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	DiscountAmount float64   `gorm:"not null" json:"discount_amount"`
	UsedAt         time.Time `json:"used_at"`

	Promotion Promotion `gorm:"foreignKey:PromotionID" json:"-"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Order     Order     `gorm:"foreignKey:OrderID" json:"-"`
}

func (PromotionUsage) TableName() string {
	return "promotion_usages"
}
