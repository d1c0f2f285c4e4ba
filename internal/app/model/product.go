package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Name          string         `gorm:"not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Price         float64        `gorm:"not null" json:"price"`
	SalePrice     *float64       `json:"sale_price,omitempty"` // active sale price, takes priority over Price
	StockQuantity int            `gorm:"default:0" json:"stock_quantity"`
	ImageURL      string         `json:"image_url"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// EffectivePrice returns the price a line item snapshots at upsert time:
// the sale price when one is set, the list price otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}
