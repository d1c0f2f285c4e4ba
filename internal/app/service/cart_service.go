package service

import (
	"errors"
	"math"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrItemNotFound       = errors.New("order item not found")
)

// ShippingRule is the single threshold rule used for every order:
// free shipping at or above the threshold, a flat fee below it, and no
// fee at all for an empty order.
type ShippingRule struct {
	FreeThreshold float64
	FlatFee       float64
}

func (r ShippingRule) Fee(subtotal float64) float64 {
	if subtotal <= 0 || subtotal >= r.FreeThreshold {
		return 0
	}
	return r.FlatFee
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// upsertLineItem adds a product to an order or replaces the quantity of
// an existing line for the same product, snapshotting the product name
// and effective price at call time. The (order_id, product_id) unique
// index guarantees at most one line per product even under concurrent
// adds. Totals are not touched here; callers recalculate afterwards.
func upsertLineItem(tx *gorm.DB, orderID, productID uint, quantity int) (*model.OrderItem, error) {
	var product model.Product
	if err := tx.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}

	if product.StockQuantity < quantity {
		return nil, ErrInsufficientStock
	}

	unitPrice := product.EffectivePrice()
	item := &model.OrderItem{
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineAmount:  roundMoney(unitPrice * float64(quantity)),
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_name", "quantity", "unit_price", "line_amount", "updated_at",
		}),
	}).Create(item).Error; err != nil {
		logger.Error("Failed to upsert order item", err, map[string]interface{}{
			"order_id":   orderID,
			"product_id": productID,
		})
		return nil, err
	}

	return item, nil
}

// removeLineItem deletes the line for a product from an order.
func removeLineItem(tx *gorm.DB, orderID, productID uint) error {
	result := tx.Where("order_id = ? AND product_id = ?", orderID, productID).
		Delete(&model.OrderItem{})
	if result.Error != nil {
		logger.Error("Failed to remove order item", result.Error, map[string]interface{}{
			"order_id":   orderID,
			"product_id": productID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// recalcOrderTotals recomputes subtotal, shipping fee and grand total
// from the order's current line items and writes them back. The
// computation depends only on stored rows, so repeated calls are
// idempotent. Any bound discount is applied later, at checkout; the
// grand total written here is subtotal plus shipping.
func recalcOrderTotals(tx *gorm.DB, orderID uint, rule ShippingRule) (*model.Order, error) {
	var row struct {
		Total float64
	}
	if err := tx.Model(&model.OrderItem{}).
		Select("COALESCE(SUM(line_amount), 0) AS total").
		Where("order_id = ?", orderID).
		Scan(&row).Error; err != nil {
		logger.Error("Failed to sum order line amounts", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	subtotal := roundMoney(row.Total)
	shippingFee := rule.Fee(subtotal)
	grandTotal := roundMoney(subtotal + shippingFee)

	if err := tx.Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"subtotal":     subtotal,
			"shipping_fee": shippingFee,
			"grand_total":  grandTotal,
		}).Error; err != nil {
		logger.Error("Failed to write recalculated order totals", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	logger.Debug("Order totals recalculated", map[string]interface{}{
		"order_id":     orderID,
		"subtotal":     subtotal,
		"shipping_fee": shippingFee,
		"grand_total":  grandTotal,
	})

	var order model.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
