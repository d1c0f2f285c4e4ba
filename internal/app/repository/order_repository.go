package repository

import (
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByCode(code string) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindCartByUserID(userID uint) (*model.Order, error)
	FindByStatus(status model.OrderStatus) ([]model.Order, error)
	UpdateStatusIf(id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error)
	CancelStaleAwaitingPayment(before time.Time) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Product").Order("order_items.id")
	}).Preload("User")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id": order.UserID,
		"code":    order.Code,
		"status":  order.Status,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
			"code":    order.Code,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"code":     order.Code,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByCode(code string) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder().Where("code = ?", code).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	var orders []model.Order
	if err := r.preloadOrder().
		Where("user_id = ? AND status <> ?", userID, model.OrderStatusCart).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

// FindCartByUserID returns the user's open cart order, if one exists.
func (r *orderRepository) FindCartByUserID(userID uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder().
		Where("user_id = ? AND status = ?", userID, model.OrderStatusCart).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByStatus(status model.OrderStatus) ([]model.Order, error) {
	query := r.preloadOrder()
	if status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", model.OrderStatusCart)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by status in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, err
	}
	return orders, nil
}

// UpdateStatusIf performs a conditional transition: the write succeeds only
// when the order is still in the expected `from` status, so two concurrent
// transition attempts on the same order cannot both win. Extra column
// writes (totals, promotion binding, payment fields) ride along in the
// same guarded UPDATE.
func (r *orderRepository) UpdateStatusIf(id uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"from":     from,
			"to":       to,
		})
		return false, result.Error
	}

	logger.Debug("Conditional order status update", map[string]interface{}{
		"order_id":      id,
		"from":          from,
		"to":            to,
		"rows_affected": result.RowsAffected,
	})
	return result.RowsAffected > 0, nil
}

// CancelStaleAwaitingPayment cancels unpaid orders that were checked out
// before the given cutoff. Used by the expiry scheduler.
func (r *orderRepository) CancelStaleAwaitingPayment(before time.Time) (int64, error) {
	result := r.db.Model(&model.Order{}).
		Where("status = ? AND updated_at < ?", model.OrderStatusAwaitingPayment, before).
		Update("status", model.OrderStatusCancelled)
	if result.Error != nil {
		logger.Error("Failed to cancel stale awaiting-payment orders", result.Error, map[string]interface{}{
			"before": before,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
