package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/pkg/logger"
	"github.com/mduc/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrOrderNotMutable      = errors.New("order items can no longer be changed")
	ErrAlreadyCheckedOut    = errors.New("order has already been checked out")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrUnknownStatus        = errors.New("unknown order status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInsufficientStock    = errors.New("insufficient product stock")
	ErrInvalidAddress       = errors.New("shipping address requires street and city")
	ErrOrderForbidden       = errors.New("not allowed to act on this order")
)

// Identity is the caller an order operation acts as: an authenticated
// user with a role, or an anonymous guest (nil UserID).
type Identity struct {
	UserID *uint
	Role   model.UserRole
}

func (i Identity) isStaff() bool {
	return i.Role.CanManageOrders()
}

type Address struct {
	Street string
	City   string
	Ward   string
}

func (a Address) valid() bool {
	return a.Street != "" && a.City != ""
}

type CheckoutInput struct {
	PromotionCode string
	Address       Address
}

type GuestItemInput struct {
	ProductID uint
	Quantity  int
}

type GuestOrderInput struct {
	Items         []GuestItemInput
	Address       Address
	PaymentMethod model.PaymentMethod
	PromotionCode string
}

type OrderService interface {
	GetOrCreateCart(userID uint) (*model.Order, error)
	UpsertItem(actor Identity, orderID, productID uint, quantity int) (*model.Order, error)
	RemoveItem(actor Identity, orderID, productID uint) (*model.Order, error)
	Checkout(actor Identity, orderID uint, input CheckoutInput) (*model.Order, error)
	Pay(actor Identity, orderID uint, method model.PaymentMethod) (*model.Order, error)
	UpdateStatus(orderID uint, newStatus model.OrderStatus) (*model.Order, error)
	CreateGuestOrder(input GuestOrderInput) (*model.Order, error)
	TrackByCode(code string) (*model.Order, error)
	GetOrder(actor Identity, orderID uint) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	ListOrders(status model.OrderStatus) ([]model.Order, error)
	CancelStalePending(olderThan time.Duration) (int64, error)
}

type orderService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	shipping  ShippingRule
}

func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, shipping ShippingRule) OrderService {
	return &orderService{db: db, orderRepo: orderRepo, shipping: shipping}
}

// authorize allows the owner, an anonymous caller on an ownerless
// order, or back-office staff.
func (s *orderService) authorize(actor Identity, order *model.Order) error {
	if actor.isStaff() {
		return nil
	}
	if order.UserID == nil {
		if actor.UserID == nil {
			return nil
		}
		return ErrOrderForbidden
	}
	if actor.UserID != nil && *actor.UserID == *order.UserID {
		return nil
	}
	return ErrOrderForbidden
}

func (s *orderService) find(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrCreateCart returns the user's open cart, creating an empty one
// on first access.
func (s *orderService) GetOrCreateCart(userID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindCartByUserID(userID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order = &model.Order{
		Code:          util.GenerateOrderCode(),
		UserID:        &userID,
		Status:        model.OrderStatusCart,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	logger.Info("Cart created", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  userID,
		"code":     order.Code,
	})
	return s.find(order.ID)
}

func (s *orderService) UpsertItem(actor Identity, orderID, productID uint, quantity int) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusCart {
		return nil, ErrOrderNotMutable
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := upsertLineItem(tx, orderID, productID, quantity); err != nil {
			return err
		}
		_, err := recalcOrderTotals(tx, orderID, s.shipping)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Order item upserted", map[string]interface{}{
		"order_id":   orderID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return s.find(orderID)
}

func (s *orderService) RemoveItem(actor Identity, orderID, productID uint) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusCart {
		return nil, ErrOrderNotMutable
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := removeLineItem(tx, orderID, productID); err != nil {
			return err
		}
		_, err := recalcOrderTotals(tx, orderID, s.shipping)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Order item removed", map[string]interface{}{
		"order_id":   orderID,
		"product_id": productID,
	})
	return s.find(orderID)
}

// Checkout moves a cart to awaiting_payment: totals are recomputed from
// the stored lines one last time, the promotion (if any) is validated
// and bound, stock is reserved, and the status flips in a guarded
// UPDATE so two concurrent checkouts of the same cart cannot both win.
// The whole sequence runs in one transaction; any failure unwinds the
// usage increment and stock decrements with it.
func (s *orderService) Checkout(actor Identity, orderID uint, input CheckoutInput) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusCart {
		return nil, ErrAlreadyCheckedOut
	}
	if len(order.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	addr := input.Address
	if !addr.valid() {
		addr = Address{Street: order.ShippingStreet, City: order.ShippingCity, Ward: order.ShippingWard}
	}
	if !addr.valid() {
		return nil, ErrInvalidAddress
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.checkoutTx(tx, order, actor.UserID, input.PromotionCode, addr)
	})
	if err != nil {
		logger.Warn("Checkout failed", map[string]interface{}{
			"order_id": orderID,
			"reason":   err.Error(),
		})
		return nil, err
	}

	checked, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	logger.Info("Order checked out", map[string]interface{}{
		"order_id":    checked.ID,
		"code":        checked.Code,
		"grand_total": checked.GrandTotal,
		"promotion":   checked.PromotionCode,
	})
	return checked, nil
}

// checkoutTx is the transactional core shared by the authenticated and
// guest paths. order.Items must be loaded; userID is nil for guests.
func (s *orderService) checkoutTx(tx *gorm.DB, order *model.Order, userID *uint, promotionCode string, addr Address) error {
	recalced, err := recalcOrderTotals(tx, order.ID, s.shipping)
	if err != nil {
		return err
	}
	orderAmount := recalced.GrandTotal

	var discount float64
	var promotionID *uint
	boundCode := ""
	if promotionCode != "" {
		result, err := validatePromotion(tx, promotionCode, userID, orderAmount, time.Now())
		if err != nil {
			return err
		}
		if err := bindPromotion(tx, order.ID, userID, result); err != nil {
			return err
		}
		discount = result.DiscountAmount
		promotionID = &result.Promotion.ID
		boundCode = result.Promotion.Code
	}

	for _, item := range order.Items {
		res := tx.Model(&model.Product{}).
			Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
		}
	}

	grandTotal := roundMoney(orderAmount - discount)
	if grandTotal < 0 {
		grandTotal = 0
	}

	updates := map[string]interface{}{
		"grand_total":     grandTotal,
		"discount_amount": discount,
		"shipping_street": addr.Street,
		"shipping_city":   addr.City,
		"shipping_ward":   addr.Ward,
	}
	if promotionID != nil {
		updates["promotion_id"] = *promotionID
		updates["promotion_code"] = boundCode
	}

	ok, err := transitionTx(tx, order.ID, model.OrderStatusCart, model.OrderStatusAwaitingPayment, updates)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyCheckedOut
	}
	return nil
}

// Pay marks an awaiting_payment order as paid. The guarded transition
// makes repeated payment attempts collapse to a single winner.
func (s *orderService) Pay(actor Identity, orderID uint, method model.PaymentMethod) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	if !model.ValidPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}

	ok, err := s.orderRepo.UpdateStatusIf(orderID,
		model.OrderStatusAwaitingPayment, model.OrderStatusPaid,
		map[string]interface{}{
			"payment_status": model.PaymentStatusPaid,
			"payment_method": method,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	logger.Info("Order paid", map[string]interface{}{
		"order_id":       orderID,
		"payment_method": method,
	})
	return s.find(orderID)
}

// UpdateStatus is the back-office transition path. The checkout and
// payment edges are excluded here; they carry money side effects and
// only their dedicated operations may take them.
func (s *orderService) UpdateStatus(orderID uint, newStatus model.OrderStatus) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}

	if newStatus == model.OrderStatusAwaitingPayment || newStatus == model.OrderStatusPaid {
		return nil, ErrInvalidTransition
	}
	if !model.CanTransition(order.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.orderRepo.UpdateStatusIf(orderID, order.Status, newStatus, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against a concurrent transition.
		return nil, ErrInvalidTransition
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     order.Status,
		"to":       newStatus,
	})
	return s.find(orderID)
}

// CreateGuestOrder runs the whole guest flow in one transaction: an
// ownerless order is created, items are loaded through the same upsert
// path as the cart, then the order passes checkout and payment through
// the same guarded transitions the authenticated path uses.
func (s *orderService) CreateGuestOrder(input GuestOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !input.Address.valid() {
		return nil, ErrInvalidAddress
	}
	if !model.ValidPaymentMethod(input.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
		}
	}

	order := &model.Order{
		Code:           util.GenerateOrderCode(),
		Status:         model.OrderStatusCart,
		PaymentStatus:  model.PaymentStatusUnpaid,
		ShippingStreet: input.Address.Street,
		ShippingCity:   input.Address.City,
		ShippingWard:   input.Address.Ward,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for _, item := range input.Items {
			if _, err := upsertLineItem(tx, order.ID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		var items []model.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}
		order.Items = items

		if err := s.checkoutTx(tx, order, nil, input.PromotionCode, input.Address); err != nil {
			return err
		}

		ok, err := transitionTx(tx, order.ID,
			model.OrderStatusAwaitingPayment, model.OrderStatusPaid,
			map[string]interface{}{
				"payment_status": model.PaymentStatusPaid,
				"payment_method": input.PaymentMethod,
			})
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		logger.Warn("Guest order failed", map[string]interface{}{
			"code":   order.Code,
			"reason": err.Error(),
		})
		return nil, err
	}

	placed, err := s.find(order.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("Guest order placed", map[string]interface{}{
		"order_id":    placed.ID,
		"code":        placed.Code,
		"grand_total": placed.GrandTotal,
	})
	return placed, nil
}

// TrackByCode is the public lookup for guest orders; the code is the
// only credential, so the owning account (if any) is stripped.
func (s *orderService) TrackByCode(code string) (*model.Order, error) {
	order, err := s.orderRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	order.User = nil
	return order, nil
}

func (s *orderService) GetOrder(actor Identity, orderID uint) (*model.Order, error) {
	order, err := s.find(orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(userID)
}

func (s *orderService) ListOrders(status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !statusKnown(status) {
		return nil, ErrUnknownStatus
	}
	return s.orderRepo.FindByStatus(status)
}

func statusKnown(status model.OrderStatus) bool {
	switch status {
	case model.OrderStatusCart, model.OrderStatusAwaitingPayment, model.OrderStatusPaid,
		model.OrderStatusShipping, model.OrderStatusDelivered, model.OrderStatusCancelled:
		return true
	}
	return false
}

// CancelStalePending cancels awaiting_payment orders older than the
// given age. Invoked periodically by the expiry scheduler.
func (s *orderService) CancelStalePending(olderThan time.Duration) (int64, error) {
	cancelled, err := s.orderRepo.CancelStaleAwaitingPayment(time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if cancelled > 0 {
		logger.Info("Cancelled stale awaiting-payment orders", map[string]interface{}{
			"count":      cancelled,
			"older_than": olderThan.String(),
		})
	}
	return cancelled, nil
}

// transitionTx is the tx-scoped counterpart of the repository's
// conditional status update.
func transitionTx(tx *gorm.DB, orderID uint, from, to model.OrderStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := tx.Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
