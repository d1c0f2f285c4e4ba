package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/service"
	apierrors "github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/internal/middleware"
	"github.com/mduc/storefront-backend/pkg/logger"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpsertItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type AddressRequest struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Ward   string `json:"ward"`
}

type CheckoutRequest struct {
	PromotionCode string          `json:"promotion_code"`
	Address       *AddressRequest `json:"address"`
}

type PayRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method" binding:"required"`
}

type UpdateStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type GuestItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type GuestOrderRequest struct {
	Items         []GuestItemRequest  `json:"items" binding:"required,min=1,dive"`
	Address       AddressRequest      `json:"address" binding:"required"`
	PaymentMethod model.PaymentMethod `json:"payment_method" binding:"required"`
	PromotionCode string              `json:"promotion_code"`
}

// actorFromContext builds the acting identity from whatever the auth
// middleware put in the context; absent values mean an anonymous guest.
func actorFromContext(c *gin.Context) service.Identity {
	var actor service.Identity
	if userID, ok := middleware.GetUserID(c); ok {
		actor.UserID = &userID
	}
	if role, ok := middleware.GetUserRole(c); ok {
		actor.Role = role
	}
	return actor
}

// GetMyCart returns the caller's open cart, creating one on first use
// GET /api/v1/orders/my-cart
func (ctrl *OrderController) GetMyCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	order, err := ctrl.orderService.GetOrCreateCart(userID)
	if err != nil {
		log.Error("Failed to get or create cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// UpsertItem adds a product to an order or replaces its quantity
// POST /api/v1/orders/:id/items
func (ctrl *OrderController) UpsertItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpsertItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	order, err := ctrl.orderService.UpsertItem(actorFromContext(c), orderID, req.ProductID, req.Quantity)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// RemoveItem deletes a product line from an order
// DELETE /api/v1/orders/:id/items/:productId
func (ctrl *OrderController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	order, err := ctrl.orderService.RemoveItem(actorFromContext(c), orderID, productID)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// Checkout freezes a cart into awaiting_payment
// POST /api/v1/orders/:id/checkout
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	input := service.CheckoutInput{PromotionCode: req.PromotionCode}
	if req.Address != nil {
		input.Address = service.Address{
			Street: req.Address.Street,
			City:   req.Address.City,
			Ward:   req.Address.Ward,
		}
	}

	order, err := ctrl.orderService.Checkout(actorFromContext(c), orderID, input)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// Pay marks an awaiting_payment order as paid
// POST /api/v1/orders/:id/pay
func (ctrl *OrderController) Pay(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	order, err := ctrl.orderService.Pay(actorFromContext(c), orderID, req.PaymentMethod)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// UpdateStatus moves an order along the lifecycle (staff/admin)
// PATCH /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	order, err := ctrl.orderService.UpdateStatus(orderID, req.Status)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// CreateGuestOrder places a complete guest order in one call
// POST /api/v1/orders/guest
func (ctrl *OrderController) CreateGuestOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GuestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	input := service.GuestOrderInput{
		Address: service.Address{
			Street: req.Address.Street,
			City:   req.Address.City,
			Ward:   req.Address.Ward,
		},
		PaymentMethod: req.PaymentMethod,
		PromotionCode: req.PromotionCode,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.GuestItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := ctrl.orderService.CreateGuestOrder(input)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusCreated, gin.H{"order": order})
}

// TrackByCode returns an order by its shareable code
// GET /api/v1/orders/track/:code
func (ctrl *OrderController) TrackByCode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	code := c.Param("code")
	order, err := ctrl.orderService.TrackByCode(code)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apierrors.NotFound(c, apierrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to track order", err, map[string]interface{}{
			"code": code,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// GetOrders returns the caller's order history (carts excluded)
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to list user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one order the caller may see
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(actorFromContext(c), orderID)
	if err != nil {
		respondOrderError(c, log, err)
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"order": order})
}

// ListOrders returns orders filtered by status (staff/admin)
// GET /api/v1/admin/orders?status=
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	status := model.OrderStatus(c.Query("status"))
	orders, err := ctrl.orderService.ListOrders(status)
	if err != nil {
		if errors.Is(err, service.ErrUnknownStatus) {
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Unknown order status")
			return
		}
		log.Error("Failed to list orders", err, map[string]interface{}{
			"status": status,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// respondOrderError maps order and promotion service errors onto the
// response envelope. Unrecognized errors become 500s.
func respondOrderError(c *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		apierrors.NotFound(c, apierrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrOrderForbidden):
		apierrors.Forbidden(c, "")
	case errors.Is(err, service.ErrOrderNotMutable):
		apierrors.Conflict(c, apierrors.OrderNotMutable, "Order items can no longer be changed")
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		apierrors.Conflict(c, apierrors.OrderAlreadyCheckedOut, "Order has already been checked out")
	case errors.Is(err, service.ErrEmptyOrder):
		apierrors.BadRequest(c, apierrors.OrderEmpty, "Order has no items")
	case errors.Is(err, service.ErrInvalidTransition):
		apierrors.Conflict(c, apierrors.OrderInvalidTransition, "Invalid order status transition")
	case errors.Is(err, service.ErrUnknownStatus):
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Unknown order status")
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		apierrors.BadRequest(c, apierrors.OrderInvalidPaymentMethod, "Invalid payment method")
	case errors.Is(err, service.ErrInvalidAddress):
		apierrors.BadRequest(c, apierrors.OrderInvalidAddress, "Shipping address requires street and city")
	case errors.Is(err, service.ErrInsufficientStock):
		apierrors.Conflict(c, apierrors.OrderInsufficientStock, err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		apierrors.NotFound(c, apierrors.OrderItemNotFound, "Order item not found")
	case errors.Is(err, service.ErrProductUnavailable):
		apierrors.BadRequest(c, apierrors.ProductUnavailable, "Product is not available")
	case errors.Is(err, service.ErrPromotionNotFound):
		apierrors.BadRequest(c, apierrors.PromoInvalidCode, "Invalid promotion code")
	case errors.Is(err, service.ErrPromotionNotStarted):
		apierrors.BadRequest(c, apierrors.PromoNotStarted, "Promotion has not started yet")
	case errors.Is(err, service.ErrPromotionExpired):
		apierrors.BadRequest(c, apierrors.PromoExpired, "Promotion has expired")
	case errors.Is(err, service.ErrPromotionUsageLimit):
		apierrors.Conflict(c, apierrors.PromoUsageLimitReached, "Promotion usage limit reached")
	case errors.Is(err, service.ErrPromotionPerUserLimit):
		apierrors.Conflict(c, apierrors.PromoPerUserLimitReached, "Promotion usage limit for this account reached")
	case errors.Is(err, service.ErrPromotionBelowMin):
		apierrors.BadRequest(c, apierrors.PromoBelowMinimum, err.Error())
	default:
		log.Error("Order operation failed", err, map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apierrors.InternalError(c, "")
	}
}
