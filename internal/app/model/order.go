package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type PaymentStatus string
type PaymentMethod string

const (
	OrderStatusCart            OrderStatus = "cart"             // mutable, items may change
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment" // checked out, totals frozen
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusShipping        OrderStatus = "shipping"
	OrderStatusDelivered       OrderStatus = "delivered" // terminal
	OrderStatusCancelled       OrderStatus = "cancelled" // terminal

	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"

	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// statusTransitions is the full adjacency table of the order lifecycle.
// Every transition in the system goes through CanTransition; there are no
// per-call-site status checks.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCart:            {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:            {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:        {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether the lifecycle graph allows from → to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// ValidPaymentMethod reports whether m belongs to the accepted closed set.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	}
	return false
}

type Order struct {
	ID     uint        `gorm:"primarykey" json:"id"`
	Code   string      `gorm:"uniqueIndex;not null" json:"code"` // shareable, used for guest tracking
	UserID *uint       `gorm:"index" json:"user_id,omitempty"`   // nil for guest orders
	Status OrderStatus `gorm:"type:varchar(20);default:'cart';index" json:"status"`

	// Derived money fields, written only by totals recalculation and
	// promotion binding. Never accepted from a client.
	Subtotal    float64 `gorm:"not null;default:0" json:"subtotal"`
	ShippingFee float64 `gorm:"not null;default:0" json:"shipping_fee"`
	GrandTotal  float64 `gorm:"not null;default:0" json:"grand_total"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'unpaid'" json:"payment_status"`

	// Shipping address snapshot, captured at order creation and
	// immutable afterward.
	ShippingStreet string `gorm:"type:varchar(255)" json:"shipping_street"`
	ShippingCity   string `gorm:"type:varchar(100)" json:"shipping_city"`
	ShippingWard   string `gorm:"type:varchar(100)" json:"shipping_ward,omitempty"`

	// Applied promotion, frozen at bind time even if the promotion
	// definition later changes.
	PromotionID    *uint   `gorm:"index" json:"promotion_id,omitempty"`
	PromotionCode  string  `gorm:"type:varchar(50)" json:"promotion_code,omitempty"`
	DiscountAmount float64 `gorm:"not null;default:0" json:"discount_amount"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// IsGuest reports whether the order has no owning identity.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// OrderItem rows are hard-deleted on removal: the (order, product) unique
// index backs the add-or-update upsert, and a soft-deleted row would block
// re-adding the same product.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"not null;uniqueIndex:idx_order_items_order_product" json:"order_id"`
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_order_items_order_product" json:"product_id"`
	ProductName string    `gorm:"not null" json:"product_name"` // name snapshot for historical display
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"not null" json:"unit_price"` // price snapshot at upsert time
	LineAmount  float64   `gorm:"not null" json:"line_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
