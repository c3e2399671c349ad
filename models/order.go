package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the enforced lifecycle graph. Confirmation only
// happens through payment capture; cancellation is allowed until shipment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether next is reachable from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodWallet PaymentMethod = "wallet"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type ShippingMethod string

const (
	ShippingMethodExpress  ShippingMethod = "express"
	ShippingMethodStandard ShippingMethod = "standard"
	ShippingMethodFree     ShippingMethod = "free"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "pending"
	ShippingStatusShipped   ShippingStatus = "shipped"
	ShippingStatusDelivered ShippingStatus = "delivered"
	ShippingStatusCancelled ShippingStatus = "cancelled"
)

// OrderItem is an immutable snapshot of a product line taken at order
// creation. Later catalog edits never change it.
type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Amount        int64         `json:"amount"`
	FailureReason string        `json:"failure_reason,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type Shipping struct {
	Method         ShippingMethod `json:"method"`
	Cost           int64          `json:"cost"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	Status         ShippingStatus `json:"status"`
	ShippedAt      *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
}

// Totals is the derived monetary breakdown. Total must always equal
// Items - Discount + Shipping + Tax; it is recomputed server-side and
// never accepted from a client.
type Totals struct {
	Items    int64 `json:"items"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Consistent reports whether the totals identity holds.
func (t Totals) Consistent() bool {
	return t.Total == t.Items-t.Discount+t.Shipping+t.Tax
}

type Order struct {
	ID              int64       `json:"id"`
	OrderNumber     string      `json:"order_number"`
	UserID          int64       `json:"user_id"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shipping_address"`
	Payment         Payment     `json:"payment"`
	Shipping        Shipping    `json:"shipping"`
	Totals          Totals      `json:"totals"`
	Status          OrderStatus `json:"status"`
	Notes           string      `json:"notes,omitempty"`
	DiscountCode    string      `json:"discount_code,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required"`
	ShippingAddress Address            `json:"shipping_address"`
	PaymentMethod   PaymentMethod      `json:"payment_method" binding:"required,oneof=online cash wallet"`
	ShippingMethod  ShippingMethod     `json:"shipping_method" binding:"required,oneof=express standard free"`
	DiscountCode    string             `json:"discount_code"`
	Notes           string             `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

// OrderEvent is published to Kafka on order state changes.
// EventType is one of order_created, order_paid, payment_failed,
// order_status_changed.
type OrderEvent struct {
	OrderID     int64       `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      int64       `json:"user_id"`
	Status      OrderStatus `json:"status"`
	Total       int64       `json:"total"`
	EventType   string      `json:"event_type"`
}
