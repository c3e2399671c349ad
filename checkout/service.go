package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MoVahedi1/gym/catalog"
	"github.com/MoVahedi1/gym/circuitbreaker"
	"github.com/MoVahedi1/gym/models"
	"github.com/MoVahedi1/gym/orders"
	"github.com/MoVahedi1/gym/payment"
	"github.com/MoVahedi1/gym/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher pushes order lifecycle events to the message bus.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// Service orchestrates checkout: it validates carts, prices them, persists
// pending orders, captures payment and commits stock, and drives the admin
// fulfillment transitions. All stock movement goes through the catalog
// store's atomic primitives; the service never holds a lock across the
// payment round trip.
type Service struct {
	catalog   catalog.Store
	orders    orders.Repo
	gateway   payment.Gateway
	pricing   *pricing.Engine
	breaker   *circuitbreaker.CircuitBreaker
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(
	catalogStore catalog.Store,
	orderRepo orders.Repo,
	gateway payment.Gateway,
	engine *pricing.Engine,
	breaker *circuitbreaker.CircuitBreaker,
	publisher EventPublisher,
	logger *zap.Logger,
) *Service {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 30*time.Second)
	}
	return &Service{
		catalog:   catalogStore,
		orders:    orderRepo,
		gateway:   gateway,
		pricing:   engine,
		breaker:   breaker,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrder validates the cart, snapshots each line at current catalog
// values, prices the cart, and persists a pending order. Payment is a
// separate step so a client can retry capture without re-submitting the cart.
func (s *Service) CreateOrder(ctx context.Context, userID int64, req *models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Status != models.ProductStatusActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
		}
		// Advisory pre-check only; the atomic reservation at capture time is
		// the real enforcement.
		if product.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%w: %s", catalog.ErrInsufficientStock, product.Name)
		}

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Image:     product.Image,
		})
	}

	totals, err := s.pricing.Quote(ctx, items, req.ShippingMethod, req.DiscountCode)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Payment: models.Payment{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
			Amount: totals.Total,
		},
		Shipping: models.Shipping{
			Method: req.ShippingMethod,
			Cost:   totals.Shipping,
			Status: models.ShippingStatusPending,
		},
		Totals:       totals,
		Status:       models.OrderStatusPending,
		Notes:        req.Notes,
		DiscountCode: req.DiscountCode,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	ordersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", userID),
		zap.Int64("total", order.Totals.Total),
	)

	s.publish(ctx, order, "order_created")
	return order, nil
}

// CapturePayment charges the provider and, on success, commits one stock
// reservation per item. A capture on an already-paid order is a no-op
// success. If any reservation fails, earlier reservations in the same order
// are released and the payment is marked failed with reason
// StockChangedDuringCapture.
func (s *Service) CapturePayment(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Payment.Status == models.PaymentStatusPaid {
		s.logger.Info("Capture on already-paid order, returning stored result",
			zap.Int64("order_id", order.ID),
			zap.String("transaction_id", order.Payment.TransactionID),
		)
		return order, nil
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPayable
	}

	// Payment status observed at the start of this attempt. Every write below
	// is a compare-and-set against it, so of two concurrent captures only one
	// can commit.
	claimedFrom := order.Payment.Status

	var result payment.Result
	err = s.breaker.Execute(ctx, func() error {
		var chargeErr error
		result, chargeErr = s.gateway.Charge(ctx, order.Totals.Total, order.Payment.Method, order.OrderNumber)
		return chargeErr
	})
	if err != nil {
		// Outcome unknown: payment stays pending so the client can retry the
		// same capture safely.
		paymentCapturesTotal.WithLabelValues("unavailable").Inc()
		s.logger.Warn("Payment provider unavailable",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, payment.ErrGatewayTimeout) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
		return nil, err
	}

	if !result.Success {
		order.Payment.Status = models.PaymentStatusFailed
		order.Payment.FailureReason = result.FailureReason
		if err := s.orders.UpdatePayment(ctx, order, claimedFrom); err != nil {
			if errors.Is(err, orders.ErrPaymentStateConflict) {
				return s.resolveConcurrentCapture(ctx, order.ID)
			}
			return nil, err
		}
		paymentCapturesTotal.WithLabelValues("declined").Inc()
		s.publish(ctx, order, "payment_failed")
		return order, fmt.Errorf("%w: %s", ErrPaymentDeclined, result.FailureReason)
	}

	// Provider approved; commit stock item by item, compensating on partial
	// failure so "paid" and "stock decremented" stay atomic per order.
	if err := s.reserveItems(ctx, order); err != nil {
		order.Payment.Status = models.PaymentStatusFailed
		order.Payment.FailureReason = "StockChangedDuringCapture"
		if updateErr := s.orders.UpdatePayment(ctx, order, claimedFrom); updateErr != nil {
			if errors.Is(updateErr, orders.ErrPaymentStateConflict) {
				return s.resolveConcurrentCapture(ctx, order.ID)
			}
			return nil, updateErr
		}
		stockConflictsTotal.Inc()
		paymentCapturesTotal.WithLabelValues("stock_conflict").Inc()
		s.publish(ctx, order, "payment_failed")
		return order, err
	}

	now := time.Now()
	order.Payment.Status = models.PaymentStatusPaid
	order.Payment.TransactionID = result.TransactionID
	order.Payment.PaidAt = &now
	order.Payment.FailureReason = ""
	order.Status = models.OrderStatusConfirmed
	if err := s.orders.UpdatePayment(ctx, order, claimedFrom); err != nil {
		if errors.Is(err, orders.ErrPaymentStateConflict) {
			// A concurrent capture settled the order first. Give back the
			// stock this attempt reserved; the winner's reservation stands.
			if relErr := s.releaseItems(ctx, order, len(order.Items)); relErr != nil {
				return nil, relErr
			}
			return s.resolveConcurrentCapture(ctx, order.ID)
		}
		return nil, err
	}

	paymentCapturesTotal.WithLabelValues("paid").Inc()
	s.logger.Info("Payment captured",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("transaction_id", result.TransactionID),
		zap.Int64("amount", order.Totals.Total),
	)

	s.publish(ctx, order, "order_paid")
	return order, nil
}

// reserveItems commits one atomic reservation per item. On failure it
// releases every reservation applied so far; a release failure is fatal
// because stock is then inconsistent.
func (s *Service) reserveItems(ctx context.Context, order *models.Order) error {
	for i, item := range order.Items {
		if err := s.catalog.ReserveStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Warn("Stock reservation failed during capture",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)

			if relErr := s.releaseItems(ctx, order, i); relErr != nil {
				return relErr
			}

			if errors.Is(err, catalog.ErrInsufficientStock) || errors.Is(err, catalog.ErrProductNotFound) {
				return fmt.Errorf("%w: product %d", ErrStockChangedDuringCapture, item.ProductID)
			}
			return err
		}
	}
	return nil
}

// releaseItems returns the first count reserved items to the catalog.
func (s *Service) releaseItems(ctx context.Context, order *models.Order, count int) error {
	for j := 0; j < count; j++ {
		released := order.Items[j]
		if err := s.catalog.ReleaseStock(ctx, released.ProductID, released.Quantity); err != nil {
			s.logger.Error("Failed to release reserved stock",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", released.ProductID),
				zap.Int("quantity", released.Quantity),
				zap.Error(err),
			)
			return fmt.Errorf("%w: product %d: %v", ErrCompensationFailed, released.ProductID, err)
		}
	}
	return nil
}

// resolveConcurrentCapture reloads an order after this attempt lost the
// compare-and-set race. If the winner captured the payment, the retry is
// treated like a capture on an already-paid order and succeeds with the
// stored result. Otherwise the caller gets the settled order and a conflict
// to retry against.
func (s *Service) resolveConcurrentCapture(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Capture lost to a concurrent attempt",
		zap.Int64("order_id", order.ID),
		zap.String("payment_status", string(order.Payment.Status)),
	)
	if order.Payment.Status == models.PaymentStatusPaid {
		return order, nil
	}
	return order, ErrCaptureConflict
}

// GetOrder returns the order if the caller owns it or is an admin.
func (s *Service) GetOrder(ctx context.Context, orderID, userID int64, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// ListOrdersForUser returns a page of the user's own orders, newest first.
func (s *Service) ListOrdersForUser(ctx context.Context, userID int64, page, limit int) ([]models.Order, int, error) {
	return s.orders.ListByUser(ctx, userID, page, limit)
}

// ListAllOrders returns a page of every order. Admin-only surface.
func (s *Service) ListAllOrders(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	return s.orders.ListAll(ctx, page, limit)
}

// SetOrderStatus applies an admin fulfillment transition. The lifecycle
// graph is enforced; confirmed is only reachable through payment capture,
// never set directly. Shipping timestamps are stamped on the first
// transition into shipped and delivered.
func (s *Service) SetOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, next)
	}
	if next == models.OrderStatusConfirmed {
		return nil, fmt.Errorf("%w: confirmed is set by payment capture only", ErrIllegalTransition)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, next)
	}

	now := time.Now()
	switch next {
	case models.OrderStatusShipped:
		order.Shipping.Status = models.ShippingStatusShipped
		if order.Shipping.ShippedAt == nil {
			order.Shipping.ShippedAt = &now
		}
		if order.Shipping.TrackingNumber == "" {
			order.Shipping.TrackingNumber = newTrackingNumber()
		}
	case models.OrderStatusDelivered:
		order.Shipping.Status = models.ShippingStatusDelivered
		if order.Shipping.DeliveredAt == nil {
			order.Shipping.DeliveredAt = &now
		}
	case models.OrderStatusCancelled:
		order.Shipping.Status = models.ShippingStatusCancelled
	}
	order.Status = next

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("status", next.String()),
	)

	s.publish(ctx, order, "order_status_changed")
	return order, nil
}

func newTrackingNumber() string {
	return "TRK-" + strings.ToUpper(uuid.NewString()[:12])
}

// publish sends the event best-effort. Losing an event must never fail the
// state change that already committed.
func (s *Service) publish(ctx context.Context, order *models.Order, eventType string) {
	if s.publisher == nil {
		return
	}
	event := models.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Totals.Total,
		EventType:   eventType,
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.Int64("order_id", order.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
