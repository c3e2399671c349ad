package checkout

import "errors"

var (
	// ErrEmptyCart rejects order creation with no line items.
	ErrEmptyCart = errors.New("order must contain at least one item")

	// ErrProductUnavailable means a requested product is not purchasable
	// (inactive or discontinued) at creation time.
	ErrProductUnavailable = errors.New("product is not available")

	// ErrPaymentDeclined is a definitive gateway decline. The order stays
	// pending with payment status failed; a new capture may be attempted.
	ErrPaymentDeclined = errors.New("payment was declined")

	// ErrPaymentUnavailable means the gateway could not give a definitive
	// answer (timeout or open circuit). Payment stays pending.
	ErrPaymentUnavailable = errors.New("payment provider unavailable")

	// ErrOrderNotPayable is returned when capture is attempted on an order
	// that is not awaiting payment (for example cancelled).
	ErrOrderNotPayable = errors.New("order is not awaiting payment")

	// ErrStockChangedDuringCapture means payment succeeded but the stock a
	// customer saw at creation was sold out before capture. The payment is
	// marked failed; the provider keeps the charge under the order's
	// idempotency key, so a later capture reuses it instead of charging again.
	ErrStockChangedDuringCapture = errors.New("stock changed during capture")

	// ErrCaptureConflict means a concurrent capture attempt settled the order
	// first with a non-paid outcome. The returned order carries that outcome;
	// the client may retry.
	ErrCaptureConflict = errors.New("order was settled by a concurrent capture")

	// ErrCompensationFailed means a partial reservation could not be fully
	// released. Stock is inconsistent and needs operator attention.
	ErrCompensationFailed = errors.New("failed to release reserved stock")

	// ErrUnauthorized is returned when a user reads an order they do not own.
	ErrUnauthorized = errors.New("not allowed to access this order")

	// ErrIllegalTransition rejects a status change the lifecycle graph does
	// not permit.
	ErrIllegalTransition = errors.New("illegal order status transition")
)
