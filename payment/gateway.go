package payment

import (
	"context"

	"github.com/MoVahedi1/gym/models"
)

// Result is what a charge attempt produced. Success false with a
// FailureReason is a definitive decline; a transport error from Charge
// means the outcome is unknown and the caller may retry.
type Result struct {
	Success       bool
	TransactionID string
	FailureReason string
}

// Gateway abstracts the payment provider. Charge is keyed by an
// idempotency key (the order number) so a retried capture cannot double
// charge the customer.
type Gateway interface {
	Charge(ctx context.Context, amount int64, method models.PaymentMethod, idempotencyKey string) (Result, error)
}
