package orders

import (
	"context"
	"errors"

	"github.com/MoVahedi1/gym/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrPaymentStateConflict means the payment status moved between the
	// caller's read and its conditional write, i.e. another capture attempt
	// settled the order first.
	ErrPaymentStateConflict = errors.New("payment state changed concurrently")
)

// Repo persists order aggregates. Orders are never deleted; state changes
// go through the targeted update methods so no caller can rewrite an
// aggregate wholesale.
type Repo interface {
	// Create persists the order and its item snapshot in one transaction,
	// assigning the ID and a unique order number. Generation is retried on
	// the rare order-number collision.
	Create(ctx context.Context, order *models.Order) error

	// FindByID returns the full aggregate or ErrOrderNotFound.
	FindByID(ctx context.Context, id int64) (*models.Order, error)

	// ListByUser returns a page of the user's orders, newest first, plus
	// the total count.
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]models.Order, int, error)

	// ListAll returns a page of all orders, newest first, plus the total
	// count. Admin-only surface.
	ListAll(ctx context.Context, page, limit int) ([]models.Order, int, error)

	// UpdatePayment persists the payment block and overall status after a
	// capture attempt. The write is a compare-and-set against the payment
	// status observed at the start of the attempt: if it no longer matches,
	// nothing is written and ErrPaymentStateConflict is returned, so two
	// concurrent captures cannot both commit.
	UpdatePayment(ctx context.Context, order *models.Order, from models.PaymentStatus) error

	// UpdateStatus persists the overall status and the shipping block's
	// status and timestamps after an admin transition.
	UpdateStatus(ctx context.Context, order *models.Order) error
}
