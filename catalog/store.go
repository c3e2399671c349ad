package catalog

import (
	"context"
	"errors"

	"github.com/MoVahedi1/gym/models"
)

// Common errors returned by the store
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store is the only component allowed to mutate product stock. ReserveStock
// must be a single atomic conditional decrement so concurrent checkouts of
// the last unit cannot both succeed.
type Store interface {
	// GetProduct returns the product or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)

	// ReserveStock decrements stock_quantity by quantity only if the current
	// value is at least quantity, as one indivisible operation. Returns
	// ErrInsufficientStock without mutating state when the guard fails.
	// A product whose quantity reaches zero is flipped to out_of_stock.
	ReserveStock(ctx context.Context, id int64, quantity int) error

	// ReleaseStock adds quantity back, compensating a reservation whose
	// enclosing operation failed. An out_of_stock product that regains
	// stock reverts to active.
	ReleaseStock(ctx context.Context, id int64, quantity int) error

	// SetStock overwrites the stock level (admin/seed path). The status
	// invariant is maintained the same way as for reserve/release.
	SetStock(ctx context.Context, id int64, quantity int) error
}
