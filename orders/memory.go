package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MoVahedi1/gym/models"
)

// MemoryRepo implements Repo with in-memory storage, mirroring the postgres
// repo's behavior for local runs and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	orders  map[int64]*models.Order
	numbers map[string]struct{}
	nextID  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders:  make(map[int64]*models.Order),
		numbers: make(map[string]struct{}),
		nextID:  1,
	}
}

func (r *MemoryRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		order.OrderNumber = NewOrderNumber()
		if _, taken := r.numbers[order.OrderNumber]; !taken {
			break
		}
	}

	order.ID = r.nextID
	r.nextID++
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	r.numbers[order.OrderNumber] = struct{}{}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id int64) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *MemoryRepo) ListByUser(_ context.Context, userID int64, page, limit int) ([]models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			matched = append(matched, order)
		}
	}
	return paginate(matched, page, limit)
}

func (r *MemoryRepo) ListAll(_ context.Context, page, limit int) ([]models.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		matched = append(matched, order)
	}
	return paginate(matched, page, limit)
}

func (r *MemoryRepo) UpdatePayment(_ context.Context, order *models.Order, from models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return ErrOrderNotFound
	}
	if stored.Payment.Status != from {
		return ErrPaymentStateConflict
	}
	stored.Payment = order.Payment
	stored.Status = order.Status
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return ErrOrderNotFound
	}
	stored.Status = order.Status
	stored.Shipping = order.Shipping
	stored.UpdatedAt = time.Now()
	return nil
}

func paginate(matched []*models.Order, page, limit int) ([]models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	result := make([]models.Order, 0, end-start)
	for _, order := range matched[start:end] {
		result = append(result, *cloneOrder(order))
	}
	return result, total, nil
}

func cloneOrder(order *models.Order) *models.Order {
	copied := *order
	copied.Items = append([]models.OrderItem(nil), order.Items...)
	return &copied
}
