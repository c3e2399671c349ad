package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MoVahedi1/gym/models"
)

// MemoryStore implements Store with in-memory storage. It mirrors the
// postgres store's guarantees under a mutex and backs local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]*models.Product
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]*models.Product),
		nextID:   1,
	}
}

// Put inserts or replaces a product, assigning an ID when missing.
func (s *MemoryStore) Put(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	} else if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	applyStatusInvariant(&p)
	s.products[p.ID] = &p
	return p
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *MemoryStore) ReserveStock(_ context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return ErrProductNotFound
	}
	if p.StockQuantity < quantity {
		return ErrInsufficientStock
	}

	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now()
	applyStatusInvariant(p)
	return nil
}

func (s *MemoryStore) ReleaseStock(_ context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return ErrProductNotFound
	}

	p.StockQuantity += quantity
	p.UpdatedAt = time.Now()
	applyStatusInvariant(p)
	return nil
}

func (s *MemoryStore) SetStock(_ context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("stock quantity must be non-negative, got %d", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return ErrProductNotFound
	}

	p.StockQuantity = quantity
	p.UpdatedAt = time.Now()
	applyStatusInvariant(p)
	return nil
}

// applyStatusInvariant keeps status in sync with quantity: out_of_stock
// exactly while quantity is zero, reverting to active when stock returns.
func applyStatusInvariant(p *models.Product) {
	switch {
	case p.StockQuantity == 0:
		p.Status = models.ProductStatusOutOfStock
	case p.Status == models.ProductStatusOutOfStock:
		p.Status = models.ProductStatusActive
	}
}
