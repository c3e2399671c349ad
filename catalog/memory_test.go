package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MoVahedi1/gym/models"
)

func seedProduct(store *MemoryStore, stock int) int64 {
	product := store.Put(models.Product{
		Name:          "Whey Protein 2kg",
		Price:         185000,
		StockQuantity: stock,
		Status:        models.ProductStatusActive,
	})
	return product.ID
}

func TestMemoryStore_ReserveStock(t *testing.T) {
	store := NewMemoryStore()
	id := seedProduct(store, 5)

	if err := store.ReserveStock(context.Background(), id, 3); err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}

	product, err := store.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if product.StockQuantity != 2 {
		t.Errorf("Expected stock 2, got %d", product.StockQuantity)
	}
}

func TestMemoryStore_ReserveStock_Insufficient(t *testing.T) {
	store := NewMemoryStore()
	id := seedProduct(store, 2)

	err := store.ReserveStock(context.Background(), id, 3)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	// The failed guard must not mutate state
	product, _ := store.GetProduct(context.Background(), id)
	if product.StockQuantity != 2 {
		t.Errorf("Expected stock unchanged at 2, got %d", product.StockQuantity)
	}
}

func TestMemoryStore_ReserveStock_NotFound(t *testing.T) {
	store := NewMemoryStore()

	if err := store.ReserveStock(context.Background(), 42, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestMemoryStore_StatusFollowsStock(t *testing.T) {
	store := NewMemoryStore()
	id := seedProduct(store, 1)

	if err := store.ReserveStock(context.Background(), id, 1); err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	product, _ := store.GetProduct(context.Background(), id)
	if product.Status != models.ProductStatusOutOfStock {
		t.Errorf("Expected out_of_stock at zero, got %s", product.Status)
	}

	if err := store.ReleaseStock(context.Background(), id, 1); err != nil {
		t.Fatalf("ReleaseStock failed: %v", err)
	}
	product, _ = store.GetProduct(context.Background(), id)
	if product.Status != models.ProductStatusActive {
		t.Errorf("Expected active after restock, got %s", product.Status)
	}
	if product.StockQuantity != 1 {
		t.Errorf("Expected stock 1, got %d", product.StockQuantity)
	}
}

// Launch more concurrent reservations than there is stock; exactly stock
// many must succeed and the rest must fail without overselling.
func TestMemoryStore_ConcurrentReservations_NoOversell(t *testing.T) {
	const stock = 10
	const attempts = 50

	store := NewMemoryStore()
	id := seedProduct(store, stock)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.ReserveStock(context.Background(), id, 1)
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successes != stock {
		t.Errorf("Expected %d successful reservations, got %d", stock, successes)
	}
	if insufficient != attempts-stock {
		t.Errorf("Expected %d insufficient-stock failures, got %d", attempts-stock, insufficient)
	}

	product, _ := store.GetProduct(context.Background(), id)
	if product.StockQuantity != 0 {
		t.Errorf("Expected final stock 0, got %d", product.StockQuantity)
	}
	if product.Status != models.ProductStatusOutOfStock {
		t.Errorf("Expected out_of_stock, got %s", product.Status)
	}
}
