package pricing

import (
	"context"
	"testing"

	"github.com/MoVahedi1/gym/models"
)

func quoteItems(prices ...int64) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(prices))
	for _, p := range prices {
		items = append(items, models.OrderItem{Price: p, Quantity: 1})
	}
	return items
}

func TestQuote_ShippingCosts(t *testing.T) {
	engine := NewEngine(nil, nil)

	tests := []struct {
		name     string
		method   models.ShippingMethod
		price    int64
		shipping int64
	}{
		{"express", models.ShippingMethodExpress, 100000, 30000},
		{"standard", models.ShippingMethodStandard, 100000, 20000},
		{"free", models.ShippingMethodFree, 100000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := engine.Quote(context.Background(), quoteItems(tt.price), tt.method, "")
			if err != nil {
				t.Fatalf("Quote failed: %v", err)
			}
			if totals.Shipping != tt.shipping {
				t.Errorf("Expected shipping %d, got %d", tt.shipping, totals.Shipping)
			}
		})
	}
}

func TestQuote_FreeShippingThreshold(t *testing.T) {
	engine := NewEngine(nil, nil)

	below, err := engine.Quote(context.Background(), quoteItems(499999), models.ShippingMethodExpress, "")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if below.Shipping != ExpressShippingCost {
		t.Errorf("Expected shipping %d just below threshold, got %d", ExpressShippingCost, below.Shipping)
	}

	at, err := engine.Quote(context.Background(), quoteItems(500000), models.ShippingMethodExpress, "")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if at.Shipping != 0 {
		t.Errorf("Expected free shipping at threshold, got %d", at.Shipping)
	}
}

func TestQuote_TotalsIdentity(t *testing.T) {
	engine := NewEngine(PercentDiscount{Percent: 10}, nil)

	carts := [][]models.OrderItem{
		quoteItems(1000),
		quoteItems(499999),
		quoteItems(500000),
		{{Price: 120000, Quantity: 3}, {Price: 45000, Quantity: 2}},
	}

	for _, items := range carts {
		totals, err := engine.Quote(context.Background(), items, models.ShippingMethodStandard, "DEMO10")
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if !totals.Consistent() {
			t.Errorf("Totals identity violated: %+v", totals)
		}
	}
}

func TestQuote_ItemsTotal(t *testing.T) {
	engine := NewEngine(nil, nil)

	items := []models.OrderItem{
		{Price: 150000, Quantity: 2},
		{Price: 80000, Quantity: 1},
	}
	totals, err := engine.Quote(context.Background(), items, models.ShippingMethodFree, "")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if totals.Items != 380000 {
		t.Errorf("Expected items total 380000, got %d", totals.Items)
	}
}

type fixedDiscount struct{ amount int64 }

func (d fixedDiscount) ResolveDiscount(_ context.Context, _ string, _ int64) (int64, error) {
	return d.amount, nil
}

func TestQuote_DiscountClampedToItemsTotal(t *testing.T) {
	engine := NewEngine(fixedDiscount{amount: 999999}, nil)

	totals, err := engine.Quote(context.Background(), quoteItems(1000), models.ShippingMethodFree, "BIG")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if totals.Discount != 1000 {
		t.Errorf("Expected discount clamped to 1000, got %d", totals.Discount)
	}
	if totals.Total != 0 {
		t.Errorf("Expected total 0, got %d", totals.Total)
	}
}

func TestQuote_PercentDiscount(t *testing.T) {
	engine := NewEngine(PercentDiscount{Percent: 10}, nil)

	totals, err := engine.Quote(context.Background(), quoteItems(100000), models.ShippingMethodFree, "DEMO10")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if totals.Discount != 10000 {
		t.Errorf("Expected discount 10000, got %d", totals.Discount)
	}

	// No code, no discount
	totals, err = engine.Quote(context.Background(), quoteItems(100000), models.ShippingMethodFree, "")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if totals.Discount != 0 {
		t.Errorf("Expected no discount without a code, got %d", totals.Discount)
	}
}
