package pricing

import (
	"context"
	"fmt"

	"github.com/MoVahedi1/gym/models"
)

// Shipping cost tiers and the order value at which shipping becomes free
// regardless of the selected method.
const (
	ExpressShippingCost  int64 = 30000
	StandardShippingCost int64 = 20000
	FreeShippingMinimum  int64 = 500000
)

// DiscountResolver turns a discount code into an amount. Implementations
// must never return more than itemsTotal.
type DiscountResolver interface {
	ResolveDiscount(ctx context.Context, code string, itemsTotal int64) (int64, error)
}

// TaxResolver computes tax for an order. The storefront currently charges
// none, but the hook exists so a tax collaborator can be plugged in.
type TaxResolver interface {
	ResolveTax(ctx context.Context, itemsTotal, shippingCost int64) (int64, error)
}

// Engine computes order totals from an item snapshot. It has no side
// effects; client-supplied totals are never trusted and every order is
// re-priced here before persisting.
type Engine struct {
	discounts DiscountResolver
	taxes     TaxResolver
}

func NewEngine(discounts DiscountResolver, taxes TaxResolver) *Engine {
	if discounts == nil {
		discounts = NoDiscount{}
	}
	if taxes == nil {
		taxes = ZeroTax{}
	}
	return &Engine{discounts: discounts, taxes: taxes}
}

// Quote prices the given snapshot. Rules, in order: sum item lines, look up
// the shipping tier (overridden to zero at the free-shipping minimum),
// resolve the discount (clamped to the items total), resolve tax.
func (e *Engine) Quote(ctx context.Context, items []models.OrderItem, method models.ShippingMethod, discountCode string) (models.Totals, error) {
	var itemsTotal int64
	for _, item := range items {
		itemsTotal += item.Price * int64(item.Quantity)
	}

	shippingCost := ShippingCost(method, itemsTotal)

	var discount int64
	if discountCode != "" {
		var err error
		discount, err = e.discounts.ResolveDiscount(ctx, discountCode, itemsTotal)
		if err != nil {
			return models.Totals{}, fmt.Errorf("failed to resolve discount code %q: %w", discountCode, err)
		}
		if discount > itemsTotal {
			discount = itemsTotal
		}
		if discount < 0 {
			discount = 0
		}
	}

	tax, err := e.taxes.ResolveTax(ctx, itemsTotal, shippingCost)
	if err != nil {
		return models.Totals{}, fmt.Errorf("failed to resolve tax: %w", err)
	}

	return models.Totals{
		Items:    itemsTotal,
		Discount: discount,
		Shipping: shippingCost,
		Tax:      tax,
		Total:    itemsTotal - discount + shippingCost + tax,
	}, nil
}

// ShippingCost returns the cost for the selected method. Orders at or above
// FreeShippingMinimum ship free no matter which method was chosen.
func ShippingCost(method models.ShippingMethod, itemsTotal int64) int64 {
	if itemsTotal >= FreeShippingMinimum {
		return 0
	}
	switch method {
	case models.ShippingMethodExpress:
		return ExpressShippingCost
	case models.ShippingMethodStandard:
		return StandardShippingCost
	default:
		return 0
	}
}

// NoDiscount resolves every code to zero.
type NoDiscount struct{}

func (NoDiscount) ResolveDiscount(context.Context, string, int64) (int64, error) {
	return 0, nil
}

// PercentDiscount resolves any non-empty code to a flat percentage of the
// items total. It stands in for a real discount-code service.
type PercentDiscount struct {
	Percent int64
}

func (d PercentDiscount) ResolveDiscount(_ context.Context, code string, itemsTotal int64) (int64, error) {
	if code == "" {
		return 0, nil
	}
	return itemsTotal * d.Percent / 100, nil
}

// ZeroTax charges no tax.
type ZeroTax struct{}

func (ZeroTax) ResolveTax(context.Context, int64, int64) (int64, error) {
	return 0, nil
}
