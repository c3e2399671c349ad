package models

import "time"

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusInactive   ProductStatus = "inactive"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// Product is a catalog entry. StockQuantity is only ever reduced through
// the catalog store's conditional decrement; Status tracks it: a product is
// out_of_stock exactly while StockQuantity is zero.
type Product struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	Category          string        `json:"category"`
	Brand             string        `json:"brand"`
	Price             int64         `json:"price"`
	Image             string        `json:"image"`
	StockQuantity     int           `json:"stock_quantity"`
	LowStockThreshold int           `json:"low_stock_threshold"`
	Status            ProductStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// InStock reports whether the product can currently be ordered.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0 && p.Status == ProductStatusActive
}

// LowStock reports whether the quantity fell to or below the threshold.
func (p *Product) LowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

type CreateProductRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	Category          string `json:"category" binding:"required"`
	Brand             string `json:"brand"`
	Price             int64  `json:"price" binding:"required,gte=0"`
	Image             string `json:"image"`
	StockQuantity     int    `json:"stock_quantity" binding:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type UpdateProductRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Brand             string `json:"brand"`
	Price             int64  `json:"price"`
	Image             string `json:"image"`
	StockQuantity     *int   `json:"stock_quantity"`
	LowStockThreshold *int   `json:"low_stock_threshold"`
	Status            string `json:"status"`
}
