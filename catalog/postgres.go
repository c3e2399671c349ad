package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MoVahedi1/gym/models"
	"go.uber.org/zap"
)

// PostgresStore implements Store on top of the products table. The reserve
// guard lives in the UPDATE's WHERE clause, so the read-check-write happens
// inside the database and stays linearizable under concurrent requests.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, category, brand, price, image,
		        stock_quantity, low_stock_threshold, status, created_at, updated_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand, &p.Price, &p.Image,
		&p.StockQuantity, &p.LowStockThreshold, &p.Status, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) ReserveStock(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2,
		     status = CASE WHEN stock_quantity - $2 = 0 THEN 'out_of_stock' ELSE status END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND stock_quantity >= $2`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for product %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Guard failed: distinguish a missing product from an exhausted one.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check product %d: %w", id, err)
	}
	if !exists {
		return ErrProductNotFound
	}

	s.logger.Warn("Stock reservation rejected",
		zap.Int64("product_id", id),
		zap.Int("quantity", quantity),
	)
	return ErrInsufficientStock
}

func (s *PostgresStore) ReleaseStock(ctx context.Context, id int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $2,
		     status = CASE WHEN status = 'out_of_stock' THEN 'active' ELSE status END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to release stock for product %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) SetStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("stock quantity must be non-negative, got %d", quantity)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = $2,
		     status = CASE
		         WHEN $2 = 0 THEN 'out_of_stock'
		         WHEN status = 'out_of_stock' THEN 'active'
		         ELSE status
		     END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to set stock for product %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
