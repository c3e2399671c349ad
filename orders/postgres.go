package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/MoVahedi1/gym/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// orderNumberAttempts bounds retries when a generated order number collides.
const orderNumberAttempts = 3

type PostgresRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRepo(db *sql.DB, logger *zap.Logger) *PostgresRepo {
	return &PostgresRepo{db: db, logger: logger}
}

// NewOrderNumber builds a globally unique order reference. Collisions are
// possible in theory, so Create retries on the unique constraint.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
}

func (r *PostgresRepo) Create(ctx context.Context, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber()
		err := r.create(ctx, order)
		if err == nil {
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.logger.Warn("Order number collision, regenerating",
				zap.String("order_number", order.OrderNumber))
			lastErr = err
			continue
		}
		return err
	}
	return fmt.Errorf("failed to create order after %d attempts: %w", orderNumberAttempts, lastErr)
}

func (r *PostgresRepo) create(ctx context.Context, order *models.Order) error {
	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (
			order_number, user_id, shipping_address,
			payment_method, payment_status, payment_amount,
			shipping_method, shipping_cost, shipping_status,
			totals_items, totals_discount, totals_shipping, totals_tax, totals_total,
			status, notes, discount_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.UserID, addressJSON,
		order.Payment.Method, order.Payment.Status, order.Payment.Amount,
		order.Shipping.Method, order.Shipping.Cost, order.Shipping.Status,
		order.Totals.Items, order.Totals.Discount, order.Totals.Shipping,
		order.Totals.Tax, order.Totals.Total,
		order.Status, order.Notes, order.DiscountCode,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, price, quantity, image)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.ProductID, item.Name, item.Price, item.Quantity, item.Image,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderColumns = `id, order_number, user_id, shipping_address,
	payment_method, payment_status, payment_transaction_id, payment_amount,
	payment_failure_reason, payment_paid_at,
	shipping_method, shipping_cost, shipping_tracking_number, shipping_status,
	shipping_shipped_at, shipping_delivered_at,
	totals_items, totals_discount, totals_shipping, totals_tax, totals_total,
	status, notes, discount_code, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	var o models.Order
	var addressJSON []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &addressJSON,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.TransactionID, &o.Payment.Amount,
		&o.Payment.FailureReason, &o.Payment.PaidAt,
		&o.Shipping.Method, &o.Shipping.Cost, &o.Shipping.TrackingNumber, &o.Shipping.Status,
		&o.Shipping.ShippedAt, &o.Shipping.DeliveredAt,
		&o.Totals.Items, &o.Totals.Discount, &o.Totals.Shipping, &o.Totals.Tax, &o.Totals.Total,
		&o.Status, &o.Notes, &o.DiscountCode, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}
	return &o, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepo) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, name, price, quantity, image
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load items for order %d: %w", order.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.Image); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID int64, page, limit int) ([]models.Order, int, error) {
	return r.list(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		"SELECT COUNT(*) FROM orders WHERE user_id = $1",
		[]any{userID}, page, limit,
	)
}

func (r *PostgresRepo) ListAll(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	return r.list(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		"SELECT COUNT(*) FROM orders",
		nil, page, limit,
	)
}

func (r *PostgresRepo) list(ctx context.Context, query, countQuery string, args []any, page, limit int) ([]models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var result []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range result {
		if err := r.loadItems(ctx, &result[i]); err != nil {
			return nil, 0, err
		}
	}
	return result, total, nil
}

func (r *PostgresRepo) UpdatePayment(ctx context.Context, order *models.Order, from models.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = $2,
		     payment_transaction_id = $3,
		     payment_failure_reason = $4,
		     payment_paid_at = $5,
		     status = $6,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND payment_status = $7`,
		order.ID, order.Payment.Status, order.Payment.TransactionID,
		order.Payment.FailureReason, order.Payment.PaidAt, order.Status,
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment for order %d: %w", order.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Guard failed: a missing order and a lost capture race look the same
	// from RowsAffected.
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", order.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check order %d: %w", order.ID, err)
	}
	if !exists {
		return ErrOrderNotFound
	}

	r.logger.Warn("Payment update lost to a concurrent capture",
		zap.Int64("order_id", order.ID),
		zap.String("expected_status", string(from)),
	)
	return ErrPaymentStateConflict
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, order *models.Order) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2,
		     shipping_status = $3,
		     shipping_tracking_number = $4,
		     shipping_shipped_at = $5,
		     shipping_delivered_at = $6,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1`,
		order.ID, order.Status, order.Shipping.Status, order.Shipping.TrackingNumber,
		order.Shipping.ShippedAt, order.Shipping.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update status for order %d: %w", order.ID, err)
	}
	return checkFound(res)
}

func checkFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
