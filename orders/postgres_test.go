package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MoVahedi1/gym/models"
	"github.com/lib/pq"
	"go.uber.org/zap/zaptest"
)

func setupPostgresRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewPostgresRepo(db, zaptest.NewLogger(t)), mock
}

func sampleOrder() *models.Order {
	return &models.Order{
		UserID: 7,
		Items: []models.OrderItem{
			{ProductID: 1, Name: "Whey Protein 2kg", Price: 185000, Quantity: 2},
		},
		Payment: models.Payment{
			Method: models.PaymentMethodOnline,
			Status: models.PaymentStatusPending,
			Amount: 390000,
		},
		Shipping: models.Shipping{
			Method: models.ShippingMethodStandard,
			Cost:   20000,
			Status: models.ShippingStatusPending,
		},
		Totals: models.Totals{Items: 370000, Shipping: 20000, Total: 390000},
		Status: models.OrderStatusPending,
	}
}

func expectInsertOrder(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(1, time.Now(), time.Now()))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestPostgresRepo_Create(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	expectInsertOrder(mock)

	order := sampleOrder()
	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if order.ID != 1 {
		t.Errorf("Expected assigned ID 1, got %d", order.ID)
	}
	if order.OrderNumber == "" {
		t.Error("Expected an order number to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPostgresRepo_Create_RetriesOnOrderNumberCollision(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	// First attempt hits the unique constraint, second succeeds with a
	// freshly generated number
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
	mock.ExpectRollback()

	expectInsertOrder(mock)

	if err := repo.Create(context.Background(), sampleOrder()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPostgresRepo_Create_GivesUpAfterRepeatedCollisions(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	for i := 0; i < orderNumberAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
		mock.ExpectRollback()
	}

	if err := repo.Create(context.Background(), sampleOrder()); err == nil {
		t.Fatal("Expected error after repeated collisions")
	}
}

func TestPostgresRepo_FindByID_NotFound(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	mock.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), 404)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestPostgresRepo_UpdatePayment_NotFound(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	order := sampleOrder()
	order.ID = 42
	err := repo.UpdatePayment(context.Background(), order, models.PaymentStatusPending)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestPostgresRepo_UpdatePayment_ConcurrentCaptureConflict(t *testing.T) {
	repo, mock := setupPostgresRepo(t)

	// The guarded update matches no row because another capture already moved
	// the payment status, but the order itself exists
	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	order := sampleOrder()
	order.ID = 42
	order.Payment.Status = models.PaymentStatusPaid
	order.Status = models.OrderStatusConfirmed
	err := repo.UpdatePayment(context.Background(), order, models.PaymentStatusPending)
	if !errors.Is(err, ErrPaymentStateConflict) {
		t.Fatalf("Expected ErrPaymentStateConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestNewOrderNumber_Format(t *testing.T) {
	number := NewOrderNumber()
	if len(number) < 5 || number[:4] != "ORD-" {
		t.Errorf("Unexpected order number format: %s", number)
	}
}
