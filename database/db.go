package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "gymshop")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category VARCHAR(100) NOT NULL DEFAULT '',
		brand VARCHAR(100) NOT NULL DEFAULT '',
		price BIGINT NOT NULL CHECK (price >= 0),
		image TEXT NOT NULL DEFAULT '',
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 10,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		order_number VARCHAR(40) NOT NULL UNIQUE,
		user_id BIGINT NOT NULL,
		shipping_address JSONB NOT NULL DEFAULT '{}',
		payment_method VARCHAR(20) NOT NULL,
		payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payment_transaction_id VARCHAR(100) NOT NULL DEFAULT '',
		payment_amount BIGINT NOT NULL DEFAULT 0,
		payment_failure_reason TEXT NOT NULL DEFAULT '',
		payment_paid_at TIMESTAMP,
		shipping_method VARCHAR(20) NOT NULL,
		shipping_cost BIGINT NOT NULL DEFAULT 0,
		shipping_tracking_number VARCHAR(100) NOT NULL DEFAULT '',
		shipping_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		shipping_shipped_at TIMESTAMP,
		shipping_delivered_at TIMESTAMP,
		totals_items BIGINT NOT NULL DEFAULT 0,
		totals_discount BIGINT NOT NULL DEFAULT 0,
		totals_shipping BIGINT NOT NULL DEFAULT 0,
		totals_tax BIGINT NOT NULL DEFAULT 0,
		totals_total BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		notes TEXT NOT NULL DEFAULT '',
		discount_code VARCHAR(50) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT totals_identity CHECK (
			totals_total = totals_items - totals_discount + totals_shipping + totals_tax
		)
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS order_items (
		id SERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		product_id BIGINT NOT NULL,
		name VARCHAR(100) NOT NULL,
		price BIGINT NOT NULL CHECK (price >= 0),
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		image TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := db.Exec(schema)
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
