package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/MoVahedi1/gym/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ProductTTL = 5 * time.Minute

func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := getEnv("REDIS_PASSWORD", "")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

func GetProduct(ctx context.Context, rdb *redis.Client, id int64) (*models.Product, error) {
	key := productKey(id)
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func SetProduct(ctx context.Context, rdb *redis.Client, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, productKey(product.ID), data, ProductTTL).Err()
}

func DeleteProduct(ctx context.Context, rdb *redis.Client, id int64) error {
	return rdb.Del(ctx, productKey(id)).Err()
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
