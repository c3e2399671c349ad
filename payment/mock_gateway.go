package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/MoVahedi1/gym/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrGatewayTimeout is returned when the simulated provider hangs. The
// charge outcome is unknown; the order must stay payment-pending so the
// client can retry capture.
var ErrGatewayTimeout = errors.New("payment gateway timeout")

// MockGateway simulates a real provider: mostly approvals, some declines,
// and the occasional timeout. Successful charges are remembered per
// idempotency key, so a retried capture returns the original transaction
// instead of charging twice. Declines and timeouts leave no record; a
// retry after either is a fresh attempt.
type MockGateway struct {
	mu       sync.RWMutex
	outcomes map[string]Result

	declineRate int // percent of charges declined
	timeoutRate int // percent of charges that time out
	logger      *zap.Logger
}

func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{
		outcomes:    make(map[string]Result),
		declineRate: 10,
		logger:      logger,
	}
}

// NewFlakyGateway builds a gateway with explicit decline and timeout rates
// (percentages), for simulations and local testing.
func NewFlakyGateway(declineRate, timeoutRate int, logger *zap.Logger) *MockGateway {
	return &MockGateway{
		outcomes:    make(map[string]Result),
		declineRate: declineRate,
		timeoutRate: timeoutRate,
		logger:      logger,
	}
}

func (g *MockGateway) Charge(ctx context.Context, amount int64, method models.PaymentMethod, idempotencyKey string) (Result, error) {
	g.mu.RLock()
	if result, seen := g.outcomes[idempotencyKey]; seen {
		g.mu.RUnlock()
		g.logger.Info("Charge replayed from idempotency key",
			zap.String("idempotency_key", idempotencyKey),
			zap.Bool("success", result.Success),
		)
		return result, nil
	}
	g.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	chance := rand.Intn(100)

	if chance < g.timeoutRate {
		// The provider hangs; the caller sees a timeout and must not treat
		// the charge as settled either way.
		time.Sleep(50 * time.Millisecond)
		return Result{}, ErrGatewayTimeout
	}

	if chance < g.timeoutRate+g.declineRate {
		// Not recorded: a decline settles nothing, the customer can retry
		// with the same key.
		return Result{Success: false, FailureReason: "card declined"}, nil
	}

	result := Result{
		Success:       true,
		TransactionID: newTransactionID(),
	}
	g.record(idempotencyKey, result)

	g.logger.Info("Charge approved",
		zap.String("idempotency_key", idempotencyKey),
		zap.Int64("amount", amount),
		zap.String("method", string(method)),
		zap.String("transaction_id", result.TransactionID),
	)
	return result, nil
}

func (g *MockGateway) record(key string, result Result) {
	g.mu.Lock()
	g.outcomes[key] = result
	g.mu.Unlock()
}

func newTransactionID() string {
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
