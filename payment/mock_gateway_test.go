package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/MoVahedi1/gym/models"
	"go.uber.org/zap/zaptest"
)

func TestMockGateway_Charge(t *testing.T) {
	gateway := NewFlakyGateway(0, 0, zaptest.NewLogger(t))

	result, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-1")
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got failure: %s", result.FailureReason)
	}
	if result.TransactionID == "" {
		t.Error("Expected a transaction ID")
	}
}

func TestMockGateway_IdempotentReplay(t *testing.T) {
	gateway := NewFlakyGateway(0, 0, zaptest.NewLogger(t))

	first, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-2")
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}

	second, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-2")
	if err != nil {
		t.Fatalf("Replayed charge failed: %v", err)
	}

	if first.TransactionID != second.TransactionID {
		t.Errorf("Expected replay to return the original transaction %s, got %s",
			first.TransactionID, second.TransactionID)
	}
}

func TestMockGateway_DeclineIsNotReplayed(t *testing.T) {
	gateway := NewFlakyGateway(100, 0, zaptest.NewLogger(t))

	result, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-3")
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if result.Success {
		t.Fatal("Expected a decline")
	}
	if result.FailureReason == "" {
		t.Error("Expected a failure reason")
	}

	// A decline settles nothing; with the card problem gone, retrying the
	// same key is a fresh charge, not a replay of the decline.
	gateway.declineRate = 0
	retry, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-3")
	if err != nil {
		t.Fatalf("Retried charge failed: %v", err)
	}
	if !retry.Success {
		t.Errorf("Expected retried charge to succeed, got %s", retry.FailureReason)
	}
	if retry.TransactionID == "" {
		t.Error("Expected a transaction ID")
	}
}

func TestMockGateway_TimeoutLeavesNoOutcome(t *testing.T) {
	gateway := NewFlakyGateway(0, 100, zaptest.NewLogger(t))

	_, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-4")
	if !errors.Is(err, ErrGatewayTimeout) {
		t.Fatalf("Expected ErrGatewayTimeout, got %v", err)
	}

	// A timed-out charge has no recorded outcome; a retry goes back to the
	// provider. With the timeout rate dropped, the retry succeeds.
	gateway.timeoutRate = 0
	result, err := gateway.Charge(context.Background(), 250000, models.PaymentMethodOnline, "ORD-4")
	if err != nil {
		t.Fatalf("Retried charge failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected retried charge to succeed, got %s", result.FailureReason)
	}
}
