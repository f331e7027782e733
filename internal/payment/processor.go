package payment

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ProcessorIntent is what the gateway returns when an intent is opened.
type ProcessorIntent struct {
	IntentID     string
	ClientSecret string
}

// ProcessorResult is the processor's answer to a charge or refund call,
// kept verbatim on the Transaction row.
type ProcessorResult struct {
	ExternalID string
	Status     string
	Response   json.RawMessage
}

// Processor is the gateway capability the orchestration depends on. The mock
// implementation below stands in for a real provider; swapping in a live
// gateway only requires another implementation of this interface.
type Processor interface {
	CreateIntent(amount float64, currency string) (*ProcessorIntent, error)
	Charge(intentID string, amount float64, currency string) (*ProcessorResult, error)
	Refund(chargeID string, amount float64, currency string) (*ProcessorResult, error)
}

// MockProcessor simulates a payment gateway. It never moves money: every call
// succeeds synchronously and produces opaque fake identifiers.
type MockProcessor struct {
	logger *slog.Logger
}

func NewMockProcessor(logger *slog.Logger) *MockProcessor {
	return &MockProcessor{logger: logger}
}

func (m *MockProcessor) CreateIntent(amount float64, currency string) (*ProcessorIntent, error) {
	intentID := generateMockID("pi_mock")
	secret := fmt.Sprintf("%s_secret_%s", intentID, randomSuffix())

	m.logger.Info("mock processor: payment intent created",
		"intent_id", intentID,
		"amount", amount,
		"currency", currency)

	return &ProcessorIntent{
		IntentID:     intentID,
		ClientSecret: secret,
	}, nil
}

func (m *MockProcessor) Charge(intentID string, amount float64, currency string) (*ProcessorResult, error) {
	chargeID := generateMockID("ch_mock")

	response, _ := json.Marshal(map[string]interface{}{
		"id":                chargeID,
		"payment_intent_id": intentID,
		"amount":            amount,
		"currency":          currency,
		"status":            "succeeded",
		"created":           time.Now().Unix(),
	})

	m.logger.Info("mock processor: charge succeeded",
		"charge_id", chargeID,
		"intent_id", intentID,
		"amount", amount)

	return &ProcessorResult{
		ExternalID: chargeID,
		Status:     "succeeded",
		Response:   response,
	}, nil
}

func (m *MockProcessor) Refund(chargeID string, amount float64, currency string) (*ProcessorResult, error) {
	refundID := generateMockID("re_mock")

	response, _ := json.Marshal(map[string]interface{}{
		"id":        refundID,
		"charge_id": chargeID,
		"amount":    amount,
		"currency":  currency,
		"status":    "succeeded",
		"created":   time.Now().Unix(),
	})

	m.logger.Info("mock processor: refund issued",
		"refund_id", refundID,
		"charge_id", chargeID,
		"amount", amount)

	return &ProcessorResult{
		ExternalID: refundID,
		Status:     "succeeded",
		Response:   response,
	}, nil
}

func generateMockID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
