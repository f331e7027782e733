package payment

import (
	"encoding/json"
	"log/slog"
	"time"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
)

// RepositoryAPI is the ledger's data access surface.
type RepositoryAPI interface {
	Create(p *payment.Payment) error
	GetByID(id int64) (*payment.Payment, error)
	GetByBookingID(bookingID int64) ([]*payment.Payment, error)
	GetByIntentID(intentID string) ([]*payment.Payment, error)
	Update(id int64, updates map[string]interface{}) error
	CreateTransaction(t *payment.Transaction) error
	GetTransactionsByPaymentID(paymentID int64) ([]*payment.Transaction, error)
}

// UpdatePaymentParams is a partial update; nil fields are left untouched.
type UpdatePaymentParams struct {
	Status          *string
	RefundedAmount  *float64
	PaymentIntentID *string
	ChargeID        *string
	Metadata        json.RawMessage
}

// Service owns Payment and Transaction rows. It records monetary obligations
// and their lifecycle; it never talks to the processor itself.
type Service struct {
	repo      RepositoryAPI
	processor Processor
	currency  string
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, processor Processor, currency string, logger *slog.Logger) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		repo:      repo,
		processor: processor,
		currency:  currency,
		logger:    logger,
	}
}

func (s *Service) Currency() string {
	return s.currency
}

// CreatePayment records a pending ledger row. No processor interaction.
func (s *Service) CreatePayment(bookingID, userID int64, amount float64, paymentType, description string, metadata json.RawMessage) (*payment.Payment, error) {
	if amount <= 0 {
		return nil, errors.NewValidationError("payment amount must be positive", errors.ErrCodeInvalidAmount)
	}

	p := &payment.Payment{
		BookingID:   bookingID,
		UserID:      userID,
		Amount:      amount,
		Currency:    s.currency,
		Status:      payment.StatusPending,
		Type:        paymentType,
		Description: description,
		Metadata:    metadata,
	}

	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create payment record", "error", err, "booking_id", bookingID)
		return nil, errors.NewInternalError("failed to create payment record", err)
	}

	s.logger.Info("payment record created",
		"payment_id", p.ID,
		"booking_id", bookingID,
		"type", paymentType,
		"amount", amount)

	return p, nil
}

// UpdatePayment applies a partial update. Moving to completed stamps
// processed_at; any refunded-amount change stamps refunded_at.
func (s *Service) UpdatePayment(id int64, params UpdatePaymentParams) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}

	if params.Status != nil {
		updates["status"] = *params.Status
		if *params.Status == payment.StatusCompleted {
			updates["processed_at"] = time.Now()
		}
	}

	if params.RefundedAmount != nil {
		updates["refunded_amount"] = *params.RefundedAmount
		updates["refunded_at"] = time.Now()
	}

	if params.PaymentIntentID != nil {
		updates["payment_intent_id"] = *params.PaymentIntentID
	}

	if params.ChargeID != nil {
		updates["charge_id"] = *params.ChargeID
	}

	if params.Metadata != nil {
		updates["metadata"] = params.Metadata
	}

	if err := s.repo.Update(id, updates); err != nil {
		s.logger.Error("failed to update payment", "error", err, "payment_id", id)
		return errors.NewInternalError("failed to update payment", err)
	}

	return nil
}

// CreateTransaction appends an immutable ledger entry. Refund amounts are
// recorded negative.
func (s *Service) CreateTransaction(paymentID int64, amount float64, txType, externalID, status string, response json.RawMessage) (*payment.Transaction, error) {
	t := &payment.Transaction{
		PaymentID:  paymentID,
		Amount:     amount,
		Type:       txType,
		ExternalID: externalID,
		Status:     status,
		Response:   response,
	}

	if err := s.repo.CreateTransaction(t); err != nil {
		s.logger.Error("failed to create transaction", "error", err, "payment_id", paymentID)
		return nil, errors.NewInternalError("failed to create transaction", err)
	}

	return t, nil
}

func (s *Service) GetPayment(id int64) (*payment.Payment, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}
	return p, nil
}

func (s *Service) GetPaymentsByBooking(bookingID int64) ([]*payment.Payment, error) {
	return s.repo.GetByBookingID(bookingID)
}

func (s *Service) GetPaymentsByIntent(intentID string) ([]*payment.Payment, error) {
	return s.repo.GetByIntentID(intentID)
}

func (s *Service) GetTransactions(paymentID int64) ([]*payment.Transaction, error) {
	return s.repo.GetTransactionsByPaymentID(paymentID)
}

// RefundPayment refunds part or all of a completed payment through the
// processor and applies the result to the ledger. The refunded amount is
// additive; exhausting the balance flips the status to refunded.
func (s *Service) RefundPayment(paymentID int64, amount float64, reason string) (*payment.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	if !p.CanRefund() {
		s.logger.Warn("refund rejected: payment not refundable",
			"payment_id", paymentID,
			"status", p.Status)
		return nil, errors.ErrInvalidPaymentStatus
	}

	if amount <= 0 {
		return nil, errors.NewValidationError("refund amount must be positive", errors.ErrCodeInvalidAmount)
	}

	if amount > p.RefundableAmount() {
		s.logger.Warn("refund rejected: amount exceeds refundable balance",
			"payment_id", paymentID,
			"requested", amount,
			"refundable", p.RefundableAmount())
		return nil, errors.ErrAmountExceedsBalance
	}

	chargeID := ""
	if p.ChargeID != nil {
		chargeID = *p.ChargeID
	}

	result, err := s.processor.Refund(chargeID, amount, p.Currency)
	if err != nil {
		s.logger.Error("processor refund failed",
			"error", err,
			"payment_id", paymentID,
			"amount", amount)
		return nil, errors.NewInternalError("refund processing failed", err)
	}

	if _, err := s.CreateTransaction(p.ID, -amount, payment.TransactionTypeRefund, result.ExternalID, result.Status, result.Response); err != nil {
		return nil, err
	}

	newRefunded := p.RefundedAmount + amount
	newStatus := payment.StatusPartiallyRefunded
	if newRefunded >= p.Amount {
		newStatus = payment.StatusRefunded
	}

	if err := s.UpdatePayment(p.ID, UpdatePaymentParams{
		Status:         &newStatus,
		RefundedAmount: &newRefunded,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("refund applied",
		"payment_id", p.ID,
		"amount", amount,
		"refunded_total", newRefunded,
		"status", newStatus,
		"reason", reason)

	p.RefundedAmount = newRefunded
	p.Status = newStatus
	return p, nil
}
