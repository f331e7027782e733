package refund

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/refund"
	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
	paymentsvc "github.com/Dhia9030/CarRental-sub000/internal/payment"
)

// RepositoryAPI is the refund request store.
type RepositoryAPI interface {
	Create(r *refund.RefundRequest) error
	GetByID(id int64) (*refund.RefundRequest, error)
	GetPendingByAgency(agencyID int64) ([]*refund.RefundRequest, error)
	GetByUser(userID int64) ([]*refund.RefundRequest, error)
	HasPendingForPayment(paymentID int64) (bool, error)
	Update(id int64, updates map[string]interface{}) error
}

// Service runs the refund request workflow: renters file requests, the agency
// that owns the booked car reviews them, approval executes the refund.
//
// State machine: pending -> approved | rejected; approved -> processed.
// Rejected and processed are terminal. An approved request whose refund
// execution failed stays approved and may be re-approved to retry.
type Service struct {
	repo     RepositoryAPI
	payments *paymentsvc.Service
	bookings paymentsvc.BookingRepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, payments *paymentsvc.Service, bookings paymentsvc.BookingRepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		bookings: bookings,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateRefundRequest files a request against one of the caller's payments.
// At most one pending request may exist per payment.
func (s *Service) CreateRefundRequest(userID int64, dto CreateRefundRequestDTO) (*refund.RefundRequest, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	p, err := s.payments.GetPayment(dto.PaymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	b, err := s.bookings.GetByID(p.BookingID)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}
	if b.UserID != userID {
		s.logger.Warn("refund request refused: caller does not own booking",
			"user_id", userID,
			"booking_id", b.ID)
		return nil, errors.ErrUnauthorizedAccess
	}

	if !p.CanRefund() {
		return nil, errors.ErrInvalidPaymentStatus
	}

	if dto.Amount > p.RefundableAmount() {
		return nil, errors.ErrAmountExceedsBalance
	}

	pending, err := s.repo.HasPendingForPayment(dto.PaymentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check pending refund requests", err)
	}
	if pending {
		return nil, errors.ErrPendingRequestExists
	}

	agencyID, err := s.bookings.GetAgencyIDForBooking(b.ID)
	if err != nil {
		return nil, errors.NewInternalError("failed to resolve agency for booking", err)
	}

	req := &refund.RefundRequest{
		PaymentID:       dto.PaymentID,
		BookingID:       b.ID,
		UserID:          userID,
		RequestedAmount: dto.Amount,
		Type:            dto.Type,
		Status:          refund.StatusPending,
		Reason:          dto.Reason,
		AgencyID:        &agencyID,
	}

	if err := s.repo.Create(req); err != nil {
		return nil, errors.NewInternalError("failed to create refund request", err)
	}

	s.logger.Info("refund request created",
		"request_id", req.ID,
		"payment_id", dto.PaymentID,
		"amount", dto.Amount,
		"type", dto.Type)

	return req, nil
}

func (s *Service) GetRefundRequest(id int64) (*refund.RefundRequest, error) {
	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrRefundRequestNotFound
	}
	return req, nil
}

// PendingForAgency lists the requests waiting on the agency's review.
func (s *Service) PendingForAgency(agencyID int64) ([]*refund.RefundRequest, error) {
	return s.repo.GetPendingByAgency(agencyID)
}

func (s *Service) RequestsForUser(userID int64) ([]*refund.RefundRequest, error) {
	return s.repo.GetByUser(userID)
}

// Review approves or rejects a request on behalf of the reviewing agency.
// Approval executes the refund synchronously: success moves the request to
// processed, failure leaves it approved so a later re-approval can retry.
func (s *Service) Review(ctx context.Context, requestID, agencyID int64, dto ReviewRefundRequestDTO) (*refund.RefundRequest, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	req, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, errors.ErrRefundRequestNotFound
	}

	if req.AgencyID == nil || *req.AgencyID != agencyID {
		s.logger.Warn("refund review refused: agency does not own booking",
			"request_id", requestID,
			"agency_id", agencyID)
		return nil, errors.ErrUnauthorizedAccess
	}

	// Re-approving a request stuck in approved retries the refund execution.
	// Every other transition out of a non-pending state is refused.
	if !req.IsPending() {
		if !(req.Status == refund.StatusApproved && dto.Approve) {
			return nil, errors.ErrInvalidRequestStatus
		}
	}

	now := time.Now()

	if !dto.Approve {
		updates := map[string]interface{}{
			"status":           refund.StatusRejected,
			"rejection_reason": dto.RejectionReason,
			"reviewed_at":      now,
			"updated_at":       now,
		}
		if dto.AgencyNotes != "" {
			updates["agency_notes"] = dto.AgencyNotes
		}
		if err := s.repo.Update(requestID, updates); err != nil {
			return nil, errors.NewInternalError("failed to update refund request", err)
		}

		s.logger.Info("refund request rejected",
			"request_id", requestID,
			"reason", dto.RejectionReason)

		return s.repo.GetByID(requestID)
	}

	if req.IsPending() {
		updates := map[string]interface{}{
			"status":      refund.StatusApproved,
			"reviewed_at": now,
			"updated_at":  now,
		}
		if dto.AgencyNotes != "" {
			updates["agency_notes"] = dto.AgencyNotes
		}
		if err := s.repo.Update(requestID, updates); err != nil {
			return nil, errors.NewInternalError("failed to update refund request", err)
		}
	}

	if err := s.executeRefund(ctx, req); err != nil {
		s.logger.Error("approved refund execution failed, request stays approved",
			"request_id", requestID,
			"error", err)
		return nil, errors.NewValidationError("refund could not be processed", errors.ErrCodeRefundFailed).WithCause(err)
	}

	processedUpdates := map[string]interface{}{
		"status":       refund.StatusProcessed,
		"processed_at": time.Now(),
		"updated_at":   time.Now(),
	}
	if err := s.repo.Update(requestID, processedUpdates); err != nil {
		return nil, errors.NewInternalError("failed to mark refund request processed", err)
	}

	s.logger.Info("refund request processed",
		"request_id", requestID,
		"payment_id", req.PaymentID,
		"amount", req.RequestedAmount)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.NewRefundProcessedEvent(requestID, req.PaymentID, req.RequestedAmount))
	}

	return s.repo.GetByID(requestID)
}

func (s *Service) executeRefund(ctx context.Context, req *refund.RefundRequest) error {
	_ = ctx

	p, err := s.payments.GetPayment(req.PaymentID)
	if err != nil {
		return err
	}

	// The payment may have been partially refunded since the request was
	// filed; the remaining balance must still cover the requested amount.
	amount := req.RequestedAmount
	if amount > p.RefundableAmount() {
		return errors.ErrAmountExceedsBalance
	}

	reason := fmt.Sprintf("refund request %d: %s", req.ID, req.Reason)
	if req.Type == refund.TypeDepositRelease && p.Type != payment.TypeSecurityDeposit {
		s.logger.Warn("deposit_release request targets a non-deposit payment",
			"request_id", req.ID,
			"payment_type", p.Type)
	}

	_, err = s.payments.RefundPayment(p.ID, amount, reason)
	return err
}
