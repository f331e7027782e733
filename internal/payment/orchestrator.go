package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
)

// SecurityDepositRate is the default deposit, as a fraction of the base
// rental cost.
const SecurityDepositRate = 0.20

// Cancellation fee rate by days remaining before the rental starts.
const (
	feeRateSameDay    = 1.0
	feeRateUnder3Days = 0.5
	feeRateUnder7Days = 0.25
	feeRateStandard   = 0.10
)

// BookingRepositoryAPI is what the orchestrator needs from the booking store.
type BookingRepositoryAPI interface {
	GetByID(id int64) (*booking.Booking, error)
	GetCarByID(id int64) (*booking.Car, error)
	UpdateStatus(id int64, status string) error
	GetAgencyIDForBooking(bookingID int64) (int64, error)
}

// Orchestrator coordinates booking lifecycle money movements: the initial
// rental+deposit charge, confirmation, cancellation fees and deposit release.
// It drives the ledger Service and the booking store; it is the only place
// that knows the fee policy.
type Orchestrator struct {
	payments    *Service
	processor   Processor
	bookings    BookingRepositoryAPI
	eventBus    *events.EventBus
	depositRate float64
	logger      *slog.Logger
}

func NewOrchestrator(payments *Service, processor Processor, bookings BookingRepositoryAPI, eventBus *events.EventBus, depositRate float64, logger *slog.Logger) *Orchestrator {
	if depositRate <= 0 {
		depositRate = SecurityDepositRate
	}
	return &Orchestrator{
		payments:    payments,
		processor:   processor,
		bookings:    bookings,
		eventBus:    eventBus,
		depositRate: depositRate,
		logger:      logger,
	}
}

// CalculatePaymentBreakdown prices a booking: base rental cost for the billed
// days plus the security deposit.
func (o *Orchestrator) CalculatePaymentBreakdown(bookingID int64) (*PaymentBreakdown, error) {
	b, err := o.bookings.GetByID(bookingID)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}

	car, err := o.bookings.GetCarByID(b.CarID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load car for booking", err)
	}

	days := b.NumberOfDays()
	base := float64(days) * car.PricePerDay
	deposit := o.depositRate * base

	return &PaymentBreakdown{
		BookingID:       b.ID,
		NumberOfDays:    days,
		PricePerDay:     car.PricePerDay,
		BaseRentalCost:  base,
		SecurityDeposit: deposit,
		TotalAmount:     base + deposit,
		Currency:        o.payments.Currency(),
	}, nil
}

// ProcessBookingPayment opens the two ledger rows for a pending booking (the
// rental charge and the security deposit) under one shared payment intent.
// Nothing is captured yet; ConfirmPayment does that.
func (o *Orchestrator) ProcessBookingPayment(userID int64, dto ProcessBookingPaymentDTO) (*ProcessPaymentResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	b, err := o.bookings.GetByID(dto.BookingID)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}

	if b.Status != booking.StatusPending {
		o.logger.Warn("booking payment refused: booking not pending",
			"booking_id", b.ID,
			"status", b.Status)
		return nil, errors.ErrInvalidBookingStatus
	}

	deposit := o.depositRate * dto.Amount
	if dto.SecurityDeposit != nil {
		deposit = *dto.SecurityDeposit
	}
	total := dto.Amount + deposit

	intent, err := o.processor.CreateIntent(total, o.payments.Currency())
	if err != nil {
		return nil, errors.NewInternalError("failed to create payment intent", err)
	}

	description := dto.Description
	if description == "" {
		description = "Booking rental payment"
	}

	meta := map[string]interface{}{
		"booking_id":   b.ID,
		"total_amount": total,
	}
	// The mock processor has no charge-source concept; the chosen method is
	// kept on the ledger rows so a real processor swap can pick it up.
	if dto.PaymentMethodID != "" {
		meta["payment_method_id"] = dto.PaymentMethodID
	}
	metadata, _ := json.Marshal(meta)

	bookingPayment, err := o.payments.CreatePayment(b.ID, userID, dto.Amount, payment.TypeBookingPayment, description, metadata)
	if err != nil {
		return nil, err
	}

	depositPayment, err := o.payments.CreatePayment(b.ID, userID, deposit, payment.TypeSecurityDeposit, "Refundable security deposit", metadata)
	if err != nil {
		return nil, err
	}

	// Both rows carry the same intent so a single confirmation settles them.
	for _, p := range []*payment.Payment{bookingPayment, depositPayment} {
		if err := o.payments.UpdatePayment(p.ID, UpdatePaymentParams{PaymentIntentID: &intent.IntentID}); err != nil {
			return nil, err
		}
		p.PaymentIntentID = &intent.IntentID
	}

	o.logger.Info("booking payment initiated",
		"booking_id", b.ID,
		"intent_id", intent.IntentID,
		"rental_amount", dto.Amount,
		"deposit_amount", deposit)

	return &ProcessPaymentResponse{
		Payment:         bookingPayment,
		DepositPayment:  depositPayment,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		TotalAmount:     total,
	}, nil
}

// ConfirmPayment settles every payment opened under the intent. Calling it
// again is harmless: payments already completed are skipped, so no duplicate
// charge transactions are written. A settled booking_payment confirms the
// booking.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, intentID string) (*ConfirmPaymentResponse, error) {
	payments, err := o.payments.GetPaymentsByIntent(intentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payments for intent", err)
	}
	if len(payments) == 0 {
		return nil, errors.ErrIntentNotFound
	}

	var total float64
	for _, p := range payments {
		if !p.IsCompleted() {
			total += p.Amount
		}
	}

	var chargeID string
	var bookingID int64
	confirmedAny := false

	for _, p := range payments {
		bookingID = p.BookingID

		if p.IsCompleted() {
			o.logger.Info("payment already confirmed, skipping",
				"payment_id", p.ID,
				"intent_id", intentID)
			continue
		}

		if chargeID == "" {
			result, err := o.processor.Charge(intentID, total, p.Currency)
			if err != nil {
				return nil, errors.NewInternalError("charge failed", err)
			}
			chargeID = result.ExternalID
		}

		if _, err := o.payments.CreateTransaction(p.ID, p.Amount, payment.TransactionTypeCharge, chargeID, payment.TransactionStatusSucceeded, nil); err != nil {
			return nil, err
		}

		completed := payment.StatusCompleted
		if err := o.payments.UpdatePayment(p.ID, UpdatePaymentParams{
			Status:   &completed,
			ChargeID: &chargeID,
		}); err != nil {
			return nil, err
		}
		p.Status = completed
		p.ChargeID = &chargeID
		confirmedAny = true

		if p.Type == payment.TypeBookingPayment {
			if err := o.bookings.UpdateStatus(p.BookingID, booking.StatusConfirmed); err != nil {
				return nil, errors.NewInternalError("failed to confirm booking", err)
			}
		}
	}

	bookingStatus := booking.StatusConfirmed
	if b, err := o.bookings.GetByID(bookingID); err == nil {
		bookingStatus = b.Status
	}

	if confirmedAny && o.eventBus != nil {
		o.eventBus.Publish(ctx, events.NewPaymentConfirmedEvent(bookingID, intentID, chargeID, total))
	}

	return &ConfirmPaymentResponse{
		Payments:      payments,
		BookingStatus: bookingStatus,
	}, nil
}

// cancellationFeeRate is the share of the rental price retained when a booking
// is cancelled daysUntilStart days before it begins.
func cancellationFeeRate(daysUntilStart int) float64 {
	switch {
	case daysUntilStart < 1:
		return feeRateSameDay
	case daysUntilStart < 3:
		return feeRateUnder3Days
	case daysUntilStart < 7:
		return feeRateUnder7Days
	default:
		return feeRateStandard
	}
}

func daysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// HandleBookingCancellation applies the cancellation policy: the rental
// payment is split into a retained cancellation fee and a refund by the fee
// tier, the security deposit is refunded in full, and the booking is
// rejected.
func (o *Orchestrator) HandleBookingCancellation(ctx context.Context, bookingID int64, reason string) (*CancellationResult, error) {
	b, err := o.bookings.GetByID(bookingID)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}

	payments, err := o.payments.GetPaymentsByBooking(bookingID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payments for booking", err)
	}

	hasCompleted := false
	for _, p := range payments {
		if p.IsCompleted() {
			hasCompleted = true
			break
		}
	}
	if !hasCompleted {
		return nil, errors.ErrNoCompletedPayments
	}

	rate := cancellationFeeRate(daysUntil(b.StartDate, time.Now()))

	result := &CancellationResult{
		BookingID: bookingID,
		FeeRate:   rate,
	}

	for _, p := range payments {
		if !p.IsCompleted() {
			continue
		}

		switch p.Type {
		case payment.TypeBookingPayment:
			fee := p.Amount * rate
			refund := p.Amount - fee

			if fee > 0 {
				feePayment, err := o.payments.CreatePayment(bookingID, p.UserID, fee, payment.TypeCancellationFee, "Cancellation fee", nil)
				if err != nil {
					return nil, err
				}
				completed := payment.StatusCompleted
				if err := o.payments.UpdatePayment(feePayment.ID, UpdatePaymentParams{Status: &completed}); err != nil {
					return nil, err
				}
				result.CancellationFee = fee
			}

			if refund > 0 {
				if _, err := o.payments.RefundPayment(p.ID, refund, "booking cancellation"); err != nil {
					return nil, err
				}
				result.RefundedAmount = refund
			}

		case payment.TypeSecurityDeposit:
			if _, err := o.payments.RefundPayment(p.ID, p.RefundableAmount(), "booking cancellation: deposit return"); err != nil {
				return nil, err
			}
			result.DepositRefunded = p.Amount
		}
	}

	if err := o.bookings.UpdateStatus(bookingID, booking.StatusRejected); err != nil {
		return nil, errors.NewInternalError("failed to update booking status", err)
	}

	o.logger.Info("booking cancelled",
		"booking_id", bookingID,
		"fee_rate", rate,
		"cancellation_fee", result.CancellationFee,
		"refunded", result.RefundedAmount+result.DepositRefunded,
		"reason", reason)

	if o.eventBus != nil {
		o.eventBus.Publish(ctx, events.NewBookingCancelledEvent(bookingID, reason, rate, result.RefundedAmount+result.DepositRefunded))
	}

	return result, nil
}

// HandleBookingCompletion closes out a confirmed booking after its rental
// period ends: releases the deposit net of damage and marks the booking
// completed.
func (o *Orchestrator) HandleBookingCompletion(ctx context.Context, bookingID int64, damageFee float64) (*DepositReleaseResult, error) {
	b, err := o.bookings.GetByID(bookingID)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}

	if b.Status != booking.StatusConfirmed {
		return nil, errors.ErrInvalidBookingStatus
	}

	if time.Now().Before(b.EndDate) {
		return nil, errors.ErrBookingNotEnded
	}

	result, err := o.ReleaseSecurityDeposit(ctx, bookingID, damageFee)
	if err != nil {
		return nil, err
	}

	if err := o.bookings.UpdateStatus(bookingID, booking.StatusCompleted); err != nil {
		return nil, errors.NewInternalError("failed to update booking status", err)
	}

	o.logger.Info("booking completed",
		"booking_id", bookingID,
		"damage_fee", damageFee,
		"deposit_refunded", result.RefundedAmount)

	if o.eventBus != nil {
		o.eventBus.Publish(ctx, events.NewBookingCompletedEvent(bookingID, damageFee, result.RefundedAmount))
	}

	return result, nil
}

// ReleaseSecurityDeposit refunds the deposit minus any damage fee. When the
// damage exceeds the deposit, the deposit is fully retained and a pending
// damage_fee payment is opened for the shortfall.
func (o *Orchestrator) ReleaseSecurityDeposit(ctx context.Context, bookingID int64, damageFee float64) (*DepositReleaseResult, error) {
	if damageFee < 0 {
		return nil, errors.NewValidationError("damage fee cannot be negative", errors.ErrCodeInvalidAmount)
	}

	payments, err := o.payments.GetPaymentsByBooking(bookingID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payments for booking", err)
	}

	var deposit *payment.Payment
	for _, p := range payments {
		if p.Type == payment.TypeSecurityDeposit && p.IsCompleted() {
			deposit = p
			break
		}
	}
	if deposit == nil {
		return nil, errors.NewNotFoundError("no completed security deposit for booking", errors.ErrCodePaymentNotFound)
	}

	result := &DepositReleaseResult{
		BookingID:     bookingID,
		DepositAmount: deposit.Amount,
		DamageFee:     damageFee,
	}

	refundable := deposit.RefundableAmount() - damageFee
	if refundable > 0 {
		if _, err := o.payments.RefundPayment(deposit.ID, refundable, "security deposit release"); err != nil {
			return nil, err
		}
		result.RefundedAmount = refundable
	}

	if shortfall := damageFee - deposit.Amount; shortfall > 0 {
		if _, err := o.payments.CreatePayment(bookingID, deposit.UserID, shortfall, payment.TypeDamageFee, "Damage fee exceeding security deposit", nil); err != nil {
			return nil, err
		}
		result.DamageShortfall = shortfall
		o.logger.Warn("damage exceeds deposit, shortfall billed",
			"booking_id", bookingID,
			"deposit", deposit.Amount,
			"damage_fee", damageFee,
			"shortfall", shortfall)
	}

	return result, nil
}

// Invoice assembles the booking's money history: the upfront breakdown plus
// one line per ledger row with charge and refund totals.
func (o *Orchestrator) Invoice(bookingID int64) (*Invoice, error) {
	breakdown, err := o.CalculatePaymentBreakdown(bookingID)
	if err != nil {
		return nil, err
	}

	payments, err := o.payments.GetPaymentsByBooking(bookingID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load payments for booking", err)
	}

	inv := &Invoice{
		BookingID: bookingID,
		Breakdown: breakdown,
		Lines:     make([]InvoiceLine, 0, len(payments)),
		Currency:  o.payments.Currency(),
		IssuedAt:  time.Now(),
	}

	for _, p := range payments {
		inv.Lines = append(inv.Lines, InvoiceLine{
			PaymentID:      p.ID,
			Type:           p.Type,
			Description:    p.Description,
			Amount:         p.Amount,
			RefundedAmount: p.RefundedAmount,
			Status:         p.Status,
			ProcessedAt:    p.ProcessedAt,
		})
		if p.IsCompleted() || p.Status == payment.StatusRefunded || p.Status == payment.StatusPartiallyRefunded {
			inv.TotalCharged += p.Amount
			inv.TotalRefunded += p.RefundedAmount
		}
	}

	return inv, nil
}
