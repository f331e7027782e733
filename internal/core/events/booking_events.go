package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeBookingCancelled = "booking.cancelled"
	EventTypeBookingCompleted = "booking.completed"
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypeRefundProcessed  = "refund.processed"
)

type BookingCompletedEvent struct {
	BaseEvent
	BookingID       int64   `json:"booking_id"`
	DamageFee       float64 `json:"damage_fee"`
	DepositRefunded float64 `json:"deposit_refunded"`
}

func NewBookingCompletedEvent(bookingID int64, damageFee, depositRefunded float64) *BookingCompletedEvent {
	return &BookingCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":       bookingID,
				"damage_fee":       damageFee,
				"deposit_refunded": depositRefunded,
			},
		},
		BookingID:       bookingID,
		DamageFee:       damageFee,
		DepositRefunded: depositRefunded,
	}
}

type PaymentConfirmedEvent struct {
	BaseEvent
	BookingID       int64   `json:"booking_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	ChargeID        string  `json:"charge_id"`
	Amount          float64 `json:"amount"`
}

func NewPaymentConfirmedEvent(bookingID int64, intentID, chargeID string, amount float64) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":        bookingID,
				"payment_intent_id": intentID,
				"charge_id":         chargeID,
				"amount":            amount,
			},
		},
		BookingID:       bookingID,
		PaymentIntentID: intentID,
		ChargeID:        chargeID,
		Amount:          amount,
	}
}

type BookingCancelledEvent struct {
	BaseEvent
	BookingID      int64   `json:"booking_id"`
	Reason         string  `json:"reason"`
	FeeRate        float64 `json:"fee_rate"`
	RefundedAmount float64 `json:"refunded_amount"`
}

func NewBookingCancelledEvent(bookingID int64, reason string, feeRate, refundedAmount float64) *BookingCancelledEvent {
	return &BookingCancelledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingCancelled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":      bookingID,
				"reason":          reason,
				"fee_rate":        feeRate,
				"refunded_amount": refundedAmount,
			},
		},
		BookingID:      bookingID,
		Reason:         reason,
		FeeRate:        feeRate,
		RefundedAmount: refundedAmount,
	}
}

type RefundProcessedEvent struct {
	BaseEvent
	RefundRequestID int64   `json:"refund_request_id"`
	PaymentID       int64   `json:"payment_id"`
	Amount          float64 `json:"amount"`
}

func NewRefundProcessedEvent(requestID, paymentID int64, amount float64) *RefundProcessedEvent {
	return &RefundProcessedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRefundProcessed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"refund_request_id": requestID,
				"payment_id":        paymentID,
				"amount":            amount,
			},
		},
		RefundRequestID: requestID,
		PaymentID:       paymentID,
		Amount:          amount,
	}
}
