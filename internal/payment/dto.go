package payment

import (
	"time"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/common/validation"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
)

type ProcessBookingPaymentDTO struct {
	BookingID       int64    `json:"booking_id"`
	Amount          float64  `json:"amount"`
	PaymentMethodID string   `json:"payment_method_id,omitempty"`
	SecurityDeposit *float64 `json:"security_deposit,omitempty"`
	Description     string   `json:"description,omitempty"`
}

func (d *ProcessBookingPaymentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("booking_id", d.BookingID).Required().Positive(errors.ErrCodeValidationFailed)
	v.Field("amount", d.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	v.Field("payment_method_id", d.PaymentMethodID).MaxLength(100)
	if d.SecurityDeposit != nil {
		v.Field("security_deposit", *d.SecurityDeposit).Positive(errors.ErrCodeInvalidAmount)
	}
	return v.Validate()
}

type RefundPaymentDTO struct {
	PaymentID int64   `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason,omitempty"`
}

func (d *RefundPaymentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("payment_id", d.PaymentID).Required().Positive(errors.ErrCodeValidationFailed)
	v.Field("amount", d.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	v.Field("reason", d.Reason).MaxLength(500)
	return v.Validate()
}

type CancelBookingDTO struct {
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

func (d *CancelBookingDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("booking_id", d.BookingID).Required().Positive(errors.ErrCodeValidationFailed)
	v.Field("reason", d.Reason).MaxLength(500)
	return v.Validate()
}

type CompleteBookingDTO struct {
	BookingID int64   `json:"booking_id"`
	DamageFee float64 `json:"damage_fee"`
}

func (d *CompleteBookingDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("booking_id", d.BookingID).Required().Positive(errors.ErrCodeValidationFailed)
	v.Field("damage_fee", d.DamageFee).Custom(func(value interface{}) *errors.AppError {
		if fee, ok := value.(float64); ok && fee < 0 {
			return errors.NewValidationFieldError("damage_fee", "damage_fee cannot be negative", errors.ErrCodeInvalidAmount)
		}
		return nil
	})
	return v.Validate()
}

// PaymentBreakdown itemizes what a booking costs up front.
type PaymentBreakdown struct {
	BookingID       int64   `json:"booking_id"`
	NumberOfDays    int     `json:"number_of_days"`
	PricePerDay     float64 `json:"price_per_day"`
	BaseRentalCost  float64 `json:"base_rental_cost"`
	SecurityDeposit float64 `json:"security_deposit"`
	TotalAmount     float64 `json:"total_amount"`
	Currency        string  `json:"currency"`
}

// ProcessPaymentResponse is returned after the two ledger rows are opened.
type ProcessPaymentResponse struct {
	Payment         *payment.Payment `json:"payment"`
	DepositPayment  *payment.Payment `json:"deposit_payment"`
	PaymentIntentID string           `json:"payment_intent_id"`
	ClientSecret    string           `json:"client_secret"`
	TotalAmount     float64          `json:"total_amount"`
}

type ConfirmPaymentResponse struct {
	Payments      []*payment.Payment `json:"payments"`
	BookingStatus string             `json:"booking_status"`
}

type CancellationResult struct {
	BookingID       int64   `json:"booking_id"`
	FeeRate         float64 `json:"fee_rate"`
	CancellationFee float64 `json:"cancellation_fee"`
	RefundedAmount  float64 `json:"refunded_amount"`
	DepositRefunded float64 `json:"deposit_refunded"`
}

type DepositReleaseResult struct {
	BookingID       int64   `json:"booking_id"`
	DepositAmount   float64 `json:"deposit_amount"`
	DamageFee       float64 `json:"damage_fee"`
	RefundedAmount  float64 `json:"refunded_amount"`
	DamageShortfall float64 `json:"damage_shortfall,omitempty"`
}

type InvoiceLine struct {
	PaymentID      int64      `json:"payment_id"`
	Type           string     `json:"type"`
	Description    string     `json:"description,omitempty"`
	Amount         float64    `json:"amount"`
	RefundedAmount float64    `json:"refunded_amount"`
	Status         string     `json:"status"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

type Invoice struct {
	BookingID     int64             `json:"booking_id"`
	Breakdown     *PaymentBreakdown `json:"breakdown"`
	Lines         []InvoiceLine     `json:"lines"`
	TotalCharged  float64           `json:"total_charged"`
	TotalRefunded float64           `json:"total_refunded"`
	Currency      string            `json:"currency"`
	IssuedAt      time.Time         `json:"issued_at"`
}

// WebhookEventDTO is the processor callback envelope.
type WebhookEventDTO struct {
	EventType string                 `json:"eventType"`
	Data      map[string]interface{} `json:"data"`
}

func (d *WebhookEventDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("eventType", d.EventType).Required()
	return v.Validate()
}

// PaymentIntentID digs the intent id out of the webhook payload.
func (d *WebhookEventDTO) PaymentIntentID() string {
	if d.Data == nil {
		return ""
	}
	for _, key := range []string{"payment_intent_id", "paymentIntentId", "id"} {
		if v, ok := d.Data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
