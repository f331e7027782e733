package payment

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending           = "pending"
	StatusProcessing        = "processing"
	StatusCompleted         = "completed"
	StatusFailed            = "failed"
	StatusRefunded          = "refunded"
	StatusPartiallyRefunded = "partially_refunded"
	StatusCancelled         = "cancelled"
)

const (
	TypeBookingPayment  = "booking_payment"
	TypeSecurityDeposit = "security_deposit"
	TypeDamageFee       = "damage_fee"
	TypeLateFee         = "late_fee"
	TypeCancellationFee = "cancellation_fee"
)

type Payment struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	BookingID       int64           `gorm:"column:booking_id;not null;index" json:"booking_id"`
	UserID          int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount          float64         `gorm:"column:amount;not null" json:"amount"`
	RefundedAmount  float64         `gorm:"column:refunded_amount;default:0" json:"refunded_amount"`
	Currency        string          `gorm:"column:currency;default:USD" json:"currency"`
	Status          string          `gorm:"column:status;default:pending" json:"status"`
	Type            string          `gorm:"column:type;not null" json:"type"`
	PaymentIntentID *string         `gorm:"column:payment_intent_id;index" json:"payment_intent_id,omitempty"`
	ChargeID        *string         `gorm:"column:charge_id" json:"charge_id,omitempty"`
	Description     string          `gorm:"column:description" json:"description,omitempty"`
	Metadata        json.RawMessage `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	ProcessedAt     *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	RefundedAt      *time.Time      `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"column:deleted_at;index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// RefundableAmount is how much of the payment can still be refunded.
func (p *Payment) RefundableAmount() float64 {
	return p.Amount - p.RefundedAmount
}

// CanRefund reports whether the payment is in a status that accepts refunds.
func (p *Payment) CanRefund() bool {
	return p.Status == StatusCompleted || p.Status == StatusPartiallyRefunded
}

func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

const (
	TransactionTypeCharge        = "charge"
	TransactionTypeRefund        = "refund"
	TransactionTypeDispute       = "dispute"
	TransactionTypeAuthorization = "authorization"
	TransactionTypeCapture       = "capture"
)

const (
	TransactionStatusSucceeded = "succeeded"
	TransactionStatusFailed    = "failed"
)

// Transaction is an append-only ledger entry. Rows are created once per
// processor interaction and never mutated; refund amounts are negative.
type Transaction struct {
	ID         int64           `gorm:"primaryKey" json:"id"`
	PaymentID  int64           `gorm:"column:payment_id;not null;index" json:"payment_id"`
	Amount     float64         `gorm:"column:amount;not null" json:"amount"`
	Type       string          `gorm:"column:type;not null" json:"type"`
	ExternalID string          `gorm:"column:external_id;not null" json:"external_id"`
	Status     string          `gorm:"column:status;not null" json:"status"`
	Response   json.RawMessage `gorm:"column:response;type:jsonb" json:"response,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
