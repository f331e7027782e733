package refund

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusProcessed = "processed"
)

const (
	TypeFull           = "full"
	TypePartial        = "partial"
	TypeDepositRelease = "deposit_release"
	TypeCancellation   = "cancellation"
)

type RefundRequest struct {
	ID              int64          `gorm:"primaryKey" json:"id"`
	PaymentID       int64          `gorm:"column:payment_id;not null;index" json:"payment_id"`
	BookingID       int64          `gorm:"column:booking_id;not null;index" json:"booking_id"`
	UserID          int64          `gorm:"column:user_id;not null;index" json:"user_id"`
	RequestedAmount float64        `gorm:"column:requested_amount;not null" json:"requested_amount"`
	Type            string         `gorm:"column:type;not null" json:"type"`
	Status          string         `gorm:"column:status;default:pending" json:"status"`
	Reason          string         `gorm:"column:reason" json:"reason,omitempty"`
	AgencyID        *int64         `gorm:"column:agency_id" json:"agency_id,omitempty"`
	AgencyNotes     *string        `gorm:"column:agency_notes" json:"agency_notes,omitempty"`
	RejectionReason *string        `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (RefundRequest) TableName() string {
	return "refund_requests"
}

func (r *RefundRequest) IsPending() bool {
	return r.Status == StatusPending
}

// IsTerminal reports whether no further transitions are allowed.
func (r *RefundRequest) IsTerminal() bool {
	return r.Status == StatusRejected || r.Status == StatusProcessed
}
