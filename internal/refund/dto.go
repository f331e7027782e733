package refund

import (
	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/common/validation"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/refund"
)

type CreateRefundRequestDTO struct {
	PaymentID int64   `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Type      string  `json:"type"`
	Reason    string  `json:"reason"`
}

func (d *CreateRefundRequestDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("payment_id", d.PaymentID).Required().Positive(errors.ErrCodeValidationFailed)
	v.Field("amount", d.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	v.Field("type", d.Type).Required().OneOf([]string{
		refund.TypeFull,
		refund.TypePartial,
		refund.TypeDepositRelease,
		refund.TypeCancellation,
	}, errors.ErrCodeValidationFailed)
	v.Field("reason", d.Reason).Required().MaxLength(500)
	return v.Validate()
}

type ReviewRefundRequestDTO struct {
	Approve         bool   `json:"approve"`
	AgencyNotes     string `json:"agency_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func (d *ReviewRefundRequestDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("agency_notes", d.AgencyNotes).MaxLength(500)
	if !d.Approve {
		v.Field("rejection_reason", d.RejectionReason).Required().MaxLength(500)
	}
	return v.Validate()
}
