package postgres

import (
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/refund"
)

type RefundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(req *refund.RefundRequest) error {
	return r.db.Create(req).Error
}

func (r *RefundRepository) GetByID(id int64) (*refund.RefundRequest, error) {
	var req refund.RefundRequest
	if err := r.db.First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RefundRepository) GetPendingByAgency(agencyID int64) ([]*refund.RefundRequest, error) {
	var requests []*refund.RefundRequest
	if err := r.db.
		Where("agency_id = ? AND status = ?", agencyID, refund.StatusPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RefundRepository) GetByUser(userID int64) ([]*refund.RefundRequest, error) {
	var requests []*refund.RefundRequest
	if err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RefundRepository) HasPendingForPayment(paymentID int64) (bool, error) {
	var count int64
	if err := r.db.Model(&refund.RefundRequest{}).
		Where("payment_id = ? AND status = ?", paymentID, refund.StatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RefundRepository) Update(id int64, updates map[string]interface{}) error {
	result := r.db.Model(&refund.RefundRequest{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
