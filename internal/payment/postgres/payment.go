package postgres

import (
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id int64) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByBookingID(bookingID int64) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	if err := r.db.
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepository) GetByIntentID(intentID string) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	if err := r.db.
		Where("payment_intent_id = ?", intentID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *PaymentRepository) Update(id int64, updates map[string]interface{}) error {
	result := r.db.Model(&payment.Payment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) CreateTransaction(t *payment.Transaction) error {
	return r.db.Create(t).Error
}

func (r *PaymentRepository) GetTransactionsByPaymentID(paymentID int64) ([]*payment.Transaction, error) {
	var transactions []*payment.Transaction
	if err := r.db.
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
