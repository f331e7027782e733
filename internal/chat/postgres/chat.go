package postgres

import (
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/chat"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(m *chat.Message) error {
	return r.db.Create(m).Error
}

func (r *ChatRepository) GetByBooking(bookingID int64, limit int) ([]*chat.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var messages []*chat.Message
	if err := r.db.
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
