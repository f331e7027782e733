package chat

import "time"

type Message struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	BookingID int64     `gorm:"column:booking_id;not null;index" json:"booking_id"`
	SenderID  int64     `gorm:"column:sender_id;not null" json:"sender_id"`
	Body      string    `gorm:"column:body;not null" json:"body"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}
