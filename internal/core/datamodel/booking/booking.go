package booking

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

type Car struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	AgencyID    int64     `gorm:"column:agency_id;not null;index" json:"agency_id"`
	Make        string    `gorm:"column:make" json:"make"`
	Model       string    `gorm:"column:model;not null" json:"model"`
	PricePerDay float64   `gorm:"column:price_per_day;not null" json:"price_per_day"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Car) TableName() string {
	return "cars"
}

type Booking struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	CarID     int64     `gorm:"column:car_id;not null;index" json:"car_id"`
	StartDate time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;not null" json:"end_date"`
	TotalCost float64   `gorm:"column:total_cost;not null" json:"total_cost"`
	Status    string    `gorm:"column:status;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// NumberOfDays is the billed rental length, rounded up to whole days.
func (b *Booking) NumberOfDays() int {
	hours := b.EndDate.Sub(b.StartDate).Hours()
	days := int(hours / 24)
	if hours > float64(days)*24 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}
