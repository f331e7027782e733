package postgres

import (
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(id int64) (*booking.Booking, error) {
	var b booking.Booking
	if err := r.db.First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetCarByID(id int64) (*booking.Car, error) {
	var c booking.Car
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *BookingRepository) GetByUser(userID int64) ([]*booking.Booking, error) {
	var bookings []*booking.Booking
	if err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) UpdateStatus(id int64, status string) error {
	result := r.db.Model(&booking.Booking{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAgencyIDForBooking resolves which agency owns the booked car.
func (r *BookingRepository) GetAgencyIDForBooking(bookingID int64) (int64, error) {
	var agencyID int64
	err := r.db.Model(&booking.Booking{}).
		Select("cars.agency_id").
		Joins("JOIN cars ON cars.id = bookings.car_id").
		Where("bookings.id = ?", bookingID).
		Scan(&agencyID).Error
	if err != nil {
		return 0, err
	}
	if agencyID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return agencyID, nil
}
