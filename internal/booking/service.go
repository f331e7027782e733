package booking

import (
	"log/slog"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
)

// RepositoryAPI is the read surface the booking routes need. Writes happen
// through the payment orchestration, which owns booking status transitions.
type RepositoryAPI interface {
	GetByID(id int64) (*booking.Booking, error)
	GetCarByID(id int64) (*booking.Car, error)
	GetByUser(userID int64) ([]*booking.Booking, error)
	GetAgencyIDForBooking(bookingID int64) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetBooking(id int64) (*booking.Booking, error) {
	b, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrBookingNotFound
	}
	return b, nil
}

func (s *Service) BookingsForUser(userID int64) ([]*booking.Booking, error) {
	return s.repo.GetByUser(userID)
}

func (s *Service) AgencyForBooking(bookingID int64) (int64, error) {
	return s.repo.GetAgencyIDForBooking(bookingID)
}
