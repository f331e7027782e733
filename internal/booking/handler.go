package booking

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(base *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.With(auth.RequireRole(auth.RoleUser)).Get("/my", h.MyBookings)
		r.Get("/{id}", h.GetBooking)
	})
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookings, err := h.service.BookingsForUser(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, bookings)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.HandleError(w, errors.NewValidationError("id must be a positive integer", errors.ErrCodeValidationFailed))
		return
	}

	b, svcErr := h.service.GetBooking(id)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	if !h.canAccess(user, b.ID, b.UserID) {
		h.HandleError(w, errors.ErrUnauthorizedAccess)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) canAccess(user *auth.User, bookingID, ownerID int64) bool {
	if user.IsAdmin() || user.ID == ownerID {
		return true
	}
	if user.IsAgency() && user.AgencyID != 0 {
		agencyID, err := h.service.AgencyForBooking(bookingID)
		return err == nil && agencyID == user.AgencyID
	}
	return false
}
