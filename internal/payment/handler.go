package payment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

// Handler serves the payment ledger routes: confirmation, refunds, deposit
// release, per-booking listings and the processor webhook.
type Handler struct {
	*transport.BaseHandler
	payments     *Service
	orchestrator *Orchestrator
}

func NewHandler(base *transport.BaseHandler, payments *Service, orchestrator *Orchestrator) *Handler {
	return &Handler{
		BaseHandler:  base,
		payments:     payments,
		orchestrator: orchestrator,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.With(auth.RequireRole(auth.RoleUser)).Post("/process-booking", h.ProcessBookingPayment)
		r.With(auth.RequireRole(auth.RoleUser)).Post("/confirm/{paymentIntentId}", h.ConfirmPayment)
		r.With(auth.RequireRole(auth.RoleAgency, auth.RoleAdmin)).Post("/refund", h.RefundPayment)
		r.With(auth.RequireRole(auth.RoleAgency)).Post("/release-deposit/{bookingId}", h.ReleaseDeposit)
		r.Get("/booking/{bookingId}", h.GetBookingPayments)
	})
}

func (h *Handler) ProcessBookingPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var dto ProcessBookingPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.orchestrator.ProcessBookingPayment(user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "paymentIntentId")
	if intentID == "" {
		h.HandleError(w, errors.NewValidationError("payment intent id is required", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.orchestrator.ConfirmPayment(r.Context(), intentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var dto RefundPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	p, err := h.payments.RefundPayment(dto.PaymentID, dto.Amount, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) ReleaseDeposit(w http.ResponseWriter, r *http.Request) {
	bookingID, appErr := pathID(r, "bookingId")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var dto CompleteBookingDTO
	if r.Body != nil {
		// Damage fee is optional; an empty body means release in full.
		json.NewDecoder(r.Body).Decode(&dto)
	}

	result, err := h.orchestrator.ReleaseSecurityDeposit(r.Context(), bookingID, dto.DamageFee)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetBookingPayments(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookingID, appErr := pathID(r, "bookingId")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if appErr := h.authorizeBookingAccess(user, bookingID); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	payments, err := h.payments.GetPaymentsByBooking(bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, payments)
}

// authorizeBookingAccess scopes booking-level reads: the renter, the agency
// that owns the car, or an admin.
func (h *Handler) authorizeBookingAccess(user *auth.User, bookingID int64) *errors.AppError {
	if user.IsAdmin() {
		return nil
	}

	b, err := h.orchestrator.bookings.GetByID(bookingID)
	if err != nil {
		return errors.ErrBookingNotFound
	}

	if user.Role == auth.RoleUser && b.UserID == user.ID {
		return nil
	}

	if user.IsAgency() && user.AgencyID != 0 {
		agencyID, err := h.orchestrator.bookings.GetAgencyIDForBooking(bookingID)
		if err == nil && agencyID == user.AgencyID {
			return nil
		}
	}

	return errors.ErrUnauthorizedAccess
}

func pathID(r *http.Request, param string) (int64, *errors.AppError) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(param+" must be a positive integer", errors.ErrCodeValidationFailed)
	}
	return id, nil
}
