package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

// IntegrationHandler exposes the booking-facing orchestration routes: pricing
// breakdown, the full rental+deposit payment flow, cancellation, completion
// and invoicing.
type IntegrationHandler struct {
	*transport.BaseHandler
	orchestrator *Orchestrator
}

func NewIntegrationHandler(base *transport.BaseHandler, orchestrator *Orchestrator) *IntegrationHandler {
	return &IntegrationHandler{
		BaseHandler:  base,
		orchestrator: orchestrator,
	}
}

func (h *IntegrationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/payment-integration", func(r chi.Router) {
		r.With(auth.RequireRole(auth.RoleUser)).Post("/process-full-payment", h.ProcessFullPayment)
		r.With(auth.RequireRole(auth.RoleUser, auth.RoleAgency)).Get("/breakdown/{bookingId}", h.GetBreakdown)
		r.With(auth.RequireRole(auth.RoleUser)).Post("/cancel-booking", h.CancelBooking)
		r.With(auth.RequireRole(auth.RoleAgency)).Post("/complete-booking", h.CompleteBooking)
		r.With(auth.RequireRole(auth.RoleUser, auth.RoleAgency)).Get("/invoice/{bookingId}", h.GetInvoice)
	})
}

// ProcessFullPayment prices the booking itself and opens the payment, so the
// client never supplies an amount.
func (h *IntegrationHandler) ProcessFullPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req struct {
		BookingID int64 `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	breakdown, err := h.orchestrator.CalculatePaymentBreakdown(req.BookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.orchestrator.ProcessBookingPayment(user.ID, ProcessBookingPaymentDTO{
		BookingID:       req.BookingID,
		Amount:          breakdown.BaseRentalCost,
		SecurityDeposit: &breakdown.SecurityDeposit,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"breakdown": breakdown,
		"payment":   resp,
	})
}

func (h *IntegrationHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	bookingID, appErr := pathID(r, "bookingId")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	breakdown, err := h.orchestrator.CalculatePaymentBreakdown(bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *IntegrationHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var dto CancelBookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	b, err := h.orchestrator.bookings.GetByID(dto.BookingID)
	if err != nil {
		h.HandleError(w, errors.ErrBookingNotFound)
		return
	}
	if !user.IsAdmin() && b.UserID != user.ID {
		h.HandleError(w, errors.ErrUnauthorizedAccess)
		return
	}

	result, err := h.orchestrator.HandleBookingCancellation(r.Context(), dto.BookingID, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var dto CompleteBookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := dto.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if !user.IsAdmin() {
		agencyID, err := h.orchestrator.bookings.GetAgencyIDForBooking(dto.BookingID)
		if err != nil || agencyID != user.AgencyID {
			h.HandleError(w, errors.ErrUnauthorizedAccess)
			return
		}
	}

	result, err := h.orchestrator.HandleBookingCompletion(r.Context(), dto.BookingID, dto.DamageFee)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *IntegrationHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	bookingID, appErr := pathID(r, "bookingId")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	invoice, err := h.orchestrator.Invoice(bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, invoice)
}
