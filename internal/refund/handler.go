package refund

import (
	"encoding/json"
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
	r.Route("/refund-requests", func(r chi.Router) {
		r.With(auth.RequireRole(auth.RoleUser)).Post("/", h.CreateRefundRequest)
		r.With(auth.RequireRole(auth.RoleUser)).Get("/my", h.MyRefundRequests)
		r.With(auth.RequireRole(auth.RoleAgency)).Get("/pending", h.PendingRefundRequests)
		r.With(auth.RequireRole(auth.RoleAgency)).Post("/{id}/approve", h.ApproveRefundRequest)
		r.With(auth.RequireRole(auth.RoleAgency)).Post("/{id}/reject", h.RejectRefundRequest)
	})
}

func (h *Handler) CreateRefundRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var dto CreateRefundRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	req, err := h.service.CreateRefundRequest(user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) MyRefundRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	requests, err := h.service.RequestsForUser(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) PendingRefundRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.AgencyID == 0 {
		h.HandleError(w, errors.NewForbiddenError("agency account required", errors.ErrCodeInsufficientRole))
		return
	}

	requests, err := h.service.PendingForAgency(user.AgencyID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) ApproveRefundRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *Handler) RejectRefundRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.AgencyID == 0 {
		h.HandleError(w, errors.NewForbiddenError("agency account required", errors.ErrCodeInsufficientRole))
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || requestID <= 0 {
		h.HandleError(w, errors.NewValidationError("id must be a positive integer", errors.ErrCodeValidationFailed))
		return
	}

	var dto ReviewRefundRequestDTO
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&dto)
	}
	dto.Approve = approve

	req, svcErr := h.service.Review(r.Context(), requestID, user.AgencyID, dto)
	if svcErr != nil {
		h.HandleServiceError(w, svcErr)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}
