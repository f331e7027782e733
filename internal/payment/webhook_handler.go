package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

// WebhookHandler receives processor callbacks. The endpoint is public: the
// processor does not authenticate with a bearer token. Unknown event types
// are acknowledged so the processor stops retrying them.
type WebhookHandler struct {
	*transport.BaseHandler
	payments     *Service
	orchestrator *Orchestrator
}

func NewWebhookHandler(base *transport.BaseHandler, payments *Service, orchestrator *Orchestrator) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:  base,
		payments:     payments,
		orchestrator: orchestrator,
	}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments/webhook", h.HandleWebhook)
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var event WebhookEventDTO
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid webhook payload", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := event.Validate(); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	h.Logger.Info("webhook received", "event_type", event.EventType)

	var err error
	switch event.EventType {
	case "payment_intent.succeeded":
		err = h.handleIntentSucceeded(r, event)
	case "payment_intent.payment_failed":
		err = h.handleIntentFailed(event)
	case "charge.dispute.created":
		err = h.handleDisputeCreated(event)
	default:
		h.Logger.Warn("unhandled webhook event type", "event_type", event.EventType)
	}

	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func (h *WebhookHandler) handleIntentSucceeded(r *http.Request, event WebhookEventDTO) error {
	intentID := event.PaymentIntentID()
	if intentID == "" {
		return errors.NewValidationError("webhook payload missing payment intent id", errors.ErrCodeValidationFailed)
	}

	_, err := h.orchestrator.ConfirmPayment(r.Context(), intentID)
	return err
}

func (h *WebhookHandler) handleIntentFailed(event WebhookEventDTO) error {
	intentID := event.PaymentIntentID()
	if intentID == "" {
		return errors.NewValidationError("webhook payload missing payment intent id", errors.ErrCodeValidationFailed)
	}

	payments, err := h.payments.GetPaymentsByIntent(intentID)
	if err != nil {
		return errors.NewInternalError("failed to load payments for intent", err)
	}
	if len(payments) == 0 {
		return errors.ErrIntentNotFound
	}

	failed := payment.StatusFailed
	for _, p := range payments {
		if p.IsCompleted() {
			continue
		}
		if err := h.payments.UpdatePayment(p.ID, UpdatePaymentParams{Status: &failed}); err != nil {
			return err
		}
	}

	h.Logger.Warn("payment intent failed", "intent_id", intentID, "payments", len(payments))
	return nil
}

func (h *WebhookHandler) handleDisputeCreated(event WebhookEventDTO) error {
	chargeID, _ := event.Data["charge_id"].(string)
	disputeID, _ := event.Data["dispute_id"].(string)
	amount, _ := event.Data["amount"].(float64)

	if chargeID == "" {
		return errors.NewValidationError("webhook payload missing charge id", errors.ErrCodeValidationFailed)
	}

	// Disputes are recorded against the ledger for later review; no automatic
	// reversal happens here.
	intentID, _ := event.Data["payment_intent_id"].(string)
	if intentID == "" {
		h.Logger.Warn("dispute without payment intent, recording log only",
			"charge_id", chargeID,
			"dispute_id", disputeID)
		return nil
	}

	payments, err := h.payments.GetPaymentsByIntent(intentID)
	if err != nil || len(payments) == 0 {
		h.Logger.Warn("dispute for unknown payment intent", "intent_id", intentID)
		return nil
	}

	response, _ := json.Marshal(event.Data)
	for _, p := range payments {
		if p.ChargeID == nil || *p.ChargeID != chargeID {
			continue
		}
		if _, err := h.payments.CreateTransaction(p.ID, amount, payment.TransactionTypeDispute, disputeID, payment.TransactionStatusSucceeded, response); err != nil {
			return err
		}
	}

	h.Logger.Warn("charge dispute recorded",
		"charge_id", chargeID,
		"dispute_id", disputeID,
		"amount", amount)
	return nil
}
