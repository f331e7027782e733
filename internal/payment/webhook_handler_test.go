package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
	paymentPkg "github.com/Dhia9030/CarRental-sub000/internal/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

var _ = Describe("WebhookHandler", func() {
	var (
		handler      *paymentPkg.WebhookHandler
		orchestrator *paymentPkg.Orchestrator
		paymentRepo  *mockPaymentRepository
		bookingRepo  *mockBookingRepository
		recorder     *httptest.ResponseRecorder
	)

	postEvent := func(eventType string, data map[string]interface{}) {
		body, _ := json.Marshal(map[string]interface{}{
			"eventType": eventType,
			"data":      data,
		})
		req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		handler.HandleWebhook(recorder, req)
	}

	openPayments := func() *paymentPkg.ProcessPaymentResponse {
		resp, err := orchestrator.ProcessBookingPayment(10, paymentPkg.ProcessBookingPaymentDTO{
			BookingID: 1,
			Amount:    100.0,
		})
		Expect(err).ToNot(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		logger := testLogger()
		paymentRepo = newMockPaymentRepository()
		bookingRepo = newMockBookingRepository()
		bookingRepo.cars[1] = &booking.Car{ID: 1, AgencyID: 77, Make: "Toyota", Model: "Corolla", PricePerDay: 50.0}

		start := time.Now().AddDate(0, 0, 10)
		bookingRepo.bookings[1] = &booking.Booking{
			ID:        1,
			UserID:    10,
			CarID:     1,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 2),
			TotalCost: 100.0,
			Status:    booking.StatusPending,
		}
		bookingRepo.agencies[1] = 77

		processor := paymentPkg.NewMockProcessor(logger)
		service := paymentPkg.NewService(paymentRepo, processor, "USD", logger)
		orchestrator = paymentPkg.NewOrchestrator(service, processor, bookingRepo, events.NewEventBus(logger), 0.20, logger)
		handler = paymentPkg.NewWebhookHandler(transport.NewBaseHandler(logger), service, orchestrator)
		recorder = httptest.NewRecorder()
	})

	Context("payment_intent.succeeded", func() {
		It("should settle the intent's payments and confirm the booking", func() {
			resp := openPayments()

			postEvent("payment_intent.succeeded", map[string]interface{}{
				"payment_intent_id": resp.PaymentIntentID,
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var body map[string]string
			Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
			Expect(body["received"]).To(Equal("true"))

			Expect(bookingRepo.bookings[1].Status).To(Equal(booking.StatusConfirmed))
			for _, p := range []*payment.Payment{resp.Payment, resp.DepositPayment} {
				Expect(paymentRepo.payments[p.ID].Status).To(Equal(payment.StatusCompleted))
			}
		})

		It("should reject a payload without an intent id", func() {
			postEvent("payment_intent.succeeded", map[string]interface{}{})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("payment_intent.payment_failed", func() {
		It("should mark the intent's pending payments failed", func() {
			resp := openPayments()

			postEvent("payment_intent.payment_failed", map[string]interface{}{
				"payment_intent_id": resp.PaymentIntentID,
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			for _, p := range []*payment.Payment{resp.Payment, resp.DepositPayment} {
				Expect(paymentRepo.payments[p.ID].Status).To(Equal(payment.StatusFailed))
			}
		})

		It("should leave already-settled payments untouched", func() {
			resp := openPayments()
			_, err := orchestrator.ConfirmPayment(context.Background(), resp.PaymentIntentID)
			Expect(err).ToNot(HaveOccurred())

			postEvent("payment_intent.payment_failed", map[string]interface{}{
				"payment_intent_id": resp.PaymentIntentID,
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			for _, p := range []*payment.Payment{resp.Payment, resp.DepositPayment} {
				Expect(paymentRepo.payments[p.ID].Status).To(Equal(payment.StatusCompleted))
			}
		})

		It("should return not found for an unknown intent", func() {
			postEvent("payment_intent.payment_failed", map[string]interface{}{
				"payment_intent_id": "pi_mock_unknown",
			})

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Context("charge.dispute.created", func() {
		It("should record a dispute transaction against the matching charge", func() {
			resp := openPayments()
			_, err := orchestrator.ConfirmPayment(context.Background(), resp.PaymentIntentID)
			Expect(err).ToNot(HaveOccurred())

			chargeID := *paymentRepo.payments[resp.Payment.ID].ChargeID
			postEvent("charge.dispute.created", map[string]interface{}{
				"payment_intent_id": resp.PaymentIntentID,
				"charge_id":         chargeID,
				"dispute_id":        "dp_mock_1",
				"amount":            100.0,
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var disputes []*payment.Transaction
			for _, t := range paymentRepo.transactions {
				if t.Type == payment.TransactionTypeDispute && t.PaymentID == resp.Payment.ID {
					disputes = append(disputes, t)
				}
			}
			Expect(disputes).To(HaveLen(1))
			Expect(disputes[0].ExternalID).To(Equal("dp_mock_1"))
		})

		It("should reject a payload without a charge id", func() {
			postEvent("charge.dispute.created", map[string]interface{}{
				"dispute_id": "dp_mock_1",
			})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("unknown event types", func() {
		It("should acknowledge without touching the ledger", func() {
			openPayments()
			before := len(paymentRepo.transactions)

			postEvent("customer.subscription.created", map[string]interface{}{
				"id": "sub_mock_1",
			})

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var body map[string]string
			Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
			Expect(body["received"]).To(Equal("true"))
			Expect(paymentRepo.transactions).To(HaveLen(before))
		})
	})

	Context("malformed payloads", func() {
		It("should reject bodies that are not JSON", func() {
			req := httptest.NewRequest("POST", "/api/v1/payments/webhook", bytes.NewBufferString("not json"))
			req.Header.Set("Content-Type", "application/json")

			handler.HandleWebhook(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject envelopes without an event type", func() {
			postEvent("", map[string]interface{}{"payment_intent_id": "pi_mock_1"})

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
