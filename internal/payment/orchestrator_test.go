package payment_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
	paymentPkg "github.com/Dhia9030/CarRental-sub000/internal/payment"
)

type mockBookingRepository struct {
	bookings map[int64]*booking.Booking
	cars     map[int64]*booking.Car
	agencies map[int64]int64
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{
		bookings: make(map[int64]*booking.Booking),
		cars:     make(map[int64]*booking.Car),
		agencies: make(map[int64]int64),
	}
}

func (m *mockBookingRepository) GetByID(id int64) (*booking.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, errors.New("booking not found")
	}
	return b, nil
}

func (m *mockBookingRepository) GetCarByID(id int64) (*booking.Car, error) {
	c, ok := m.cars[id]
	if !ok {
		return nil, errors.New("car not found")
	}
	return c, nil
}

func (m *mockBookingRepository) UpdateStatus(id int64, status string) error {
	b, ok := m.bookings[id]
	if !ok {
		return errors.New("booking not found")
	}
	b.Status = status
	return nil
}

func (m *mockBookingRepository) GetAgencyIDForBooking(bookingID int64) (int64, error) {
	agencyID, ok := m.agencies[bookingID]
	if !ok {
		return 0, errors.New("agency not found")
	}
	return agencyID, nil
}

var _ = Describe("PaymentOrchestrator", func() {
	var (
		orchestrator *paymentPkg.Orchestrator
		service      *paymentPkg.Service
		paymentRepo  *mockPaymentRepository
		bookingRepo  *mockBookingRepository
		eventBus     *events.EventBus
		ctx          context.Context
	)

	seedBooking := func(id int64, status string, start, end time.Time) {
		bookingRepo.bookings[id] = &booking.Booking{
			ID:        id,
			UserID:    10,
			CarID:     1,
			StartDate: start,
			EndDate:   end,
			TotalCost: 100.0,
			Status:    status,
		}
		bookingRepo.agencies[id] = 77
	}

	// Runs the happy path up front: rental + deposit opened and confirmed.
	payAndConfirm := func(bookingID int64) *paymentPkg.ProcessPaymentResponse {
		resp, err := orchestrator.ProcessBookingPayment(10, paymentPkg.ProcessBookingPaymentDTO{
			BookingID: bookingID,
			Amount:    100.0,
		})
		Expect(err).ToNot(HaveOccurred())

		_, err = orchestrator.ConfirmPayment(ctx, resp.PaymentIntentID)
		Expect(err).ToNot(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger := testLogger()
		paymentRepo = newMockPaymentRepository()
		bookingRepo = newMockBookingRepository()
		bookingRepo.cars[1] = &booking.Car{ID: 1, AgencyID: 77, Make: "Toyota", Model: "Corolla", PricePerDay: 50.0}

		processor := paymentPkg.NewMockProcessor(logger)
		service = paymentPkg.NewService(paymentRepo, processor, "USD", logger)
		eventBus = events.NewEventBus(logger)
		orchestrator = paymentPkg.NewOrchestrator(service, processor, bookingRepo, eventBus, 0.20, logger)
	})

	Describe("CalculatePaymentBreakdown", func() {
		It("should price the rental plus a 20 percent deposit", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			breakdown, err := orchestrator.CalculatePaymentBreakdown(1)

			Expect(err).ToNot(HaveOccurred())
			Expect(breakdown.NumberOfDays).To(Equal(2))
			Expect(breakdown.BaseRentalCost).To(Equal(100.0))
			Expect(breakdown.SecurityDeposit).To(Equal(20.0))
			Expect(breakdown.TotalAmount).To(Equal(120.0))
		})

		It("should return not found for a missing booking", func() {
			_, err := orchestrator.CalculatePaymentBreakdown(999)
			Expect(err).To(Equal(apperrors.ErrBookingNotFound))
		})
	})

	Describe("ProcessBookingPayment", func() {
		It("should open rental and deposit rows under one intent", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			resp, err := orchestrator.ProcessBookingPayment(10, paymentPkg.ProcessBookingPaymentDTO{
				BookingID: 1,
				Amount:    100.0,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Payment.Type).To(Equal(payment.TypeBookingPayment))
			Expect(resp.Payment.Amount).To(Equal(100.0))
			Expect(resp.DepositPayment.Type).To(Equal(payment.TypeSecurityDeposit))
			Expect(resp.DepositPayment.Amount).To(Equal(20.0))
			Expect(resp.TotalAmount).To(Equal(120.0))
			Expect(*resp.Payment.PaymentIntentID).To(Equal(resp.PaymentIntentID))
			Expect(*resp.DepositPayment.PaymentIntentID).To(Equal(resp.PaymentIntentID))
			Expect(resp.ClientSecret).To(ContainSubstring(resp.PaymentIntentID + "_secret_"))
		})

		It("should record the payment method on both ledger rows", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			resp, err := orchestrator.ProcessBookingPayment(10, paymentPkg.ProcessBookingPaymentDTO{
				BookingID:       1,
				Amount:          100.0,
				PaymentMethodID: "pm_mock_visa",
			})

			Expect(err).ToNot(HaveOccurred())
			for _, p := range []*payment.Payment{resp.Payment, resp.DepositPayment} {
				Expect(string(paymentRepo.payments[p.ID].Metadata)).To(ContainSubstring(`"payment_method_id":"pm_mock_visa"`))
			}
		})

		It("should refuse a booking that is not pending", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusConfirmed, start, start.AddDate(0, 0, 2))

			_, err := orchestrator.ProcessBookingPayment(10, paymentPkg.ProcessBookingPaymentDTO{
				BookingID: 1,
				Amount:    100.0,
			})

			Expect(err).To(Equal(apperrors.ErrInvalidBookingStatus))
		})
	})

	Describe("ConfirmPayment", func() {
		It("should settle both payments and confirm the booking", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			resp := payAndConfirm(1)

			Expect(bookingRepo.bookings[1].Status).To(Equal(booking.StatusConfirmed))
			for _, p := range []*payment.Payment{resp.Payment, resp.DepositPayment} {
				stored := paymentRepo.payments[p.ID]
				Expect(stored.Status).To(Equal(payment.StatusCompleted))
				Expect(stored.ChargeID).ToNot(BeNil())
			}
		})

		It("should be idempotent and not duplicate charge transactions", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			resp := payAndConfirm(1)

			_, err := orchestrator.ConfirmPayment(ctx, resp.PaymentIntentID)
			Expect(err).ToNot(HaveOccurred())

			Expect(paymentRepo.transactions).To(HaveLen(2))
		})

		It("should return not found for an unknown intent", func() {
			_, err := orchestrator.ConfirmPayment(ctx, "pi_mock_unknown")
			Expect(err).To(Equal(apperrors.ErrIntentNotFound))
		})
	})

	Describe("HandleBookingCancellation", func() {
		DescribeTable("fee tiers by days until start",
			func(daysUntilStart int, expectedRate float64) {
				start := time.Now().Add(time.Duration(daysUntilStart) * 24 * time.Hour)
				if daysUntilStart == 0 {
					start = time.Now().Add(-time.Hour)
				}
				seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
				payAndConfirm(1)

				result, err := orchestrator.HandleBookingCancellation(ctx, 1, "test")

				Expect(err).ToNot(HaveOccurred())
				Expect(result.FeeRate).To(Equal(expectedRate))
				Expect(result.CancellationFee).To(Equal(100.0 * expectedRate))
				Expect(result.RefundedAmount).To(Equal(100.0 * (1 - expectedRate)))
				Expect(result.DepositRefunded).To(Equal(20.0))
				Expect(bookingRepo.bookings[1].Status).To(Equal(booking.StatusRejected))
			},
			Entry("same day keeps everything", 0, 1.0),
			Entry("two days out keeps half", 2, 0.5),
			Entry("five days out keeps a quarter", 5, 0.25),
			Entry("ten days out keeps ten percent", 10, 0.10),
		)

		It("should refuse when no completed payments exist", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))

			_, err := orchestrator.HandleBookingCancellation(ctx, 1, "test")
			Expect(err).To(Equal(apperrors.ErrNoCompletedPayments))
		})

		It("should split the end-to-end 100 plus 20 scenario correctly", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
			resp := payAndConfirm(1)

			result, err := orchestrator.HandleBookingCancellation(ctx, 1, "change of plans")

			Expect(err).ToNot(HaveOccurred())
			Expect(result.CancellationFee).To(Equal(10.0))
			Expect(result.RefundedAmount).To(Equal(90.0))
			Expect(result.DepositRefunded).To(Equal(20.0))

			rental := paymentRepo.payments[resp.Payment.ID]
			Expect(rental.RefundedAmount).To(Equal(90.0))
			Expect(rental.Status).To(Equal(payment.StatusPartiallyRefunded))

			deposit := paymentRepo.payments[resp.DepositPayment.ID]
			Expect(deposit.RefundedAmount).To(Equal(20.0))
			Expect(deposit.Status).To(Equal(payment.StatusRefunded))
		})
	})

	Describe("HandleBookingCompletion", func() {
		It("should refuse while the rental period is still running", func() {
			start := time.Now().AddDate(0, 0, -1)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 5))
			payAndConfirm(1)

			_, err := orchestrator.HandleBookingCompletion(ctx, 1, 0)
			Expect(err).To(Equal(apperrors.ErrBookingNotEnded))
		})

		It("should release the deposit net of damage and complete the booking", func() {
			start := time.Now().AddDate(0, 0, -5)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
			resp := payAndConfirm(1)

			result, err := orchestrator.HandleBookingCompletion(ctx, 1, 5.0)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.RefundedAmount).To(Equal(15.0))
			Expect(result.DamageShortfall).To(BeZero())
			Expect(bookingRepo.bookings[1].Status).To(Equal(booking.StatusCompleted))

			deposit := paymentRepo.payments[resp.DepositPayment.ID]
			Expect(deposit.RefundedAmount).To(Equal(15.0))
			Expect(deposit.Status).To(Equal(payment.StatusPartiallyRefunded))
		})

		It("should publish a completion event once the booking closes out", func() {
			published := make(chan events.Event, 1)
			eventBus.Subscribe(events.EventTypeBookingCompleted, func(ctx context.Context, e events.Event) error {
				published <- e
				return nil
			})

			start := time.Now().AddDate(0, 0, -5)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
			payAndConfirm(1)

			_, err := orchestrator.HandleBookingCompletion(ctx, 1, 5.0)
			Expect(err).ToNot(HaveOccurred())

			var event events.Event
			Eventually(published).Should(Receive(&event))
			Expect(event.EventType()).To(Equal(events.EventTypeBookingCompleted))

			data, ok := event.Payload().(map[string]interface{})
			Expect(ok).To(BeTrue())
			Expect(data["booking_id"]).To(Equal(int64(1)))
			Expect(data["deposit_refunded"]).To(Equal(15.0))
		})

		It("should bill the shortfall when damage exceeds the deposit", func() {
			start := time.Now().AddDate(0, 0, -5)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
			payAndConfirm(1)

			result, err := orchestrator.HandleBookingCompletion(ctx, 1, 35.0)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.RefundedAmount).To(BeZero())
			Expect(result.DamageShortfall).To(Equal(15.0))

			payments, err := service.GetPaymentsByBooking(1)
			Expect(err).ToNot(HaveOccurred())

			var damage *payment.Payment
			for _, p := range payments {
				if p.Type == payment.TypeDamageFee {
					damage = p
				}
			}
			Expect(damage).ToNot(BeNil())
			Expect(damage.Amount).To(Equal(15.0))
			Expect(damage.Status).To(Equal(payment.StatusPending))
		})
	})

	Describe("Invoice", func() {
		It("should total charges and refunds per booking", func() {
			start := time.Now().AddDate(0, 0, 10)
			seedBooking(1, booking.StatusPending, start, start.AddDate(0, 0, 2))
			payAndConfirm(1)

			_, err := orchestrator.HandleBookingCancellation(ctx, 1, "test")
			Expect(err).ToNot(HaveOccurred())

			invoice, err := orchestrator.Invoice(1)

			Expect(err).ToNot(HaveOccurred())
			Expect(invoice.BookingID).To(Equal(int64(1)))
			Expect(invoice.Lines).To(HaveLen(3))
			Expect(invoice.TotalRefunded).To(Equal(110.0))
		})
	})
})
