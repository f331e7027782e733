package payment_test

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/payment"
	paymentPkg "github.com/Dhia9030/CarRental-sub000/internal/payment"
)

func TestPayment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Suite")
}

// Mock repository for testing
type mockPaymentRepository struct {
	payments     map[int64]*payment.Payment
	transactions []*payment.Transaction
	nextID       int64
	createError  error
	getError     error
	updateError  error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: make(map[int64]*payment.Payment),
		nextID:   1,
	}
}

func (m *mockPaymentRepository) Create(p *payment.Payment) error {
	if m.createError != nil {
		return m.createError
	}
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepository) GetByID(id int64) (*payment.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	p, exists := m.payments[id]
	if !exists {
		return nil, errors.New("payment not found")
	}
	return p, nil
}

func (m *mockPaymentRepository) GetByBookingID(bookingID int64) ([]*payment.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var payments []*payment.Payment
	for id := int64(1); id < m.nextID; id++ {
		if p, ok := m.payments[id]; ok && p.BookingID == bookingID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (m *mockPaymentRepository) GetByIntentID(intentID string) ([]*payment.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	var payments []*payment.Payment
	for id := int64(1); id < m.nextID; id++ {
		p, ok := m.payments[id]
		if ok && p.PaymentIntentID != nil && *p.PaymentIntentID == intentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (m *mockPaymentRepository) Update(id int64, updates map[string]interface{}) error {
	if m.updateError != nil {
		return m.updateError
	}
	p, exists := m.payments[id]
	if !exists {
		return errors.New("payment not found")
	}
	if v, ok := updates["status"].(string); ok {
		p.Status = v
	}
	if v, ok := updates["refunded_amount"].(float64); ok {
		p.RefundedAmount = v
	}
	if v, ok := updates["payment_intent_id"].(string); ok {
		p.PaymentIntentID = &v
	}
	if v, ok := updates["charge_id"].(string); ok {
		p.ChargeID = &v
	}
	if v, ok := updates["processed_at"].(time.Time); ok {
		p.ProcessedAt = &v
	}
	if v, ok := updates["refunded_at"].(time.Time); ok {
		p.RefundedAt = &v
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (m *mockPaymentRepository) CreateTransaction(t *payment.Transaction) error {
	t.ID = int64(len(m.transactions) + 1)
	t.CreatedAt = time.Now()
	m.transactions = append(m.transactions, t)
	return nil
}

func (m *mockPaymentRepository) GetTransactionsByPaymentID(paymentID int64) ([]*payment.Transaction, error) {
	var transactions []*payment.Transaction
	for _, t := range m.transactions {
		if t.PaymentID == paymentID {
			transactions = append(transactions, t)
		}
	}
	return transactions, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("PaymentService", func() {
	var (
		service   *paymentPkg.Service
		mockRepo  *mockPaymentRepository
		processor *paymentPkg.MockProcessor
	)

	BeforeEach(func() {
		mockRepo = newMockPaymentRepository()
		logger := testLogger()
		processor = paymentPkg.NewMockProcessor(logger)
		service = paymentPkg.NewService(mockRepo, processor, "USD", logger)
	})

	Describe("CreatePayment", func() {
		It("should create a pending payment row", func() {
			p, err := service.CreatePayment(1, 10, 100.0, payment.TypeBookingPayment, "rental", nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(p.ID).To(BeNumerically(">", 0))
			Expect(p.Status).To(Equal(payment.StatusPending))
			Expect(p.Amount).To(Equal(100.0))
			Expect(p.RefundedAmount).To(BeZero())
			Expect(p.Currency).To(Equal("USD"))
		})

		It("should reject a non-positive amount", func() {
			p, err := service.CreatePayment(1, 10, 0, payment.TypeBookingPayment, "rental", nil)

			Expect(err).To(HaveOccurred())
			Expect(p).To(BeNil())
		})

		It("should wrap repository failures", func() {
			mockRepo.createError = errors.New("database error")

			p, err := service.CreatePayment(1, 10, 100.0, payment.TypeBookingPayment, "rental", nil)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to create payment record"))
			Expect(p).To(BeNil())
		})
	})

	Describe("UpdatePayment", func() {
		It("should stamp processed_at when status moves to completed", func() {
			p, err := service.CreatePayment(1, 10, 100.0, payment.TypeBookingPayment, "rental", nil)
			Expect(err).ToNot(HaveOccurred())

			completed := payment.StatusCompleted
			err = service.UpdatePayment(p.ID, paymentPkg.UpdatePaymentParams{Status: &completed})
			Expect(err).ToNot(HaveOccurred())

			stored := mockRepo.payments[p.ID]
			Expect(stored.Status).To(Equal(payment.StatusCompleted))
			Expect(stored.ProcessedAt).ToNot(BeNil())
		})

		It("should stamp refunded_at when refunded amount changes", func() {
			p, err := service.CreatePayment(1, 10, 100.0, payment.TypeBookingPayment, "rental", nil)
			Expect(err).ToNot(HaveOccurred())

			refunded := 25.0
			err = service.UpdatePayment(p.ID, paymentPkg.UpdatePaymentParams{RefundedAmount: &refunded})
			Expect(err).ToNot(HaveOccurred())

			stored := mockRepo.payments[p.ID]
			Expect(stored.RefundedAmount).To(Equal(25.0))
			Expect(stored.RefundedAt).ToNot(BeNil())
		})
	})

	Describe("RefundPayment", func() {
		var completed *payment.Payment

		BeforeEach(func() {
			var err error
			completed, err = service.CreatePayment(1, 10, 100.0, payment.TypeBookingPayment, "rental", nil)
			Expect(err).ToNot(HaveOccurred())

			status := payment.StatusCompleted
			chargeID := "ch_mock_test"
			err = service.UpdatePayment(completed.ID, paymentPkg.UpdatePaymentParams{
				Status:   &status,
				ChargeID: &chargeID,
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should apply a partial refund and keep the payment partially refunded", func() {
			p, err := service.RefundPayment(completed.ID, 30.0, "customer request")

			Expect(err).ToNot(HaveOccurred())
			Expect(p.RefundedAmount).To(Equal(30.0))
			Expect(p.Status).To(Equal(payment.StatusPartiallyRefunded))
		})

		It("should mark the payment refunded once the balance is exhausted", func() {
			_, err := service.RefundPayment(completed.ID, 60.0, "first")
			Expect(err).ToNot(HaveOccurred())

			p, err := service.RefundPayment(completed.ID, 40.0, "second")
			Expect(err).ToNot(HaveOccurred())
			Expect(p.RefundedAmount).To(Equal(100.0))
			Expect(p.Status).To(Equal(payment.StatusRefunded))
		})

		It("should record a negative refund transaction", func() {
			_, err := service.RefundPayment(completed.ID, 30.0, "customer request")
			Expect(err).ToNot(HaveOccurred())

			transactions, err := service.GetTransactions(completed.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(transactions).To(HaveLen(1))
			Expect(transactions[0].Amount).To(Equal(-30.0))
			Expect(transactions[0].Type).To(Equal(payment.TransactionTypeRefund))
			Expect(strings.HasPrefix(transactions[0].ExternalID, "re_mock_")).To(BeTrue())
		})

		It("should reject refunds exceeding the refundable balance", func() {
			_, err := service.RefundPayment(completed.ID, 70.0, "first")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefundPayment(completed.ID, 40.0, "too much")
			Expect(err).To(HaveOccurred())
			Expect(err).To(Equal(apperrors.ErrAmountExceedsBalance))
		})

		It("should reject refunds on payments that are not refundable", func() {
			pending, err := service.CreatePayment(1, 10, 50.0, payment.TypeSecurityDeposit, "deposit", nil)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RefundPayment(pending.ID, 10.0, "nope")
			Expect(err).To(Equal(apperrors.ErrInvalidPaymentStatus))
		})
	})
})

var _ = Describe("MockProcessor", func() {
	var processor *paymentPkg.MockProcessor

	BeforeEach(func() {
		processor = paymentPkg.NewMockProcessor(testLogger())
	})

	It("should issue prefixed intent ids with a matching client secret", func() {
		intent, err := processor.CreateIntent(120.0, "USD")

		Expect(err).ToNot(HaveOccurred())
		Expect(strings.HasPrefix(intent.IntentID, "pi_mock_")).To(BeTrue())
		Expect(strings.HasPrefix(intent.ClientSecret, intent.IntentID+"_secret_")).To(BeTrue())
	})

	It("should issue prefixed charge and refund ids", func() {
		charge, err := processor.Charge("pi_mock_1", 120.0, "USD")
		Expect(err).ToNot(HaveOccurred())
		Expect(strings.HasPrefix(charge.ExternalID, "ch_mock_")).To(BeTrue())
		Expect(charge.Status).To(Equal("succeeded"))

		refund, err := processor.Refund(charge.ExternalID, 20.0, "USD")
		Expect(err).ToNot(HaveOccurred())
		Expect(strings.HasPrefix(refund.ExternalID, "re_mock_")).To(BeTrue())
	})
})
