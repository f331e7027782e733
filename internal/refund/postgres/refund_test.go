package postgres

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/refund"
	refundPkg "github.com/Dhia9030/CarRental-sub000/internal/refund"
)

func TestRefundRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RefundRepository Suite")
}

type SQLiteRefundRequest struct {
	ID              int64      `gorm:"primaryKey"`
	PaymentID       int64      `gorm:"column:payment_id;not null"`
	BookingID       int64      `gorm:"column:booking_id;not null"`
	UserID          int64      `gorm:"column:user_id;not null"`
	RequestedAmount float64    `gorm:"column:requested_amount;not null"`
	Type            string     `gorm:"column:type"`
	Status          string     `gorm:"column:status"`
	Reason          string     `gorm:"column:reason"`
	AgencyID        *int64     `gorm:"column:agency_id"`
	AgencyNotes     *string    `gorm:"column:agency_notes"`
	RejectionReason *string    `gorm:"column:rejection_reason"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at"`
	ProcessedAt     *time.Time `gorm:"column:processed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
	DeletedAt       *time.Time `gorm:"column:deleted_at"`
}

func (SQLiteRefundRequest) TableName() string {
	return "refund_requests"
}

var _ = Describe("RefundRepository", func() {
	var (
		db   *gorm.DB
		repo refundPkg.RepositoryAPI
	)

	agencyID := int64(77)

	newRequest := func(paymentID int64, status string) *refund.RefundRequest {
		return &refund.RefundRequest{
			PaymentID:       paymentID,
			BookingID:       1,
			UserID:          10,
			RequestedAmount: 40.0,
			Type:            refund.TypePartial,
			Status:          status,
			Reason:          "trip cut short",
			AgencyID:        &agencyID,
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteRefundRequest{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewRefundRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("HasPendingForPayment", func() {
		It("should detect a pending request", func() {
			Expect(repo.Create(newRequest(1, refund.StatusPending))).To(Succeed())

			pending, err := repo.HasPendingForPayment(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeTrue())
		})

		It("should ignore terminal requests", func() {
			Expect(repo.Create(newRequest(1, refund.StatusRejected))).To(Succeed())
			Expect(repo.Create(newRequest(1, refund.StatusProcessed))).To(Succeed())

			pending, err := repo.HasPendingForPayment(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeFalse())
		})
	})

	Describe("GetPendingByAgency", func() {
		It("should list only the agency's pending requests", func() {
			other := int64(123)
			otherReq := newRequest(2, refund.StatusPending)
			otherReq.AgencyID = &other

			Expect(repo.Create(newRequest(1, refund.StatusPending))).To(Succeed())
			Expect(repo.Create(otherReq)).To(Succeed())
			Expect(repo.Create(newRequest(3, refund.StatusProcessed))).To(Succeed())

			requests, err := repo.GetPendingByAgency(agencyID)
			Expect(err).NotTo(HaveOccurred())
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].PaymentID).To(Equal(int64(1)))
		})
	})

	Describe("Update", func() {
		It("should transition status and stamp review time", func() {
			req := newRequest(1, refund.StatusPending)
			Expect(repo.Create(req)).To(Succeed())

			now := time.Now()
			err := repo.Update(req.ID, map[string]interface{}{
				"status":      refund.StatusApproved,
				"reviewed_at": now,
			})
			Expect(err).NotTo(HaveOccurred())

			loaded, err := repo.GetByID(req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Status).To(Equal(refund.StatusApproved))
			Expect(loaded.ReviewedAt).NotTo(BeNil())
		})
	})
})
