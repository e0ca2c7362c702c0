package repository

import (
	"time"

	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(db *gorm.DB, payment *entity.Payment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Payment, error)
	FindByTransactionID(db *gorm.DB, transactionID string) (*entity.Payment, error)

	// FindActiveByAppointmentID returns the non-terminal payment for an
	// appointment, nil when every payment has reached a terminal state.
	FindActiveByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Payment, error)

	// UpdateStatus is a compare-and-set on status, same contract as the
	// appointment ledger: 0 affected rows means the expected state was stale.
	UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.PaymentStatus, fields map[string]interface{}) (int64, error)

	// Reassign moves a payment to a successor appointment during a reschedule.
	Reassign(db *gorm.DB, id uuid.UUID, appointmentID uuid.UUID) error

	// FlagStalePending marks PENDING payments older than the cutoff for manual
	// review. They are never auto-expired.
	FlagStalePending(db *gorm.DB, olderThan time.Time) (int64, error)

	SumCompleted(db *gorm.DB, from, to string) (decimal.Decimal, error)
}
