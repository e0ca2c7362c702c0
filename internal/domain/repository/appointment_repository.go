package repository

import (
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCount is an aggregation row for the reporting surface.
type StatusCount struct {
	Status entity.AppointmentStatus
	Count  int64
}

// DoctorVolume aggregates bookings and revenue per doctor for reports.
type DoctorVolume struct {
	DoctorID     uuid.UUID
	DoctorName   string
	Appointments int64
	Revenue      string
}

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByNumber(db *gorm.DB, number string) (*entity.Appointment, error)
	FindByFilter(db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error)

	// UpdateStatus is a compare-and-set on status: the row is only updated when it
	// is still in the expected state. Returns affected rows: 0 = lost the race or
	// illegal move, letting concurrent cancels/completes serialize correctly.
	UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus, fields map[string]interface{}) (int64, error)

	// UpdatePaymentStatus mirrors the payment ledger's status onto the appointment.
	UpdatePaymentStatus(db *gorm.DB, id uuid.UUID, status entity.PaymentStatus) error

	CountByStatus(db *gorm.DB, filter *entity.AppointmentFilter) ([]StatusCount, error)
	VolumeByDoctor(db *gorm.DB, filter *entity.AppointmentFilter) ([]DoctorVolume, error)
}
