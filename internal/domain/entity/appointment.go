package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusConfirmed   AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted   AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow      AppointmentStatus = "NO_SHOW"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
)

// appointmentTransitions is the closed transition map. CONFIRMED is the only
// non-terminal state; anything else ends the appointment's lifecycle.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusConfirmed: {
		AppointmentStatusCancelled,
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
		AppointmentStatusRescheduled,
	},
}

// Appointment represents a booking made by an agent on behalf of a patient.
// Rows are never deleted, only status-terminated.
type Appointment struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentNumber  string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"appointment_number"`
	PatientName        string            `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientContact     string            `gorm:"type:varchar(100);not null" json:"patient_contact"`
	DoctorID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	HospitalID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"hospital_id"`
	TimeSlotID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"time_slot_id"`
	BookedByID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"booked_by_id"`
	AppointmentDate    time.Time         `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime    string            `gorm:"type:varchar(5);not null" json:"appointment_time"`
	Status             AppointmentStatus `gorm:"type:varchar(20);not null;default:'CONFIRMED';index" json:"status"`
	PaymentStatus      PaymentStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	ConsultationFee    decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"consultation_fee"`
	TotalAmount        decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	CancellationReason string            `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancellationDate   *time.Time        `json:"cancellation_date,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor   Doctor   `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Hospital Hospital `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	TimeSlot TimeSlot `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
	BookedBy User     `gorm:"foreignKey:BookedByID" json:"booked_by,omitempty"`
	Payments []Payment `gorm:"foreignKey:AppointmentID" json:"payments,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CanTransitionTo reports whether moving to the target status is legal.
func (a *Appointment) CanTransitionTo(target AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[a.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the appointment has left the CONFIRMED state.
func (a *Appointment) IsTerminal() bool {
	return a.Status != AppointmentStatusConfirmed
}

// OccupiesCapacity reports whether the appointment holds a TimeSlot capacity unit.
func (a *Appointment) OccupiesCapacity() bool {
	return a.Status == AppointmentStatusConfirmed || a.Status == AppointmentStatusCompleted
}

// AppointmentFilter narrows appointment listings for agents and reports.
type AppointmentFilter struct {
	BookedByID *uuid.UUID
	DoctorID   *uuid.UUID
	Status     AppointmentStatus
	DateFrom   string // YYYY-MM-DD
	DateTo     string // YYYY-MM-DD
	Page       int
	Limit      int
}
