package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TimeSlot represents a fixed-capacity bookable window for one doctor.
//
// CurrentBookings is a denormalized counter: 0 <= CurrentBookings <= MaxAppointments
// must hold at every observable point. The counter is only ever mutated through the
// repository's conditional claim/release statements inside a transaction; application
// code must never read-modify-write it.
type TimeSlot struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_slot_doctor_date,priority:1;uniqueIndex:uq_doctor_date_start,priority:1" json:"doctor_id"`
	SlotDate        time.Time       `gorm:"type:date;not null;index:idx_slot_doctor_date,priority:2;uniqueIndex:uq_doctor_date_start,priority:2" json:"slot_date"`
	StartTime       string          `gorm:"type:varchar(5);not null;uniqueIndex:uq_doctor_date_start,priority:3" json:"start_time"`
	EndTime         string          `gorm:"type:varchar(5);not null" json:"end_time"`
	MaxAppointments int             `gorm:"not null" json:"max_appointments"`
	CurrentBookings int             `gorm:"not null;default:0" json:"current_bookings"`
	ConsultationFee decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"consultation_fee"`
	IsActive        *bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor       Doctor        `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointments []Appointment `gorm:"foreignKey:TimeSlotID" json:"appointments,omitempty"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

func (s *TimeSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// RemainingCapacity is a read-side convenience; booking decisions never rely on it.
func (s *TimeSlot) RemainingCapacity() int {
	remaining := s.MaxAppointments - s.CurrentBookings
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *TimeSlot) IsBookable(today time.Time) bool {
	return s.IsActive != nil && *s.IsActive && !s.SlotDate.Before(today)
}

// TimeSlotFilter narrows slot listings for the availability endpoint.
type TimeSlotFilter struct {
	DoctorID      *uuid.UUID
	Date          string // YYYY-MM-DD
	OnlyActive    bool
	OnlyAvailable bool
}
