package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Doctor represents a bookable practitioner attached to a hospital.
// DefaultFee seeds the consultation fee on newly created time slots.
type Doctor struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	HospitalID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"hospital_id"`
	FullName       string          `gorm:"type:varchar(255);not null" json:"full_name"`
	Specialization string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	DefaultFee     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"default_fee"`
	IsActive       *bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Hospital  Hospital   `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	TimeSlots []TimeSlot `gorm:"foreignKey:DoctorID" json:"time_slots,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}

func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DoctorFilter is a domain-level filter for doctor search.
// Used by repository layer to avoid coupling with delivery DTOs.
type DoctorFilter struct {
	Name           string // ILIKE on full_name
	Specialization string // ILIKE on specialization
	HospitalID     *uuid.UUID
	Page           int
	Limit          int
}
