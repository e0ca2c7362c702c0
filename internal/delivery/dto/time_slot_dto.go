package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateTimeSlotRequest struct {
	DoctorID        uuid.UUID       `json:"doctor_id" validate:"required"`
	SlotDate        string          `json:"slot_date" validate:"required"`
	StartTime       string          `json:"start_time" validate:"required"`
	EndTime         string          `json:"end_time" validate:"required"`
	MaxAppointments int             `json:"max_appointments" validate:"required,min=1,max=500"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type UpdateCapacityRequest struct {
	MaxAppointments int `json:"max_appointments" validate:"required,min=1,max=500"`
}

// Response DTOs

type TimeSlotResponse struct {
	ID              uuid.UUID       `json:"id"`
	DoctorID        uuid.UUID       `json:"doctor_id"`
	SlotDate        string          `json:"slot_date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	MaxAppointments int             `json:"max_appointments"`
	CurrentBookings int             `json:"current_bookings"`
	Remaining       int             `json:"remaining"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	IsActive        bool            `json:"is_active"`
	Doctor          *DoctorResponse `json:"doctor,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type TimeSlotListResponse struct {
	TimeSlots []TimeSlotResponse `json:"time_slots"`
	Total     int                `json:"total"`
}
