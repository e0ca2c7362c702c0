package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type BookAppointmentRequest struct {
	TimeSlotID     uuid.UUID `json:"time_slot_id" validate:"required"`
	PatientName    string    `json:"patient_name" validate:"required,min=2,max=255"`
	PatientContact string    `json:"patient_contact" validate:"required,min=5,max=100"`
	PaymentMethod  string    `json:"payment_method" validate:"required,oneof=card cash corporate_account insurance"`
	Currency       string    `json:"currency" validate:"omitempty,len=3"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type RescheduleAppointmentRequest struct {
	NewTimeSlotID uuid.UUID `json:"new_time_slot_id" validate:"required"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=COMPLETED NO_SHOW"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                 uuid.UUID         `json:"id"`
	AppointmentNumber  string            `json:"appointment_number"`
	PatientName        string            `json:"patient_name"`
	PatientContact     string            `json:"patient_contact"`
	DoctorID           uuid.UUID         `json:"doctor_id"`
	HospitalID         uuid.UUID         `json:"hospital_id"`
	TimeSlotID         uuid.UUID         `json:"time_slot_id"`
	BookedByID         uuid.UUID         `json:"booked_by_id"`
	AppointmentDate    string            `json:"appointment_date"`
	AppointmentTime    string            `json:"appointment_time"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	ConsultationFee    decimal.Decimal   `json:"consultation_fee"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancellationDate   *time.Time        `json:"cancellation_date,omitempty"`
	Doctor             *DoctorResponse   `json:"doctor,omitempty"`
	Hospital           *HospitalResponse `json:"hospital,omitempty"`
	TimeSlot           *TimeSlotResponse `json:"time_slot,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int64                 `json:"total"`
}
