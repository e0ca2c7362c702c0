package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateDoctorRequest struct {
	HospitalID     uuid.UUID       `json:"hospital_id" validate:"required"`
	FullName       string          `json:"full_name" validate:"required,min=2,max=255"`
	Specialization string          `json:"specialization" validate:"required,min=2,max=100"`
	DefaultFee     decimal.Decimal `json:"default_fee"`
}

type UpdateDoctorRequest struct {
	FullName       string           `json:"full_name" validate:"omitempty,min=2,max=255"`
	Specialization string           `json:"specialization" validate:"omitempty,min=2,max=100"`
	DefaultFee     *decimal.Decimal `json:"default_fee"`
}

type SearchDoctorsRequest struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	HospitalID     string `json:"hospital_id"`
	Page           int    `json:"page"`
	Limit          int    `json:"limit"`
}

// Response DTOs

type DoctorResponse struct {
	ID             uuid.UUID         `json:"id"`
	HospitalID     uuid.UUID         `json:"hospital_id"`
	FullName       string            `json:"full_name"`
	Specialization string            `json:"specialization"`
	DefaultFee     decimal.Decimal   `json:"default_fee"`
	IsActive       bool              `json:"is_active"`
	Hospital       *HospitalResponse `json:"hospital,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int64            `json:"total"`
}

type HospitalResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`
}

type HospitalListResponse struct {
	Hospitals []HospitalResponse `json:"hospitals"`
	Total     int                `json:"total"`
}
