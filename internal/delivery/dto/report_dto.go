package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReportSummaryResponse struct {
	From              string                `json:"from,omitempty"`
	To                string                `json:"to,omitempty"`
	TotalAppointments int64                 `json:"total_appointments"`
	ByStatus          map[string]int64      `json:"by_status"`
	Revenue           decimal.Decimal       `json:"revenue"`
	Doctors           []DoctorVolumeSummary `json:"doctors"`
}

type DoctorVolumeSummary struct {
	DoctorID     uuid.UUID `json:"doctor_id"`
	DoctorName   string    `json:"doctor_name"`
	Appointments int64     `json:"appointments"`
	Revenue      string    `json:"revenue"`
}
