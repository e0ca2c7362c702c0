package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a system audit trail entry. Appointments and payments are
// never deleted, so the trail plus the status-terminated rows form the full
// booking history.
type AuditLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string     `gorm:"type:varchar(100);not null;index" json:"action"`
	Metadata  JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Common audit actions
const (
	AuditActionAppointmentBook       = "appointment.book"
	AuditActionAppointmentCancel     = "appointment.cancel"
	AuditActionAppointmentReschedule = "appointment.reschedule"
	AuditActionAppointmentStatus     = "appointment.status"
	AuditActionPaymentCallback       = "payment.callback"
	AuditActionPaymentRefund         = "payment.refund"
	AuditActionSlotCreate            = "slot.create"
	AuditActionSlotCapacity          = "slot.capacity"
	AuditActionSlotDeactivate        = "slot.deactivate"
	AuditActionDoctorCreate          = "doctor.create"
	AuditActionDoctorUpdate          = "doctor.update"
)
