package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// paymentTransitions is the closed transition map.
// PENDING -> {COMPLETED, FAILED, CANCELLED}; COMPLETED -> REFUNDED.
// FAILED, REFUNDED and CANCELLED are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
	},
	PaymentStatusCompleted: {
		PaymentStatusRefunded,
	},
}

// Payment represents the money side of an appointment. Created atomically with
// the appointment as PENDING; transitions are driven by gateway callbacks or
// agent refund/cancel actions, never by direct field writes.
type Payment struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"appointment_id"`
	Amount            decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string           `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	PaymentMethod     string           `gorm:"type:varchar(50);not null" json:"payment_method"`
	TransactionID     *string          `gorm:"type:varchar(255);uniqueIndex" json:"transaction_id,omitempty"`
	Status            PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	RefundRequestedAt *time.Time       `json:"refund_requested_at,omitempty"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty"`
	RefundAmount      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"refund_amount,omitempty"`
	NeedsReview       bool             `gorm:"not null;default:false;index" json:"needs_review"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CanTransitionTo reports whether moving to the target status is legal.
func (p *Payment) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
