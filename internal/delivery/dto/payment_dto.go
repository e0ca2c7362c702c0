package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// GatewayCallbackRequest is the shape of the payment-gateway webhook. Either
// payment_id or transaction_id identifies the payment.
type GatewayCallbackRequest struct {
	PaymentID     *uuid.UUID       `json:"payment_id"`
	TransactionID string           `json:"transaction_id" validate:"required_without=PaymentID"`
	Status        string           `json:"status" validate:"required,oneof=COMPLETED FAILED REFUNDED"`
	RefundAmount  *decimal.Decimal `json:"refund_amount"`
}

type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// Response DTOs

type PaymentResponse struct {
	ID                uuid.UUID        `json:"id"`
	AppointmentID     uuid.UUID        `json:"appointment_id"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	PaymentMethod     string           `json:"payment_method"`
	TransactionID     *string          `json:"transaction_id,omitempty"`
	Status            string           `json:"status"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	RefundRequestedAt *time.Time       `json:"refund_requested_at,omitempty"`
	RefundedAt        *time.Time       `json:"refunded_at,omitempty"`
	RefundAmount      *decimal.Decimal `json:"refund_amount,omitempty"`
	NeedsReview       bool             `json:"needs_review"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
