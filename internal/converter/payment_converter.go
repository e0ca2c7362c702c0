package converter

import (
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
)

// PaymentToResponse converts a Payment entity to PaymentResponse DTO
func PaymentToResponse(payment *entity.Payment) *dto.PaymentResponse {
	if payment == nil {
		return nil
	}

	return &dto.PaymentResponse{
		ID:                payment.ID,
		AppointmentID:     payment.AppointmentID,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		PaymentMethod:     payment.PaymentMethod,
		TransactionID:     payment.TransactionID,
		Status:            string(payment.Status),
		PaidAt:            payment.PaidAt,
		RefundRequestedAt: payment.RefundRequestedAt,
		RefundedAt:        payment.RefundedAt,
		RefundAmount:      payment.RefundAmount,
		NeedsReview:       payment.NeedsReview,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
	}
}
