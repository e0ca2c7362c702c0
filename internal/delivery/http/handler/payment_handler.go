package handler

import (
	"encoding/json"
	"net/http"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/usecase"
	"agent-booking-portal/pkg/response"
	"agent-booking-portal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

// GatewayCallback receives asynchronous settlement webhooks from the payment
// gateway. The route is not behind agent auth; the gateway signs requests at
// the network layer.
func (h *PaymentHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req dto.GatewayCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	payment, err := h.paymentUsecase.HandleGatewayCallback(r.Context(), &req)
	if err != nil {
		h.writePaymentError(w, err, "Failed to process gateway callback")
		return
	}

	response.Success(w, http.StatusOK, "Callback processed successfully", payment)
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	paymentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid payment ID", nil)
		return
	}

	var req dto.RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	payment, err := h.paymentUsecase.RefundPayment(r.Context(), paymentID, &req)
	if err != nil {
		h.writePaymentError(w, err, "Failed to refund payment")
		return
	}

	response.Success(w, http.StatusOK, "Payment refunded successfully", payment)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	paymentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid payment ID", nil)
		return
	}

	payment, err := h.paymentUsecase.GetPayment(r.Context(), paymentID)
	if err != nil {
		if err == usecase.ErrPaymentNotFound {
			response.NotFound(w, "Payment not found")
			return
		}
		response.InternalServerError(w, "Failed to get payment")
		return
	}

	response.Success(w, http.StatusOK, "Payment retrieved successfully", payment)
}

func (h *PaymentHandler) writePaymentError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrPaymentNotFound:
		response.NotFound(w, "Payment not found")
	case usecase.ErrInvalidTransition:
		response.UnprocessableEntity(w, "Illegal payment status transition")
	case usecase.ErrRefundExceedsAmount, usecase.ErrRefundAmountInvalid:
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
