package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/usecase"
	"agent-booking-portal/pkg/response"
	"agent-booking-portal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func (h *BookingHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.bookingUsecase.BookAppointment(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrSlotNotFound:
			response.NotFound(w, "Time slot not found")
		case usecase.ErrSlotInactive:
			response.Error(w, http.StatusBadRequest, "Time slot is not active", nil)
		case usecase.ErrSlotInPast:
			response.Error(w, http.StatusBadRequest, "Cannot book a past time slot", nil)
		case usecase.ErrSlotFull:
			response.Conflict(w, "Time slot has no remaining capacity")
		case usecase.ErrLockTimeout:
			response.ServiceUnavailable(w, "Slot is contended, please retry")
		default:
			response.InternalServerError(w, "Failed to book appointment")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

func (h *BookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.CancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.bookingUsecase.CancelAppointment(r.Context(), appointmentID, &req)
	if err != nil {
		h.writeTransitionError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

func (h *BookingHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.RescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.bookingUsecase.RescheduleAppointment(r.Context(), appointmentID, &req)
	if err != nil {
		switch err {
		case usecase.ErrSlotNotFound:
			response.NotFound(w, "New time slot not found")
		case usecase.ErrSlotInactive:
			response.Error(w, http.StatusBadRequest, "New time slot is not active", nil)
		case usecase.ErrSlotInPast:
			response.Error(w, http.StatusBadRequest, "Cannot reschedule to a past time slot", nil)
		case usecase.ErrSlotFull:
			response.Conflict(w, "New time slot has no remaining capacity")
		case usecase.ErrLockTimeout:
			response.ServiceUnavailable(w, "Slot is contended, please retry")
		default:
			h.writeTransitionError(w, err, "Failed to reschedule appointment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Appointment rescheduled successfully", appointment)
}

func (h *BookingHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	var req dto.UpdateAppointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.bookingUsecase.UpdateAppointmentStatus(r.Context(), appointmentID, &req)
	if err != nil {
		h.writeTransitionError(w, err, "Failed to update appointment status")
		return
	}

	response.Success(w, http.StatusOK, "Appointment status updated successfully", appointment)
}

func (h *BookingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.bookingUsecase.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		if err == usecase.ErrAppointmentNotFound {
			response.NotFound(w, "Appointment not found")
			return
		}
		response.InternalServerError(w, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *BookingHandler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	filter := appointmentFilterFromQuery(r)

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	filter.BookedByID = &userID

	appointments, err := h.bookingUsecase.ListMyAppointments(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to list appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *BookingHandler) writeTransitionError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrAppointmentTerminal:
		response.Conflict(w, "Appointment is already in a terminal state")
	case usecase.ErrInvalidTransition:
		response.UnprocessableEntity(w, "Illegal status transition")
	default:
		response.InternalServerError(w, fallback)
	}
}

func appointmentFilterFromQuery(r *http.Request) *entity.AppointmentFilter {
	q := r.URL.Query()
	filter := &entity.AppointmentFilter{
		Status:   entity.AppointmentStatus(q.Get("status")),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}
	if doctorID, err := uuid.Parse(q.Get("doctorId")); err == nil {
		filter.DoctorID = &doctorID
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	return filter
}
