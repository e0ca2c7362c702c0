package handler

import (
	"encoding/json"
	"net/http"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/usecase"
	"agent-booking-portal/pkg/response"
	"agent-booking-portal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type TimeSlotHandler struct {
	timeSlotUsecase usecase.TimeSlotUsecase
	validator       *validator.CustomValidator
}

func NewTimeSlotHandler(timeSlotUsecase usecase.TimeSlotUsecase, validator *validator.CustomValidator) *TimeSlotHandler {
	return &TimeSlotHandler{
		timeSlotUsecase: timeSlotUsecase,
		validator:       validator,
	}
}

func (h *TimeSlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTimeSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.timeSlotUsecase.CreateSlot(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		case usecase.ErrInvalidSlotDate, usecase.ErrInvalidTimeFormat, usecase.ErrSlotInPast:
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
		case usecase.ErrDuplicateSlot:
			response.Conflict(w, "A slot for this doctor, date and start time already exists")
		default:
			response.InternalServerError(w, "Failed to create time slot")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Time slot created successfully", slot)
}

func (h *TimeSlotHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slotID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid time slot ID", nil)
		return
	}

	slot, err := h.timeSlotUsecase.GetSlot(r.Context(), slotID)
	if err != nil {
		if err == usecase.ErrSlotNotFound {
			response.NotFound(w, "Time slot not found")
			return
		}
		response.InternalServerError(w, "Failed to get time slot")
		return
	}

	response.Success(w, http.StatusOK, "Time slot retrieved successfully", slot)
}

func (h *TimeSlotHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &entity.TimeSlotFilter{
		Date:          q.Get("date"),
		OnlyActive:    q.Get("includeInactive") != "true",
		OnlyAvailable: q.Get("onlyAvailable") == "true",
	}
	if doctorID, err := uuid.Parse(q.Get("doctorId")); err == nil {
		filter.DoctorID = &doctorID
	}

	slots, err := h.timeSlotUsecase.ListSlots(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to list time slots")
		return
	}

	response.Success(w, http.StatusOK, "Time slots retrieved successfully", slots)
}

func (h *TimeSlotHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slotID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid time slot ID", nil)
		return
	}

	var req dto.UpdateCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	slot, err := h.timeSlotUsecase.UpdateCapacity(r.Context(), slotID, &req)
	if err != nil {
		switch err {
		case usecase.ErrSlotNotFound:
			response.NotFound(w, "Time slot not found")
		case usecase.ErrCapacityTooLow:
			response.Conflict(w, "Max appointments cannot go below the bookings already taken")
		default:
			response.InternalServerError(w, "Failed to update capacity")
		}
		return
	}

	response.Success(w, http.StatusOK, "Capacity updated successfully", slot)
}

func (h *TimeSlotHandler) DeactivateSlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slotID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid time slot ID", nil)
		return
	}

	if err := h.timeSlotUsecase.DeactivateSlot(r.Context(), slotID); err != nil {
		if err == usecase.ErrSlotNotFound {
			response.NotFound(w, "Time slot not found")
			return
		}
		response.InternalServerError(w, "Failed to deactivate time slot")
		return
	}

	response.Success(w, http.StatusOK, "Time slot deactivated successfully", nil)
}
