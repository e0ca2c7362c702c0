package converter

import (
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
)

// TimeSlotToResponse converts a TimeSlot entity to TimeSlotResponse DTO.
// remaining is passed in so the caller can substitute the Redis-mirrored value
// when it has one fresher than the loaded row.
func TimeSlotToResponse(slot *entity.TimeSlot, remaining int) *dto.TimeSlotResponse {
	if slot == nil {
		return nil
	}

	response := &dto.TimeSlotResponse{
		ID:              slot.ID,
		DoctorID:        slot.DoctorID,
		SlotDate:        slot.SlotDate.Format("2006-01-02"),
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		MaxAppointments: slot.MaxAppointments,
		CurrentBookings: slot.CurrentBookings,
		Remaining:       remaining,
		ConsultationFee: slot.ConsultationFee,
		IsActive:        slot.IsActive != nil && *slot.IsActive,
		CreatedAt:       slot.CreatedAt,
		UpdatedAt:       slot.UpdatedAt,
	}

	if slot.Doctor.ID != uuid.Nil {
		response.Doctor = DoctorToResponse(&slot.Doctor)
	}

	return response
}
