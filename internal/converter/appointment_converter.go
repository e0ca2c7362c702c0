package converter

import (
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:                 appointment.ID,
		AppointmentNumber:  appointment.AppointmentNumber,
		PatientName:        appointment.PatientName,
		PatientContact:     appointment.PatientContact,
		DoctorID:           appointment.DoctorID,
		HospitalID:         appointment.HospitalID,
		TimeSlotID:         appointment.TimeSlotID,
		BookedByID:         appointment.BookedByID,
		AppointmentDate:    appointment.AppointmentDate.Format("2006-01-02"),
		AppointmentTime:    appointment.AppointmentTime,
		Status:             string(appointment.Status),
		PaymentStatus:      string(appointment.PaymentStatus),
		ConsultationFee:    appointment.ConsultationFee,
		TotalAmount:        appointment.TotalAmount,
		CancellationReason: appointment.CancellationReason,
		CancellationDate:   appointment.CancellationDate,
		CreatedAt:          appointment.CreatedAt,
		UpdatedAt:          appointment.UpdatedAt,
	}

	if appointment.Doctor.ID != uuid.Nil {
		response.Doctor = DoctorToResponse(&appointment.Doctor)
	}
	if appointment.Hospital.ID != uuid.Nil {
		response.Hospital = HospitalToResponse(&appointment.Hospital)
	}
	if appointment.TimeSlot.ID != uuid.Nil {
		response.TimeSlot = TimeSlotToResponse(&appointment.TimeSlot, appointment.TimeSlot.RemainingCapacity())
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i, appointment := range appointments {
		resp := AppointmentToResponse(&appointment)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
