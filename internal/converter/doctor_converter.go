package converter

import (
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
)

// DoctorToResponse converts a Doctor entity to DoctorResponse DTO
func DoctorToResponse(doctor *entity.Doctor) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	response := &dto.DoctorResponse{
		ID:             doctor.ID,
		HospitalID:     doctor.HospitalID,
		FullName:       doctor.FullName,
		Specialization: doctor.Specialization,
		DefaultFee:     doctor.DefaultFee,
		IsActive:       doctor.IsActive != nil && *doctor.IsActive,
		CreatedAt:      doctor.CreatedAt,
	}

	if doctor.Hospital.ID != uuid.Nil {
		response.Hospital = HospitalToResponse(&doctor.Hospital)
	}

	return response
}

// DoctorsToResponses converts a slice of Doctor entities to DTOs
func DoctorsToResponses(doctors []entity.Doctor) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(doctors))
	for i, doctor := range doctors {
		resp := DoctorToResponse(&doctor)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}

// HospitalToResponse converts a Hospital entity to HospitalResponse DTO
func HospitalToResponse(hospital *entity.Hospital) *dto.HospitalResponse {
	if hospital == nil {
		return nil
	}
	return &dto.HospitalResponse{
		ID:      hospital.ID,
		Name:    hospital.Name,
		Address: hospital.Address,
		Phone:   hospital.Phone,
	}
}

// HospitalsToResponses converts a slice of Hospital entities to DTOs
func HospitalsToResponses(hospitals []entity.Hospital) []dto.HospitalResponse {
	responses := make([]dto.HospitalResponse, len(hospitals))
	for i, hospital := range hospitals {
		resp := HospitalToResponse(&hospital)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
