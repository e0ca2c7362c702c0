package usecase

import (
	"context"
	"errors"

	"agent-booking-portal/internal/converter"
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/domain/repository"
	"agent-booking-portal/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrHospitalNotFound = errors.New("hospital not found")
)

type DoctorUsecase interface {
	CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	SearchDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.DoctorListResponse, error)
	UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
	DeactivateDoctor(ctx context.Context, doctorID uuid.UUID) error
	ListHospitals(ctx context.Context) (*dto.HospitalListResponse, error)
}

type doctorUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	doctorRepo   repository.DoctorRepository
	hospitalRepo repository.HospitalRepository
	auditService service.AuditService
}

func NewDoctorUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	hospitalRepo repository.HospitalRepository,
	auditService service.AuditService,
) DoctorUsecase {
	return &doctorUsecase{
		db:           db,
		log:          log,
		doctorRepo:   doctorRepo,
		hospitalRepo: hospitalRepo,
		auditService: auditService,
	}
}

func (u *doctorUsecase) CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	adminID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	hospital, err := u.hospitalRepo.FindByID(u.db.WithContext(ctx), req.HospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil {
		return nil, ErrHospitalNotFound
	}

	doctor := &entity.Doctor{
		HospitalID:     req.HospitalID,
		FullName:       req.FullName,
		Specialization: req.Specialization,
		DefaultFee:     req.DefaultFee,
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.doctorRepo.Create(tx, doctor); err != nil {
			return err
		}
		return u.auditService.LogChange(tx, &adminID, entity.AuditActionDoctorCreate,
			"doctor", doctor.ID.String(), nil, map[string]interface{}{
				"full_name":      req.FullName,
				"specialization": req.Specialization,
				"hospital_id":    req.HospitalID.String(),
			})
	})
	if err != nil {
		u.log.Warnf("Failed to create doctor: %+v", err)
		return nil, err
	}

	doctor.Hospital = *hospital
	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) SearchDoctors(ctx context.Context, filter *entity.DoctorFilter) (*dto.DoctorListResponse, error) {
	doctors, total, err := u.doctorRepo.FindByFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to search doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   total,
	}, nil
}

func (u *doctorUsecase) UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	adminID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	old := map[string]interface{}{
		"full_name":      doctor.FullName,
		"specialization": doctor.Specialization,
		"default_fee":    doctor.DefaultFee.String(),
	}

	if req.FullName != "" {
		doctor.FullName = req.FullName
	}
	if req.Specialization != "" {
		doctor.Specialization = req.Specialization
	}
	if req.DefaultFee != nil {
		doctor.DefaultFee = *req.DefaultFee
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.doctorRepo.Update(tx, doctor); err != nil {
			return err
		}
		return u.auditService.LogChange(tx, &adminID, entity.AuditActionDoctorUpdate,
			"doctor", doctorID.String(), old, map[string]interface{}{
				"full_name":      doctor.FullName,
				"specialization": doctor.Specialization,
				"default_fee":    doctor.DefaultFee.String(),
			})
	})
	if err != nil {
		u.log.Warnf("Failed to update doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) DeactivateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	updated, err := u.doctorRepo.Deactivate(u.db.WithContext(ctx), doctorID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (u *doctorUsecase) ListHospitals(ctx context.Context) (*dto.HospitalListResponse, error) {
	hospitals, err := u.hospitalRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.HospitalListResponse{
		Hospitals: converter.HospitalsToResponses(hospitals),
		Total:     len(hospitals),
	}, nil
}
