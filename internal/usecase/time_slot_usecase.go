package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

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
	ErrInvalidSlotDate   = errors.New("invalid slot date format, use YYYY-MM-DD")
	ErrInvalidTimeFormat = errors.New("invalid time format, use HH:MM")
	ErrDuplicateSlot     = errors.New("a slot for this doctor, date and start time already exists")
	ErrCapacityTooLow    = errors.New("max appointments cannot go below the bookings already taken")
)

type TimeSlotUsecase interface {
	CreateSlot(ctx context.Context, req *dto.CreateTimeSlotRequest) (*dto.TimeSlotResponse, error)
	GetSlot(ctx context.Context, slotID uuid.UUID) (*dto.TimeSlotResponse, error)
	ListSlots(ctx context.Context, filter *entity.TimeSlotFilter) (*dto.TimeSlotListResponse, error)
	UpdateCapacity(ctx context.Context, slotID uuid.UUID, req *dto.UpdateCapacityRequest) (*dto.TimeSlotResponse, error)
	DeactivateSlot(ctx context.Context, slotID uuid.UUID) error
}

type timeSlotUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	slotRepo     repository.TimeSlotRepository
	doctorRepo   repository.DoctorRepository
	auditService service.AuditService
	slotCache    *service.SlotCacheService
}

func NewTimeSlotUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	slotRepo repository.TimeSlotRepository,
	doctorRepo repository.DoctorRepository,
	auditService service.AuditService,
	slotCache *service.SlotCacheService,
) TimeSlotUsecase {
	return &timeSlotUsecase{
		db:           db,
		log:          log,
		slotRepo:     slotRepo,
		doctorRepo:   doctorRepo,
		auditService: auditService,
		slotCache:    slotCache,
	}
}

func (u *timeSlotUsecase) CreateSlot(ctx context.Context, req *dto.CreateTimeSlotRequest) (*dto.TimeSlotResponse, error) {
	adminID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	doctor, err := u.doctorRepo.FindByID(u.db.WithContext(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	slotDate, err := time.Parse("2006-01-02", req.SlotDate)
	if err != nil {
		return nil, ErrInvalidSlotDate
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if _, err := time.Parse("15:04", req.EndTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}

	fee := req.ConsultationFee
	if fee.IsZero() {
		fee = doctor.DefaultFee
	}

	slot := &entity.TimeSlot{
		DoctorID:        req.DoctorID,
		SlotDate:        slotDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxAppointments: req.MaxAppointments,
		CurrentBookings: 0,
		ConsultationFee: fee,
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.slotRepo.Create(tx, slot); err != nil {
			return err
		}
		return u.auditService.LogChange(tx, &adminID, entity.AuditActionSlotCreate,
			"time_slot", slot.ID.String(), nil, map[string]interface{}{
				"doctor_id":        req.DoctorID.String(),
				"slot_date":        req.SlotDate,
				"start_time":       req.StartTime,
				"max_appointments": req.MaxAppointments,
			})
	})
	if err != nil {
		// The unique (doctor_id, slot_date, start_time) index turns concurrent
		// duplicate creations into a constraint violation.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "uq_doctor_date_start") {
			return nil, ErrDuplicateSlot
		}
		u.log.Warnf("Failed to create slot: %+v", err)
		return nil, err
	}

	if err := u.slotCache.SyncSlot(ctx, slot); err != nil {
		u.log.Warnf("Failed to prime slot mirror for %s (non-fatal): %+v", slot.ID, err)
	}

	return converter.TimeSlotToResponse(slot, slot.RemainingCapacity()), nil
}

func (u *timeSlotUsecase) GetSlot(ctx context.Context, slotID uuid.UUID) (*dto.TimeSlotResponse, error) {
	slot, err := u.slotRepo.FindByID(u.db.WithContext(ctx), slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return converter.TimeSlotToResponse(slot, u.remainingFor(ctx, slot)), nil
}

// ListSlots serves the availability view. Remaining capacity prefers the Redis
// mirror and falls back to the row's own counter on a miss.
func (u *timeSlotUsecase) ListSlots(ctx context.Context, filter *entity.TimeSlotFilter) (*dto.TimeSlotListResponse, error) {
	slots, err := u.slotRepo.FindByFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list slots: %+v", err)
		return nil, err
	}

	responses := make([]dto.TimeSlotResponse, len(slots))
	for i := range slots {
		responses[i] = *converter.TimeSlotToResponse(&slots[i], u.remainingFor(ctx, &slots[i]))
	}

	return &dto.TimeSlotListResponse{
		TimeSlots: responses,
		Total:     len(responses),
	}, nil
}

func (u *timeSlotUsecase) UpdateCapacity(ctx context.Context, slotID uuid.UUID, req *dto.UpdateCapacityRequest) (*dto.TimeSlotResponse, error) {
	adminID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	slot, err := u.slotRepo.FindByID(u.db.WithContext(ctx), slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.slotRepo.UpdateMaxAppointments(tx, slotID, req.MaxAppointments)
		if err != nil {
			return err
		}
		if updated == 0 {
			// Either the slot vanished or the new max undercuts current_bookings.
			return ErrCapacityTooLow
		}
		return u.auditService.LogChange(tx, &adminID, entity.AuditActionSlotCapacity,
			"time_slot", slotID.String(),
			map[string]interface{}{"max_appointments": slot.MaxAppointments},
			map[string]interface{}{"max_appointments": req.MaxAppointments})
	})
	if err != nil {
		return nil, err
	}

	fresh, err := u.slotRepo.FindByID(u.db.WithContext(ctx), slotID)
	if err != nil || fresh == nil {
		return nil, ErrSlotNotFound
	}

	if err := u.slotCache.SyncSlot(ctx, fresh); err != nil {
		u.log.Warnf("Failed to re-sync slot mirror for %s (non-fatal): %+v", slotID, err)
	}

	return converter.TimeSlotToResponse(fresh, fresh.RemainingCapacity()), nil
}

// DeactivateSlot soft-deletes future availability. Existing appointments keep
// their history; only new bookings are blocked.
func (u *timeSlotUsecase) DeactivateSlot(ctx context.Context, slotID uuid.UUID) error {
	adminID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.slotRepo.Deactivate(tx, slotID)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrSlotNotFound
		}
		return u.auditService.LogChange(tx, &adminID, entity.AuditActionSlotDeactivate,
			"time_slot", slotID.String(),
			map[string]interface{}{"is_active": true},
			map[string]interface{}{"is_active": false})
	})
	if err != nil {
		return err
	}

	u.slotCache.DeleteSlotKey(ctx, slotID)
	return nil
}

func (u *timeSlotUsecase) remainingFor(ctx context.Context, slot *entity.TimeSlot) int {
	if remaining, ok := u.slotCache.GetRemaining(ctx, slot.ID); ok {
		return remaining
	}
	return slot.RemainingCapacity()
}
