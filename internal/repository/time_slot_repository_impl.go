package repository

import (
	"errors"

	"agent-booking-portal/internal/domain/entity"
	domainRepo "agent-booking-portal/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type timeSlotRepository struct{}

func NewTimeSlotRepository() domainRepo.TimeSlotRepository {
	return &timeSlotRepository{}
}

func (r *timeSlotRepository) Create(db *gorm.DB, slot *entity.TimeSlot) error {
	return db.Create(slot).Error
}

func (r *timeSlotRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := db.Preload("Doctor.Hospital").Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepository) FindByFilter(db *gorm.DB, filter *entity.TimeSlotFilter) ([]entity.TimeSlot, error) {
	var slots []entity.TimeSlot
	query := db.Model(&entity.TimeSlot{})

	if filter != nil {
		if filter.DoctorID != nil {
			query = query.Where("doctor_id = ?", *filter.DoctorID)
		}
		if filter.Date != "" {
			query = query.Where("slot_date = ?", filter.Date)
		}
		if filter.OnlyActive {
			query = query.Where("is_active = ?", true)
		}
		if filter.OnlyAvailable {
			query = query.Where("current_bookings < max_appointments")
		}
	}

	err := query.
		Preload("Doctor").
		Order("slot_date ASC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ClaimCapacity is the single write path that can raise current_bookings.
// The guard lives in the WHERE clause so two racing claims on the last opening
// serialize inside the database: exactly one sees an affected row.
func (r *timeSlotRepository) ClaimCapacity(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND is_active = ? AND current_bookings < max_appointments", id, true).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings + 1"))
	return result.RowsAffected, result.Error
}

// ReleaseCapacity refuses to decrement below zero; the caller logs a zero-row
// release as an invariant violation instead of clamping it.
func (r *timeSlotRepository) ReleaseCapacity(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND current_bookings > 0", id).
		UpdateColumn("current_bookings", gorm.Expr("current_bookings - 1"))
	return result.RowsAffected, result.Error
}

func (r *timeSlotRepository) UpdateMaxAppointments(db *gorm.DB, id uuid.UUID, max int) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND current_bookings <= ?", id, max).
		UpdateColumn("max_appointments", max)
	return result.RowsAffected, result.Error
}

func (r *timeSlotRepository) Deactivate(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.TimeSlot{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	return result.RowsAffected, result.Error
}
