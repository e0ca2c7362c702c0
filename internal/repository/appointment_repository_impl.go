package repository

import (
	"errors"

	"agent-booking-portal/internal/domain/entity"
	domainRepo "agent-booking-portal/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("Doctor").Preload("Hospital").Preload("TimeSlot").
		Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByNumber(db *gorm.DB, number string) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("Doctor").Preload("Hospital").Preload("TimeSlot").
		Where("appointment_number = ?", number).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByFilter(db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	var appointments []entity.Appointment
	query := applyAppointmentFilter(db.Model(&entity.Appointment{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	err := query.
		Preload("Doctor").Preload("Hospital").Preload("TimeSlot").
		Order("appointment_date DESC, appointment_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) UpdatePaymentStatus(db *gorm.DB, id uuid.UUID, status entity.PaymentStatus) error {
	return db.Model(&entity.Appointment{}).
		Where("id = ?", id).
		UpdateColumn("payment_status", status).Error
}

func (r *appointmentRepository) CountByStatus(db *gorm.DB, filter *entity.AppointmentFilter) ([]domainRepo.StatusCount, error) {
	var counts []domainRepo.StatusCount
	err := applyAppointmentFilter(db.Model(&entity.Appointment{}), filter).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *appointmentRepository) VolumeByDoctor(db *gorm.DB, filter *entity.AppointmentFilter) ([]domainRepo.DoctorVolume, error) {
	var volumes []domainRepo.DoctorVolume
	err := applyAppointmentFilter(db.Model(&entity.Appointment{}), filter).
		Select(`
			appointments.doctor_id,
			doctors.full_name as doctor_name,
			COUNT(*) as appointments,
			COALESCE(SUM(CASE WHEN appointments.payment_status = ? THEN appointments.total_amount ELSE 0 END), 0) as revenue
		`, entity.PaymentStatusCompleted).
		Joins("JOIN doctors ON doctors.id = appointments.doctor_id").
		Group("appointments.doctor_id, doctors.full_name").
		Order("appointments DESC").
		Scan(&volumes).Error
	if err != nil {
		return nil, err
	}
	return volumes, nil
}

func applyAppointmentFilter(query *gorm.DB, filter *entity.AppointmentFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.BookedByID != nil {
		query = query.Where("appointments.booked_by_id = ?", *filter.BookedByID)
	}
	if filter.DoctorID != nil {
		query = query.Where("appointments.doctor_id = ?", *filter.DoctorID)
	}
	if filter.Status != "" {
		query = query.Where("appointments.status = ?", filter.Status)
	}
	if filter.DateFrom != "" {
		query = query.Where("appointments.appointment_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("appointments.appointment_date <= ?", filter.DateTo)
	}
	return query
}
