package repository

import (
	"errors"

	"agent-booking-portal/internal/domain/entity"
	domainRepo "agent-booking-portal/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorRepository struct{}

func NewDoctorRepository() domainRepo.DoctorRepository {
	return &doctorRepository{}
}

func (r *doctorRepository) Create(db *gorm.DB, doctor *entity.Doctor) error {
	return db.Create(doctor).Error
}

func (r *doctorRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := db.Preload("Hospital").Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

// FindByFilter supports the agent-facing doctor search: name and specialization
// are matched case-insensitively, results are paginated.
func (r *doctorRepository) FindByFilter(db *gorm.DB, filter *entity.DoctorFilter) ([]entity.Doctor, int64, error) {
	var doctors []entity.Doctor
	query := db.Model(&entity.Doctor{}).Where("doctors.is_active = ?", true)

	if filter != nil {
		if filter.Name != "" {
			query = query.Where("doctors.full_name ILIKE ?", "%"+filter.Name+"%")
		}
		if filter.Specialization != "" {
			query = query.Where("doctors.specialization ILIKE ?", "%"+filter.Specialization+"%")
		}
		if filter.HospitalID != nil {
			query = query.Where("doctors.hospital_id = ?", *filter.HospitalID)
		}
	}

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
		Preload("Hospital").
		Order("doctors.full_name ASC").
		Find(&doctors).Error
	if err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

func (r *doctorRepository) Update(db *gorm.DB, doctor *entity.Doctor) error {
	return db.Omit("Hospital").Save(doctor).Error
}

func (r *doctorRepository) Deactivate(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Doctor{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	return result.RowsAffected, result.Error
}

type hospitalRepository struct{}

func NewHospitalRepository() domainRepo.HospitalRepository {
	return &hospitalRepository{}
}

func (r *hospitalRepository) Create(db *gorm.DB, hospital *entity.Hospital) error {
	return db.Create(hospital).Error
}

func (r *hospitalRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Hospital, error) {
	var hospital entity.Hospital
	err := db.Where("id = ?", id).First(&hospital).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hospital, nil
}

func (r *hospitalRepository) FindAll(db *gorm.DB) ([]entity.Hospital, error) {
	var hospitals []entity.Hospital
	err := db.Where("is_active = ?", true).Order("name ASC").Find(&hospitals).Error
	if err != nil {
		return nil, err
	}
	return hospitals, nil
}
