package repository

import (
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository interface {
	Create(db *gorm.DB, doctor *entity.Doctor) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error)
	FindByFilter(db *gorm.DB, filter *entity.DoctorFilter) ([]entity.Doctor, int64, error)
	Update(db *gorm.DB, doctor *entity.Doctor) error
	Deactivate(db *gorm.DB, id uuid.UUID) (int64, error)
}

type HospitalRepository interface {
	Create(db *gorm.DB, hospital *entity.Hospital) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Hospital, error)
	FindAll(db *gorm.DB) ([]entity.Hospital, error)
}
