package repository

import (
	"errors"
	"time"

	"agent-booking-portal/internal/domain/entity"
	domainRepo "agent-booking-portal/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type paymentRepository struct{}

func NewPaymentRepository() domainRepo.PaymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) Create(db *gorm.DB, payment *entity.Payment) error {
	return db.Create(payment).Error
}

func (r *paymentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Payment, error) {
	var payment entity.Payment
	err := db.Preload("Appointment").Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByTransactionID(db *gorm.DB, transactionID string) (*entity.Payment, error) {
	var payment entity.Payment
	err := db.Preload("Appointment").Where("transaction_id = ?", transactionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindActiveByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Payment, error) {
	var payment entity.Payment
	err := db.Where("appointment_id = ? AND status IN ?", appointmentID,
		[]entity.PaymentStatus{entity.PaymentStatusPending, entity.PaymentStatusCompleted}).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, from, to entity.PaymentStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := db.Model(&entity.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) Reassign(db *gorm.DB, id uuid.UUID, appointmentID uuid.UUID) error {
	return db.Model(&entity.Payment{}).
		Where("id = ?", id).
		UpdateColumn("appointment_id", appointmentID).Error
}

func (r *paymentRepository) FlagStalePending(db *gorm.DB, olderThan time.Time) (int64, error) {
	result := db.Model(&entity.Payment{}).
		Where("status = ? AND needs_review = ? AND created_at < ?",
			entity.PaymentStatusPending, false, olderThan).
		UpdateColumn("needs_review", true)
	return result.RowsAffected, result.Error
}

func (r *paymentRepository) SumCompleted(db *gorm.DB, from, to string) (decimal.Decimal, error) {
	query := db.Model(&entity.Payment{}).
		Where("payments.status IN ?", []entity.PaymentStatus{entity.PaymentStatusCompleted, entity.PaymentStatusRefunded})

	if from != "" || to != "" {
		query = query.Joins("JOIN appointments ON appointments.id = payments.appointment_id")
		if from != "" {
			query = query.Where("appointments.appointment_date >= ?", from)
		}
		if to != "" {
			query = query.Where("appointments.appointment_date <= ?", to)
		}
	}

	var total decimal.NullDecimal
	err := query.Select("SUM(payments.amount)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
