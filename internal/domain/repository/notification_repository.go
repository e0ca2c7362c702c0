package repository

import (
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(db *gorm.DB, notification *entity.Notification) error
	FindByUserID(db *gorm.DB, userID uuid.UUID, unreadOnly bool, limit int) ([]entity.Notification, error)
	MarkRead(db *gorm.DB, id int64, userID uuid.UUID) (int64, error)
	MarkAllRead(db *gorm.DB, userID uuid.UUID) (int64, error)
	CountUnread(db *gorm.DB, userID uuid.UUID) (int64, error)
}
