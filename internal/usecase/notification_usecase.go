package usecase

import (
	"context"
	"errors"

	"agent-booking-portal/internal/converter"
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationUsecase interface {
	ListMyNotifications(ctx context.Context, unreadOnly bool, limit int) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, notificationID int64) error
	MarkAllRead(ctx context.Context) error
}

type notificationUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	notificationRepo repository.NotificationRepository
}

func NewNotificationUsecase(db *gorm.DB, log *logrus.Logger, notificationRepo repository.NotificationRepository) NotificationUsecase {
	return &notificationUsecase{
		db:               db,
		log:              log,
		notificationRepo: notificationRepo,
	}
}

func (u *notificationUsecase) ListMyNotifications(ctx context.Context, unreadOnly bool, limit int) (*dto.NotificationListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	db := u.db.WithContext(ctx)
	notifications, err := u.notificationRepo.FindByUserID(db, userID, unreadOnly, limit)
	if err != nil {
		u.log.Warnf("Failed to list notifications for user %s: %+v", userID, err)
		return nil, err
	}

	unread, err := u.notificationRepo.CountUnread(db, userID)
	if err != nil {
		return nil, err
	}

	return &dto.NotificationListResponse{
		Notifications: converter.NotificationsToResponses(notifications),
		Unread:        unread,
		Total:         len(notifications),
	}, nil
}

func (u *notificationUsecase) MarkRead(ctx context.Context, notificationID int64) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	updated, err := u.notificationRepo.MarkRead(u.db.WithContext(ctx), notificationID, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (u *notificationUsecase) MarkAllRead(ctx context.Context) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	_, err := u.notificationRepo.MarkAllRead(u.db.WithContext(ctx), userID)
	return err
}
