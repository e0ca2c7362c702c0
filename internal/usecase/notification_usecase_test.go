package usecase

import (
	"testing"

	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
)

func seedNotification(t *testing.T, env *testEnv, n *entity.Notification) *entity.Notification {
	t.Helper()
	if n.UserID == uuid.Nil {
		n.UserID = env.agentID
	}
	if n.Title == "" {
		n.Title = "Booking update"
	}
	if n.Message == "" {
		n.Message = "Appointment APT-TEST is confirmed"
	}
	if n.Type == "" {
		n.Type = entity.NotificationTypeSlotBooked
	}
	if err := env.db.Create(n).Error; err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}
	return n
}

func TestListMyNotifications(t *testing.T) {
	env := newTestEnv(t)

	seedNotification(t, env, &entity.Notification{})
	read := seedNotification(t, env, &entity.Notification{})
	if err := env.db.Model(read).Update("is_read", true).Error; err != nil {
		t.Fatalf("failed to mark read: %v", err)
	}

	// Another agent's notification must never show up.
	other := &entity.User{Email: "other-agent@test.local", FullName: "Other Agent", Role: entity.RoleAgent}
	if err := env.db.Create(other).Error; err != nil {
		t.Fatalf("failed to create second agent: %v", err)
	}
	seedNotification(t, env, &entity.Notification{UserID: other.ID})

	all, err := env.notifications.ListMyNotifications(env.ctx(), false, 50)
	if err != nil {
		t.Fatalf("ListMyNotifications failed: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("total = %d, want 2", all.Total)
	}
	if all.Unread != 1 {
		t.Errorf("unread = %d, want 1", all.Unread)
	}

	unread, err := env.notifications.ListMyNotifications(env.ctx(), true, 50)
	if err != nil {
		t.Fatalf("ListMyNotifications (unread) failed: %v", err)
	}
	if unread.Total != 1 {
		t.Errorf("unread-only total = %d, want 1", unread.Total)
	}
	if unread.Notifications[0].IsRead {
		t.Error("unread-only listing returned a read notification")
	}
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	n := seedNotification(t, env, &entity.Notification{})

	if err := env.notifications.MarkRead(env.ctx(), n.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	var fresh entity.Notification
	if err := env.db.First(&fresh, n.ID).Error; err != nil {
		t.Fatalf("failed to reload notification: %v", err)
	}
	if !fresh.IsRead || fresh.ReadAt == nil {
		t.Errorf("is_read/read_at = %v/%v, want true/set", fresh.IsRead, fresh.ReadAt)
	}

	if err := env.notifications.MarkRead(env.ctx(), 99999); err != ErrNotificationNotFound {
		t.Errorf("missing id err = %v, want ErrNotificationNotFound", err)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	env := newTestEnv(t)

	other := &entity.User{Email: "other-agent@test.local", FullName: "Other Agent", Role: entity.RoleAgent}
	if err := env.db.Create(other).Error; err != nil {
		t.Fatalf("failed to create second agent: %v", err)
	}
	n := seedNotification(t, env, &entity.Notification{UserID: other.ID})

	// The caller does not own the row, so the update must not match it.
	if err := env.notifications.MarkRead(env.ctx(), n.ID); err != ErrNotificationNotFound {
		t.Fatalf("err = %v, want ErrNotificationNotFound", err)
	}

	if err := env.notifications.MarkRead(env.ctxFor(other.ID), n.ID); err != nil {
		t.Errorf("owner MarkRead failed: %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	seedNotification(t, env, &entity.Notification{})
	seedNotification(t, env, &entity.Notification{})

	if err := env.notifications.MarkAllRead(env.ctx()); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}

	list, err := env.notifications.ListMyNotifications(env.ctx(), false, 50)
	if err != nil {
		t.Fatalf("ListMyNotifications failed: %v", err)
	}
	if list.Unread != 0 {
		t.Errorf("unread = %d, want 0", list.Unread)
	}
}
