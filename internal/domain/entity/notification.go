package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification types mirror the relay event types an agent can receive.
const (
	NotificationTypeSlotBooked        = "slot:booked"
	NotificationTypeSlotReleased      = "slot:released"
	NotificationTypeApptCancelled     = "appointment:cancelled"
	NotificationTypeApptStatusChanged = "appointment:status_changed"
	NotificationTypePaymentChanged    = "payment:status_changed"
)

// Notification is a per-recipient, ephemeral record. Delivery over the relay is
// best-effort; the row is the pull-based source of truth after a reconnect.
type Notification struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Type      string     `gorm:"type:varchar(50);not null;index" json:"type"`
	Data      JSON       `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// MarkRead sets the read flag; read implies ReadAt set.
func (n *Notification) MarkRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}
