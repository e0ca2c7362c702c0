package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User role constants. Agents book appointments on behalf of patients;
// admins manage doctors, hospitals and slot inventory.
const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// User represents a portal account (booking agent or admin).
// Credential issuance lives in an external identity provider; this table
// only mirrors the identity referenced by appointments and notifications.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Role      string    `gorm:"type:varchar(20);not null;default:'agent';index" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:BookedByID" json:"appointments,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
