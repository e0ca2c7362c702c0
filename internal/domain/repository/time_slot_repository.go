package repository

import (
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeSlotRepository owns all access to the time_slots table. Capacity is only
// ever mutated through ClaimCapacity/ReleaseCapacity so the counter invariant is
// enforced by the database, not by application reads.
type TimeSlotRepository interface {
	Create(db *gorm.DB, slot *entity.TimeSlot) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.TimeSlot, error)
	FindByFilter(db *gorm.DB, filter *entity.TimeSlotFilter) ([]entity.TimeSlot, error)

	// ClaimCapacity atomically increments current_bookings iff the slot is active
	// and below max_appointments. Returns affected rows: 1 = claimed, 0 = full or
	// inactive (the caller distinguishes via a fresh read).
	ClaimCapacity(db *gorm.DB, id uuid.UUID) (int64, error)

	// ReleaseCapacity atomically decrements current_bookings iff it is above zero.
	// 0 affected rows on a release means the counter would have gone negative,
	// which is an invariant violation the caller must treat as a bug.
	ReleaseCapacity(db *gorm.DB, id uuid.UUID) (int64, error)

	// UpdateMaxAppointments raises or lowers capacity, never below the bookings
	// already taken. Returns affected rows: 0 = slot missing or new max too low.
	UpdateMaxAppointments(db *gorm.DB, id uuid.UUID, max int) (int64, error)

	// Deactivate soft-deletes future availability without touching history.
	Deactivate(db *gorm.DB, id uuid.UUID) (int64, error)
}
