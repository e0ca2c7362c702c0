package usecase

import (
	"testing"
	"time"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func slotReq(doctorID uuid.UUID, date, start string, max int) *dto.CreateTimeSlotRequest {
	return &dto.CreateTimeSlotRequest{
		DoctorID:        doctorID,
		SlotDate:        date,
		StartTime:       start,
		EndTime:         "17:00",
		MaxAppointments: max,
	}
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestCreateSlotDefaultsFeeFromDoctor(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.createSlot(t, 1)

	resp, err := env.slots.CreateSlot(env.ctx(), slotReq(seeded.DoctorID, futureDate(8), "14:00", 5))
	if err != nil {
		t.Fatalf("CreateSlot failed: %v", err)
	}

	if !resp.ConsultationFee.Equal(env.consultationFee) {
		t.Errorf("fee = %s, want doctor default %s", resp.ConsultationFee, env.consultationFee)
	}
	if resp.CurrentBookings != 0 || resp.Remaining != 5 {
		t.Errorf("bookings/remaining = %d/%d, want 0/5", resp.CurrentBookings, resp.Remaining)
	}
}

func TestCreateSlotExplicitFeeWins(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.createSlot(t, 1)

	req := slotReq(seeded.DoctorID, futureDate(8), "14:00", 5)
	req.ConsultationFee = decimal.NewFromInt(120)

	resp, err := env.slots.CreateSlot(env.ctx(), req)
	if err != nil {
		t.Fatalf("CreateSlot failed: %v", err)
	}
	if !resp.ConsultationFee.Equal(req.ConsultationFee) {
		t.Errorf("fee = %s, want %s", resp.ConsultationFee, req.ConsultationFee)
	}
}

func TestCreateSlotValidation(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.createSlot(t, 1)

	if _, err := env.slots.CreateSlot(env.ctx(), slotReq(uuid.New(), futureDate(8), "14:00", 5)); err != ErrDoctorNotFound {
		t.Errorf("unknown doctor err = %v, want ErrDoctorNotFound", err)
	}

	if _, err := env.slots.CreateSlot(env.ctx(), slotReq(seeded.DoctorID, "08-2026-15", "14:00", 5)); err != ErrInvalidSlotDate {
		t.Errorf("bad date err = %v, want ErrInvalidSlotDate", err)
	}

	if _, err := env.slots.CreateSlot(env.ctx(), slotReq(seeded.DoctorID, futureDate(8), "2pm", 5)); err != ErrInvalidTimeFormat {
		t.Errorf("bad time err = %v, want ErrInvalidTimeFormat", err)
	}
}

func TestCreateSlotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.createSlot(t, 1)

	req := slotReq(seeded.DoctorID, futureDate(8), "14:00", 5)
	if _, err := env.slots.CreateSlot(env.ctx(), req); err != nil {
		t.Fatalf("first CreateSlot failed: %v", err)
	}

	// Same doctor, same date, same start time.
	if _, err := env.slots.CreateSlot(env.ctx(), req); err != ErrDuplicateSlot {
		t.Fatalf("err = %v, want ErrDuplicateSlot", err)
	}
}

func TestUpdateCapacity(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}
	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	// Shrinking below the two confirmed bookings must be refused.
	if _, err := env.slots.UpdateCapacity(env.ctx(), slot.ID,
		&dto.UpdateCapacityRequest{MaxAppointments: 1}); err != ErrCapacityTooLow {
		t.Fatalf("shrink err = %v, want ErrCapacityTooLow", err)
	}

	resp, err := env.slots.UpdateCapacity(env.ctx(), slot.ID,
		&dto.UpdateCapacityRequest{MaxAppointments: 4})
	if err != nil {
		t.Fatalf("UpdateCapacity failed: %v", err)
	}
	if resp.MaxAppointments != 4 {
		t.Errorf("max_appointments = %d, want 4", resp.MaxAppointments)
	}
	if resp.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", resp.Remaining)
	}

	// The freed headroom is immediately bookable.
	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Errorf("booking into grown slot failed: %v", err)
	}
}

func TestUpdateCapacityUnknownSlot(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.slots.UpdateCapacity(env.ctx(), uuid.New(),
		&dto.UpdateCapacityRequest{MaxAppointments: 3}); err != ErrSlotNotFound {
		t.Fatalf("err = %v, want ErrSlotNotFound", err)
	}
}

func TestDeactivateSlotBlocksNewBookings(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	if err := env.slots.DeactivateSlot(env.ctx(), slot.ID); err != nil {
		t.Fatalf("DeactivateSlot failed: %v", err)
	}

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != ErrSlotInactive {
		t.Errorf("booking on deactivated slot err = %v, want ErrSlotInactive", err)
	}

	// The confirmed appointment keeps its history and its capacity unit.
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}

	if err := env.slots.DeactivateSlot(env.ctx(), uuid.New()); err != ErrSlotNotFound {
		t.Errorf("unknown slot err = %v, want ErrSlotNotFound", err)
	}
}

func TestGetSlot(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 3)

	resp, err := env.slots.GetSlot(env.ctx(), slot.ID)
	if err != nil {
		t.Fatalf("GetSlot failed: %v", err)
	}
	if resp.ID != slot.ID {
		t.Errorf("id = %s, want %s", resp.ID, slot.ID)
	}
	if resp.Remaining != 3 {
		t.Errorf("remaining = %d, want 3", resp.Remaining)
	}

	if _, err := env.slots.GetSlot(env.ctx(), uuid.New()); err != ErrSlotNotFound {
		t.Errorf("missing slot err = %v, want ErrSlotNotFound", err)
	}
}

func TestListSlotsFilter(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 1)

	var doctor entity.Doctor
	if err := env.db.Where("id = ?", slot.DoctorID).First(&doctor).Error; err != nil {
		t.Fatalf("failed to load doctor: %v", err)
	}
	full := env.createSlotFor(t, &doctor, 1, "11:00")
	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(full)); err != nil {
		t.Fatalf("failed to fill slot: %v", err)
	}

	all, err := env.slots.ListSlots(env.ctx(), &entity.TimeSlotFilter{DoctorID: &doctor.ID})
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("total = %d, want 2", all.Total)
	}

	available, err := env.slots.ListSlots(env.ctx(), &entity.TimeSlotFilter{
		DoctorID:      &doctor.ID,
		OnlyAvailable: true,
	})
	if err != nil {
		t.Fatalf("ListSlots (available) failed: %v", err)
	}
	if available.Total != 1 {
		t.Fatalf("available total = %d, want 1", available.Total)
	}
	if available.TimeSlots[0].ID != slot.ID {
		t.Errorf("available slot = %s, want %s", available.TimeSlots[0].ID, slot.ID)
	}
}
