package usecase

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
)

func bookReq(slot *entity.TimeSlot) *dto.BookAppointmentRequest {
	return &dto.BookAppointmentRequest{
		TimeSlotID:     slot.ID,
		PatientName:    "Pat Doe",
		PatientContact: "pat@example.com",
		PaymentMethod:  "corporate_account",
	}
}

func TestGenerateAppointmentNumber(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	format := regexp.MustCompile(`^APT-20260907-[0-9A-F]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := generateAppointmentNumber(date)
		if !format.MatchString(number) {
			t.Fatalf("appointment number %q does not match APT-YYYYMMDD-XXXXXX", number)
		}
		seen[number] = true
	}
	// 100 draws from a 24-bit space colliding down to a handful would mean the
	// suffix is not actually random.
	if len(seen) < 95 {
		t.Errorf("only %d distinct numbers in 100 draws", len(seen))
	}
}

func TestBookAppointment(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 3)

	resp, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	if resp.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("appointment status = %s, want CONFIRMED", resp.Status)
	}
	if resp.PaymentStatus != string(entity.PaymentStatusPending) {
		t.Errorf("payment status = %s, want PENDING", resp.PaymentStatus)
	}
	if !strings.HasPrefix(resp.AppointmentNumber, "APT-") {
		t.Errorf("appointment number %q lacks APT- prefix", resp.AppointmentNumber)
	}
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}

	// The payment ledger row is created in the same transaction and carries
	// the slot's consultation fee.
	payment := env.loadPayment(t, resp.ID)
	if payment.Status != entity.PaymentStatusPending {
		t.Errorf("ledger payment status = %s, want PENDING", payment.Status)
	}
	if !payment.Amount.Equal(resp.TotalAmount) {
		t.Errorf("payment amount %s != appointment total %s", payment.Amount, resp.TotalAmount)
	}
	if !payment.Amount.Equal(env.consultationFee) {
		t.Errorf("payment amount = %s, want %s", payment.Amount, env.consultationFee)
	}
}

func TestBookAppointmentSlotFull(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 1)

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != ErrSlotFull {
		t.Fatalf("second booking err = %v, want ErrSlotFull", err)
	}

	// The failed attempt must leave nothing behind: counter still at max,
	// exactly one appointment and one payment row.
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	var appointments int64
	env.db.Model(&entity.Appointment{}).Count(&appointments)
	if appointments != 1 {
		t.Errorf("appointment rows = %d, want 1", appointments)
	}
	var payments int64
	env.db.Model(&entity.Payment{}).Count(&payments)
	if payments != 1 {
		t.Errorf("payment rows = %d, want 1", payments)
	}
}

func TestBookAppointmentConcurrentLastOpening(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.booking.BookAppointment(env.ctx(), bookReq(slot))
		}(i)
	}
	wg.Wait()

	// Exactly one claim wins the last opening; the loser sees a full slot.
	var wins, fulls int
	for _, err := range results {
		switch err {
		case nil:
			wins++
		case ErrSlotFull:
			fulls++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if wins != 1 || fulls != 1 {
		t.Fatalf("wins/fulls = %d/%d, want 1/1", wins, fulls)
	}

	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}
	var appointments int64
	env.db.Model(&entity.Appointment{}).Count(&appointments)
	if appointments != 1 {
		t.Errorf("appointment rows = %d, want 1", appointments)
	}
}

func TestBookAppointmentInactiveSlot(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	if err := env.db.Model(&entity.TimeSlot{}).Where("id = ?", slot.ID).
		UpdateColumn("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate slot: %v", err)
	}

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != ErrSlotInactive {
		t.Fatalf("err = %v, want ErrSlotInactive", err)
	}
	if got := env.slotBookings(t, slot.ID); got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
}

func TestCancelAppointmentReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Fatalf("current_bookings after booking = %d, want 1", got)
	}

	cancelled, err := env.booking.CancelAppointment(env.ctx(), booked.ID,
		&dto.CancelAppointmentRequest{Reason: "patient request"})
	if err != nil {
		t.Fatalf("CancelAppointment failed: %v", err)
	}

	if cancelled.Status != string(entity.AppointmentStatusCancelled) {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.CancellationReason != "patient request" {
		t.Errorf("cancellation reason = %q, want %q", cancelled.CancellationReason, "patient request")
	}
	if got := env.slotBookings(t, slot.ID); got != 0 {
		t.Errorf("current_bookings after cancel = %d, want 0", got)
	}

	// A pending payment is cancelled along with the appointment.
	payment := env.loadPayment(t, booked.ID)
	if payment.Status != entity.PaymentStatusCancelled {
		t.Errorf("payment status = %s, want CANCELLED", payment.Status)
	}
}

func TestCancelAppointmentTwice(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	req := &dto.CancelAppointmentRequest{Reason: "patient request"}
	if _, err := env.booking.CancelAppointment(env.ctx(), booked.ID, req); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}

	if _, err := env.booking.CancelAppointment(env.ctx(), booked.ID, req); err != ErrAppointmentTerminal {
		t.Fatalf("second cancel err = %v, want ErrAppointmentTerminal", err)
	}

	// Capacity must not be released twice.
	if got := env.slotBookings(t, slot.ID); got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
}

func TestCancelWithCompletedPaymentRequestsRefund(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	payment := env.loadPayment(t, booked.ID)
	if _, err := env.payments.HandleGatewayCallback(env.ctx(), &dto.GatewayCallbackRequest{
		PaymentID:     &payment.ID,
		TransactionID: "txn-refund-flow",
		Status:        string(entity.PaymentStatusCompleted),
	}); err != nil {
		t.Fatalf("settlement callback failed: %v", err)
	}

	if _, err := env.booking.CancelAppointment(env.ctx(), booked.ID,
		&dto.CancelAppointmentRequest{Reason: "double booked"}); err != nil {
		t.Fatalf("CancelAppointment failed: %v", err)
	}

	// The completed payment stays COMPLETED with a refund marker; the gateway
	// callback finishes the COMPLETED -> REFUNDED move later.
	after := env.loadPayment(t, booked.ID)
	if after.Status != entity.PaymentStatusCompleted {
		t.Errorf("payment status = %s, want COMPLETED", after.Status)
	}
	if after.RefundRequestedAt == nil {
		t.Error("refund_requested_at not set")
	}

	if _, err := env.payments.HandleGatewayCallback(env.ctx(), &dto.GatewayCallbackRequest{
		PaymentID:     &payment.ID,
		TransactionID: "txn-refund-flow",
		Status:        string(entity.PaymentStatusRefunded),
	}); err != nil {
		t.Fatalf("refund callback failed: %v", err)
	}

	final := env.loadPayment(t, booked.ID)
	if final.Status != entity.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want REFUNDED", final.Status)
	}
	if final.RefundAmount == nil || !final.RefundAmount.Equal(payment.Amount) {
		t.Errorf("refund amount = %v, want %s", final.RefundAmount, payment.Amount)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	var doctor entity.Doctor
	if err := env.db.Where("id = ?", slot.DoctorID).First(&doctor).Error; err != nil {
		t.Fatalf("failed to load doctor: %v", err)
	}
	newSlot := env.createSlotFor(t, &doctor, 2, "11:00")

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	successor, err := env.booking.RescheduleAppointment(env.ctx(), booked.ID,
		&dto.RescheduleAppointmentRequest{NewTimeSlotID: newSlot.ID})
	if err != nil {
		t.Fatalf("RescheduleAppointment failed: %v", err)
	}

	if successor.ID == booked.ID {
		t.Fatal("reschedule reused the original row instead of creating a successor")
	}
	if successor.TimeSlotID != newSlot.ID {
		t.Errorf("successor slot = %s, want %s", successor.TimeSlotID, newSlot.ID)
	}
	if successor.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("successor status = %s, want CONFIRMED", successor.Status)
	}

	// The old row is terminated, never deleted.
	original := env.loadAppointment(t, booked.ID)
	if original.Status != entity.AppointmentStatusRescheduled {
		t.Errorf("original status = %s, want RESCHEDULED", original.Status)
	}

	// Capacity moved from the old slot to the new one.
	if got := env.slotBookings(t, slot.ID); got != 0 {
		t.Errorf("old slot current_bookings = %d, want 0", got)
	}
	if got := env.slotBookings(t, newSlot.ID); got != 1 {
		t.Errorf("new slot current_bookings = %d, want 1", got)
	}

	// The payment follows the booking to the successor.
	payment := env.loadPayment(t, successor.ID)
	if !payment.Amount.Equal(env.consultationFee) {
		t.Errorf("payment amount = %s, want %s", payment.Amount, env.consultationFee)
	}
}

func TestRescheduleToFullSlotLeavesOriginalUntouched(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	var doctor entity.Doctor
	if err := env.db.Where("id = ?", slot.DoctorID).First(&doctor).Error; err != nil {
		t.Fatalf("failed to load doctor: %v", err)
	}
	fullSlot := env.createSlotFor(t, &doctor, 1, "11:00")
	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(fullSlot)); err != nil {
		t.Fatalf("failed to fill target slot: %v", err)
	}

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	_, err = env.booking.RescheduleAppointment(env.ctx(), booked.ID,
		&dto.RescheduleAppointmentRequest{NewTimeSlotID: fullSlot.ID})
	if err != ErrSlotFull {
		t.Fatalf("err = %v, want ErrSlotFull", err)
	}

	// Aborted reschedule: original appointment and both counters unchanged.
	original := env.loadAppointment(t, booked.ID)
	if original.Status != entity.AppointmentStatusConfirmed {
		t.Errorf("original status = %s, want CONFIRMED", original.Status)
	}
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("old slot current_bookings = %d, want 1", got)
	}
	if got := env.slotBookings(t, fullSlot.ID); got != 1 {
		t.Errorf("target slot current_bookings = %d, want 1", got)
	}
}

func TestUpdateAppointmentStatusNoShowReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	resp, err := env.booking.UpdateAppointmentStatus(env.ctx(), booked.ID,
		&dto.UpdateAppointmentStatusRequest{Status: string(entity.AppointmentStatusNoShow)})
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus failed: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusNoShow) {
		t.Errorf("status = %s, want NO_SHOW", resp.Status)
	}
	if got := env.slotBookings(t, slot.ID); got != 0 {
		t.Errorf("current_bookings = %d, want 0", got)
	}
}

func TestUpdateAppointmentStatusCompletedKeepsCapacity(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 2)

	booked, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	resp, err := env.booking.UpdateAppointmentStatus(env.ctx(), booked.ID,
		&dto.UpdateAppointmentStatusRequest{Status: string(entity.AppointmentStatusCompleted)})
	if err != nil {
		t.Fatalf("UpdateAppointmentStatus failed: %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusCompleted) {
		t.Errorf("status = %s, want COMPLETED", resp.Status)
	}

	// The visit happened; the capacity unit is consumed for good.
	if got := env.slotBookings(t, slot.ID); got != 1 {
		t.Errorf("current_bookings = %d, want 1", got)
	}

	// And a completed visit cannot be cancelled afterwards.
	if _, err := env.booking.CancelAppointment(env.ctx(), booked.ID,
		&dto.CancelAppointmentRequest{Reason: "too late"}); err != ErrAppointmentTerminal {
		t.Errorf("cancel after complete err = %v, want ErrAppointmentTerminal", err)
	}
}

func TestListMyAppointments(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, 3)

	if _, err := env.booking.BookAppointment(env.ctx(), bookReq(slot)); err != nil {
		t.Fatalf("BookAppointment failed: %v", err)
	}

	// A second agent books the same slot; the first agent must not see it.
	other := &entity.User{Email: "other@test.local", FullName: "Other Agent", Role: entity.RoleAgent}
	if err := env.db.Create(other).Error; err != nil {
		t.Fatalf("failed to create second agent: %v", err)
	}
	if _, err := env.booking.BookAppointment(env.ctxFor(other.ID), bookReq(slot)); err != nil {
		t.Fatalf("second agent booking failed: %v", err)
	}

	list, err := env.booking.ListMyAppointments(env.ctx(), nil)
	if err != nil {
		t.Fatalf("ListMyAppointments failed: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}
	if len(list.Appointments) != 1 {
		t.Fatalf("appointments = %d, want 1", len(list.Appointments))
	}
	if list.Appointments[0].BookedByID != env.agentID {
		t.Errorf("booked_by = %s, want %s", list.Appointments[0].BookedByID, env.agentID)
	}
}
