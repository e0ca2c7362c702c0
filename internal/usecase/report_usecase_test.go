package usecase

import (
	"bytes"
	"encoding/csv"
	"testing"

	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
)

// seedLedger books two appointments on one slot, settles the first payment and
// cancels the second appointment.
func seedLedger(t *testing.T, env *testEnv) {
	t.Helper()

	slot := env.createSlot(t, 2)

	settled, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	payment := env.loadPayment(t, settled.ID)
	if _, err := env.payments.HandleGatewayCallback(env.ctx(), &dto.GatewayCallbackRequest{
		PaymentID:     &payment.ID,
		TransactionID: "txn-report",
		Status:        string(entity.PaymentStatusCompleted),
	}); err != nil {
		t.Fatalf("settlement callback failed: %v", err)
	}

	cancelled, err := env.booking.BookAppointment(env.ctx(), bookReq(slot))
	if err != nil {
		t.Fatalf("second booking failed: %v", err)
	}
	if _, err := env.booking.CancelAppointment(env.ctx(), cancelled.ID,
		&dto.CancelAppointmentRequest{Reason: "schedule conflict"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
}

func TestReportSummary(t *testing.T) {
	env := newTestEnv(t)
	seedLedger(t, env)

	summary, err := env.reports.Summary(env.ctx(), "", "")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.TotalAppointments != 2 {
		t.Errorf("total_appointments = %d, want 2", summary.TotalAppointments)
	}
	if got := summary.ByStatus[string(entity.AppointmentStatusConfirmed)]; got != 1 {
		t.Errorf("confirmed = %d, want 1", got)
	}
	if got := summary.ByStatus[string(entity.AppointmentStatusCancelled)]; got != 1 {
		t.Errorf("cancelled = %d, want 1", got)
	}

	// Only the settled payment counts towards revenue.
	if !summary.Revenue.Equal(env.consultationFee) {
		t.Errorf("revenue = %s, want %s", summary.Revenue, env.consultationFee)
	}

	if len(summary.Doctors) != 1 {
		t.Fatalf("doctor volumes = %d, want 1", len(summary.Doctors))
	}
	if summary.Doctors[0].Appointments != 2 {
		t.Errorf("doctor appointments = %d, want 2", summary.Doctors[0].Appointments)
	}
}

func TestReportSummaryEmptyLedger(t *testing.T) {
	env := newTestEnv(t)

	summary, err := env.reports.Summary(env.ctx(), "", "")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalAppointments != 0 {
		t.Errorf("total_appointments = %d, want 0", summary.TotalAppointments)
	}
	if !summary.Revenue.IsZero() {
		t.Errorf("revenue = %s, want 0", summary.Revenue)
	}
}

func TestExportAppointmentsCSV(t *testing.T) {
	env := newTestEnv(t)
	seedLedger(t, env)

	var buf bytes.Buffer
	if err := env.reports.ExportAppointmentsCSV(env.ctx(), &buf, nil); err != nil {
		t.Fatalf("ExportAppointmentsCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(records))
	}

	header := records[0]
	if header[0] != "appointment_number" || header[len(header)-1] != "total_amount" {
		t.Errorf("unexpected header %v", header)
	}
	for i, record := range records[1:] {
		if len(record) != len(header) {
			t.Errorf("row %d has %d fields, want %d", i+1, len(record), len(header))
		}
	}
}

func TestExportAppointmentsJSON(t *testing.T) {
	env := newTestEnv(t)
	seedLedger(t, env)

	list, err := env.reports.ExportAppointmentsJSON(env.ctx(), &entity.AppointmentFilter{
		Status: entity.AppointmentStatusCancelled,
	})
	if err != nil {
		t.Fatalf("ExportAppointmentsJSON failed: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total = %d, want 1", list.Total)
	}
	if list.Appointments[0].Status != string(entity.AppointmentStatusCancelled) {
		t.Errorf("status = %s, want CANCELLED", list.Appointments[0].Status)
	}
}
