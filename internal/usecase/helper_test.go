package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/repository"
	"agent-booking-portal/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testSchema mirrors db/migrations/000001_init_schema.up.sql in SQLite form,
// including the capacity check constraint the booking path leans on.
var testSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'agent',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE hospitals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE doctors (
		id TEXT PRIMARY KEY,
		hospital_id TEXT NOT NULL,
		full_name TEXT NOT NULL,
		specialization TEXT NOT NULL,
		default_fee NUMERIC NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE time_slots (
		id TEXT PRIMARY KEY,
		doctor_id TEXT NOT NULL,
		slot_date DATETIME NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		max_appointments INTEGER NOT NULL,
		current_bookings INTEGER NOT NULL DEFAULT 0,
		consultation_fee NUMERIC NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT uq_doctor_date_start UNIQUE (doctor_id, slot_date, start_time),
		CONSTRAINT chk_slot_capacity CHECK (current_bookings >= 0 AND current_bookings <= max_appointments)
	)`,
	`CREATE TABLE appointments (
		id TEXT PRIMARY KEY,
		appointment_number TEXT NOT NULL UNIQUE,
		patient_name TEXT NOT NULL,
		patient_contact TEXT NOT NULL,
		doctor_id TEXT NOT NULL,
		hospital_id TEXT NOT NULL,
		time_slot_id TEXT NOT NULL,
		booked_by_id TEXT NOT NULL,
		appointment_date DATETIME NOT NULL,
		appointment_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'CONFIRMED',
		payment_status TEXT NOT NULL DEFAULT 'PENDING',
		consultation_fee NUMERIC NOT NULL,
		total_amount NUMERIC NOT NULL,
		cancellation_reason TEXT,
		cancellation_date DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		appointment_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		payment_method TEXT NOT NULL,
		transaction_id TEXT UNIQUE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		paid_at DATETIME,
		refund_requested_at DATETIME,
		refunded_at DATETIME,
		refund_amount NUMERIC,
		needs_review BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		data TEXT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT,
		action TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME
	)`,
}

type testEnv struct {
	db *gorm.DB

	booking       BookingUsecase
	payments      PaymentUsecase
	slots         TimeSlotUsecase
	reports       ReportUsecase
	notifications NotificationUsecase

	agentID          uuid.UUID
	consultationFee  decimal.Decimal
	defaultTxTimeout time.Duration
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create test schema: %v", err)
		}
	}

	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := testLogger()

	timeSlotRepo := repository.NewTimeSlotRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	paymentRepo := repository.NewPaymentRepository()
	doctorRepo := repository.NewDoctorRepository()
	notificationRepo := repository.NewNotificationRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	auditService := service.NewAuditService(log, auditLogRepo)
	relay := service.NewRelayService(log, nil, "test:events", 8)
	slotCache := service.NewSlotCacheService(db, nil, log)
	t.Cleanup(relay.Stop)
	t.Cleanup(slotCache.Stop)

	txTimeout := 5 * time.Second

	agent := &entity.User{Email: "agent@test.local", FullName: "Test Agent", Role: entity.RoleAgent}
	if err := db.Create(agent).Error; err != nil {
		t.Fatalf("failed to create test agent: %v", err)
	}

	return &testEnv{
		db:               db,
		booking:          NewBookingUsecase(db, log, txTimeout, timeSlotRepo, appointmentRepo, paymentRepo, notificationRepo, auditService, relay, slotCache),
		payments:         NewPaymentUsecase(db, log, txTimeout, paymentRepo, appointmentRepo, notificationRepo, auditService, relay),
		slots:            NewTimeSlotUsecase(db, log, timeSlotRepo, doctorRepo, auditService, slotCache),
		reports:          NewReportUsecase(db, log, appointmentRepo, paymentRepo),
		notifications:    NewNotificationUsecase(db, log, notificationRepo),
		agentID:          agent.ID,
		consultationFee:  decimal.NewFromInt(50),
		defaultTxTimeout: txTimeout,
	}
}

// ctx returns a request context carrying the test agent's identity, the way
// the auth middleware would populate it.
func (e *testEnv) ctx() context.Context {
	return context.WithValue(context.Background(), middleware.UserIDKey, e.agentID)
}

func (e *testEnv) ctxFor(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.UserIDKey, userID)
}

// createSlot seeds a hospital, doctor and a future slot with the given capacity.
func (e *testEnv) createSlot(t *testing.T, maxAppointments int) *entity.TimeSlot {
	t.Helper()

	hospital := &entity.Hospital{Name: "Test Hospital", Address: "1 Test Way"}
	if err := e.db.Create(hospital).Error; err != nil {
		t.Fatalf("failed to create hospital: %v", err)
	}

	doctor := &entity.Doctor{
		HospitalID:     hospital.ID,
		FullName:       "Dr. Test",
		Specialization: "General Practice",
		DefaultFee:     e.consultationFee,
	}
	if err := e.db.Create(doctor).Error; err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}

	return e.createSlotFor(t, doctor, maxAppointments, "09:00")
}

func (e *testEnv) createSlotFor(t *testing.T, doctor *entity.Doctor, maxAppointments int, startTime string) *entity.TimeSlot {
	t.Helper()

	slot := &entity.TimeSlot{
		DoctorID:        doctor.ID,
		SlotDate:        time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour),
		StartTime:       startTime,
		EndTime:         "10:00",
		MaxAppointments: maxAppointments,
		ConsultationFee: e.consultationFee,
	}
	if err := e.db.Create(slot).Error; err != nil {
		t.Fatalf("failed to create slot: %v", err)
	}
	return slot
}

// slotBookings reads the capacity counter straight from the row.
func (e *testEnv) slotBookings(t *testing.T, slotID uuid.UUID) int {
	t.Helper()

	var slot entity.TimeSlot
	if err := e.db.Where("id = ?", slotID).First(&slot).Error; err != nil {
		t.Fatalf("failed to read slot %s: %v", slotID, err)
	}
	return slot.CurrentBookings
}

func (e *testEnv) loadPayment(t *testing.T, appointmentID uuid.UUID) *entity.Payment {
	t.Helper()

	var payment entity.Payment
	if err := e.db.Where("appointment_id = ?", appointmentID).First(&payment).Error; err != nil {
		t.Fatalf("failed to read payment for appointment %s: %v", appointmentID, err)
	}
	return &payment
}

func (e *testEnv) loadAppointment(t *testing.T, appointmentID uuid.UUID) *entity.Appointment {
	t.Helper()

	var appointment entity.Appointment
	if err := e.db.Where("id = ?", appointmentID).First(&appointment).Error; err != nil {
		t.Fatalf("failed to read appointment %s: %v", appointmentID, err)
	}
	return &appointment
}
