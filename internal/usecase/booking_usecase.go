package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"agent-booking-portal/internal/converter"
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/delivery/http/middleware"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/domain/repository"
	"agent-booking-portal/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrSlotInactive        = errors.New("time slot is not active")
	ErrSlotInPast          = errors.New("cannot book a past time slot")
	ErrSlotFull            = errors.New("time slot has no remaining capacity")
	ErrLockTimeout         = errors.New("slot is contended, please retry")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentTerminal = errors.New("appointment is already in a terminal state")
	ErrCapacityUnderflow   = errors.New("slot capacity release would go below zero")
	ErrInvalidTransition   = errors.New("illegal status transition")
)

type BookingUsecase interface {
	BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error)
	RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	ListMyAppointments(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
}

type bookingUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	txTimeout        time.Duration
	slotRepo         repository.TimeSlotRepository
	appointmentRepo  repository.AppointmentRepository
	paymentRepo      repository.PaymentRepository
	notificationRepo repository.NotificationRepository
	auditService     service.AuditService
	relay            *service.RelayService
	slotCache        *service.SlotCacheService
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txTimeout time.Duration,
	slotRepo repository.TimeSlotRepository,
	appointmentRepo repository.AppointmentRepository,
	paymentRepo repository.PaymentRepository,
	notificationRepo repository.NotificationRepository,
	auditService service.AuditService,
	relay *service.RelayService,
	slotCache *service.SlotCacheService,
) BookingUsecase {
	return &bookingUsecase{
		db:               db,
		log:              log,
		txTimeout:        txTimeout,
		slotRepo:         slotRepo,
		appointmentRepo:  appointmentRepo,
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		auditService:     auditService,
		relay:            relay,
		slotCache:        slotCache,
	}
}

// BookAppointment turns a slot selection into a consistent appointment+payment
// pair inside one transaction.
//
// The capacity check and increment are a single conditional UPDATE, so two
// agents racing for the last opening serialize inside the database: exactly one
// gets the row, the other gets ErrSlotFull. Relay fan-out and the Redis mirror
// run after commit and can never roll the booking back.
func (u *bookingUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	slot, err := u.slotRepo.FindByID(u.db.WithContext(ctx), req.TimeSlotID)
	if err != nil {
		u.log.Warnf("Failed to find slot %s: %+v", req.TimeSlotID, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if slot.IsActive == nil || !*slot.IsActive {
		return nil, ErrSlotInactive
	}
	if slot.SlotDate.Before(today) {
		return nil, ErrSlotInPast
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	var appointment *entity.Appointment

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		claimed, err := u.slotRepo.ClaimCapacity(tx, slot.ID)
		if err != nil {
			return err
		}
		if claimed == 0 {
			// Zero rows means full or deactivated since we read the slot;
			// re-read inside the transaction to report the right error.
			fresh, err := u.slotRepo.FindByID(tx, slot.ID)
			if err != nil {
				return err
			}
			if fresh == nil {
				return ErrSlotNotFound
			}
			if fresh.IsActive == nil || !*fresh.IsActive {
				return ErrSlotInactive
			}
			return ErrSlotFull
		}

		appointment = &entity.Appointment{
			AppointmentNumber: generateAppointmentNumber(slot.SlotDate),
			PatientName:       req.PatientName,
			PatientContact:    req.PatientContact,
			DoctorID:          slot.DoctorID,
			HospitalID:        slot.Doctor.HospitalID,
			TimeSlotID:        slot.ID,
			BookedByID:        agentID,
			AppointmentDate:   slot.SlotDate,
			AppointmentTime:   slot.StartTime,
			Status:            entity.AppointmentStatusConfirmed,
			PaymentStatus:     entity.PaymentStatusPending,
			ConsultationFee:   slot.ConsultationFee,
			TotalAmount:       slot.ConsultationFee,
		}
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}

		payment := &entity.Payment{
			AppointmentID: appointment.ID,
			Amount:        appointment.TotalAmount,
			Currency:      currency,
			PaymentMethod: req.PaymentMethod,
			Status:        entity.PaymentStatusPending,
		}
		if err := u.paymentRepo.Create(tx, payment); err != nil {
			return err
		}

		return u.auditService.LogChange(tx, &agentID, entity.AuditActionAppointmentBook,
			"appointment", appointment.ID.String(), nil, map[string]interface{}{
				"appointment_number": appointment.AppointmentNumber,
				"time_slot_id":       slot.ID.String(),
				"patient_name":       req.PatientName,
			})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			u.log.Warnf("Booking transaction for slot %s timed out: %+v", slot.ID, err)
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.afterCommit(func(bg context.Context) {
		u.slotCache.MirrorClaim(bg, slot.ID)
		u.relay.Publish(bg, service.Event{
			Type:          service.EventSlotBooked,
			DoctorID:      slot.DoctorID,
			Date:          slot.SlotDate.Format("2006-01-02"),
			AppointmentID: appointment.ID,
			UserID:        agentID,
			Payload: map[string]interface{}{
				"appointment_number": appointment.AppointmentNumber,
				"time_slot_id":       slot.ID.String(),
			},
		})
	})

	u.log.Infof("Appointment booked: id=%s, number=%s, slot=%s, agent=%s",
		appointment.ID, appointment.AppointmentNumber, slot.ID, agentID)

	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment), nil
	}
	return converter.AppointmentToResponse(full), nil
}

// CancelAppointment terminates a CONFIRMED appointment and releases its
// capacity unit back to the originating slot, all in one transaction.
func (u *bookingUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.CanTransitionTo(entity.AppointmentStatusCancelled) {
		return nil, ErrAppointmentTerminal
	}

	now := time.Now().UTC()
	var paymentOutcome entity.PaymentStatus

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.appointmentRepo.UpdateStatus(tx, appointmentID,
			entity.AppointmentStatusConfirmed, entity.AppointmentStatusCancelled,
			map[string]interface{}{
				"cancellation_reason": req.Reason,
				"cancellation_date":   now,
			})
		if err != nil {
			return err
		}
		if updated == 0 {
			// Lost the race to another terminal transition.
			return ErrAppointmentTerminal
		}

		released, err := u.slotRepo.ReleaseCapacity(tx, appointment.TimeSlotID)
		if err != nil {
			return err
		}
		if released == 0 {
			u.log.Errorf("CRITICAL: capacity release for slot %s would go below zero (appointment %s)",
				appointment.TimeSlotID, appointmentID)
			return ErrCapacityUnderflow
		}

		payment, err := u.paymentRepo.FindActiveByAppointmentID(tx, appointmentID)
		if err != nil {
			return err
		}
		if payment != nil {
			switch payment.Status {
			case entity.PaymentStatusPending:
				if _, err := u.paymentRepo.UpdateStatus(tx, payment.ID,
					entity.PaymentStatusPending, entity.PaymentStatusCancelled, nil); err != nil {
					return err
				}
				paymentOutcome = entity.PaymentStatusCancelled
			case entity.PaymentStatusCompleted:
				// Refund is an external gateway call: mark it requested and let
				// the gateway callback drive COMPLETED -> REFUNDED.
				if _, err := u.paymentRepo.UpdateStatus(tx, payment.ID,
					entity.PaymentStatusCompleted, entity.PaymentStatusCompleted,
					map[string]interface{}{"refund_requested_at": now}); err != nil {
					return err
				}
				paymentOutcome = entity.PaymentStatusCompleted
			}
			if paymentOutcome == entity.PaymentStatusCancelled {
				if err := u.appointmentRepo.UpdatePaymentStatus(tx, appointmentID, entity.PaymentStatusCancelled); err != nil {
					return err
				}
			}
		}

		return u.auditService.LogChange(tx, &agentID, entity.AuditActionAppointmentCancel,
			"appointment", appointmentID.String(),
			map[string]interface{}{"status": string(entity.AppointmentStatusConfirmed)},
			map[string]interface{}{"status": string(entity.AppointmentStatusCancelled), "reason": req.Reason})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.afterCommit(func(bg context.Context) {
		u.slotCache.MirrorRelease(bg, appointment.TimeSlotID, appointment.TimeSlot.MaxAppointments)
		date := appointment.AppointmentDate.Format("2006-01-02")
		u.relay.Publish(bg, service.Event{
			Type:          service.EventApptCancelled,
			DoctorID:      appointment.DoctorID,
			Date:          date,
			AppointmentID: appointmentID,
			UserID:        appointment.BookedByID,
			Payload:       map[string]interface{}{"reason": req.Reason},
		})
		u.relay.Publish(bg, service.Event{
			Type:     service.EventSlotReleased,
			DoctorID: appointment.DoctorID,
			Date:     date,
			Payload:  map[string]interface{}{"time_slot_id": appointment.TimeSlotID.String()},
		})
		u.notify(bg, appointment.BookedByID, "Appointment cancelled",
			fmt.Sprintf("Appointment %s was cancelled: %s", appointment.AppointmentNumber, req.Reason),
			entity.NotificationTypeApptCancelled,
			entity.JSON{"appointment_id": appointmentID.String()})
	})

	u.log.Infof("Appointment cancelled: id=%s, reason=%q, agent=%s", appointmentID, req.Reason, agentID)

	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil || full == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(full), nil
}

// RescheduleAppointment moves a CONFIRMED appointment to a new slot as one unit
// of work: the new slot is claimed first, so a full new slot aborts the whole
// operation and the original booking stays untouched. The old row is kept as
// RESCHEDULED (rows are never deleted) and a successor row carries the booking
// forward, with the active payment re-pointed at it.
func (u *bookingUsecase) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.CanTransitionTo(entity.AppointmentStatusRescheduled) {
		return nil, ErrAppointmentTerminal
	}
	if appointment.TimeSlotID == req.NewTimeSlotID {
		return nil, ErrInvalidTransition
	}

	newSlot, err := u.slotRepo.FindByID(u.db.WithContext(ctx), req.NewTimeSlotID)
	if err != nil {
		return nil, err
	}
	if newSlot == nil {
		return nil, ErrSlotNotFound
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !newSlot.IsBookable(today) {
		if newSlot.IsActive == nil || !*newSlot.IsActive {
			return nil, ErrSlotInactive
		}
		return nil, ErrSlotInPast
	}

	var successor *entity.Appointment

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		// Claim the new slot first: if it is full the transaction aborts here
		// and the original appointment never moves.
		claimed, err := u.slotRepo.ClaimCapacity(tx, newSlot.ID)
		if err != nil {
			return err
		}
		if claimed == 0 {
			return ErrSlotFull
		}

		released, err := u.slotRepo.ReleaseCapacity(tx, appointment.TimeSlotID)
		if err != nil {
			return err
		}
		if released == 0 {
			u.log.Errorf("CRITICAL: capacity release for slot %s would go below zero (reschedule of %s)",
				appointment.TimeSlotID, appointmentID)
			return ErrCapacityUnderflow
		}

		updated, err := u.appointmentRepo.UpdateStatus(tx, appointmentID,
			entity.AppointmentStatusConfirmed, entity.AppointmentStatusRescheduled, nil)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrAppointmentTerminal
		}

		successor = &entity.Appointment{
			AppointmentNumber: generateAppointmentNumber(newSlot.SlotDate),
			PatientName:       appointment.PatientName,
			PatientContact:    appointment.PatientContact,
			DoctorID:          newSlot.DoctorID,
			HospitalID:        newSlot.Doctor.HospitalID,
			TimeSlotID:        newSlot.ID,
			BookedByID:        appointment.BookedByID,
			AppointmentDate:   newSlot.SlotDate,
			AppointmentTime:   newSlot.StartTime,
			Status:            entity.AppointmentStatusConfirmed,
			PaymentStatus:     appointment.PaymentStatus,
			ConsultationFee:   appointment.ConsultationFee,
			TotalAmount:       appointment.TotalAmount,
		}
		if err := u.appointmentRepo.Create(tx, successor); err != nil {
			return err
		}

		payment, err := u.paymentRepo.FindActiveByAppointmentID(tx, appointmentID)
		if err != nil {
			return err
		}
		if payment != nil {
			if err := u.paymentRepo.Reassign(tx, payment.ID, successor.ID); err != nil {
				return err
			}
		}

		return u.auditService.LogChange(tx, &agentID, entity.AuditActionAppointmentReschedule,
			"appointment", appointmentID.String(),
			map[string]interface{}{"time_slot_id": appointment.TimeSlotID.String()},
			map[string]interface{}{"time_slot_id": newSlot.ID.String(), "successor_id": successor.ID.String()})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.afterCommit(func(bg context.Context) {
		u.slotCache.MirrorRelease(bg, appointment.TimeSlotID, appointment.TimeSlot.MaxAppointments)
		u.slotCache.MirrorClaim(bg, newSlot.ID)
		u.relay.Publish(bg, service.Event{
			Type:     service.EventSlotReleased,
			DoctorID: appointment.DoctorID,
			Date:     appointment.AppointmentDate.Format("2006-01-02"),
			Payload:  map[string]interface{}{"time_slot_id": appointment.TimeSlotID.String()},
		})
		u.relay.Publish(bg, service.Event{
			Type:          service.EventSlotBooked,
			DoctorID:      newSlot.DoctorID,
			Date:          newSlot.SlotDate.Format("2006-01-02"),
			AppointmentID: successor.ID,
			UserID:        appointment.BookedByID,
			Payload:       map[string]interface{}{"time_slot_id": newSlot.ID.String(), "rescheduled_from": appointmentID.String()},
		})
	})

	u.log.Infof("Appointment rescheduled: old=%s, new=%s, slot=%s", appointmentID, successor.ID, newSlot.ID)

	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), successor.ID)
	if err != nil || full == nil {
		return converter.AppointmentToResponse(successor), nil
	}
	return converter.AppointmentToResponse(full), nil
}

// UpdateAppointmentStatus handles the post-visit transitions. COMPLETED keeps
// the capacity unit (the visit happened); NO_SHOW releases it.
func (u *bookingUsecase) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	target := entity.AppointmentStatus(req.Status)
	if target != entity.AppointmentStatusCompleted && target != entity.AppointmentStatusNoShow {
		return nil, ErrInvalidTransition
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.CanTransitionTo(target) {
		return nil, ErrInvalidTransition
	}

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.appointmentRepo.UpdateStatus(tx, appointmentID,
			entity.AppointmentStatusConfirmed, target, nil)
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrAppointmentTerminal
		}

		if target == entity.AppointmentStatusNoShow {
			released, err := u.slotRepo.ReleaseCapacity(tx, appointment.TimeSlotID)
			if err != nil {
				return err
			}
			if released == 0 {
				u.log.Errorf("CRITICAL: capacity release for slot %s would go below zero (no-show on %s)",
					appointment.TimeSlotID, appointmentID)
				return ErrCapacityUnderflow
			}
		}

		return u.auditService.LogChange(tx, &agentID, entity.AuditActionAppointmentStatus,
			"appointment", appointmentID.String(),
			map[string]interface{}{"status": string(appointment.Status)},
			map[string]interface{}{"status": string(target)})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.afterCommit(func(bg context.Context) {
		if target == entity.AppointmentStatusNoShow {
			u.slotCache.MirrorRelease(bg, appointment.TimeSlotID, appointment.TimeSlot.MaxAppointments)
		}
		u.relay.Publish(bg, service.Event{
			Type:          service.EventApptStatusChanged,
			DoctorID:      appointment.DoctorID,
			Date:          appointment.AppointmentDate.Format("2006-01-02"),
			AppointmentID: appointmentID,
			UserID:        appointment.BookedByID,
			Payload:       map[string]interface{}{"status": string(target)},
		})
	})

	full, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil || full == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(full), nil
}

func (u *bookingUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *bookingUsecase) ListMyAppointments(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	if filter == nil {
		filter = &entity.AppointmentFilter{}
	}
	filter.BookedByID = &agentID

	appointments, total, err := u.appointmentRepo.FindByFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments for agent %s: %+v", agentID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}

// afterCommit runs post-commit side effects (relay, cache mirror, notification
// rows) detached from the request: fire-and-forget with its own deadline.
func (u *bookingUsecase) afterCommit(fn func(ctx context.Context)) {
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(bg)
	}()
}

// notify persists a per-recipient notification row; failures are logged and
// swallowed, never surfaced to the booking caller.
func (u *bookingUsecase) notify(ctx context.Context, userID uuid.UUID, title, message, notifType string, data entity.JSON) {
	notification := &entity.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
		Data:    data,
	}
	if err := u.notificationRepo.Create(u.db.WithContext(ctx), notification); err != nil {
		u.log.Warnf("Failed to persist notification for user %s (non-fatal): %+v", userID, err)
	}
}

// generateAppointmentNumber generates a unique human-readable number:
// APT-YYYYMMDD-XXXXXX
func generateAppointmentNumber(slotDate time.Time) string {
	dateStr := slotDate.Format("20060102")
	randomBytes := make([]byte, 3)
	if _, err := rand.Read(randomBytes); err != nil {
		// No entropy source; a clock-derived suffix still beats a zeroed one.
		return fmt.Sprintf("APT-%s-%06X", dateStr, time.Now().UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("APT-%s-%06X", dateStr, randomBytes)
}
