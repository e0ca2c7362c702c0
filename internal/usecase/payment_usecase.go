package usecase

import (
	"context"
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
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrRefundExceedsAmount = errors.New("refund amount exceeds the paid amount")
	ErrRefundAmountInvalid = errors.New("refund amount must be positive")
)

type PaymentUsecase interface {
	HandleGatewayCallback(ctx context.Context, req *dto.GatewayCallbackRequest) (*dto.PaymentResponse, error)
	RefundPayment(ctx context.Context, paymentID uuid.UUID, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*dto.PaymentResponse, error)
}

type paymentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	txTimeout        time.Duration
	paymentRepo      repository.PaymentRepository
	appointmentRepo  repository.AppointmentRepository
	notificationRepo repository.NotificationRepository
	auditService     service.AuditService
	relay            *service.RelayService
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txTimeout time.Duration,
	paymentRepo repository.PaymentRepository,
	appointmentRepo repository.AppointmentRepository,
	notificationRepo repository.NotificationRepository,
	auditService service.AuditService,
	relay *service.RelayService,
) PaymentUsecase {
	return &paymentUsecase{
		db:               db,
		log:              log,
		txTimeout:        txTimeout,
		paymentRepo:      paymentRepo,
		appointmentRepo:  appointmentRepo,
		notificationRepo: notificationRepo,
		auditService:     auditService,
		relay:            relay,
	}
}

// HandleGatewayCallback applies a gateway-driven payment transition. Illegal
// moves are rejected with ErrInvalidTransition and logged, never coerced: a
// webhook for an already-terminal payment is a data error worth investigating,
// not something to paper over.
func (u *paymentUsecase) HandleGatewayCallback(ctx context.Context, req *dto.GatewayCallbackRequest) (*dto.PaymentResponse, error) {
	payment, err := u.findPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	target := entity.PaymentStatus(req.Status)
	if !payment.CanTransitionTo(target) {
		u.log.Errorf("Rejected illegal payment transition %s -> %s for payment %s (txn %q)",
			payment.Status, target, payment.ID, req.TransactionID)
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{}
	switch target {
	case entity.PaymentStatusCompleted:
		fields["paid_at"] = now
		if req.TransactionID != "" {
			fields["transaction_id"] = req.TransactionID
		}
	case entity.PaymentStatusRefunded:
		refundAmount := payment.Amount
		if req.RefundAmount != nil {
			refundAmount = *req.RefundAmount
		}
		if refundAmount.LessThanOrEqual(decimal.Zero) {
			return nil, ErrRefundAmountInvalid
		}
		if refundAmount.GreaterThan(payment.Amount) {
			return nil, ErrRefundExceedsAmount
		}
		fields["refunded_at"] = now
		fields["refund_amount"] = refundAmount
	}

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.paymentRepo.UpdateStatus(tx, payment.ID, payment.Status, target, fields)
		if err != nil {
			return err
		}
		if updated == 0 {
			// A concurrent transition won; re-reading would just confirm the
			// state machine already moved on.
			return ErrInvalidTransition
		}

		if err := u.appointmentRepo.UpdatePaymentStatus(tx, payment.AppointmentID, target); err != nil {
			return err
		}

		return u.auditService.LogChange(tx, nil, entity.AuditActionPaymentCallback,
			"payment", payment.ID.String(),
			map[string]interface{}{"status": string(payment.Status)},
			map[string]interface{}{"status": string(target), "transaction_id": req.TransactionID})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.publishPaymentChange(payment, target)

	u.log.Infof("Payment %s transitioned %s -> %s via gateway callback", payment.ID, payment.Status, target)

	fresh, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), payment.ID)
	if err != nil || fresh == nil {
		return converter.PaymentToResponse(payment), nil
	}
	return converter.PaymentToResponse(fresh), nil
}

// RefundPayment is the agent-initiated refund: COMPLETED -> REFUNDED with a
// bounded refund amount (defaults to the full amount).
func (u *paymentUsecase) RefundPayment(ctx context.Context, paymentID uuid.UUID, req *dto.RefundPaymentRequest) (*dto.PaymentResponse, error) {
	agentID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	payment, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !payment.CanTransitionTo(entity.PaymentStatusRefunded) {
		return nil, ErrInvalidTransition
	}

	refundAmount := payment.Amount
	if req != nil && req.Amount != nil {
		refundAmount = *req.Amount
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrRefundAmountInvalid
	}
	if refundAmount.GreaterThan(payment.Amount) {
		return nil, ErrRefundExceedsAmount
	}

	now := time.Now().UTC()

	txCtx, cancel := context.WithTimeout(ctx, u.txTimeout)
	defer cancel()

	err = u.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		updated, err := u.paymentRepo.UpdateStatus(tx, payment.ID,
			entity.PaymentStatusCompleted, entity.PaymentStatusRefunded,
			map[string]interface{}{
				"refunded_at":   now,
				"refund_amount": refundAmount,
			})
		if err != nil {
			return err
		}
		if updated == 0 {
			return ErrInvalidTransition
		}

		if err := u.appointmentRepo.UpdatePaymentStatus(tx, payment.AppointmentID, entity.PaymentStatusRefunded); err != nil {
			return err
		}

		return u.auditService.LogChange(tx, &agentID, entity.AuditActionPaymentRefund,
			"payment", payment.ID.String(),
			map[string]interface{}{"status": string(entity.PaymentStatusCompleted)},
			map[string]interface{}{"status": string(entity.PaymentStatusRefunded), "refund_amount": refundAmount.String()})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}

	u.publishPaymentChange(payment, entity.PaymentStatusRefunded)

	u.log.Infof("Payment %s refunded %s by agent %s", payment.ID, refundAmount, agentID)

	fresh, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), payment.ID)
	if err != nil || fresh == nil {
		return converter.PaymentToResponse(payment), nil
	}
	return converter.PaymentToResponse(fresh), nil
}

func (u *paymentUsecase) GetPayment(ctx context.Context, paymentID uuid.UUID) (*dto.PaymentResponse, error) {
	payment, err := u.paymentRepo.FindByID(u.db.WithContext(ctx), paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return converter.PaymentToResponse(payment), nil
}

func (u *paymentUsecase) findPayment(ctx context.Context, req *dto.GatewayCallbackRequest) (*entity.Payment, error) {
	db := u.db.WithContext(ctx)
	if req.PaymentID != nil {
		payment, err := u.paymentRepo.FindByID(db, *req.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		return payment, nil
	}

	payment, err := u.paymentRepo.FindByTransactionID(db, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// publishPaymentChange fans out the payment transition and records a
// notification row for the booking agent. Fire-and-forget.
func (u *paymentUsecase) publishPaymentChange(payment *entity.Payment, target entity.PaymentStatus) {
	appointmentID := payment.AppointmentID
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(bg), appointmentID)
		if err != nil || appointment == nil {
			u.log.Warnf("Failed to load appointment %s for payment event (non-fatal): %+v", appointmentID, err)
			return
		}

		u.relay.Publish(bg, service.Event{
			Type:          service.EventPaymentChanged,
			DoctorID:      appointment.DoctorID,
			Date:          appointment.AppointmentDate.Format("2006-01-02"),
			AppointmentID: appointment.ID,
			UserID:        appointment.BookedByID,
			Payload: map[string]interface{}{
				"payment_id": payment.ID.String(),
				"status":     string(target),
			},
		})

		notification := &entity.Notification{
			UserID:  appointment.BookedByID,
			Title:   "Payment update",
			Message: fmt.Sprintf("Payment for appointment %s is now %s", appointment.AppointmentNumber, target),
			Type:    entity.NotificationTypePaymentChanged,
			Data:    entity.JSON{"payment_id": payment.ID.String(), "appointment_id": appointment.ID.String()},
		}
		if err := u.notificationRepo.Create(u.db.WithContext(bg), notification); err != nil {
			u.log.Warnf("Failed to persist payment notification (non-fatal): %+v", err)
		}
	}()
}
