package usecase

import (
	"context"
	"encoding/csv"
	"io"

	"agent-booking-portal/internal/converter"
	"agent-booking-portal/internal/delivery/dto"
	"agent-booking-portal/internal/domain/entity"
	"agent-booking-portal/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportUsecase is the read-only aggregation surface over the two ledgers.
// It owns no state and never mutates anything.
type ReportUsecase interface {
	Summary(ctx context.Context, from, to string) (*dto.ReportSummaryResponse, error)
	ExportAppointmentsCSV(ctx context.Context, w io.Writer, filter *entity.AppointmentFilter) error
	ExportAppointmentsJSON(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
}

type reportUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	paymentRepo     repository.PaymentRepository
}

func NewReportUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	paymentRepo repository.PaymentRepository,
) ReportUsecase {
	return &reportUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		paymentRepo:     paymentRepo,
	}
}

func (u *reportUsecase) Summary(ctx context.Context, from, to string) (*dto.ReportSummaryResponse, error) {
	db := u.db.WithContext(ctx)
	filter := &entity.AppointmentFilter{DateFrom: from, DateTo: to}

	counts, err := u.appointmentRepo.CountByStatus(db, filter)
	if err != nil {
		u.log.Warnf("Failed to count appointments by status: %+v", err)
		return nil, err
	}

	byStatus := make(map[string]int64, len(counts))
	var total int64
	for _, c := range counts {
		byStatus[string(c.Status)] = c.Count
		total += c.Count
	}

	revenue, err := u.paymentRepo.SumCompleted(db, from, to)
	if err != nil {
		u.log.Warnf("Failed to sum completed payments: %+v", err)
		return nil, err
	}

	volumes, err := u.appointmentRepo.VolumeByDoctor(db, filter)
	if err != nil {
		u.log.Warnf("Failed to aggregate doctor volumes: %+v", err)
		return nil, err
	}

	doctors := make([]dto.DoctorVolumeSummary, len(volumes))
	for i, v := range volumes {
		doctors[i] = dto.DoctorVolumeSummary{
			DoctorID:     v.DoctorID,
			DoctorName:   v.DoctorName,
			Appointments: v.Appointments,
			Revenue:      v.Revenue,
		}
	}

	return &dto.ReportSummaryResponse{
		From:              from,
		To:                to,
		TotalAppointments: total,
		ByStatus:          byStatus,
		Revenue:           revenue,
		Doctors:           doctors,
	}, nil
}

var exportHeader = []string{
	"appointment_number", "patient_name", "doctor", "hospital",
	"date", "time", "status", "payment_status", "total_amount",
}

// ExportAppointmentsCSV streams the filtered appointment rows as CSV.
func (u *reportUsecase) ExportAppointmentsCSV(ctx context.Context, w io.Writer, filter *entity.AppointmentFilter) error {
	appointments, _, err := u.appointmentRepo.FindByFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range appointments {
		a := &appointments[i]
		record := []string{
			a.AppointmentNumber,
			a.PatientName,
			a.Doctor.FullName,
			a.Hospital.Name,
			a.AppointmentDate.Format("2006-01-02"),
			a.AppointmentTime,
			string(a.Status),
			string(a.PaymentStatus),
			a.TotalAmount.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (u *reportUsecase) ExportAppointmentsJSON(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	appointments, total, err := u.appointmentRepo.FindByFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		return nil, err
	}
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}
