package handler

import (
	"net/http"

	"agent-booking-portal/internal/usecase"
	"agent-booking-portal/pkg/response"

	"github.com/sirupsen/logrus"
)

type ReportHandler struct {
	reportUsecase usecase.ReportUsecase
	log           *logrus.Logger
}

func NewReportHandler(reportUsecase usecase.ReportUsecase, log *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportUsecase: reportUsecase,
		log:           log,
	}
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	summary, err := h.reportUsecase.Summary(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		response.InternalServerError(w, "Failed to build report summary")
		return
	}

	response.Success(w, http.StatusOK, "Report summary retrieved successfully", summary)
}

func (h *ReportHandler) ExportAppointments(w http.ResponseWriter, r *http.Request) {
	filter := appointmentFilterFromQuery(r)

	if r.URL.Query().Get("format") == "json" {
		appointments, err := h.reportUsecase.ExportAppointmentsJSON(r.Context(), filter)
		if err != nil {
			response.InternalServerError(w, "Failed to export appointments")
			return
		}
		response.JSON(w, http.StatusOK, appointments)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)

	if err := h.reportUsecase.ExportAppointmentsCSV(r.Context(), w, filter); err != nil {
		// Headers may already be written; log and give up on the body.
		h.log.Warnf("Failed to stream appointment export: %+v", err)
	}
}
