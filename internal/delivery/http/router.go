package http

import (
	"net/http"

	"agent-booking-portal/internal/delivery/http/handler"
	"agent-booking-portal/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	bookingHandler      *handler.BookingHandler
	timeSlotHandler     *handler.TimeSlotHandler
	paymentHandler      *handler.PaymentHandler
	doctorHandler       *handler.DoctorHandler
	reportHandler       *handler.ReportHandler
	notificationHandler *handler.NotificationHandler
	eventsHandler       *handler.EventsHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	bookingHandler *handler.BookingHandler,
	timeSlotHandler *handler.TimeSlotHandler,
	paymentHandler *handler.PaymentHandler,
	doctorHandler *handler.DoctorHandler,
	reportHandler *handler.ReportHandler,
	notificationHandler *handler.NotificationHandler,
	eventsHandler *handler.EventsHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		bookingHandler:      bookingHandler,
		timeSlotHandler:     timeSlotHandler,
		paymentHandler:      paymentHandler,
		doctorHandler:       doctorHandler,
		reportHandler:       reportHandler,
		notificationHandler: notificationHandler,
		eventsHandler:       eventsHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Gateway webhook (public; the gateway authenticates at the network layer)
	api.HandleFunc("/payments/webhook", r.paymentHandler.GatewayCallback).Methods(http.MethodPost)

	// Agent routes (protected)
	agent := api.PathPrefix("").Subrouter()
	agent.Use(r.authMiddleware.Authenticate)
	agent.Use(middleware.RequireAgent)

	// Browsing
	agent.HandleFunc("/hospitals", r.doctorHandler.ListHospitals).Methods(http.MethodGet)
	agent.HandleFunc("/doctors", r.doctorHandler.SearchDoctors).Methods(http.MethodGet)
	agent.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	agent.HandleFunc("/time-slots", r.timeSlotHandler.ListSlots).Methods(http.MethodGet)
	agent.HandleFunc("/time-slots/{id}", r.timeSlotHandler.GetSlot).Methods(http.MethodGet)

	// Booking lifecycle
	agent.HandleFunc("/appointments", r.bookingHandler.BookAppointment).Methods(http.MethodPost)
	agent.HandleFunc("/appointments", r.bookingHandler.ListMyAppointments).Methods(http.MethodGet)
	agent.HandleFunc("/appointments/{id}", r.bookingHandler.GetAppointment).Methods(http.MethodGet)
	agent.HandleFunc("/appointments/{id}/cancel", r.bookingHandler.CancelAppointment).Methods(http.MethodPatch)
	agent.HandleFunc("/appointments/{id}/reschedule", r.bookingHandler.RescheduleAppointment).Methods(http.MethodPatch)
	agent.HandleFunc("/appointments/{id}/status", r.bookingHandler.UpdateAppointmentStatus).Methods(http.MethodPatch)

	// Payments
	agent.HandleFunc("/payments/{id}", r.paymentHandler.GetPayment).Methods(http.MethodGet)
	agent.HandleFunc("/payments/{id}/refund", r.paymentHandler.RefundPayment).Methods(http.MethodPost)

	// Notifications and live events
	agent.HandleFunc("/notifications", r.notificationHandler.ListMyNotifications).Methods(http.MethodGet)
	agent.HandleFunc("/notifications/read-all", r.notificationHandler.MarkAllRead).Methods(http.MethodPatch)
	agent.HandleFunc("/notifications/{id}/read", r.notificationHandler.MarkRead).Methods(http.MethodPatch)
	agent.HandleFunc("/events", r.eventsHandler.Stream).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Doctor management (admin)
	admin.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.DeactivateDoctor).Methods(http.MethodDelete)

	// Slot management (admin)
	admin.HandleFunc("/time-slots", r.timeSlotHandler.CreateSlot).Methods(http.MethodPost)
	admin.HandleFunc("/time-slots/{id}/capacity", r.timeSlotHandler.UpdateCapacity).Methods(http.MethodPatch)
	admin.HandleFunc("/time-slots/{id}", r.timeSlotHandler.DeactivateSlot).Methods(http.MethodDelete)

	// Reporting (admin)
	admin.HandleFunc("/reports/summary", r.reportHandler.Summary).Methods(http.MethodGet)
	admin.HandleFunc("/reports/appointments/export", r.reportHandler.ExportAppointments).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
