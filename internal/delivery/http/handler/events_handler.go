package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agent-booking-portal/internal/service"
	"agent-booking-portal/pkg/response"

	"github.com/google/uuid"
)

// keepAliveInterval bounds how long a proxy sees an idle SSE connection.
const keepAliveInterval = 25 * time.Second

type EventsHandler struct {
	relay *service.RelayService
}

func NewEventsHandler(relay *service.RelayService) *EventsHandler {
	return &EventsHandler{relay: relay}
}

// Stream serves server-sent events filtered by the query parameters. Clients
// reconnect on drop; missed events are recoverable from the notifications list.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming is not supported")
		return
	}

	filter := service.EventFilter{
		Date: r.URL.Query().Get("date"),
	}
	if doctorID, err := uuid.Parse(r.URL.Query().Get("doctorId")); err == nil {
		filter.DoctorID = &doctorID
	}
	if appointmentID, err := uuid.Parse(r.URL.Query().Get("appointmentId")); err == nil {
		filter.AppointmentID = &appointmentID
	}

	sub := h.relay.Subscribe(filter)
	defer h.relay.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
