package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func newTestRelay(t *testing.T, bufSize int) *RelayService {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	relay := NewRelayService(log, nil, "test:events", bufSize)
	t.Cleanup(relay.Stop)
	return relay
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestRelayPublishSubscribe(t *testing.T) {
	relay := newTestRelay(t, 8)
	sub := relay.Subscribe(EventFilter{})
	defer relay.Unsubscribe(sub)

	doctorID := uuid.New()
	relay.Publish(context.Background(), Event{
		Type:     EventSlotBooked,
		DoctorID: doctorID,
		Date:     "2026-09-07",
	})

	ev := receive(t, sub)
	if ev.Type != EventSlotBooked {
		t.Errorf("type = %s, want %s", ev.Type, EventSlotBooked)
	}
	if ev.DoctorID != doctorID {
		t.Errorf("doctor = %s, want %s", ev.DoctorID, doctorID)
	}
	if ev.OccurredAt.IsZero() {
		t.Error("occurred_at not stamped")
	}
	if ev.Origin == "" {
		t.Error("origin not stamped")
	}
}

func TestRelayFilter(t *testing.T) {
	relay := newTestRelay(t, 8)

	wantDoctor := uuid.New()
	otherDoctor := uuid.New()

	sub := relay.Subscribe(EventFilter{DoctorID: &wantDoctor, Date: "2026-09-07"})
	defer relay.Unsubscribe(sub)

	ctx := context.Background()
	relay.Publish(ctx, Event{Type: EventSlotBooked, DoctorID: otherDoctor, Date: "2026-09-07"})
	relay.Publish(ctx, Event{Type: EventSlotBooked, DoctorID: wantDoctor, Date: "2026-09-08"})
	relay.Publish(ctx, Event{Type: EventSlotReleased, DoctorID: wantDoctor, Date: "2026-09-07"})

	// Only the third event matches both filter fields.
	ev := receive(t, sub)
	if ev.Type != EventSlotReleased {
		t.Errorf("type = %s, want %s", ev.Type, EventSlotReleased)
	}
	select {
	case extra := <-sub.Events():
		t.Errorf("unexpected extra event %s", extra.Type)
	default:
	}
}

func TestRelayDropsWhenBufferFull(t *testing.T) {
	const bufSize = 4
	relay := newTestRelay(t, bufSize)
	sub := relay.Subscribe(EventFilter{})
	defer relay.Unsubscribe(sub)

	ctx := context.Background()
	for i := 0; i < bufSize+3; i++ {
		relay.Publish(ctx, Event{Type: EventSlotBooked})
	}

	// The channel holds exactly bufSize events; the rest were dropped, and
	// publishing never blocked.
	if got := len(sub.Events()); got != bufSize {
		t.Errorf("buffered events = %d, want %d", got, bufSize)
	}
}

func TestRelayUnsubscribeClosesChannel(t *testing.T) {
	relay := newTestRelay(t, 8)
	sub := relay.Subscribe(EventFilter{})

	relay.Unsubscribe(sub)
	if _, ok := <-sub.Events(); ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Idempotent, and a publish afterwards must not panic on the closed channel.
	relay.Unsubscribe(sub)
	relay.Publish(context.Background(), Event{Type: EventSlotBooked})
}

func TestRelayStopClosesAllSubscriptions(t *testing.T) {
	relay := newTestRelay(t, 8)
	first := relay.Subscribe(EventFilter{})
	second := relay.Subscribe(EventFilter{})

	relay.Stop()

	if _, ok := <-first.Events(); ok {
		t.Error("first subscription still open after Stop")
	}
	if _, ok := <-second.Events(); ok {
		t.Error("second subscription still open after Stop")
	}

	// Stop is safe to call again.
	relay.Stop()
}
