package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay event types.
const (
	EventSlotBooked        = "slot:booked"
	EventSlotReleased      = "slot:released"
	EventApptCancelled     = "appointment:cancelled"
	EventApptStatusChanged = "appointment:status_changed"
	EventPaymentChanged    = "payment:status_changed"
)

// Event is a ledger-state-change broadcast to subscribed agent sessions.
type Event struct {
	Type          string                 `json:"type"`
	DoctorID      uuid.UUID              `json:"doctor_id,omitempty"`
	Date          string                 `json:"date,omitempty"`
	AppointmentID uuid.UUID              `json:"appointment_id,omitempty"`
	UserID        uuid.UUID              `json:"user_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Origin        string                 `json:"origin,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// EventFilter selects which events a subscription receives. Zero-value fields
// match everything; set fields must all match.
type EventFilter struct {
	DoctorID      *uuid.UUID
	Date          string
	AppointmentID *uuid.UUID
	UserID        *uuid.UUID
}

func (f *EventFilter) Matches(ev *Event) bool {
	if f.DoctorID != nil && *f.DoctorID != ev.DoctorID {
		return false
	}
	if f.Date != "" && f.Date != ev.Date {
		return false
	}
	if f.AppointmentID != nil && *f.AppointmentID != ev.AppointmentID {
		return false
	}
	if f.UserID != nil && *f.UserID != ev.UserID {
		return false
	}
	return true
}

// Subscription is a live event stream handle. Close it via Unsubscribe.
type Subscription struct {
	id     uint64
	filter EventFilter
	ch     chan Event
}

// Events returns the receive side of the subscription's buffered channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// RelayService fans out ledger events to in-process subscribers and mirrors
// them over a Redis pub/sub channel so other instances can fan out too.
//
// Delivery is best-effort: a subscriber with a full buffer loses the event and
// must re-sync by pulling state. Publish never blocks the booking path and
// relay failures are logged, never surfaced to the caller.
type RelayService struct {
	log         *logrus.Logger
	redisClient *redis.Client
	channel     string
	bufSize     int
	instanceID  string

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID atomic.Uint64

	// Graceful shutdown
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewRelayService creates a RelayService. redisClient may be nil, in which case
// the relay is purely in-process (single instance / tests).
func NewRelayService(log *logrus.Logger, redisClient *redis.Client, channel string, bufSize int) *RelayService {
	if bufSize <= 0 {
		bufSize = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	svc := &RelayService{
		log:         log,
		redisClient: redisClient,
		channel:     channel,
		bufSize:     bufSize,
		instanceID:  uuid.New().String(),
		subs:        make(map[uint64]*Subscription),
		cancel:      cancel,
	}

	if redisClient != nil {
		svc.wg.Add(1)
		go svc.listenLoop(ctx)
	}

	return svc
}

// Stop gracefully shuts down the relay. Safe to call multiple times.
func (s *RelayService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		for id, sub := range s.subs {
			close(sub.ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()
		s.log.Info("RelayService stopped")
	}
}

// Subscribe registers a filtered event stream for one agent session.
func (s *RelayService) Subscribe(filter EventFilter) *Subscription {
	sub := &Subscription{
		id:     s.nextID.Add(1),
		filter: filter,
		ch:     make(chan Event, s.bufSize),
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (s *RelayService) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.subs[sub.id]; ok {
		delete(s.subs, sub.id)
		close(sub.ch)
	}
	s.mu.Unlock()
}

// Publish fans an event out to local subscribers and to the Redis channel.
// Always called after the ledger transaction has committed, never inside it.
func (s *RelayService) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	ev.Origin = s.instanceID

	s.fanout(&ev)

	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(&ev)
	if err != nil {
		s.log.Warnf("Failed to marshal relay event %s: %+v", ev.Type, err)
		return
	}
	if err := s.redisClient.Publish(ctx, s.channel, data).Err(); err != nil {
		s.log.Warnf("Failed to publish relay event %s to Redis (non-fatal): %+v", ev.Type, err)
	}
}

// fanout delivers to matching local subscribers without ever blocking.
func (s *RelayService) fanout(ev *Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- *ev:
		default:
			// Slow consumer: drop, the client re-syncs via pull on reconnect.
			s.log.Debugf("Dropped relay event %s for subscriber %d (buffer full)", ev.Type, sub.id)
		}
	}
}

// listenLoop re-injects events published by other instances.
func (s *RelayService) listenLoop(ctx context.Context) {
	defer s.wg.Done()

	pubsub := s.redisClient.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Warnf("Failed to decode relay event from Redis: %+v", err)
				continue
			}
			// Local subscribers already got our own events in Publish.
			if ev.Origin == s.instanceID {
				continue
			}
			s.fanout(&ev)
		}
	}
}
