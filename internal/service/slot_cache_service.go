package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"agent-booking-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// mirrorReleaseScript bounds the release so the mirror never exceeds the slot's
// capacity even if claim/release pairs interleave with a re-sync.
var mirrorReleaseScript = redis.NewScript(`
	local v = redis.call('INCR', KEYS[1])
	local max = tonumber(ARGV[1])
	if v > max then
		redis.call('SET', KEYS[1], max)
		return max
	end
	return v
`)

// mirrorClaimScript decrements the remaining counter, flooring at zero.
var mirrorClaimScript = redis.NewScript(`
	local v = redis.call('DECR', KEYS[1])
	if v < 0 then
		redis.call('SET', KEYS[1], 0)
		return 0
	end
	return v
`)

const (
	// Redis key prefix for the remaining-capacity mirror
	slotRemainingKeyPrefix = "slot:remaining:"

	// Batch size for startup sync - process 500 slots at a time
	slotSyncBatchSize = 500

	// Interval for cleaning up stale per-slot mutexes
	slotMutexCleanupInterval = 10 * time.Minute
	slotMutexStaleThreshold  = 10 * time.Minute
)

// SlotCacheService mirrors remaining slot capacity into Redis so availability
// listings never hit the time_slots table on the hot path.
//
// The mirror is advisory only: the booking transaction's conditional UPDATE on
// the time_slots row is the sole authority on capacity. Mirror updates happen
// after commit, and a stale or missing key just falls back to a DB read.
type SlotCacheService struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger

	// Per-slot mutex so re-syncs don't race with claim/release mirroring
	slotMu sync.Map // map[uuid.UUID]*mutexWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// slotSyncRow holds remaining-capacity data from the batch query
type slotSyncRow struct {
	SlotID    uuid.UUID
	Remaining int
	SlotDate  time.Time
}

// NewSlotCacheService creates a SlotCacheService and starts the mutex cleanup
// goroutine. Call Stop() during graceful shutdown. redisClient may be nil, in
// which case every method is a no-op and readers fall back to the database.
func NewSlotCacheService(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *SlotCacheService {
	svc := &SlotCacheService{
		db:          db,
		redisClient: redisClient,
		log:         log,
		stopChan:    make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.cleanupMutexMapLoop()

	return svc
}

// Stop gracefully shuts down the service. Safe to call multiple times.
func (s *SlotCacheService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("SlotCacheService stopped")
	}
}

// SyncOnStartup rebuilds the mirror for all future active slots, in batches so
// a large inventory cannot pin one giant pipeline in memory. Should run before
// the server accepts traffic.
func (s *SlotCacheService) SyncOnStartup(ctx context.Context) error {
	if s.redisClient == nil {
		return nil
	}
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping slot mirror sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	s.log.Info("Starting slot capacity mirror sync from database...")
	startTime := time.Now()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	offset := 0
	totalSynced := 0

	for {
		var rows []slotSyncRow

		err := s.db.WithContext(ctx).Model(&entity.TimeSlot{}).
			Select("id as slot_id, max_appointments - current_bookings as remaining, slot_date").
			Where("slot_date >= ? AND is_active = ?", today, true).
			Order("id").
			Limit(slotSyncBatchSize).
			Offset(offset).
			Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("query slots at offset %d: %w", offset, err)
		}

		if len(rows) == 0 {
			break
		}

		// New pipeline per batch, executed before the next batch is loaded.
		pipe := s.redisClient.TxPipeline()
		for _, row := range rows {
			remaining := row.Remaining
			if remaining < 0 {
				s.log.Errorf("CRITICAL: slot %s has negative remaining capacity %d in database", row.SlotID, remaining)
				remaining = 0
			}
			pipe.Set(ctx, s.remainingKey(row.SlotID), remaining, s.calculateTTL(row.SlotDate))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(rows)
		if len(rows) < slotSyncBatchSize {
			break
		}
		offset += slotSyncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Slot mirror sync completed: %d slots in %v", totalSynced, time.Since(startTime))
	return nil
}

// SyncSlot overwrites one slot's mirror entry from its database row.
// Called after slot creation and capacity changes.
func (s *SlotCacheService) SyncSlot(ctx context.Context, slot *entity.TimeSlot) error {
	if s.redisClient == nil || slot == nil {
		return nil
	}

	mt := s.getSlotMutex(slot.ID)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	remaining := slot.RemainingCapacity()
	if slot.IsActive == nil || !*slot.IsActive {
		remaining = 0
	}

	key := s.remainingKey(slot.ID)
	if err := s.redisClient.Set(ctx, key, remaining, s.calculateTTL(slot.SlotDate)).Err(); err != nil {
		s.log.Warnf("Failed to sync slot mirror for %s: %+v", slot.ID, err)
		return fmt.Errorf("sync slot %s: %w", slot.ID, err)
	}

	s.log.Debugf("Synced slot mirror %s: remaining=%d", slot.ID, remaining)
	return nil
}

// MirrorClaim decrements the mirrored remaining count after a committed booking.
func (s *SlotCacheService) MirrorClaim(ctx context.Context, slotID uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	if err := mirrorClaimScript.Run(ctx, s.redisClient, []string{s.remainingKey(slotID)}).Err(); err != nil {
		s.log.Warnf("Failed to mirror claim for slot %s (non-fatal): %+v", slotID, err)
	}
}

// MirrorRelease increments the mirrored remaining count after a committed
// cancellation, bounded by the slot's capacity.
func (s *SlotCacheService) MirrorRelease(ctx context.Context, slotID uuid.UUID, maxAppointments int) {
	if s.redisClient == nil {
		return
	}
	mt := s.getSlotMutex(slotID)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if err := mirrorReleaseScript.Run(ctx, s.redisClient, []string{s.remainingKey(slotID)}, maxAppointments).Err(); err != nil {
		s.log.Warnf("Failed to mirror release for slot %s (non-fatal): %+v", slotID, err)
	}
}

// GetRemaining reads the mirrored remaining count. ok=false means cache miss or
// Redis unavailable; the caller should fall back to the database value.
func (s *SlotCacheService) GetRemaining(ctx context.Context, slotID uuid.UUID) (int, bool) {
	if s.redisClient == nil {
		return 0, false
	}
	remaining, err := s.redisClient.Get(ctx, s.remainingKey(slotID)).Int()
	if err != nil {
		if err != redis.Nil {
			s.log.Debugf("Slot mirror read failed for %s: %+v", slotID, err)
		}
		return 0, false
	}
	return remaining, true
}

// DeleteSlotKey removes the mirror entry after a slot is deactivated.
func (s *SlotCacheService) DeleteSlotKey(ctx context.Context, slotID uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	mt := s.getSlotMutex(slotID)
	mt.mu.Lock()
	defer func() {
		mt.mu.Unlock()
		s.slotMu.Delete(slotID)
	}()

	if err := s.redisClient.Del(ctx, s.remainingKey(slotID)).Err(); err != nil {
		s.log.Warnf("Failed to delete slot mirror key for %s: %+v", slotID, err)
	}
}

func (s *SlotCacheService) remainingKey(slotID uuid.UUID) string {
	return fmt.Sprintf("%s%s", slotRemainingKeyPrefix, slotID)
}

// calculateTTL keeps mirror keys until the end of the day after the slot date,
// so stale inventory expires on its own.
func (s *SlotCacheService) calculateTTL(slotDate time.Time) time.Duration {
	expireAt := slotDate.AddDate(0, 0, 2).Truncate(24 * time.Hour)
	ttl := time.Until(expireAt)
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}

func (s *SlotCacheService) getSlotMutex(slotID uuid.UUID) *mutexWithTimestamp {
	now := time.Now().Unix()
	if v, ok := s.slotMu.Load(slotID); ok {
		mt := v.(*mutexWithTimestamp)
		mt.lastUsed.Store(now)
		return mt
	}
	mt := &mutexWithTimestamp{}
	mt.lastUsed.Store(now)
	actual, _ := s.slotMu.LoadOrStore(slotID, mt)
	return actual.(*mutexWithTimestamp)
}

// cleanupMutexMapLoop drops mutexes unused for longer than the stale threshold.
func (s *SlotCacheService) cleanupMutexMapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(slotMutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-slotMutexStaleThreshold).Unix()
			removed := 0
			s.slotMu.Range(func(key, value interface{}) bool {
				mt := value.(*mutexWithTimestamp)
				if mt.lastUsed.Load() < cutoff {
					s.slotMu.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				s.log.Debugf("Cleaned up %d stale slot mutexes", removed)
			}
		}
	}
}
