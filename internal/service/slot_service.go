package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/timeslot"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned when any slot of a session is already held.
var ErrSlotTaken = errors.New("time slot is already booked")

// holdSlotsScript claims every key in KEYS for ARGV[1] or none of them.
// Returns 0 on success, otherwise the 1-based index of the first taken key.
// Keys already owned by ARGV[1] count as free so retries are idempotent.
var holdSlotsScript = redis.NewScript(`
	for i, key in ipairs(KEYS) do
		local owner = redis.call('GET', key)
		if owner and owner ~= ARGV[1] then
			return i
		end
	end
	for _, key in ipairs(KEYS) do
		redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
	end
	return 0
`)

// releaseSlotsScript deletes the keys still owned by ARGV[1] and returns how many.
var releaseSlotsScript = redis.NewScript(`
	local released = 0
	for _, key in ipairs(KEYS) do
		if redis.call('GET', key) == ARGV[1] then
			redis.call('DEL', key)
			released = released + 1
		end
	end
	return released
`)

const (
	RedisSlotKeyPrefix = "slot:"

	// Batch size for startup sync. A new pipeline is executed per batch.
	syncBatchSize = 500
)

// SlotService holds tutor time slots in Redis so concurrent bookings for the
// same slot are decided without database locks. PostgreSQL stays the source
// of truth; SyncOnStartup rebuilds the keys from it.
type SlotService struct {
	db          *gorm.DB
	redisClient *redis.Client
	bookingRepo repository.BookingRepository
	log         *logrus.Logger
	now         func() time.Time
}

func NewSlotService(db *gorm.DB, redisClient *redis.Client, bookingRepo repository.BookingRepository, log *logrus.Logger) *SlotService {
	return &SlotService{
		db:          db,
		redisClient: redisClient,
		bookingRepo: bookingRepo,
		log:         log,
		now:         time.Now,
	}
}

// Hold atomically claims slots for owner. Either all slots are claimed or
// ErrSlotTaken is returned and nothing changes.
func (s *SlotService) Hold(ctx context.Context, tutorID string, date time.Time, slots []string, owner string) error {
	keys := slotKeys(tutorID, date, slots)
	ttl := s.calculateTTL(date)

	result, err := holdSlotsScript.Run(ctx, s.redisClient, keys, owner, ttl.Milliseconds()).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script hold for tutor %s on %s: %+v", tutorID, date.Format(time.DateOnly), err)
		return fmt.Errorf("lua hold slots for tutor %s: %w", tutorID, err)
	}
	if result != 0 {
		s.log.Debugf("Slot %s taken for tutor %s", keys[result-1], tutorID)
		return ErrSlotTaken
	}

	s.log.Debugf("Held %d slot(s) for tutor %s as %s", len(keys), tutorID, owner)
	return nil
}

// Release frees the slots still held by owner and returns how many were freed.
func (s *SlotService) Release(ctx context.Context, tutorID string, date time.Time, slots []string, owner string) (int, error) {
	keys := slotKeys(tutorID, date, slots)

	released, err := releaseSlotsScript.Run(ctx, s.redisClient, keys, owner).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script release for tutor %s: %+v", tutorID, err)
		return 0, fmt.Errorf("lua release slots for tutor %s: %w", tutorID, err)
	}

	s.log.Debugf("Released %d slot(s) for tutor %s", released, tutorID)
	return released, nil
}

// Held reports which of slots are currently held in Redis.
func (s *SlotService) Held(ctx context.Context, tutorID string, date time.Time, slots []string) (map[string]bool, error) {
	held := make(map[string]bool, len(slots))
	if len(slots) == 0 {
		return held, nil
	}

	values, err := s.redisClient.MGet(ctx, slotKeys(tutorID, date, slots)...).Result()
	if err != nil {
		return nil, fmt.Errorf("read slots for tutor %s: %w", tutorID, err)
	}
	for i, v := range values {
		if v != nil {
			held[slots[i]] = true
		}
	}
	return held, nil
}

// SyncOnStartup rebuilds slot keys for every upcoming non-cancelled booking.
// Should be called before accepting traffic.
func (s *SlotService) SyncOnStartup(ctx context.Context) error {
	s.log.Info("Starting Redis slot re-sync from database...")
	startTime := s.now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	filter := entity.SlotFilter{From: startOfDay(s.now())}
	offset := 0
	totalSynced := 0

	for {
		bookings, err := s.bookingRepo.FindActive(ctx, s.db, filter, syncBatchSize, offset)
		if err != nil {
			s.log.Errorf("Failed to query bookings at offset %d: %+v", offset, err)
			return fmt.Errorf("query bookings at offset %d: %w", offset, err)
		}
		if len(bookings) == 0 {
			if offset == 0 {
				s.log.Info("No upcoming bookings found for sync")
			}
			break
		}

		pipe := s.redisClient.TxPipeline()
		for _, b := range bookings {
			slots, err := timeslot.Span(b.StartTime, b.DurationMinutes)
			if err != nil {
				s.log.Warnf("Skipping booking %s with invalid slot %s/%d: %+v", b.ID, b.StartTime, b.DurationMinutes, err)
				continue
			}
			ttl := s.calculateTTL(b.SessionDate)
			for _, key := range slotKeys(b.TutorID, b.SessionDate, slots) {
				pipe.Set(ctx, key, b.BookingCode, ttl)
			}
		}

		if _, err := pipe.Exec(ctx); err != nil {
			s.log.Errorf("Failed to execute pipeline for batch at offset %d: %+v", offset, err)
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(bookings)
		if len(bookings) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Redis slot re-sync completed: %d bookings synced in %v", totalSynced, time.Since(startTime))
	return nil
}

// calculateTTL keeps a slot key until a day after the session date.
func (s *SlotService) calculateTTL(sessionDate time.Time) time.Duration {
	expireAt := startOfDay(sessionDate).AddDate(0, 0, 1)
	ttl := expireAt.Sub(s.now())
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}

func slotKeys(tutorID string, date time.Time, slots []string) []string {
	day := date.Format(time.DateOnly)
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = RedisSlotKeyPrefix + tutorID + ":" + day + ":" + slot
	}
	return keys
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

