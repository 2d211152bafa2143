package ledger

import (
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// PersistEvery is the default batch size N from spec §4.1: "persisted
// periodically (every N increments per key... 100 is acceptable)".
const PersistEvery = 100

type keyState struct {
	day           string
	count         int
	sincePersist  int
}

// UsageCounter tracks per-key, per-UTC-day request counts in memory,
// flushing to the ledger database every PersistEvery increments per key
// and on Flush. A lost window of up to PersistEvery increments per key is
// tolerated, per spec.
type UsageCounter struct {
	mu     sync.Mutex
	db     *gorm.DB
	states map[string]*keyState
	every  int
}

// NewUsageCounter returns a ready UsageCounter. Today's persisted count
// for a key (if one was written before a restart) is loaded lazily, the
// first time that key is seen.
func NewUsageCounter(db *gorm.DB) *UsageCounter {
	return &UsageCounter{
		db:     db,
		states: make(map[string]*keyState),
		every:  PersistEvery,
	}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// nextMidnightUTC returns the time of the next UTC day boundary, which
// the auth middleware formats into the X-RateLimit-Reset header
// (spec §4.1).
func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// Peek returns the current count for key without incrementing it, plus
// the next reset time.
func (u *UsageCounter) Peek(key string) (int, time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.stateLocked(key)
	return s.count, nextMidnightUTC()
}

// Increment bumps key's counter for the current UTC day by one,
// persisting to the ledger database every PersistEvery increments.
func (u *UsageCounter) Increment(key string) (int, error) {
	u.mu.Lock()
	s := u.stateLocked(key)
	s.count++
	s.sincePersist++
	shouldPersist := s.sincePersist >= u.every
	count, day := s.count, s.day
	if shouldPersist {
		s.sincePersist = 0
	}
	u.mu.Unlock()

	if shouldPersist {
		if err := u.persist(key, day, count); err != nil {
			slog.Warn("usage counter persist failed", "key", key, "error", err)
			return count, err
		}
	}
	return count, nil
}

// stateLocked returns key's in-memory state, loading from the database
// and resetting to zero on a UTC day rollover. Caller must hold u.mu.
func (u *UsageCounter) stateLocked(key string) *keyState {
	d := today()
	s, ok := u.states[key]
	if ok && s.day == d {
		return s
	}

	count := 0
	if u.db != nil {
		var row UsageRow
		if err := u.db.Where("key = ? AND day = ?", key, d).First(&row).Error; err == nil {
			count = row.Count
		}
	}

	s = &keyState{day: d, count: count}
	u.states[key] = s
	return s
}

func (u *UsageCounter) persist(key, day string, count int) error {
	row := UsageRow{Key: key, Day: day, Count: count}
	return u.db.Save(&row).Error
}

// Flush persists every key's current count unconditionally. Call on
// graceful shutdown (spec §4.1: "persisted... on graceful shutdown").
func (u *UsageCounter) Flush() {
	u.mu.Lock()
	snapshot := make(map[string]keyState, len(u.states))
	for k, s := range u.states {
		snapshot[k] = *s
		s.sincePersist = 0
	}
	u.mu.Unlock()

	for key, s := range snapshot {
		if err := u.persist(key, s.day, s.count); err != nil {
			slog.Warn("usage counter flush failed", "key", key, "error", err)
		}
	}
}
