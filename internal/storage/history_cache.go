package storage

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/internal/reading"
)

// ReadingLog is the readings side of the persistence adapter.
type ReadingLog interface {
	AppendReading(ctx context.Context, rd reading.Reading) error
	RecentReadings(ctx context.Context, userID int64, limit int) ([]reading.Reading, error)
}

// DefaultHistoryTTL bounds how long a cached history page may be served.
const DefaultHistoryTTL = 5 * time.Minute

type historyEntry struct {
	limit    int
	readings []reading.Reading
}

// HistoryCache serves repeated /history requests from memory. A user's
// entry is dropped whenever a new reading of theirs is appended, and a
// page fetched before that append is never stored.
type HistoryCache struct {
	next  ReadingLog
	cache *cache.Cache

	mu  sync.Mutex
	gen map[int64]uint64
}

// NewHistoryCache wraps next with a TTL cache.
func NewHistoryCache(next ReadingLog, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryCache{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
		gen:   make(map[int64]uint64),
	}
}

func historyKey(userID int64) string {
	return "history:" + strconv.FormatInt(userID, 10)
}

// AppendReading stores rd and invalidates the user's cached history.
func (h *HistoryCache) AppendReading(ctx context.Context, rd reading.Reading) error {
	err := h.next.AppendReading(ctx, rd)
	h.mu.Lock()
	h.gen[rd.UserID]++
	h.cache.Delete(historyKey(rd.UserID))
	h.mu.Unlock()
	return err
}

// RecentReadings answers from the cache when a page at least as long was
// fetched before. The result is a copy the caller may modify.
func (h *HistoryCache) RecentReadings(ctx context.Context, userID int64, limit int) ([]reading.Reading, error) {
	key := historyKey(userID)
	if v, ok := h.cache.Get(key); ok {
		if e, ok := v.(historyEntry); ok && (e.limit >= limit || len(e.readings) < e.limit) {
			n := min(limit, len(e.readings))
			logger.Debug(ctx, "db", "history.cache",
				slog.String("cache", "hit"),
				slog.Int("count", n),
			)
			return cloneReadings(e.readings[:n]), nil
		}
	}

	h.mu.Lock()
	seen := h.gen[userID]
	h.mu.Unlock()

	list, err := h.next.RecentReadings(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	if h.gen[userID] == seen {
		h.cache.Set(key, historyEntry{limit: limit, readings: cloneReadings(list)}, cache.DefaultExpiration)
	}
	h.mu.Unlock()
	logger.Debug(ctx, "db", "history.cache",
		slog.String("cache", "miss"),
		slog.Int("count", len(list)),
	)
	return list, nil
}

func cloneReadings(list []reading.Reading) []reading.Reading {
	out := slices.Clone(list)
	for i := range out {
		out[i].Cards = slices.Clone(out[i].Cards)
	}
	return out
}
