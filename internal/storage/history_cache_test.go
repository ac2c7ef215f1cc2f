package storage

import (
	"context"
	"testing"
	"time"

	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

type countingLog struct {
	readings []reading.Reading
	fetches  int
	// afterRead runs once a fetch has taken its snapshot.
	afterRead func()
}

func (c *countingLog) AppendReading(_ context.Context, rd reading.Reading) error {
	c.readings = append([]reading.Reading{rd}, c.readings...)
	return nil
}

func (c *countingLog) RecentReadings(_ context.Context, _ int64, limit int) ([]reading.Reading, error) {
	c.fetches++
	n := min(limit, len(c.readings))
	page := append([]reading.Reading(nil), c.readings[:n]...)
	if hook := c.afterRead; hook != nil {
		c.afterRead = nil
		hook()
	}
	return page, nil
}

func TestHistoryCacheServesRepeats(t *testing.T) {
	ctx := context.Background()
	next := &countingLog{}
	h := NewHistoryCache(next, time.Minute)

	for _, id := range []string{"a", "b", "c"} {
		if err := h.AppendReading(ctx, reading.Reading{ID: id, UserID: 1}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	first, err := h.RecentReadings(ctx, 1, 5)
	if err != nil || len(first) != 3 {
		t.Fatalf("first = %v, %v", first, err)
	}
	again, _ := h.RecentReadings(ctx, 1, 5)
	shorter, _ := h.RecentReadings(ctx, 1, 2)
	if next.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", next.fetches)
	}
	if len(again) != 3 || len(shorter) != 2 || shorter[0].ID != "c" {
		t.Fatalf("cached pages wrong: %v / %v", again, shorter)
	}
}

func TestHistoryCacheInvalidatesOnAppend(t *testing.T) {
	ctx := context.Background()
	next := &countingLog{}
	h := NewHistoryCache(next, time.Minute)

	_ = h.AppendReading(ctx, reading.Reading{ID: "a", UserID: 1})
	_, _ = h.RecentReadings(ctx, 1, 5)
	_ = h.AppendReading(ctx, reading.Reading{ID: "b", UserID: 1})

	got, _ := h.RecentReadings(ctx, 1, 5)
	if next.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", next.fetches)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("after append = %v", got)
	}
}

func TestHistoryCacheSkipsPageOlderThanAppend(t *testing.T) {
	ctx := context.Background()
	next := &countingLog{}
	h := NewHistoryCache(next, time.Minute)
	_ = h.AppendReading(ctx, reading.Reading{ID: "a", UserID: 1})

	next.afterRead = func() {
		if err := h.AppendReading(ctx, reading.Reading{ID: "b", UserID: 1}); err != nil {
			t.Errorf("append: %v", err)
		}
	}
	if stale, _ := h.RecentReadings(ctx, 1, 5); len(stale) != 1 {
		t.Fatalf("racing fetch = %v", stale)
	}

	got, _ := h.RecentReadings(ctx, 1, 5)
	if next.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", next.fetches)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("history after append = %v", got)
	}
}

func TestHistoryCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	next := &countingLog{}
	h := NewHistoryCache(next, time.Minute)
	_ = h.AppendReading(ctx, reading.Reading{ID: "a", UserID: 1, Cards: []tarot.Card{{Name: "Шут"}}})

	first, _ := h.RecentReadings(ctx, 1, 5)
	first[0].Cards[0].Name = "changed"
	hit, _ := h.RecentReadings(ctx, 1, 5)
	hit[0].ID = "changed"
	hit[0].Cards[0].Name = "changed"

	again, _ := h.RecentReadings(ctx, 1, 5)
	if next.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", next.fetches)
	}
	if again[0].ID != "a" || again[0].Cards[0].Name != "Шут" {
		t.Fatalf("cached reading modified through a result: %+v", again[0])
	}
}
