package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tgsender "github.com/landerpin123/uniq-tarot/core/telegram/sender"
	"github.com/landerpin123/uniq-tarot/internal/reading"
)

// persistResult queues the durable effects of a transition: the profile
// first, then the completed reading.
func (b *Bot) persistResult(ctx context.Context, userID int64, res reading.Result) {
	ctx = context.WithoutCancel(ctx)
	if res.Persist {
		p := res.Profile
		b.enqueue(ctx, "users.save", func() error {
			return b.profiles.Save(ctx, userID, p)
		})
	}
	if res.Reading != nil {
		rd := *res.Reading
		b.enqueue(ctx, "readings.append", func() error {
			return b.history.AppendReading(ctx, rd)
		})
	}
}

// enqueue waits for room rather than run a save beside older queued ones.
// After Close the save is dropped and counted; the database is gone by then.
func (b *Bot) enqueue(ctx context.Context, action string, run func() error) {
	err := b.persist.EnqueueWait(ctx, action, "", run)
	if err == nil {
		return
	}
	event := "enqueue"
	if errors.Is(err, tgsender.ErrQueueClosed) {
		event = "dropped"
	}
	logger.Error(ctx, "persist", event,
		slog.String("status", "fail"),
		slog.String("action", action),
		slog.String("err", err.Error()),
	)
}
