// Package bot connects the reading machine to Telegram: commands, callback
// buttons, free text during registration and asynchronous persistence.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	tgsender "github.com/landerpin123/uniq-tarot/core/telegram/sender"
	"github.com/landerpin123/uniq-tarot/internal/config"
	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/session"
	"github.com/landerpin123/uniq-tarot/internal/storage"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// maxCallbackData is Telegram's limit for inline button payloads.
const maxCallbackData = 64

// ProfileSaver persists durable profile fields.
type ProfileSaver interface {
	Save(ctx context.Context, userID int64, p session.Profile) error
}

// Deps are the collaborators a Bot is built from.
type Deps struct {
	Config   *config.Config
	Machine  *reading.Machine
	Store    *session.Store
	Profiles ProfileSaver
	History  storage.ReadingLog
	// Persist overrides the save queue; nil builds the default single worker.
	Persist *tgsender.Dispatcher
}

// Bot owns the Telegram handlers.
type Bot struct {
	cfg      *config.Config
	machine  *reading.Machine
	store    *session.Store
	profiles ProfileSaver
	history  storage.ReadingLog
	persist  *tgsender.Dispatcher

	historyLimit int
}

// New validates deps and starts the persistence worker.
func New(d Deps) (*Bot, error) {
	switch {
	case d.Config == nil:
		return nil, fmt.Errorf("bot: nil config")
	case d.Machine == nil || d.Store == nil:
		return nil, fmt.Errorf("bot: machine and store are required")
	case d.Profiles == nil || d.History == nil:
		return nil, fmt.Errorf("bot: persistence is required")
	}
	for _, sp := range d.Machine.Spreads().All() {
		tok := reading.Token{Action: reading.ActionSpread, Payload: sp.Name}
		if n := len(tok.String()) + 1; n > maxCallbackData {
			return nil, fmt.Errorf("bot: spread name %q is too long for a button (%d bytes)", sp.Name, n)
		}
	}

	persist := d.Persist
	if persist == nil {
		persist = NewPersistQueue()
	}
	limit := d.Config.Tarot.HistoryLimit
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	return &Bot{
		cfg:          d.Config,
		machine:      d.Machine,
		store:        d.Store,
		profiles:     d.Profiles,
		history:      d.History,
		persist:      persist,
		historyLimit: limit,
	}, nil
}

// Build assembles catalogs, session store, repository and machine on top of
// an open database.
func Build(cfg *config.Config, db *sqlx.DB) (*Bot, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("bot: config and database are required")
	}
	deck, err := tarot.LoadDeck()
	if err != nil {
		return nil, err
	}
	spreads, err := tarot.NewSpreads(cfg.Tarot.Spreads, deck.Len())
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.HistoryTTL()
	if err != nil {
		return nil, err
	}

	repo := storage.NewRepository(db)
	store := session.NewStore(repo)
	opts := []reading.Option{reading.WithWindow(cfg.Tarot.CandidateWindow)}
	if cfg.Tarot.WelcomeBalance != nil {
		opts = append(opts, reading.WithWelcomeBalance(*cfg.Tarot.WelcomeBalance))
	}
	machine := reading.New(store, deck, spreads, opts...)

	return New(Deps{
		Config:   cfg,
		Machine:  machine,
		Store:    store,
		Profiles: repo,
		History:  storage.NewHistoryCache(repo, ttl),
	})
}

// Close drains queued saves.
func (b *Bot) Close() {
	b.persist.Close()
}

// NewPersistQueue returns the single-worker queue used for saves. One worker
// keeps saves in the order transitions produced them.
func NewPersistQueue() *tgsender.Dispatcher {
	return tgsender.NewDispatcher(tgsender.Options{
		QueueSize:    1024,
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
		MaxDuration:  30 * time.Second,
		Component:    "persist",
		Retryable:    storage.IsTransient,
	})
}
