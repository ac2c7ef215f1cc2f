// Package storage persists user profiles and completed readings.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/core/telegram/format"
	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/session"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// Repository is the sqlx-backed persistence adapter. Queries are written
// with ? placeholders and rebound for the connected driver.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRepository wraps an open database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

type userRow struct {
	UserID    int64   `db:"user_id"`
	Name      *string `db:"name"`
	BirthDate *string `db:"birth_date"`
	Balance   int     `db:"balance"`
}

type readingRow struct {
	ID        string `db:"reading_id"`
	UserID    int64  `db:"user_id"`
	Spread    string `db:"spread_name"`
	Price     int    `db:"price"`
	Cards     string `db:"cards"`
	CreatedAt int64  `db:"created_at"`
}

type cardJSON struct {
	Name    string `json:"name"`
	Meaning string `json:"meaning"`
}

// Load returns the stored profile of a user; ok is false when none exists.
func (r *Repository) Load(ctx context.Context, userID int64) (session.Profile, bool, error) {
	start := time.Now()
	var row userRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT user_id, name, birth_date, balance FROM users WHERE user_id = ?`),
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		r.logQuery(ctx, "users.load", start, slog.Bool("found", false))
		return session.Profile{}, false, nil
	}
	if err != nil {
		return session.Profile{}, false, fmt.Errorf("storage: load user %d: %w", userID, err)
	}
	r.logQuery(ctx, "users.load", start, slog.Bool("found", true))
	return session.Profile{
		Name:      format.Deref(row.Name, ""),
		BirthDate: format.Deref(row.BirthDate, ""),
		Balance:   row.Balance,
	}, true, nil
}

// Save upserts the durable fields of a user keyed by user id.
func (r *Repository) Save(ctx context.Context, userID int64, p session.Profile) error {
	if p.Balance < 0 {
		return fmt.Errorf("storage: refusing negative balance %d for user %d", p.Balance, userID)
	}
	start := time.Now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (user_id, name, birth_date, balance, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			birth_date = excluded.birth_date,
			balance = excluded.balance,
			updated_at = excluded.updated_at`),
		userID, nullable(p.Name), nullable(p.BirthDate), p.Balance, r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage: save user %d: %w", userID, err)
	}
	r.logQuery(ctx, "users.save", start)
	return nil
}

// AppendReading records a completed reading.
func (r *Repository) AppendReading(ctx context.Context, rd reading.Reading) error {
	cards := make([]cardJSON, 0, len(rd.Cards))
	for _, c := range rd.Cards {
		cards = append(cards, cardJSON{Name: c.Name, Meaning: c.Meaning})
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("storage: encode cards: %w", err)
	}
	start := time.Now()
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO readings (reading_id, user_id, spread_name, price, cards, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		rd.ID, rd.UserID, rd.Spread, rd.Price, string(payload), rd.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage: append reading %s: %w", rd.ID, err)
	}
	r.logQuery(ctx, "readings.append", start)
	return nil
}

// RecentReadings returns up to limit readings of a user, newest first.
func (r *Repository) RecentReadings(ctx context.Context, userID int64, limit int) ([]reading.Reading, error) {
	if limit <= 0 {
		return nil, nil
	}
	start := time.Now()
	var rows []readingRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT reading_id, user_id, spread_name, price, cards, created_at
		FROM readings
		WHERE user_id = ?
		ORDER BY created_at DESC, reading_id DESC
		LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: recent readings of %d: %w", userID, err)
	}
	r.logQuery(ctx, "readings.recent", start, slog.Int("count", len(rows)))

	out := make([]reading.Reading, 0, len(rows))
	for _, row := range rows {
		var cards []cardJSON
		if err := json.Unmarshal([]byte(row.Cards), &cards); err != nil {
			return nil, fmt.Errorf("storage: decode cards of %s: %w", row.ID, err)
		}
		rd := reading.Reading{
			ID:        row.ID,
			UserID:    row.UserID,
			Spread:    row.Spread,
			Price:     row.Price,
			Cards:     make([]tarot.Card, 0, len(cards)),
			CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		}
		for _, c := range cards {
			rd.Cards = append(rd.Cards, tarot.Card{Name: c.Name, Meaning: c.Meaning})
		}
		out = append(out, rd)
	}
	return out, nil
}

func (r *Repository) logQuery(ctx context.Context, op string, start time.Time, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("status", "ok"),
		slog.String("op", op),
		slog.Duration("duration", logger.Took(start)),
	}, attrs...)
	logger.Debug(ctx, "db", "db.query", attrs...)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
