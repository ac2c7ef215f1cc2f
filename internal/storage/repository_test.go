package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/session"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "tarot.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("migrations not found: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				t.Fatalf("apply %s: %v", f, err)
			}
		}
	}
	return db
}

func TestRepositoryLoadMissing(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	_, ok, err := repo.Load(context.Background(), 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("missing user reported as found")
	}
}

func TestRepositorySaveUpserts(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, 1, session.Profile{Name: "Анна"}); err != nil {
		t.Fatalf("save name: %v", err)
	}
	p, ok, err := repo.Load(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("load: %v, %v", ok, err)
	}
	if p.Name != "Анна" || p.BirthDate != "" || p.Balance != 0 {
		t.Fatalf("profile = %+v", p)
	}

	want := session.Profile{Name: "Анна", BirthDate: "01.02.1990", Balance: 75}
	if err := repo.Save(ctx, 1, want); err != nil {
		t.Fatalf("save full: %v", err)
	}
	p, _, err = repo.Load(ctx, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p != want {
		t.Fatalf("profile = %+v, want %+v", p, want)
	}
}

func TestRepositoryRejectsNegativeBalance(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	if err := repo.Save(context.Background(), 1, session.Profile{Balance: -1}); err == nil {
		t.Fatal("expected error for negative balance")
	}
}

func TestRepositoryHydratesStore(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	if err := repo.Save(ctx, 9, session.Profile{Name: "Олег", BirthDate: "03.04.1985", Balance: 40}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st := session.NewStore(repo)
	err := st.Do(ctx, 9, func(s *session.Session) error {
		if !s.Registered || s.Balance != 40 {
			t.Fatalf("hydrated = %+v", s)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestRepositoryReadings(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	if err := repo.Save(ctx, 1, session.Profile{Name: "Анна", BirthDate: "01.02.1990", Balance: 65}); err != nil {
		t.Fatalf("save: %v", err)
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"1 карта", "3 карты", "Кельтский крест"} {
		rd := reading.Reading{
			ID:        "r" + string(rune('a'+i)),
			UserID:    1,
			Spread:    name,
			Price:     10 * (i + 1),
			Cards:     []tarot.Card{{Name: "Шут", Meaning: "Начало"}, {Name: "Маг", Meaning: "Воля"}},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.AppendReading(ctx, rd); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}

	got, err := repo.RecentReadings(ctx, 1, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Spread != "Кельтский крест" || got[1].Spread != "3 карты" {
		t.Fatalf("recent = %+v", got)
	}
	if len(got[0].Cards) != 2 || got[0].Cards[1].Meaning != "Воля" {
		t.Fatalf("cards = %+v", got[0].Cards)
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("created_at = %s", got[0].CreatedAt)
	}

	none, err := repo.RecentReadings(ctx, 2, 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("other user = %+v, %v", none, err)
	}
}
