package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/landerpin123/uniq-tarot/core/logger"
)

// Loader fetches the stored profile of a user. ok is false when the user
// has never been saved.
type Loader interface {
	Load(ctx context.Context, userID int64) (p Profile, ok bool, err error)
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Store maps user ids to sessions. Each session has its own mutex, so
// actions of one user are serialized while different users run in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	loader  Loader
}

// NewStore creates an empty store. loader may be nil, in which case new
// sessions always start at their defaults.
func NewStore(loader Loader) *Store {
	return &Store{
		entries: make(map[int64]*entry),
		loader:  loader,
	}
}

func (s *Store) entry(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	return e
}

// Do runs fn with the user's session while holding that user's lock. The
// session is created on first use, hydrated from the loader when a stored
// profile exists. If hydration fails no session is created.
func (s *Store) Do(ctx context.Context, userID int64, fn func(*Session) error) error {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		sess, err := s.hydrate(ctx, userID)
		if err != nil {
			return err
		}
		e.sess = sess
	}
	return fn(e.sess)
}

func (s *Store) hydrate(ctx context.Context, userID int64) (*Session, error) {
	if s.loader == nil {
		return New(userID), nil
	}
	p, ok, err := s.loader.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session: load user %d: %w", userID, err)
	}
	if !ok {
		logger.Debug(ctx, "service.sessions", "session.create",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
		return New(userID), nil
	}
	sess := FromProfile(userID, p)
	logger.Debug(ctx, "service.sessions", "session.hydrate",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Bool("registered", sess.Registered),
	)
	return sess, nil
}

// Peek returns a copy of the user's session without creating one.
func (s *Store) Peek(userID int64) (Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return Session{}, false
	}
	return e.sess.Clone(), true
}

// Stats summarizes the sessions held in memory.
type Stats struct {
	Sessions   int
	Registered int
	Drawing    int
}

// Stats walks every session. Sessions locked by an in-flight action are
// waited for.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	var st Stats
	for _, e := range entries {
		e.mu.Lock()
		if e.sess != nil {
			st.Sessions++
			if e.sess.Registered {
				st.Registered++
			}
			if e.sess.Spread != nil {
				st.Drawing++
			}
		}
		e.mu.Unlock()
	}
	return st
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	return s.Stats().Sessions
}
