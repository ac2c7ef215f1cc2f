package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLoader struct {
	mu       sync.Mutex
	profiles map[int64]Profile
	err      error
	calls    int
}

func (f *fakeLoader) Load(_ context.Context, userID int64) (Profile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Profile{}, false, f.err
	}
	p, ok := f.profiles[userID]
	return p, ok, nil
}

func TestStoreCreatesDefaultSession(t *testing.T) {
	st := NewStore(nil)
	err := st.Do(context.Background(), 7, func(s *Session) error {
		if s.UserID != 7 || s.Registered || s.Balance != 0 || s.Phase() != PhaseNew {
			t.Fatalf("unexpected fresh session: %+v", s)
		}
		s.Balance = 42
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	got, ok := st.Peek(7)
	if !ok || got.Balance != 42 {
		t.Fatalf("peek = %+v, %v", got, ok)
	}
	if _, ok := st.Peek(8); ok {
		t.Fatal("peek must not create sessions")
	}
}

func TestStoreHydratesOnce(t *testing.T) {
	loader := &fakeLoader{profiles: map[int64]Profile{
		1: {Name: "Анна", BirthDate: "01.02.1990", Balance: 65},
	}}
	st := NewStore(loader)
	for i := 0; i < 3; i++ {
		err := st.Do(context.Background(), 1, func(s *Session) error {
			if !s.Registered || s.Balance != 65 || s.Name != "Анна" {
				t.Fatalf("hydrated session wrong: %+v", s)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("do: %v", err)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("loader called %d times, want 1", loader.calls)
	}
}

func TestStoreHydrationFailureCreatesNothing(t *testing.T) {
	boom := errors.New("db down")
	loader := &fakeLoader{err: boom}
	st := NewStore(loader)
	called := false
	err := st.Do(context.Background(), 3, func(*Session) error {
		called = true
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if called {
		t.Fatal("fn must not run when hydration fails")
	}
	if _, ok := st.Peek(3); ok {
		t.Fatal("no session expected after failed hydration")
	}

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()
	if err := st.Do(context.Background(), 3, func(*Session) error { return nil }); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("len = %d, want 1", st.Len())
	}
}

func TestStoreSerializesSameUser(t *testing.T) {
	st := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Do(context.Background(), 1, func(s *Session) error {
				b := s.Balance
				time.Sleep(time.Microsecond)
				s.Balance = b + 1
				return nil
			})
		}()
	}
	wg.Wait()
	got, _ := st.Peek(1)
	if got.Balance != 50 {
		t.Fatalf("balance = %d, want 50 (lost updates)", got.Balance)
	}
}

func TestStoreUsersRunInParallel(t *testing.T) {
	st := NewStore(nil)
	inside := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = st.Do(context.Background(), 1, func(*Session) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	done := make(chan struct{})
	go func() {
		_ = st.Do(context.Background(), 2, func(*Session) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("user 2 blocked by user 1")
	}
	close(release)
}

func TestStoreStats(t *testing.T) {
	st := NewStore(nil)
	ctx := context.Background()
	_ = st.Do(ctx, 1, func(s *Session) error { s.Registered = true; return nil })
	_ = st.Do(ctx, 2, func(*Session) error { return nil })
	got := st.Stats()
	if got.Sessions != 2 || got.Registered != 1 || got.Drawing != 0 {
		t.Fatalf("stats = %+v", got)
	}
}

func TestSessionPhase(t *testing.T) {
	s := New(1)
	if s.Phase() != PhaseNew {
		t.Fatalf("phase = %s", s.Phase())
	}
	s.Registering = true
	if s.Phase() != PhaseAwaitingName {
		t.Fatalf("phase = %s", s.Phase())
	}
	s.Name = "x"
	if s.Phase() != PhaseAwaitingBirthDate {
		t.Fatalf("phase = %s", s.Phase())
	}
	s.Registering, s.Registered = false, true
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %s", s.Phase())
	}
}
