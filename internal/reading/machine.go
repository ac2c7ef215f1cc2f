// Package reading implements the conversation behind a tarot reading:
// registration, spread purchase and card picks.
package reading

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/landerpin123/uniq-tarot/core/logger"
	"github.com/landerpin123/uniq-tarot/internal/session"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// Defaults used when no option overrides them: candidates shown per pick
// and the balance granted on registration.
const (
	DefaultWindow         = 10
	DefaultWelcomeBalance = 100

	maxNameRunes = 100
)

// Machine drives sessions through their transitions. It keeps no per-user
// state of its own; everything lives in the Store.
type Machine struct {
	store   *session.Store
	deck    *tarot.Deck
	spreads *tarot.Spreads

	window  int
	welcome int
	now     func() time.Time
	newID   func() string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes a Machine.
type Option func(*Machine)

// WithRand makes shuffles use r instead of the global generator.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) { m.rng = r }
}

// WithWindow sets how many cards are offered per pick.
func WithWindow(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithWelcomeBalance sets the balance granted when registration completes.
func WithWelcomeBalance(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.welcome = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDs replaces the reading id generator.
func WithIDs(gen func() string) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// New wires a Machine to its store and catalogs.
func New(store *session.Store, deck *tarot.Deck, spreads *tarot.Spreads, opts ...Option) *Machine {
	m := &Machine{
		store:   store,
		deck:    deck,
		spreads: spreads,
		window:  DefaultWindow,
		welcome: DefaultWelcomeBalance,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Spreads exposes the spread catalog.
func (m *Machine) Spreads() *tarot.Spreads {
	return m.spreads
}

// Start greets the user, creating the session if needed. An existing
// session keeps its profile; only an unfinished draw is dropped.
func (m *Machine) Start(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if s.Spread != nil {
			logger.Info(ctx, "service.readings", "spread.abandon",
				slog.String("status", "ok"),
				slog.String("spread", s.Spread.Name),
				slog.Int("picked", len(s.Selected)),
			)
		}
		s.ResetDraw()
		switch {
		case s.Registered:
			res.Directive.Text = textWelcomeBack(s.Name, s.Balance)
		case s.Registering && s.Name == "":
			res.Directive.Text = textWelcomeRegistering() + "\n" + textAskName()
		case s.Registering:
			res.Directive.Text = textWelcomeRegistering() + "\n" + textAskBirthDate()
		default:
			res.Directive.Text = textWelcomeNew()
		}
		return nil
	})
	return res, err
}

// Register opens the registration fill phase. registered flips only once
// both the name and the birth date are collected.
func (m *Machine) Register(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if s.Registered {
			return ErrAlreadyRegistered
		}
		s.Registering = true
		if s.Name == "" {
			res.Directive.Text = textAskName()
		} else {
			res.Directive.Text = textAskBirthDate()
		}
		return nil
	})
	return res, err
}

// SubmitText consumes free text during registration: first the name, then
// the birth date. Text sent after registration is ignored.
func (m *Machine) SubmitText(ctx context.Context, userID int64, text string) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if s.Registered {
			return nil
		}
		if !s.Registering {
			return ErrNotRegistered
		}

		if s.Name == "" {
			name := strings.TrimSpace(text)
			if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
				return ErrInvalidName
			}
			s.Name = name
			res.Directive.Text = textAskBirthDate()
			res.Persist = true
			res.Profile = s.Profile()
			return nil
		}

		date, ok := parseBirthDate(text, m.now())
		if !ok {
			return ErrInvalidBirthDate
		}
		s.BirthDate = date
		s.Balance = m.welcome
		s.Registered = true
		s.Registering = false
		res.Directive.Text = textRegistered(s.Balance)
		res.Persist = true
		res.Profile = s.Profile()
		logger.Info(ctx, "service.readings", "user.registered",
			slog.String("status", "ok"),
			slog.Int("balance", s.Balance),
		)
		return nil
	})
	return res, err
}

// InRegistration reports whether free text from the user should go to
// SubmitText. It does not create a session.
func (m *Machine) InRegistration(userID int64) bool {
	s, ok := m.store.Peek(userID)
	return ok && s.Registering && !s.Registered
}

// ChooseSpreadMenu lists the spreads for a registered user.
func (m *Machine) ChooseSpreadMenu(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if !s.Registered {
			return ErrNotRegistered
		}
		res.Directive.Text = textSpreadMenu(s.Balance)
		for _, sp := range m.spreads.All() {
			res.Directive.Choices = append(res.Directive.Choices, Choice{
				Label: spreadLabel(sp),
				Token: Token{Action: ActionSpread, Payload: sp.Name},
			})
		}
		return nil
	})
	return res, err
}

// StartSpread charges the spread price and deals a freshly shuffled deck.
// Every check runs before the first mutation, so a rejected start leaves
// the session as it was.
func (m *Machine) StartSpread(ctx context.Context, userID int64, spreadName string) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if !s.Registered {
			return ErrNotRegistered
		}
		sp, ok := m.spreads.Lookup(spreadName)
		if !ok {
			return newError(KindUnknownSpread, spreadName)
		}
		if s.Balance < sp.Price {
			return newError(KindInsufficientFunds, textFunds(s.Balance, sp.Price))
		}
		deck := m.shuffle()
		if len(deck) < sp.Cards {
			return fmt.Errorf("reading: spread %q needs %d cards, deck has %d", sp.Name, sp.Cards, len(deck))
		}

		s.Balance -= sp.Price
		s.Spread = sp
		s.Deck = deck
		s.Selected = nil

		res.Persist = true
		res.Profile = s.Profile()
		m.fillPick(&res, s, true)
		logger.Info(ctx, "service.readings", "spread.start",
			slog.String("status", "ok"),
			slog.String("spread", sp.Name),
			slog.Int("price", sp.Price),
			slog.Int("balance", s.Balance),
		)
		return nil
	})
	return res, err
}

// Candidates returns the cards offered for the current pick.
func (m *Machine) Candidates(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if s.Spread == nil {
			return ErrNoActiveSpread
		}
		m.fillPick(&res, s, false)
		return nil
	})
	return res, err
}

// PickCard takes the card at index of the current window. The last pick of
// a spread returns the reading and clears the draw state.
func (m *Machine) PickCard(ctx context.Context, userID int64, index int) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if !s.Registered {
			return ErrNotRegistered
		}
		if s.Spread == nil {
			return ErrNoActiveSpread
		}
		window := m.candidates(s)
		if index < 0 || index >= len(window) {
			return newError(KindIndexOutOfRange, strconv.Itoa(index))
		}

		s.Selected = append(s.Selected, window[index])
		if len(s.Selected) < s.Spread.Cards {
			m.fillPick(&res, s, false)
			return nil
		}

		sp := s.Spread
		rd := &Reading{
			ID:        m.newID(),
			UserID:    userID,
			Spread:    sp.Name,
			Price:     sp.Price,
			Cards:     make([]tarot.Card, 0, len(s.Selected)),
			CreatedAt: m.now().UTC(),
		}
		for _, c := range s.Selected {
			rd.Cards = append(rd.Cards, *c)
		}
		res.Directive.Text = textResult(sp, s.Selected, s.Balance)
		res.Profile = s.Profile()
		res.Reading = rd
		s.ResetDraw()

		logger.Info(ctx, "service.readings", "spread.complete",
			slog.String("status", "ok"),
			slog.String("spread", sp.Name),
			slog.Int("count", len(rd.Cards)),
		)
		return nil
	})
	return res, err
}

// Balance reports the balance of a registered user.
func (m *Machine) Balance(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := m.store.Do(ctx, userID, func(s *session.Session) error {
		if !s.Registered {
			return ErrNotRegistered
		}
		res.Profile = s.Profile()
		res.Directive.Text = textBalance(s.Balance)
		return nil
	})
	return res, err
}

func (m *Machine) fillPick(res *Result, s *session.Session, paid bool) {
	window := m.candidates(s)
	res.Candidates = window
	res.Pick = len(s.Selected) + 1
	res.Directive.Text = textPick(s.Spread, res.Pick, s.Balance, paid)
	res.Directive.Choices = make([]Choice, 0, len(window))
	for i := range window {
		res.Directive.Choices = append(res.Directive.Choices, Choice{
			Label: "🂠 " + strconv.Itoa(i+1),
			Token: Token{Action: ActionPick, Payload: strconv.Itoa(i)},
		})
	}
}

// candidates returns the first window cards of the deck that were not
// picked yet in this spread.
func (m *Machine) candidates(s *session.Session) []*tarot.Card {
	picked := make(map[*tarot.Card]struct{}, len(s.Selected))
	for _, c := range s.Selected {
		picked[c] = struct{}{}
	}
	out := make([]*tarot.Card, 0, m.window)
	for _, c := range s.Deck {
		if len(out) == m.window {
			break
		}
		if _, ok := picked[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// shuffle returns a uniformly random permutation of the catalog.
func (m *Machine) shuffle() []*tarot.Card {
	cards := m.deck.Cards()
	swap := func(i, j int) { cards[i], cards[j] = cards[j], cards[i] }
	if m.rng == nil {
		rand.Shuffle(len(cards), swap)
		return cards
	}
	m.rngMu.Lock()
	m.rng.Shuffle(len(cards), swap)
	m.rngMu.Unlock()
	return cards
}
