// Package session keeps per-user reading sessions in memory and serializes
// access to each of them.
package session

import "github.com/landerpin123/uniq-tarot/internal/tarot"

// Phase identifies where a user is in the conversation.
type Phase string

const (
	PhaseNew               Phase = "new"
	PhaseAwaitingName      Phase = "awaiting_name"
	PhaseAwaitingBirthDate Phase = "awaiting_birth_date"
	PhaseIdle              Phase = "idle"
	PhaseDrawing           Phase = "drawing"
)

// Profile is the durable part of a session.
type Profile struct {
	Name      string
	BirthDate string
	Balance   int
}

// Complete reports whether both registration fields are filled.
func (p Profile) Complete() bool {
	return p.Name != "" && p.BirthDate != ""
}

// Session is the state of a single user. It is only touched under the
// owning Store's per-user lock.
type Session struct {
	UserID      int64
	Registered  bool
	Registering bool
	Name        string
	BirthDate   string
	Balance     int

	Spread   *tarot.Spread
	Deck     []*tarot.Card
	Selected []*tarot.Card
}

// New returns a session with every field at its default.
func New(userID int64) *Session {
	return &Session{UserID: userID}
}

// FromProfile rebuilds a session from stored fields. A profile with both
// name and birth date counts as registered; one with only a name resumes
// the registration at the birth date.
func FromProfile(userID int64, p Profile) *Session {
	s := New(userID)
	s.Name = p.Name
	s.BirthDate = p.BirthDate
	s.Balance = p.Balance
	s.Registered = p.Complete()
	s.Registering = !s.Registered && p.Name != ""
	return s
}

// Profile returns the durable fields.
func (s *Session) Profile() Profile {
	return Profile{Name: s.Name, BirthDate: s.BirthDate, Balance: s.Balance}
}

// Phase derives the conversation phase from the session fields.
func (s *Session) Phase() Phase {
	switch {
	case s.Spread != nil:
		return PhaseDrawing
	case s.Registered:
		return PhaseIdle
	case s.Registering && s.Name == "":
		return PhaseAwaitingName
	case s.Registering:
		return PhaseAwaitingBirthDate
	default:
		return PhaseNew
	}
}

// ResetDraw clears the transient draw state.
func (s *Session) ResetDraw() {
	s.Spread = nil
	s.Deck = nil
	s.Selected = nil
}

// Clone returns a copy whose slices do not alias the original.
func (s *Session) Clone() Session {
	c := *s
	if s.Deck != nil {
		c.Deck = append([]*tarot.Card(nil), s.Deck...)
	}
	if s.Selected != nil {
		c.Selected = append([]*tarot.Card(nil), s.Selected...)
	}
	return c
}
