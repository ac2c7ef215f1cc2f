package reading

import (
	"strings"
	"time"

	"github.com/landerpin123/uniq-tarot/internal/session"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// Callback actions carried by choice tokens.
const (
	ActionSpread = "spread"
	ActionPick   = "pick"
)

// Token is the opaque action a choice maps back to when tapped.
type Token struct {
	Action  string
	Payload string
}

// String encodes the token the way telebot encodes callback data.
func (t Token) String() string {
	if t.Payload == "" {
		return t.Action
	}
	return t.Action + "|" + t.Payload
}

// ParseToken is the inverse of Token.String.
func ParseToken(s string) Token {
	s = strings.TrimPrefix(s, "\f")
	action, payload, _ := strings.Cut(s, "|")
	return Token{Action: strings.TrimSpace(action), Payload: payload}
}

// Choice is a single option offered to the user.
type Choice struct {
	Label string
	Token Token
}

// Directive tells the transport what to show.
type Directive struct {
	Text    string
	Choices []Choice
}

// Empty reports whether there is nothing to send.
func (d Directive) Empty() bool {
	return d.Text == "" && len(d.Choices) == 0
}

// Reading is a completed spread.
type Reading struct {
	ID        string
	UserID    int64
	Spread    string
	Price     int
	Cards     []tarot.Card
	CreatedAt time.Time
}

// Result is what every transition returns on success.
type Result struct {
	Directive Directive
	// Persist is set when durable profile fields changed; Profile then
	// holds the values to save.
	Persist bool
	Profile session.Profile
	// Candidates is the current pick window while drawing.
	Candidates []*tarot.Card
	// Pick is the 1-based number of the next pick, 0 when not drawing.
	Pick int
	// Reading is set by the pick that completes a spread.
	Reading *Reading
}
