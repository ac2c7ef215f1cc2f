package router

import (
	"errors"
	"fmt"
	"testing"

	tg "github.com/landerpin123/uniq-tarot/core/telegram"
	"github.com/landerpin123/uniq-tarot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded: " + e.code }
func (e codedErr) Code() string  { return e.code }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"coded", codedErr{"insufficient funds"}, "INSUFFICIENT_FUNDS"},
		{"wrapped coded", fmt.Errorf("pick: %w", codedErr{"INDEX_OUT_OF_RANGE"}), "INDEX_OUT_OF_RANGE"},
		{"pointer type", &plainErr{}, "PLAINERR"},
		{"stdlib", errors.New("x"), "ERRORSTRING"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorCode(tc.err); got != tc.want {
				t.Fatalf("errorCode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"":          "unknown",
		"/Start":    "start",
		" history ": "history",
		"a b":       "a_b",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Errorf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

type textContext struct {
	tele.Context
	userID int64
	text   string
	store  map[string]any
}

func newTextContext(userID int64, text string) *textContext {
	return &textContext{userID: userID, text: text, store: map[string]any{}}
}

func (c *textContext) Sender() *tele.User     { return &tele.User{ID: c.userID} }
func (c *textContext) Chat() *tele.Chat       { return &tele.Chat{ID: c.userID} }
func (c *textContext) Text() string           { return c.text }
func (c *textContext) Message() *tele.Message { return &tele.Message{Text: c.text} }
func (c *textContext) Update() tele.Update    { return tele.Update{ID: 1, Message: c.Message()} }
func (c *textContext) Get(key string) any     { return c.store[key] }
func (c *textContext) Set(key string, v any)  { c.store[key] = v }

type flow struct {
	active map[int64]bool
	got    []string
}

func (f *flow) InProgress(id int64) bool { return f.active[id] }
func (f *flow) ManagerHandler(c tele.Context) error {
	f.got = append(f.got, c.Text())
	return nil
}

func TestTextRoutesOrder(t *testing.T) {
	var hits []string
	reg := tg.NewRegistry()
	reg.RegisterCommand("/tarot", commands.Command{
		Handler:     func(tele.Context) error { hits = append(hits, "tarot"); return nil },
		Description: "Расклад",
		Aliases:     []string{"таро"},
	})
	fsm := &flow{active: map[int64]bool{1: true}}
	routes := TextRoutes(fsm, reg, TextOptions{
		UnknownText: func(tele.Context) error { hits = append(hits, "unknown"); return nil },
	})
	onText := routes[0].Handler

	_ = onText(newTextContext(1, "таро"))
	_ = onText(newTextContext(2, "Таро"))
	_ = onText(newTextContext(2, "привет"))

	if len(fsm.got) != 1 || fsm.got[0] != "таро" {
		t.Fatalf("flow got %v", fsm.got)
	}
	if len(hits) != 2 || hits[0] != "tarot" || hits[1] != "unknown" {
		t.Fatalf("hits = %v", hits)
	}
}

func TestFallbacksNilProvider(t *testing.T) {
	text, cb := Fallbacks(nil)
	if text.UnknownText != nil || cb.NotFound != nil {
		t.Fatal("nil provider must give empty options")
	}
}
