package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/landerpin123/uniq-tarot/core/logger"
	tghelpers "github.com/landerpin123/uniq-tarot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	user  *tele.User
	upd   tele.Update
	store map[string]any
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	return &fakeContext{user: &tele.User{ID: userID}, upd: upd, store: map[string]any{}}
}

func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Update() tele.Update      { return f.upd }
func (f *fakeContext) Text() string             { return "" }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }

func TestAdminOnlyMiddleware(t *testing.T) {
	var ran, rejected int
	next := func(tele.Context) error { ran++; return nil }
	reject := func(tele.Context) error { rejected++; return nil }

	h := AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: reject})(next)
	_ = h(newFakeContext(7, tele.Update{}))
	_ = h(newFakeContext(8, tele.Update{}))
	if ran != 1 || rejected != 1 {
		t.Fatalf("ran=%d rejected=%d", ran, rejected)
	}

	unset := AdminOnlyMiddleware(AdminOptions{OnReject: reject})(next)
	_ = unset(newFakeContext(7, tele.Update{}))
	if ran != 1 || rejected != 2 {
		t.Fatalf("unset admin must reject: ran=%d rejected=%d", ran, rejected)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	var ran, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { ran++; return nil })

	msg := tele.Update{Message: &tele.Message{Text: "/tarot"}}
	_ = h(newFakeContext(1, msg))
	_ = h(newFakeContext(1, msg))
	_ = h(newFakeContext(2, msg))
	if ran != 2 || limited != 1 {
		t.Fatalf("messages: ran=%d limited=%d", ran, limited)
	}

	cb := tele.Update{Callback: &tele.Callback{Data: "\fpick|1"}}
	_ = h(newFakeContext(1, cb))
	_ = h(newFakeContext(1, cb))
	if ran != 4 || limited != 1 {
		t.Fatalf("callbacks bypass: ran=%d limited=%d", ran, limited)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, tele.Update{ID: 5}))
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("err = %v, want ErrPanic", err)
	}
}

func TestMessageMetricsMiddleware(t *testing.T) {
	c := newFakeContext(1, tele.Update{})
	h := MessageMetricsMiddleware(func(mc tele.Context) error {
		m := mc.(countingContext)
		_ = m.count(nil, nil)
		_ = m.count(errors.New("blocked"), nil)
		_ = m.count(nil, []any{&tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}}})
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v", msgs, kb)
	}
	if n, kb := GetCounters(newFakeContext(2, tele.Update{})); n != 0 || kb {
		t.Fatal("counters without middleware must be zero")
	}
}

func TestUpdateKind(t *testing.T) {
	cases := map[string]tele.Update{
		KindCallback:    {Callback: &tele.Callback{}},
		KindMessage:     {Message: &tele.Message{}},
		KindInlineQuery: {Query: &tele.Query{}},
		KindOther:       {},
	}
	for want, upd := range cases {
		if got := UpdateKind(upd); got != want {
			t.Errorf("UpdateKind = %q, want %q", got, want)
		}
	}
}

func TestLoggerMiddlewareBindsContext(t *testing.T) {
	c := newFakeContext(4, tele.Update{ID: 77, Message: &tele.Message{Text: "Анна"}})
	var rid string
	h := LoggerMiddleware(LoggerMiddleware(func(tc tele.Context) error {
		rid = logger.RIDFrom(tghelpers.BuildContext(tc))
		return nil
	}))
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rid != logger.BuildRID(77, 4, 4) {
		t.Fatalf("rid = %q", rid)
	}
}
