package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "reply_counters"

// replyCounters records what a handler sent back for the summary log line.
type replyCounters struct {
	messages int
	keyboard bool
}

// countingContext counts successful sends and edits made through it.
type countingContext struct {
	tele.Context
	n *replyCounters
}

func (m countingContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	m.n.messages++
	if !m.n.keyboard {
		m.n.keyboard = carriesKeyboard(opts)
	}
	return nil
}

func carriesKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what any, opts ...any) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what any, opts ...any) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m countingContext) Edit(what any, opts ...any) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func (m countingContext) EditOrSend(what any, opts ...any) error {
	return m.count(m.Context.EditOrSend(what, opts...), opts)
}

func (m countingContext) EditOrReply(what any, opts ...any) error {
	return m.count(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware counts the messages a handler sends and whether
// any of them carried a keyboard. GetCounters reads the result.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &replyCounters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// GetCounters returns the number of messages sent for the update and
// whether one had a keyboard. Both are zero without the middleware.
func GetCounters(c tele.Context) (int, bool) {
	n, ok := c.Get(countersKey).(*replyCounters)
	if !ok {
		return 0, false
	}
	return n.messages, n.keyboard
}
