package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// counters records what a handler sent back for the per-route summary line.
type counters struct {
	messages int
	keyboard bool
}

// metricsContext counts successful replies sent through the wrapped context.
type metricsContext struct {
	tele.Context
	n *counters
}

func (m metricsContext) track(opts []any, err error) error {
	if err != nil {
		return err
	}
	m.n.messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			m.n.keyboard = m.n.keyboard || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			m.n.keyboard = m.n.keyboard || v != nil
		}
	}
	return nil
}

func (m metricsContext) Send(what any, opts ...any) error {
	return m.track(opts, m.Context.Send(what, opts...))
}

func (m metricsContext) Reply(what any, opts ...any) error {
	return m.track(opts, m.Context.Reply(what, opts...))
}

func (m metricsContext) Edit(what any, opts ...any) error {
	return m.track(opts, m.Context.Edit(what, opts...))
}

func (m metricsContext) EditOrSend(what any, opts ...any) error {
	return m.track(opts, m.Context.EditOrSend(what, opts...))
}

func (m metricsContext) EditOrReply(what any, opts ...any) error {
	return m.track(opts, m.Context.EditOrReply(what, opts...))
}

// MessageMetricsMiddleware wraps the context so replies are counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &counters{}
		c.Set(countersKey, n)
		return next(metricsContext{Context: c, n: n})
	}
}

// GetCounters returns how many replies were sent and whether any carried a
// keyboard.
func GetCounters(c tele.Context) (int, bool) {
	if n, ok := c.Get(countersKey).(*counters); ok {
		return n.messages, n.keyboard
	}
	return 0, false
}
