package router

import (
	"time"

	tg "github.com/m3rciful/translatebot/core/telegram"
	"github.com/m3rciful/translatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// StateRouter resolves plain text and document updates to a handler based on
// the sender's conversation state. Routing is explicit per state so an
// unexpected update in a given state is a deliberate decision, not an
// accident of registration order.
type StateRouter interface {
	RouteText(c tele.Context) (tele.HandlerFunc, string, bool)
	RouteDocument(c tele.Context) (tele.HandlerFunc, string, bool)
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing. Conversation
// states take priority, then registered commands, then fallbacks.
func TextRoutes(states StateRouter, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if states != nil {
			if h, name, ok := states.RouteText(c); ok {
				return handleWithSummary(c, normalizeHandlerName(name), start, "", "", func() error {
					return h(c)
				})
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if states != nil {
			if h, name, ok := states.RouteDocument(c); ok {
				return handleWithSummary(c, normalizeHandlerName(name), start, "", "", func() error {
					return h(c)
				})
			}
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
