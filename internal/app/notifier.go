package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/events"
)

// registerBadgeNotifier mirrors the unread indicator to the log whenever
// a ticket thread changes, so the embedding shell can badge the support
// tab without polling.
func registerBadgeNotifier(a *App) {
	handler := func(_ context.Context, ev events.Event) error {
		a.Logger.Info("support badge",
			zap.String("event", string(ev.Type)),
			zap.Bool("unread", a.Tickets.HasUnreadMessages()))
		return nil
	}
	a.Dispatcher.Subscribe(events.EventTicketMessageAdded, handler)
	a.Dispatcher.Subscribe(events.EventTicketStatusChange, handler)
}
