// Package tickets owns the support-ticket threads: creation, replies,
// status transitions and the derived unread indicator. Tickets are kept
// newest-first; message threads are append-only and never reordered.
package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/events"
	"github.com/spec-kit/trade-companion/internal/observability"
	"github.com/spec-kit/trade-companion/internal/storage"
	"github.com/spec-kit/trade-companion/pkg/util"
)

const (
	containerName = "tickets"
	snapshotKey   = "tickets"
)

// snapshot is the persisted slice of engine state. Only the ticket list
// and the unread flag survive a restart; activeTicket and loading/error
// fields are runtime-only.
type snapshot struct {
	Tickets   []domain.Ticket `json:"tickets"`
	HasUnread bool            `json:"hasUnreadMessages"`
}

// Dependencies bundles collaborators for the ticket engine.
type Dependencies struct {
	Store      storage.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Engine is the ticket state container.
type Engine struct {
	mu         sync.Mutex
	store      storage.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	tickets      []domain.Ticket
	activeTicket *domain.Ticket
	hasUnread    bool
	isLoading    bool
	lastError    string
}

// NewEngine builds the container and rehydrates persisted tickets.
func NewEngine(deps Dependencies) *Engine {
	e := &Engine{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	e.rehydrate()
	return e
}

func (e *Engine) rehydrate() {
	data, err := e.store.Load(context.Background(), snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Warn("load ticket snapshot", zap.Error(err))
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		e.logger.Warn("corrupt ticket snapshot, starting clean", zap.Error(err))
		return
	}
	e.tickets = snap.Tickets
	e.hasUnread = snap.HasUnread
}

// MessageID derives the deterministic id for the message at the given
// 1-based position of a ticket thread.
func MessageID(ticketID string, position int) string {
	ns, err := uuid.Parse(ticketID)
	if err != nil {
		ns = uuid.NewSHA1(uuid.NameSpaceOID, []byte(ticketID))
	}
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("message-%d", position))).String()
}

// CreateTicket opens a new ticket with one seed message authored by the
// current user, prepends it (newest-first) and stages it as the active
// ticket.
func (e *Engine) CreateTicket(ctx context.Context, ident domain.Identity, subject, message, imageURL string) (domain.Ticket, error) {
	if ident.IsZero() {
		err := util.NewNotAuthenticated()
		e.mu.Lock()
		e.recordFailureLocked("create_ticket", err)
		e.mu.Unlock()
		return domain.Ticket{}, err
	}

	now := time.Now().UTC()
	ticketID := uuid.NewString()
	seed := domain.TicketMessage{
		ID:         MessageID(ticketID, 1),
		TicketID:   ticketID,
		SenderID:   ident.UserID,
		SenderType: domain.SenderTypeUser,
		Content:    message,
		ImageURL:   imageURL,
		CreatedAt:  now,
	}
	ticket := domain.Ticket{
		ID:            ticketID,
		UserID:        ident.UserID,
		UserEmail:     ident.Email,
		Subject:       subject,
		Status:        domain.TicketStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
		Messages:      []domain.TicketMessage{seed},
	}

	e.mu.Lock()
	e.tickets = append([]domain.Ticket{ticket}, e.tickets...)
	active := ticket.Clone()
	e.activeTicket = &active
	e.lastError = ""
	e.recomputeUnreadLocked(ident.Role)
	e.persistLocked(ctx)
	e.mu.Unlock()

	e.metrics.RecordOperation(containerName, "create_ticket")
	_ = e.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{TicketID: ticketID, Subject: subject},
	})
	return ticket.Clone(), nil
}

// SendMessage appends a reply to the thread. The sender type follows the
// acting session's role. Sending any message forces the ticket back to
// active, reopening closed tickets, and refreshes updatedAt and
// lastMessageAt.
func (e *Engine) SendMessage(ctx context.Context, ident domain.Identity, ticketID, content, imageURL string) (domain.TicketMessage, error) {
	if ident.IsZero() {
		err := util.NewNotAuthenticated()
		e.mu.Lock()
		e.recordFailureLocked("send_message", err)
		e.mu.Unlock()
		return domain.TicketMessage{}, err
	}

	e.mu.Lock()
	idx := e.indexLocked(ticketID)
	if idx < 0 {
		err := util.NewTicketNotFound(ticketID)
		e.recordFailureLocked("send_message", err)
		e.mu.Unlock()
		return domain.TicketMessage{}, err
	}

	ticket := &e.tickets[idx]
	now := time.Now().UTC()
	msg := domain.TicketMessage{
		ID:         MessageID(ticketID, len(ticket.Messages)+1),
		TicketID:   ticketID,
		SenderID:   ident.UserID,
		SenderType: domain.SenderTypeForRole(ident.Role),
		Content:    content,
		ImageURL:   imageURL,
		CreatedAt:  now,
	}
	ticket.Messages = append(ticket.Messages, msg)
	ticket.Status = domain.TicketStatusActive
	ticket.UpdatedAt = msg.CreatedAt
	ticket.LastMessageAt = msg.CreatedAt
	e.lastError = ""
	e.recomputeUnreadLocked(ident.Role)
	e.syncActiveLocked(ticketID)
	e.persistLocked(ctx)
	e.mu.Unlock()

	e.metrics.RecordOperation(containerName, "send_message")
	_ = e.dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketMessageAdded,
		Payload: events.TicketMessageAddedPayload{
			TicketID:   ticketID,
			MessageID:  msg.ID,
			SenderType: msg.SenderType,
		},
	})
	return msg, nil
}

// UpdateTicketStatus sets the status unconditionally; no transition table
// restricts which status can follow which. The unread flag is recomputed
// afterwards.
func (e *Engine) UpdateTicketStatus(ctx context.Context, ident domain.Identity, ticketID string, status domain.TicketStatus) (domain.Ticket, error) {
	e.mu.Lock()
	idx := e.indexLocked(ticketID)
	if idx < 0 {
		err := util.NewTicketNotFound(ticketID)
		e.recordFailureLocked("update_status", err)
		e.mu.Unlock()
		return domain.Ticket{}, err
	}

	ticket := &e.tickets[idx]
	oldStatus := ticket.Status
	ticket.Status = status
	ticket.UpdatedAt = time.Now().UTC()
	e.lastError = ""
	e.recomputeUnreadLocked(ident.Role)
	e.syncActiveLocked(ticketID)
	e.persistLocked(ctx)
	out := ticket.Clone()
	e.mu.Unlock()

	e.metrics.RecordOperation(containerName, "update_status")
	_ = e.dispatcher.Publish(ctx, events.Event{
		Type: events.EventTicketStatusChange,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  ticketID,
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return out, nil
}

// MarkTicketAsRead transitions an active ticket to viewed. Tickets in any
// other status are returned as-is.
func (e *Engine) MarkTicketAsRead(ctx context.Context, ident domain.Identity, ticketID string) (domain.Ticket, error) {
	e.mu.Lock()
	idx := e.indexLocked(ticketID)
	if idx < 0 {
		err := util.NewTicketNotFound(ticketID)
		e.recordFailureLocked("mark_read", err)
		e.mu.Unlock()
		return domain.Ticket{}, err
	}
	if e.tickets[idx].Status != domain.TicketStatusActive {
		out := e.tickets[idx].Clone()
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	return e.UpdateTicketStatus(ctx, ident, ticketID, domain.TicketStatusViewed)
}

// FetchTickets recomputes the unread flag for the acting role and returns
// the collection newest-first.
func (e *Engine) FetchTickets(ctx context.Context, ident domain.Identity) []domain.Ticket {
	e.mu.Lock()
	e.isLoading = false
	e.recomputeUnreadLocked(ident.Role)
	e.persistLocked(ctx)
	out := e.cloneTicketsLocked()
	e.mu.Unlock()

	e.metrics.RecordOperation(containerName, "fetch_tickets")
	return out
}

// FetchTicket resolves one ticket and stages it as the active ticket.
func (e *Engine) FetchTicket(ctx context.Context, ident domain.Identity, ticketID string) (domain.Ticket, error) {
	e.mu.Lock()
	idx := e.indexLocked(ticketID)
	if idx < 0 {
		err := util.NewTicketNotFound(ticketID)
		e.recordFailureLocked("fetch_ticket", err)
		e.mu.Unlock()
		return domain.Ticket{}, err
	}
	out := e.tickets[idx].Clone()
	active := out.Clone()
	e.activeTicket = &active
	e.recomputeUnreadLocked(ident.Role)
	e.persistLocked(ctx)
	e.mu.Unlock()

	e.metrics.RecordOperation(containerName, "fetch_ticket")
	return out, nil
}

// SetActiveTicket stages the selected ticket for detail viewing. Pure
// state setter; pass nil to clear.
func (e *Engine) SetActiveTicket(ticket *domain.Ticket) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ticket == nil {
		e.activeTicket = nil
		return
	}
	staged := ticket.Clone()
	e.activeTicket = &staged
}

// ActiveTicket returns a copy of the staged ticket, or nil.
func (e *Engine) ActiveTicket() *domain.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeTicket == nil {
		return nil
	}
	out := e.activeTicket.Clone()
	return &out
}

// Tickets returns a copy of the collection, newest-first.
func (e *Engine) Tickets() []domain.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloneTicketsLocked()
}

// HasUnreadMessages reports whether any active ticket contains a message
// from the counterpart of the acting role, as of the last recompute.
func (e *Engine) HasUnreadMessages() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasUnread
}

// IsLoading reports whether an operation is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLoading
}

// LastError returns the stored error message, empty when none.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// ClearError resets lastError. No other side effect.
func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastError = ""
}

func (e *Engine) indexLocked(ticketID string) int {
	for i := range e.tickets {
		if e.tickets[i].ID == ticketID {
			return i
		}
	}
	return -1
}

// recomputeUnreadLocked derives the unread indicator as a pure function
// of (tickets, viewer role): true iff any active ticket contains a
// counterpart-role message. Per-ticket unread counts follow the same
// rule and drop to zero once a ticket leaves active.
func (e *Engine) recomputeUnreadLocked(viewer domain.Role) {
	counterpart := domain.SenderTypeForRole(viewer.Counterpart())
	unread := false
	for i := range e.tickets {
		t := &e.tickets[i]
		if t.Status != domain.TicketStatusActive {
			t.UnreadCount = 0
			continue
		}
		count := 0
		for _, msg := range t.Messages {
			if msg.SenderType == counterpart {
				count++
			}
		}
		t.UnreadCount = count
		if count > 0 {
			unread = true
		}
	}
	e.hasUnread = unread
}

func (e *Engine) syncActiveLocked(ticketID string) {
	if e.activeTicket == nil || e.activeTicket.ID != ticketID {
		return
	}
	if idx := e.indexLocked(ticketID); idx >= 0 {
		refreshed := e.tickets[idx].Clone()
		e.activeTicket = &refreshed
	}
}

func (e *Engine) cloneTicketsLocked() []domain.Ticket {
	out := make([]domain.Ticket, len(e.tickets))
	for i := range e.tickets {
		out[i] = e.tickets[i].Clone()
	}
	return out
}

func (e *Engine) recordFailureLocked(op string, err error) {
	de := util.ToDomainError(err)
	e.lastError = de.Message
	e.metrics.RecordError(containerName, op, de.Code)
	e.logger.Warn("ticket operation failed", zap.String("op", op), zap.Error(err))
}

func (e *Engine) persistLocked(ctx context.Context) {
	data, err := json.Marshal(snapshot{Tickets: e.tickets, HasUnread: e.hasUnread})
	if err != nil {
		e.logger.Error("marshal ticket snapshot", zap.Error(err))
		return
	}
	if err := e.store.Save(ctx, snapshotKey, data); err != nil {
		e.logger.Warn("persist ticket snapshot", zap.Error(err))
	}
}
