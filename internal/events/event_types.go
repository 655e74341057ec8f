package events

import (
	"time"

	"github.com/spec-kit/trade-companion/internal/domain"
)

// EventType enumerates state-change notifications published by the
// containers. The presentation layer subscribes to these instead of
// polling container state.
type EventType string

const (
	EventSessionLoggedIn    EventType = "session.logged_in"
	EventSessionLoggedOut   EventType = "session.logged_out"
	EventUserBanChanged     EventType = "user.ban_changed"
	EventCredentialAdded    EventType = "credential.added"
	EventCredentialDeleted  EventType = "credential.deleted"
	EventTicketCreated      EventType = "ticket.created"
	EventTicketMessageAdded EventType = "ticket.message_added"
	EventTicketStatusChange EventType = "ticket.status_changed"
	EventLocaleChanged      EventType = "locale.changed"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// SessionPayload accompanies login/logout events.
type SessionPayload struct {
	UserID string
	Email  string
	Role   domain.Role
}

// BanChangedPayload accompanies ban/unban events.
type BanChangedPayload struct {
	UserID string
	Banned bool
}

// CredentialPayload accompanies credential add/delete events.
type CredentialPayload struct {
	CredentialID string
	ExchangeName string
	Status       domain.CredentialStatus
}

// TicketCreatedPayload accompanies ticket creation.
type TicketCreatedPayload struct {
	TicketID string
	Subject  string
}

// TicketMessageAddedPayload accompanies a reply on a ticket.
type TicketMessageAddedPayload struct {
	TicketID   string
	MessageID  string
	SenderType domain.SenderType
}

// TicketStatusChangedPayload accompanies explicit status updates.
type TicketStatusChangedPayload struct {
	TicketID  string
	OldStatus domain.TicketStatus
	NewStatus domain.TicketStatus
}

// LocaleChangedPayload accompanies language switches.
type LocaleChangedPayload struct {
	Language domain.Language
}
