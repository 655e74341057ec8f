package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets. Any status
// is reachable from any other via an explicit update; sending a message
// always forces a ticket back to active.
type TicketStatus string

const (
	TicketStatusActive TicketStatus = "active"
	TicketStatusViewed TicketStatus = "viewed"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is a support conversation thread. Messages are append-only and
// chronological; LastMessageAt always equals the CreatedAt of the last
// element.
type Ticket struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	UserEmail     string          `json:"userEmail"`
	Subject       string          `json:"subject"`
	Status        TicketStatus    `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	LastMessageAt time.Time       `json:"lastMessageAt"`
	Messages      []TicketMessage `json:"messages"`
	UnreadCount   int             `json:"unreadCount"`
}

// LastMessage returns the newest message in the thread, or nil for an
// empty thread.
func (t *Ticket) LastMessage() *TicketMessage {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Clone returns a deep copy so callers cannot mutate the container's
// message slice through a returned ticket.
func (t Ticket) Clone() Ticket {
	out := t
	out.Messages = make([]TicketMessage, len(t.Messages))
	copy(out.Messages, t.Messages)
	return out
}
