package domain

import "time"

// SenderType indicates which side of the support conversation authored a
// message.
type SenderType string

const (
	SenderTypeUser  SenderType = "user"
	SenderTypeAdmin SenderType = "admin"
)

// SenderTypeForRole maps a session role onto the message sender type.
func SenderTypeForRole(r Role) SenderType {
	if r == RoleAdmin {
		return SenderTypeAdmin
	}
	return SenderTypeUser
}

// TicketMessage is a single entry in a ticket thread. Immutable once
// appended; owned exclusively by its parent ticket.
type TicketMessage struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticketId"`
	SenderID   string     `json:"senderId"`
	SenderType SenderType `json:"senderType"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
