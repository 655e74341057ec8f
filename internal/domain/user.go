package domain

import (
	"strings"
	"time"
)

// Role distinguishes end-users from support admins.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Counterpart returns the opposing role in a support conversation.
func (r Role) Counterpart() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// User is the authenticated identity that owns credentials and tickets.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	IsBanned  bool      `json:"isBanned"`
}

// Identity is a point-in-time snapshot of the acting session, passed by
// value into container operations. A zero UserID means no authenticated
// session. The snapshot is not re-validated after it is taken.
type Identity struct {
	UserID string
	Email  string
	Role   Role
	Token  string
}

// IsZero reports whether the identity carries no authenticated user.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// DisplayNameFromEmail derives a default display name from the local part
// of an email address.
func DisplayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
