package stub

import "time"

// LoginRequest payload for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest payload for POST /api/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// KeysRequest payload for POST /api/keys.
type KeysRequest struct {
	Exchange  string `json:"exchange"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// UserResponse mirrors the user record returned by the identity
// endpoints.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsBanned  bool      `json:"isBanned"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is the success body of login/signup.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
