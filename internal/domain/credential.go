package domain

import "time"

// CredentialStatus classifies the outcome of a connect attempt. It is a
// terminal classification per attempt; a credential is never retried
// automatically.
type CredentialStatus string

const (
	CredentialStatusPending   CredentialStatus = "pending"
	CredentialStatusConnected CredentialStatus = "connected"
	CredentialStatusFailed    CredentialStatus = "failed"
)

// Credential is a stored exchange API key/secret pair plus its connection
// status. UserID is a back-reference to the owning user, stamped at
// creation time.
type Credential struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	ExchangeName string           `json:"exchangeName"`
	APIKey       string           `json:"apiKey"`
	APISecret    string           `json:"apiSecret"`
	Status       CredentialStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
