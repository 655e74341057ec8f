// Package vault owns the exchange API-key records of the current user and
// the connect workflow, including its degraded offline outcome. The
// product rule: never block the user's input on network availability — a
// connect attempt always leaves a record behind.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/events"
	"github.com/spec-kit/trade-companion/internal/observability"
	"github.com/spec-kit/trade-companion/internal/remote"
	"github.com/spec-kit/trade-companion/internal/storage"
	"github.com/spec-kit/trade-companion/pkg/util"
)

const (
	containerName = "vault"
	snapshotKey   = "credentials"
)

// Submitter is the external key-submission collaborator.
type Submitter interface {
	SubmitKey(ctx context.Context, token string, sub remote.KeySubmission) error
}

// Dependencies bundles collaborators for the vault.
type Dependencies struct {
	Submitter  Submitter
	Store      storage.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Policy     config.PolicyConfig
}

// Vault is the credential state container.
type Vault struct {
	mu         sync.Mutex
	submitter  Submitter
	store      storage.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	policy     config.PolicyConfig

	credentials []domain.Credential
	isLoading   bool
	lastError   string
}

// NewVault builds the container and rehydrates persisted credentials.
func NewVault(deps Dependencies) *Vault {
	v := &Vault{
		submitter:  deps.Submitter,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		policy:     deps.Policy,
	}
	v.rehydrate()
	return v
}

func (v *Vault) rehydrate() {
	data, err := v.store.Load(context.Background(), snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		v.logger.Warn("load credential snapshot", zap.Error(err))
		return
	}
	var creds []domain.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		v.logger.Warn("corrupt credential snapshot, starting clean", zap.Error(err))
		return
	}
	v.credentials = creds
}

// AddCredential runs the connect workflow for a new exchange API key.
//
// The attempt always appends a record stamped with the acting identity:
// connected on remote success, failed on remote failure (the error is
// also returned so the caller can retry with offlineMode), or connected
// without confirmation when offlineMode is requested and the deployment
// policy trusts offline input. Duplicate prevention is the caller's
// responsibility.
func (v *Vault) AddCredential(ctx context.Context, ident domain.Identity, exchangeName, apiKey, apiSecret string, offlineMode bool) (domain.Credential, error) {
	if ident.IsZero() {
		err := util.NewNotAuthenticated()
		v.mu.Lock()
		v.recordFailureLocked("add_credential", err)
		v.mu.Unlock()
		return domain.Credential{}, err
	}

	now := time.Now().UTC()
	cred := domain.Credential{
		ID:           uuid.NewString(),
		UserID:       ident.UserID,
		ExchangeName: exchangeName,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		Status:       domain.CredentialStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	v.setLoading(true)
	submitErr := v.submitter.SubmitKey(ctx, ident.Token, remote.KeySubmission{
		Exchange:  exchangeName,
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	var resultErr error
	switch {
	case submitErr == nil:
		cred.Status = domain.CredentialStatusConnected
	case offlineMode && v.policy.OfflineTrust:
		// Degraded-mode trust decision: record the key as connected
		// without server confirmation rather than losing the input.
		cred.Status = domain.CredentialStatusConnected
		v.logger.Info("credential recorded in offline mode",
			zap.String("exchange", exchangeName), zap.Error(submitErr))
	default:
		cred.Status = domain.CredentialStatusFailed
		if util.ToDomainError(submitErr).Code == util.CodeRemoteFailure {
			resultErr = submitErr
		} else {
			resultErr = util.NewRemoteFailure(submitErr)
		}
	}
	cred.UpdatedAt = time.Now().UTC()

	v.mu.Lock()
	v.isLoading = false
	v.credentials = append(v.credentials, cred)
	if resultErr != nil {
		v.recordFailureLocked("add_credential", resultErr)
	} else {
		v.lastError = ""
		v.metrics.RecordOperation(containerName, "add_credential")
	}
	v.persistLocked(ctx)
	v.mu.Unlock()

	_ = v.dispatcher.Publish(ctx, events.Event{
		Type: events.EventCredentialAdded,
		Payload: events.CredentialPayload{
			CredentialID: cred.ID,
			ExchangeName: cred.ExchangeName,
			Status:       cred.Status,
		},
	})
	return cred, resultErr
}

// DeleteCredential removes the record if present; a no-op on an unknown
// id. Always succeeds locally, no remote call.
func (v *Vault) DeleteCredential(ctx context.Context, id string) {
	v.mu.Lock()
	removed := false
	var exchange string
	var status domain.CredentialStatus
	for i, cred := range v.credentials {
		if cred.ID == id {
			exchange, status = cred.ExchangeName, cred.Status
			v.credentials = append(v.credentials[:i], v.credentials[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		v.persistLocked(ctx)
	}
	v.mu.Unlock()

	v.metrics.RecordOperation(containerName, "delete_credential")
	if removed {
		_ = v.dispatcher.Publish(ctx, events.Event{
			Type: events.EventCredentialDeleted,
			Payload: events.CredentialPayload{
				CredentialID: id,
				ExchangeName: exchange,
				Status:       status,
			},
		})
	}
}

// FetchCredentials reconciles with the remote source. No remote listing
// exists in the backend contract, so this resolves immediately with the
// current collection.
func (v *Vault) FetchCredentials(ctx context.Context) []domain.Credential {
	v.mu.Lock()
	v.isLoading = false
	out := make([]domain.Credential, len(v.credentials))
	copy(out, v.credentials)
	v.mu.Unlock()

	v.metrics.RecordOperation(containerName, "fetch_credentials")
	return out
}

// Reset clears the collection, for re-scoping on user change.
func (v *Vault) Reset(ctx context.Context) {
	v.mu.Lock()
	v.credentials = nil
	v.lastError = ""
	v.persistLocked(ctx)
	v.mu.Unlock()
}

// Credentials returns a copy of the collection in insertion order.
func (v *Vault) Credentials() []domain.Credential {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Credential, len(v.credentials))
	copy(out, v.credentials)
	return out
}

// OwnerID returns the user id the stored records were stamped with, or
// empty for an empty collection. All records share one owner; the
// collection is reset before another user's first credential lands.
func (v *Vault) OwnerID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.credentials) == 0 {
		return ""
	}
	return v.credentials[0].UserID
}

// IsLoading reports whether a connect attempt is in flight.
func (v *Vault) IsLoading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isLoading
}

// LastError returns the stored error message, empty when none.
func (v *Vault) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastError
}

// ClearError resets lastError. No other side effect.
func (v *Vault) ClearError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastError = ""
}

func (v *Vault) setLoading(val bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isLoading = val
}

func (v *Vault) recordFailureLocked(op string, err error) {
	de := util.ToDomainError(err)
	v.lastError = de.Message
	v.metrics.RecordError(containerName, op, de.Code)
	v.logger.Warn("vault operation failed", zap.String("op", op), zap.Error(err))
}

func (v *Vault) persistLocked(ctx context.Context) {
	data, err := json.Marshal(v.credentials)
	if err != nil {
		v.logger.Error("marshal credential snapshot", zap.Error(err))
		return
	}
	if err := v.store.Save(ctx, snapshotKey, data); err != nil {
		v.logger.Warn("persist credential snapshot", zap.Error(err))
	}
}
