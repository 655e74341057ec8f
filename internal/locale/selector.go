// Package locale owns the active display language. It feeds presentation
// only; the translation tables themselves live with the UI layer, which
// subscribes to locale.changed to swap them.
package locale

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/domain"
	"github.com/spec-kit/trade-companion/internal/events"
	"github.com/spec-kit/trade-companion/internal/storage"
	"github.com/spec-kit/trade-companion/pkg/util"
)

const snapshotKey = "language"

type snapshot struct {
	Language domain.Language `json:"language"`
}

// Dependencies bundles collaborators for the selector.
type Dependencies struct {
	Store      storage.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Selector is the language state container.
type Selector struct {
	mu         sync.Mutex
	store      storage.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	language   domain.Language
}

// NewSelector builds the container and rehydrates the persisted language.
func NewSelector(deps Dependencies) *Selector {
	s := &Selector{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		language:   domain.DefaultLanguage,
	}
	s.rehydrate()
	return s
}

func (s *Selector) rehydrate() {
	data, err := s.store.Load(context.Background(), snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("load language snapshot", zap.Error(err))
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || !snap.Language.Valid() {
		s.logger.Warn("corrupt language snapshot, using default")
		return
	}
	s.language = snap.Language
}

// Language returns the active display language.
func (s *Selector) Language() domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage switches the active language and persists the choice.
func (s *Selector) SetLanguage(ctx context.Context, code domain.Language) error {
	if !code.Valid() {
		return util.NewValidationError("unsupported language code", map[string]any{"code": string(code)})
	}

	s.mu.Lock()
	s.language = code
	data, err := json.Marshal(snapshot{Language: code})
	if err == nil {
		if saveErr := s.store.Save(ctx, snapshotKey, data); saveErr != nil {
			s.logger.Warn("persist language snapshot", zap.Error(saveErr))
		}
	}
	s.mu.Unlock()

	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:    events.EventLocaleChanged,
		Payload: events.LocaleChangedPayload{Language: code},
	})
	return nil
}
