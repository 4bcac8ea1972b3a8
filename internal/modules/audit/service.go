package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const defaultListLimit = 50

type store interface {
	Append(ctx context.Context, e *Entry) error
	ListByView(ctx context.Context, viewID string, limit int) ([]Entry, error)
}

// Service records audit entries. Recording is best effort: a failing
// database never fails the action being audited.
type Service struct {
	store store
	log   zerolog.Logger
}

func NewService(s *Store, log zerolog.Logger) *Service {
	return newService(s, log)
}

func newService(s store, log zerolog.Logger) *Service {
	return &Service{store: s, log: log.With().Str("component", "audit").Logger()}
}

func (s *Service) Record(ctx context.Context, e Entry) {
	if err := e.Validate(); err != nil {
		s.log.Warn().Err(err).Str("action", string(e.Action)).Msg("audit entry rejected")
		return
	}
	if err := s.store.Append(ctx, &e); err != nil {
		s.log.Error().Err(err).Str("view", e.ViewID).Str("action", string(e.Action)).Msg("audit append failed")
	}
}

func (s *Service) List(ctx context.Context, viewID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}
	entries, err := s.store.ListByView(ctx, viewID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
