package pin

import (
	"context"

	"github.com/rs/zerolog"
)

type store interface {
	List(ctx context.Context) ([]Pin, error)
	Get(ctx context.Context, id string) (*Pin, error)
}

type Service struct {
	store store
	log   zerolog.Logger
}

func NewService(s *Store, log zerolog.Logger) *Service {
	return newService(s, log)
}

func newService(s store, log zerolog.Logger) *Service {
	return &Service{store: s, log: log.With().Str("component", "pin").Logger()}
}

// List returns every renderable pin. Pins that fail validation are logged
// and left out.
func (s *Service) List(ctx context.Context) ([]Pin, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if err := p.Validate(); err != nil {
			s.log.Warn().Str("pin", p.ID).Float64("lat", p.Lat).Float64("lng", p.Lng).Msg("skipping invalid pin")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Pin, error) {
	return s.store.Get(ctx, id)
}
