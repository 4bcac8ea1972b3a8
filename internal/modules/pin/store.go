package pin

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const Collection = "pins"

// Store reads pins from Firestore.
type Store struct {
	client     *firestore.Client
	collection string
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client, collection: Collection}
}

func (s *Store) List(ctx context.Context) ([]Pin, error) {
	docs, err := s.client.Collection(s.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	out := make([]Pin, 0, len(docs))
	for _, d := range docs {
		var p Pin
		if err := d.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode pin %s: %w", d.Ref.ID, err)
		}
		p.ID = d.Ref.ID
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Pin, error) {
	d, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pin %s: %w", id, err)
	}
	var p Pin
	if err := d.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode pin %s: %w", id, err)
	}
	p.ID = d.Ref.ID
	return &p, nil
}

// Put writes p under its ID. Used by seeding and tests; the map engine
// never writes pins.
func (s *Store) Put(ctx context.Context, p Pin) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.client.Collection(s.collection).Doc(p.ID).Set(ctx, p)
	return err
}
