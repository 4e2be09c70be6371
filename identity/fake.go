package identity

import (
	"context"

	"github.com/coreradius/radiusd/secretstore"
)

// FakeRepository is an in-memory Repository used by the identity, handler
// and radiusserver tests; it never touches a real database, matching
// the spec's insistence that the core carries no in-process subscriber
// cache (so tests exercise exactly the same Repository contract as
// MySQLRepository).
type FakeRepository struct {
	Subscribers map[string]Subscriber
	Secrets     []secretstore.Record
}

// NewFakeRepository returns an empty fake; populate Subscribers/Secrets
// directly.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{Subscribers: make(map[string]Subscriber)}
}

func (f *FakeRepository) Lookup(_ context.Context, username string) (Subscriber, error) {
	s, ok := f.Subscribers[username]
	if !ok {
		return Subscriber{}, ErrNotFound
	}
	return s, nil
}

func (f *FakeRepository) SecretRecords(_ context.Context) ([]secretstore.Record, error) {
	return f.Secrets, nil
}
