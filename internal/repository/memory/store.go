// Package memory is an in-process repository.Store used for development runs and
// service tests. A single mutex serializes every unit of work; transactions run
// against a snapshot that replaces the live state only on success.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

type state struct {
	items         map[uuid.UUID]model.Item
	offers        map[uuid.UUID]model.Offer
	offerOrder    []uuid.UUID // insertion order
	interests     []model.Interest
	conversations map[uuid.UUID]model.Conversation
	messages      []model.Message
}

func newState() *state {
	return &state{
		items:         map[uuid.UUID]model.Item{},
		offers:        map[uuid.UUID]model.Offer{},
		conversations: map[uuid.UUID]model.Conversation{},
	}
}

// clone copies the containers. Entity values are replaced, never mutated in place,
// so sharing their slices between snapshots is safe.
func (s *state) clone() *state {
	return &state{
		items:         maps.Clone(s.items),
		offers:        maps.Clone(s.offers),
		offerOrder:    append([]uuid.UUID(nil), s.offerOrder...),
		interests:     append([]model.Interest(nil), s.interests...),
		conversations: maps.Clone(s.conversations),
		messages:      append([]model.Message(nil), s.messages...),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.Mutex
	root **state
	tx   *state // non-nil inside WithinTx; the mutex is already held
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, root: &st}
}

func (s *Store) Items() repository.ItemRepository                 { return itemRepo{s} }
func (s *Store) Offers() repository.OfferRepository               { return offerRepo{s} }
func (s *Store) Interests() repository.InterestRepository         { return interestRepo{s} }
func (s *Store) Conversations() repository.ConversationRepository { return conversationRepo{s} }

// WithinTx runs fn against a private snapshot and publishes it when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := (*s.root).clone()
	if err := fn(&Store{mu: s.mu, root: s.root, tx: snap}); err != nil {
		return err
	}
	*s.root = snap
	return nil
}

// view runs fn on the current state, locking when outside a transaction.
func (s *Store) view(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.root)
}
