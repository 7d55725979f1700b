package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/barterhub/barter/internal/repository"
)

// Store implements repository.Store on top of a pgx pool.
type Store struct {
	db   *DB
	q    querier
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a store issuing statements directly on the pool.
func NewStore(db *DB) *Store { return &Store{db: db, q: db.Pool} }

func (s *Store) Items() repository.ItemRepository                 { return &ItemRepo{q: s.q} }
func (s *Store) Offers() repository.OfferRepository               { return &OfferRepo{q: s.q} }
func (s *Store) Interests() repository.InterestRepository         { return &InterestRepo{q: s.q} }
func (s *Store) Conversations() repository.ConversationRepository { return &ConversationRepo{q: s.q} }

// txOptions is the isolation used by WithinTx. Row locks taken by the repositories
// plus conditional status writes serialize competing transitions.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithinTx runs fn in a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.Pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	return fn(&Store{db: s.db, q: tx, inTx: true})
}

// idStrings renders ids for uuid[] parameters.
func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// parseIDs is the inverse of idStrings for uuid[]::text[] columns.
func parseIDs(ss []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.FromString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
