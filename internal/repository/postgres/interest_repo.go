package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

// InterestRepo implements InterestRepository using PostgreSQL.
type InterestRepo struct{ q querier }

// Create inserts an interest; the (offer_id, user_id) unique key rejects duplicates.
func (r *InterestRepo) Create(ctx context.Context, in *model.Interest) error {
	const q = `INSERT INTO interests (id, offer_id, user_id, created_at) VALUES ($1,$2,$3,$4)`
	if _, err := r.q.Exec(ctx, q, in.ID, in.OfferID, in.UserID, in.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("interest already recorded: %w", errs.ErrConflict)
		}
		return err
	}
	return nil
}

// ListByOffer returns interests for an offer, oldest first.
func (r *InterestRepo) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Interest, error) {
	const q = `
SELECT id, offer_id, user_id, created_at FROM interests
WHERE offer_id=$1 ORDER BY created_at, id`
	return r.list(ctx, q, offerID)
}

// ListByUser returns interests the user expressed, newest first.
func (r *InterestRepo) ListByUser(ctx context.Context, user uuid.UUID) ([]model.Interest, error) {
	const q = `
SELECT id, offer_id, user_id, created_at FROM interests
WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, user)
}

func (r *InterestRepo) list(ctx context.Context, q string, arg uuid.UUID) ([]model.Interest, error) {
	rows, err := r.q.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interest
	for rows.Next() {
		var in model.Interest
		if err := rows.Scan(&in.ID, &in.OfferID, &in.UserID, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
