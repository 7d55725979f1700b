package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

// OfferRepo implements OfferRepository using PostgreSQL. Item lists live in
// offer_items so items stay referenced (ON DELETE RESTRICT) for history.
type OfferRepo struct{ q querier }

const offerSelect = `
SELECT o.id, o.initiator_id, o.target_id, o.message, o.status, o.parent_offer_id,
       o.cancel_reason, o.created_at, o.updated_at,
       ARRAY(SELECT i.item_id::text FROM offer_items i
             WHERE i.offer_id=o.id AND i.side='offered' ORDER BY i.position),
       ARRAY(SELECT i.item_id::text FROM offer_items i
             WHERE i.offer_id=o.id AND i.side='requested' ORDER BY i.position)
FROM offers o`

func scanOffer(row pgx.Row) (model.Offer, error) {
	var (
		o                  model.Offer
		status             string
		offered, requested []string
	)
	if err := row.Scan(&o.ID, &o.InitiatorID, &o.TargetID, &o.Message, &status, &o.ParentOfferID,
		&o.CancelReason, &o.CreatedAt, &o.UpdatedAt, &offered, &requested); err != nil {
		return o, err
	}
	o.Status = model.OfferStatus(status)
	var err error
	if o.OfferedItemIDs, err = parseIDs(offered); err != nil {
		return o, err
	}
	if o.RequestedItemIDs, err = parseIDs(requested); err != nil {
		return o, err
	}
	return o, nil
}

// Create inserts the offer row and its ordered item lists.
func (r *OfferRepo) Create(ctx context.Context, o *model.Offer) error {
	const ins = `
INSERT INTO offers (id, initiator_id, target_id, message, status, parent_offer_id, cancel_reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	const insItems = `
INSERT INTO offer_items (offer_id, item_id, side, position)
SELECT $1, u.item_id, $3, u.ord - 1
FROM unnest($2::uuid[]) WITH ORDINALITY AS u(item_id, ord)`

	if _, err := r.q.Exec(ctx, ins, o.ID, o.InitiatorID, o.TargetID, o.Message, string(o.Status),
		o.ParentOfferID, o.CancelReason, o.CreatedAt, o.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("offer already countered: %w", errs.ErrConflict)
		}
		return err
	}
	if _, err := r.q.Exec(ctx, insItems, o.ID, idStrings(o.OfferedItemIDs), "offered"); err != nil {
		return err
	}
	if len(o.RequestedItemIDs) > 0 {
		if _, err := r.q.Exec(ctx, insItems, o.ID, idStrings(o.RequestedItemIDs), "requested"); err != nil {
			return err
		}
	}
	return nil
}

// Get returns an offer by id.
func (r *OfferRepo) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return r.one(ctx, offerSelect+` WHERE o.id=$1`, id)
}

// Lock returns an offer by id holding its row lock.
func (r *OfferRepo) Lock(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return r.one(ctx, offerSelect+` WHERE o.id=$1 FOR UPDATE OF o`, id)
}

// ChildOf returns the counter-offer made to id.
func (r *OfferRepo) ChildOf(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return r.one(ctx, offerSelect+` WHERE o.parent_offer_id=$1`, id)
}

func (r *OfferRepo) one(ctx context.Context, q string, id uuid.UUID) (*model.Offer, error) {
	o, err := scanOffer(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

// UpdateStatus is a compare-and-set on the status column.
func (r *OfferRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OfferStatus, reason *string) error {
	const q = `
UPDATE offers SET status=$3, cancel_reason=COALESCE($4, cancel_reason), updated_at=now()
WHERE id=$1 AND status=$2`
	tag, err := r.q.Exec(ctx, q, id, string(from), string(to), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offer %s is no longer %s: %w", id, from, errs.ErrConflict)
	}
	return nil
}

// ListByUser returns offers where the user is a party, newest first.
func (r *OfferRepo) ListByUser(ctx context.Context, user uuid.UUID, f model.OfferFilter) ([]model.Offer, error) {
	const q = offerSelect + `
WHERE (($2 = '' AND (o.initiator_id=$1 OR o.target_id=$1))
    OR ($2 = 'initiator' AND o.initiator_id=$1)
    OR ($2 = 'target' AND o.target_id=$1))
  AND ($3 = '' OR o.status=$3)
ORDER BY o.created_at DESC, o.id DESC`
	return r.list(ctx, q, user, string(f.Role), string(f.Status))
}

// ListBroadcast returns the open broadcast feed.
func (r *OfferRepo) ListBroadcast(ctx context.Context, limit, offset int) ([]model.Offer, error) {
	const q = offerSelect + `
WHERE o.target_id IS NULL AND o.status='PENDING'
ORDER BY o.created_at DESC, o.id DESC
LIMIT $1 OFFSET $2`
	return r.list(ctx, q, limit, offset)
}

// ListPendingBroadcastsWithItems returns open broadcasts referencing any of itemIDs.
func (r *OfferRepo) ListPendingBroadcastsWithItems(ctx context.Context, itemIDs []uuid.UUID) ([]model.Offer, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	const q = offerSelect + `
WHERE o.target_id IS NULL AND o.status='PENDING'
  AND EXISTS (SELECT 1 FROM offer_items i WHERE i.offer_id=o.id AND i.item_id = ANY($1::uuid[]))
ORDER BY o.created_at, o.id`
	return r.list(ctx, q, idStrings(itemIDs))
}

func (r *OfferRepo) list(ctx context.Context, q string, args ...any) ([]model.Offer, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
