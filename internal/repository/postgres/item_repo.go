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

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ q querier }

const itemCols = `id, owner_id, title, description, condition, category, type, image_refs, status, created_at, updated_at`

func scanItem(row pgx.Row) (model.Item, error) {
	var (
		it     model.Item
		status string
	)
	err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Condition,
		&it.Category, &it.Type, &it.ImageRefs, &status, &it.CreatedAt, &it.UpdatedAt)
	it.Status = model.ItemStatus(status)
	return it, err
}

// Create inserts a new item.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	const q = `
INSERT INTO items (` + itemCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	refs := it.ImageRefs
	if refs == nil {
		refs = []string{}
	}
	_, err := r.q.Exec(ctx, q, it.ID, it.OwnerID, it.Title, it.Description, it.Condition,
		it.Category, it.Type, refs, string(it.Status), it.CreatedAt, it.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("item %s: %w", it.ID, errs.ErrConflict)
		}
		return err
	}
	return nil
}

// Get returns a single item by id.
func (r *ItemRepo) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE id=$1`
	it, err := scanItem(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &it, nil
}

// GetMany returns existing items among ids ordered by id.
func (r *ItemRepo) GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE id = ANY($1::uuid[]) ORDER BY id`
	return r.many(ctx, q, ids)
}

// LockMany locks item rows in id order so concurrent completions touching the
// same items queue instead of deadlocking.
func (r *ItemRepo) LockMany(ctx context.Context, ids []uuid.UUID) ([]model.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	return r.many(ctx, q, ids)
}

func (r *ItemRepo) many(ctx context.Context, q string, ids []uuid.UUID) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, q, idStrings(ids))
}

// ListByOwner returns the owner's items, newest first.
func (r *ItemRepo) ListByOwner(ctx context.Context, owner uuid.UUID, includeDeleted bool) ([]model.Item, error) {
	const q = `
SELECT ` + itemCols + `
FROM items
WHERE owner_id=$1 AND ($2 OR status <> 'DELETED')
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, owner, includeDeleted)
}

func (r *ItemRepo) list(ctx context.Context, q string, args ...any) ([]model.Item, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateStatus changes status for rows still in from.
func (r *ItemRepo) UpdateStatus(ctx context.Context, ids []uuid.UUID, from, to model.ItemStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `
UPDATE items SET status=$3, updated_at=now()
WHERE id = ANY($1::uuid[]) AND status=$2`
	tag, err := r.q.Exec(ctx, q, idStrings(ids), string(from), string(to))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
