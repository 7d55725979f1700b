package repository

import (
	"context"

	"github.com/barterhub/barter/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemRepository provides access to listed items and their availability status.
type ItemRepository interface {
	// Create inserts a new item.
	Create(ctx context.Context, it *model.Item) error

	// Get returns a single item by ID, including soft-deleted ones.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// GetMany returns the items that exist among ids, ordered by id.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Item, error)

	// LockMany is GetMany taking row locks until the surrounding transaction ends.
	LockMany(ctx context.Context, ids []uuid.UUID) ([]model.Item, error)

	// ListByOwner returns the owner's items, newest first.
	ListByOwner(ctx context.Context, owner uuid.UUID, includeDeleted bool) ([]model.Item, error)

	// UpdateStatus moves the listed items currently in status from to status to and
	// returns how many rows changed.
	UpdateStatus(ctx context.Context, ids []uuid.UUID, from, to model.ItemStatus) (int64, error)
}
