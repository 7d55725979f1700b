package repository

import (
	"context"

	"github.com/barterhub/barter/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OfferRepository stores negotiation chain nodes.
type OfferRepository interface {
	// Create inserts a node with its item lists. A second counter to the same parent
	// fails with errs.ErrConflict.
	Create(ctx context.Context, o *model.Offer) error

	// Get returns a node by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// Lock is Get taking a row lock until the surrounding transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// ChildOf returns the counter-offer pointing at id, or errs.ErrNotFound.
	ChildOf(ctx context.Context, id uuid.UUID) (*model.Offer, error)

	// UpdateStatus performs a conditional transition from -> to. It fails with
	// errs.ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OfferStatus, reason *string) error

	// ListByUser returns offers the user initiated or is targeted by, newest first.
	ListByUser(ctx context.Context, user uuid.UUID, f model.OfferFilter) ([]model.Offer, error)

	// ListBroadcast returns PENDING broadcast offers, newest first.
	ListBroadcast(ctx context.Context, limit, offset int) ([]model.Offer, error)

	// ListPendingBroadcastsWithItems returns PENDING broadcast offers that reference
	// any of itemIDs.
	ListPendingBroadcastsWithItems(ctx context.Context, itemIDs []uuid.UUID) ([]model.Offer, error)
}
