package repository

import (
	"context"

	"github.com/barterhub/barter/internal/model"
	"github.com/gofrs/uuid/v5"
)

// InterestRepository stores interest records against broadcast offers.
type InterestRepository interface {
	// Create inserts an interest. A duplicate (offer, user) pair fails with errs.ErrConflict.
	Create(ctx context.Context, in *model.Interest) error

	// ListByOffer returns interests for an offer, oldest first.
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Interest, error)

	// ListByUser returns interests expressed by the user, newest first.
	ListByUser(ctx context.Context, user uuid.UUID) ([]model.Interest, error)
}
