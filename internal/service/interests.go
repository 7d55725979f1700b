package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

// InterestService records interest in broadcast offers. Recording interest never
// changes the offer; the owner follows up with a directed offer.
type InterestService interface {
	Create(ctx context.Context, actor, offerID uuid.UUID) (*model.Interest, error)
	ListForOffer(ctx context.Context, actor, offerID uuid.UUID) ([]model.Interest, error)
	ListMine(ctx context.Context, actor uuid.UUID) ([]model.Interest, error)
}

type InterestServiceImpl struct{ base }

// NewInterestService constructs InterestService.
func NewInterestService(d Deps) *InterestServiceImpl {
	return &InterestServiceImpl{base: newBase(d, "interests")}
}

// Create records actor's interest in an open broadcast offer.
func (s *InterestServiceImpl) Create(ctx context.Context, actor, offerID uuid.UUID) (*model.Interest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		in    *model.Interest
		owner uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		o, err := tx.Offers().Lock(ctx, offerID)
		if err != nil {
			return err
		}
		if !o.IsBroadcast() {
			return invalid("interest applies to broadcast offers only")
		}
		if o.Status != model.OfferPending {
			return conflict("offer %s is %s", offerID, o.Status)
		}
		if o.InitiatorID == actor {
			return invalid("cannot express interest in your own offer")
		}
		owner = o.InitiatorID
		in = &model.Interest{ID: s.newID(), OfferID: offerID, UserID: actor, CreatedAt: s.now()}
		return tx.Interests().Create(ctx, in)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.InterestCreated, ActorID: actor, Recipients: []uuid.UUID{owner}, OfferID: &offerID,
	})
	return in, nil
}

// ListForOffer is restricted to the offer's initiator.
func (s *InterestServiceImpl) ListForOffer(ctx context.Context, actor, offerID uuid.UUID) ([]model.Interest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	o, err := s.store.Offers().Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.InitiatorID != actor {
		return nil, forbidden("only the offer owner may list interests")
	}
	return s.store.Interests().ListByOffer(ctx, offerID)
}

// ListMine returns interests actor expressed.
func (s *InterestServiceImpl) ListMine(ctx context.Context, actor uuid.UUID) ([]model.Interest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.store.Interests().ListByUser(ctx, actor)
}
