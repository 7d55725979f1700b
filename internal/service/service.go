// Package service implements the marketplace use cases on top of repository.Store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/repository"
)

// Deps are the collaborators shared by all services.
type Deps struct {
	Store  repository.Store
	Events events.Publisher // optional, defaults to events.Nop
	Log    *zap.Logger      // optional, defaults to zap.NewNop
	Now    func() time.Time // optional, defaults to time.Now
}

type base struct {
	store repository.Store
	pub   events.Publisher
	log   *zap.Logger
	clock func() time.Time
}

func newBase(d Deps, name string) base {
	b := base{store: d.Store, pub: d.Events, log: d.Log, clock: d.Now}
	if b.pub == nil {
		b.pub = events.Nop{}
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.clock == nil {
		b.clock = time.Now
	}
	b.log = b.log.Named(name)
	return b
}

// now is truncated to the storage precision so cursors round-trip.
func (b *base) now() time.Time { return b.clock().UTC().Truncate(time.Microsecond) }

func (b *base) newID() uuid.UUID { return uuid.Must(uuid.NewV7()) }

// publish delivers ev after commit. Delivery failures never fail the operation.
func (b *base) publish(ctx context.Context, ev events.Event) {
	ev.At = b.now()
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.log.Warn("publish event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrValidation, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrForbidden, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrConflict, fmt.Sprintf(format, args...))
}

func requireActor(actor uuid.UUID) error {
	if actor == uuid.Nil {
		return fmt.Errorf("%w: no actor", errs.ErrUnauthorized)
	}
	return nil
}

// Services bundles the use cases exposed by the transports.
type Services struct {
	Items     ItemService
	Offers    OfferService
	Interests InterestService
	Chat      ChatService
}

// New builds every service over the same dependencies.
func New(d Deps, policy StaleInterestPolicy, maxMessageLen int) Services {
	return Services{
		Items:     NewItemService(d),
		Offers:    NewOfferService(d, policy),
		Interests: NewInterestService(d),
		Chat:      NewChatService(d, maxMessageLen),
	}
}
