package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

const (
	maxBundleSize       = 50
	maxOfferMessageLen  = 2000
	defaultBroadcastLim = 20
	maxBroadcastLim     = 100

	staleBroadcastReason = "items no longer available"
)

// StaleInterestPolicy decides what completing an offer does to open broadcasts that
// share its items.
type StaleInterestPolicy string

const (
	// PolicyKeep leaves other offers and their interests untouched.
	PolicyKeep StaleInterestPolicy = "keep"
	// PolicyCloseBroadcasts cancels PENDING broadcasts referencing an exchanged item.
	PolicyCloseBroadcasts StaleInterestPolicy = "close-broadcasts"
)

// ParsePolicy validates a policy name; empty means PolicyKeep.
func ParsePolicy(s string) (StaleInterestPolicy, error) {
	switch p := StaleInterestPolicy(s); p {
	case "":
		return PolicyKeep, nil
	case PolicyKeep, PolicyCloseBroadcasts:
		return p, nil
	}
	return "", fmt.Errorf("unknown stale interest policy %q", s)
}

// CreateOffer is the input of OfferService.Create. A nil TargetID makes a broadcast.
type CreateOffer struct {
	TargetID         *uuid.UUID
	OfferedItemIDs   []uuid.UUID
	RequestedItemIDs []uuid.UUID
	Message          string
}

// CounterOffer is the input of OfferService.Counter. Roles are taken from the parent.
type CounterOffer struct {
	OfferedItemIDs   []uuid.UUID
	RequestedItemIDs []uuid.UUID
	Message          string
}

// OfferService is the negotiation engine.
type OfferService interface {
	Create(ctx context.Context, actor uuid.UUID, in CreateOffer) (*model.Offer, error)
	Counter(ctx context.Context, actor, parentID uuid.UUID, in CounterOffer) (*model.Offer, error)
	Accept(ctx context.Context, actor, id uuid.UUID) (*model.Offer, error)
	Complete(ctx context.Context, actor, id uuid.UUID) (*model.Offer, error)
	Cancel(ctx context.Context, actor, id uuid.UUID, reason string) (*model.Offer, error)
	Get(ctx context.Context, actor, id uuid.UUID) (*model.OfferDetails, error)
	Chain(ctx context.Context, actor, id uuid.UUID) (*model.Chain, error)
	ListMine(ctx context.Context, actor uuid.UUID, f model.OfferFilter) ([]model.Offer, error)
	ListBroadcast(ctx context.Context, limit, offset int) ([]model.Offer, error)
}

type OfferServiceImpl struct {
	base
	policy StaleInterestPolicy
}

// NewOfferService constructs the engine with the given stale interest policy.
func NewOfferService(d Deps, policy StaleInterestPolicy) *OfferServiceImpl {
	if policy == "" {
		policy = PolicyKeep
	}
	return &OfferServiceImpl{base: newBase(d, "offers"), policy: policy}
}

// Create opens a new negotiation chain.
// Validation rules:
// - at least one offered item, no duplicate ids across both sides
// - target differs from initiator
// - requested items may be empty; when a target is set they belong to the target
// - offered items belong to the initiator, every listed item exists and is AVAILABLE
func (s *OfferServiceImpl) Create(ctx context.Context, actor uuid.UUID, in CreateOffer) (*model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateBundle(in.OfferedItemIDs, in.RequestedItemIDs, in.Message); err != nil {
		return nil, err
	}
	switch {
	case in.TargetID != nil && *in.TargetID == uuid.Nil:
		return nil, invalid("empty target")
	case in.TargetID != nil && *in.TargetID == actor:
		return nil, invalid("cannot make an offer to yourself")
	}

	now := s.now()
	o := &model.Offer{
		ID:               s.newID(),
		InitiatorID:      actor,
		TargetID:         in.TargetID,
		OfferedItemIDs:   slices.Clone(in.OfferedItemIDs),
		RequestedItemIDs: slices.Clone(in.RequestedItemIDs),
		Message:          strings.TrimSpace(in.Message),
		Status:           model.OfferPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkBundle(ctx, tx, o); err != nil {
			return err
		}
		return tx.Offers().Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.OfferCreated, ActorID: actor, Recipients: recipients(o.TargetID),
		OfferID: &o.ID, ItemIDs: o.ItemIDs(),
	})
	return o, nil
}

// Counter appends a new node to the chain. The parent keeps its status and becomes
// history; only the counterparty of the parent may counter.
func (s *OfferServiceImpl) Counter(ctx context.Context, actor, parentID uuid.UUID, in CounterOffer) (*model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateBundle(in.OfferedItemIDs, in.RequestedItemIDs, in.Message); err != nil {
		return nil, err
	}

	var o *model.Offer
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		parent, err := tx.Offers().Lock(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.IsBroadcast() {
			return invalid("broadcast offers cannot be countered, make a directed offer instead")
		}
		if !parent.IsParty(actor) {
			return invalid("not a counterparty of offer %s", parentID)
		}
		if err := requireActive(ctx, tx, parent, model.OfferPending); err != nil {
			return err
		}
		if parent.InitiatorID == actor {
			return invalid("cannot counter your own offer")
		}

		now := s.now()
		o = &model.Offer{
			ID:               s.newID(),
			InitiatorID:      actor,
			TargetID:         &parent.InitiatorID,
			OfferedItemIDs:   slices.Clone(in.OfferedItemIDs),
			RequestedItemIDs: slices.Clone(in.RequestedItemIDs),
			Message:          strings.TrimSpace(in.Message),
			Status:           model.OfferPending,
			ParentOfferID:    &parent.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := checkBundle(ctx, tx, o); err != nil {
			return err
		}
		return tx.Offers().Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.OfferCountered, ActorID: actor, Recipients: recipients(o.TargetID),
		OfferID: &o.ID, ItemIDs: o.ItemIDs(),
	})
	return o, nil
}

// Accept moves a PENDING directed offer to ACCEPTED after re-reading every item
// under lock.
func (s *OfferServiceImpl) Accept(ctx context.Context, actor, id uuid.UUID) (*model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var o *model.Offer
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if o, err = s.lockVisible(ctx, tx, actor, id); err != nil {
			return err
		}
		if err := requireActive(ctx, tx, o, model.OfferPending); err != nil {
			return err
		}
		if o.IsBroadcast() {
			return invalid("broadcast offers cannot be accepted, make a directed offer instead")
		}
		if *o.TargetID != actor {
			return forbidden("only the target may accept offer %s", id)
		}

		items, err := tx.Items().LockMany(ctx, o.ItemIDs())
		if err != nil {
			return err
		}
		if bad := unavailable(items, o.ItemIDs(), model.ItemAvailable); len(bad) > 0 {
			return errs.Items(errs.ErrConflict, "items no longer available", bad...)
		}
		if err := tx.Offers().UpdateStatus(ctx, o.ID, model.OfferPending, model.OfferAccepted, nil); err != nil {
			return err
		}
		o.Status = model.OfferAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.OfferAccepted, ActorID: actor, Recipients: []uuid.UUID{o.InitiatorID}, OfferID: &o.ID,
	})
	return o, nil
}

// Complete finalizes an ACCEPTED offer and exchanges its AVAILABLE items in the same
// transaction. DELETED items stay DELETED; an item exchanged elsewhere aborts.
func (s *OfferServiceImpl) Complete(ctx context.Context, actor, id uuid.UUID) (*model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		o         *model.Offer
		exchanged []uuid.UUID
		closed    []model.Offer
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if o, err = s.lockVisible(ctx, tx, actor, id); err != nil {
			return err
		}
		if o.Status != model.OfferAccepted {
			return conflict("offer %s is %s, not %s", id, o.Status, model.OfferAccepted)
		}
		if !o.IsParty(actor) {
			return forbidden("not a party to offer %s", id)
		}

		all := o.ItemIDs()
		items, err := tx.Items().LockMany(ctx, all)
		if err != nil {
			return err
		}
		byID := indexItems(items)
		var gone []uuid.UUID
		for _, itemID := range all {
			it, ok := byID[itemID]
			switch {
			case !ok || it.Status == model.ItemExchanged:
				gone = append(gone, itemID)
			case it.Status == model.ItemAvailable:
				exchanged = append(exchanged, itemID)
			}
		}
		if len(gone) > 0 {
			return errs.Items(errs.ErrConflict, "items already exchanged", gone...)
		}

		if _, err := tx.Items().UpdateStatus(ctx, exchanged, model.ItemAvailable, model.ItemExchanged); err != nil {
			return err
		}
		if err := tx.Offers().UpdateStatus(ctx, o.ID, model.OfferAccepted, model.OfferCompleted, nil); err != nil {
			return err
		}
		o.Status = model.OfferCompleted

		if s.policy == PolicyCloseBroadcasts {
			closed, err = closeStaleBroadcasts(ctx, tx, exchanged)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("offer completed",
		zap.Stringer("offer", o.ID),
		zap.Int("exchanged", len(exchanged)),
		zap.Int("closed_broadcasts", len(closed)),
	)
	s.publish(ctx, events.Event{
		Type: events.OfferCompleted, ActorID: actor, Recipients: others(o, actor),
		OfferID: &o.ID, ItemIDs: exchanged,
	})
	for i := range closed {
		s.publish(ctx, events.Event{
			Type: events.OfferCancelled, ActorID: actor, Recipients: []uuid.UUID{closed[i].InitiatorID},
			OfferID: &closed[i].ID,
		})
	}
	return o, nil
}

// Cancel ends a PENDING or ACCEPTED node with a reason. Items are untouched.
func (s *OfferServiceImpl) Cancel(ctx context.Context, actor, id uuid.UUID, reason string) (*model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("cancellation reason required")
	}
	if utf8.RuneCountInString(reason) > maxOfferMessageLen {
		return nil, invalid("reason longer than %d characters", maxOfferMessageLen)
	}

	var o *model.Offer
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if o, err = s.lockVisible(ctx, tx, actor, id); err != nil {
			return err
		}
		from := o.Status
		if err := requireActive(ctx, tx, o, model.OfferPending, model.OfferAccepted); err != nil {
			return err
		}
		if !o.IsParty(actor) {
			return forbidden("not a party to offer %s", id)
		}
		if err := tx.Offers().UpdateStatus(ctx, o.ID, from, model.OfferCancelled, &reason); err != nil {
			return err
		}
		o.Status, o.CancelReason = model.OfferCancelled, &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type: events.OfferCancelled, ActorID: actor, Recipients: others(o, actor), OfferID: &o.ID,
	})
	return o, nil
}

// Get returns an offer with item snapshots. DELETED items are returned as last seen.
func (s *OfferServiceImpl) Get(ctx context.Context, actor, id uuid.UUID) (*model.OfferDetails, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	o, err := s.store.Offers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(o, actor) {
		return nil, forbidden("offer %s is private", id)
	}

	items, err := s.store.Items().GetMany(ctx, o.ItemIDs())
	if err != nil {
		return nil, err
	}
	byID := indexItems(items)
	out := &model.OfferDetails{Offer: *o}
	for _, itemID := range o.ItemIDs() {
		if it, ok := byID[itemID]; ok {
			out.Items = append(out.Items, it)
		}
	}
	if _, err := s.store.Offers().ChildOf(ctx, id); err == nil {
		out.Superseded = true
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// Chain resolves the whole negotiation containing id, root first, and its active node.
func (s *OfferServiceImpl) Chain(ctx context.Context, actor, id uuid.UUID) (*model.Chain, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	start, err := s.store.Offers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(start, actor) {
		return nil, forbidden("offer %s is private", id)
	}

	seen := map[uuid.UUID]bool{start.ID: true}
	up := []model.Offer{*start}
	for cur := start; cur.ParentOfferID != nil; {
		if seen[*cur.ParentOfferID] {
			return nil, fmt.Errorf("offer chain cycle at %s", *cur.ParentOfferID)
		}
		if cur, err = s.store.Offers().Get(ctx, *cur.ParentOfferID); err != nil {
			return nil, err
		}
		seen[cur.ID] = true
		up = append(up, *cur)
	}
	slices.Reverse(up)

	nodes := up
	for head := start.ID; ; {
		child, err := s.store.Offers().ChildOf(ctx, head)
		if errors.Is(err, errs.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if seen[child.ID] {
			return nil, fmt.Errorf("offer chain cycle at %s", child.ID)
		}
		seen[child.ID] = true
		nodes = append(nodes, *child)
		head = child.ID
	}

	ch := &model.Chain{Nodes: nodes}
	if last := nodes[len(nodes)-1]; !last.Status.Terminal() {
		ch.Active = &last
	}
	return ch, nil
}

// ListMine lists offers where actor is a party.
func (s *OfferServiceImpl) ListMine(ctx context.Context, actor uuid.UUID, f model.OfferFilter) ([]model.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	switch f.Role {
	case model.RoleAny, model.RoleInitiator, model.RoleTarget:
	default:
		return nil, invalid("unknown role %q", f.Role)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	return s.store.Offers().ListByUser(ctx, actor, f)
}

// ListBroadcast pages through the open broadcast feed.
func (s *OfferServiceImpl) ListBroadcast(ctx context.Context, limit, offset int) ([]model.Offer, error) {
	if limit <= 0 {
		limit = defaultBroadcastLim
	}
	if limit > maxBroadcastLim {
		limit = maxBroadcastLim
	}
	if offset < 0 {
		return nil, invalid("negative offset")
	}
	return s.store.Offers().ListBroadcast(ctx, limit, offset)
}

// lockVisible locks the offer and hides directed offers from outsiders.
func (s *OfferServiceImpl) lockVisible(ctx context.Context, tx repository.Store, actor, id uuid.UUID) (*model.Offer, error) {
	o, err := tx.Offers().Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(o, actor) {
		return nil, forbidden("not a party to offer %s", id)
	}
	return o, nil
}

// requireActive checks the node is in one of allowed and has not been countered.
func requireActive(ctx context.Context, tx repository.Store, o *model.Offer, allowed ...model.OfferStatus) error {
	if !slices.Contains(allowed, o.Status) {
		return conflict("offer %s is %s", o.ID, o.Status)
	}
	if o.Status != model.OfferPending {
		return nil
	}
	child, err := tx.Offers().ChildOf(ctx, o.ID)
	if err == nil {
		return conflict("offer %s was countered by %s", o.ID, child.ID)
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return nil
}

// closeStaleBroadcasts cancels open broadcasts that offered any of the exchanged items.
func closeStaleBroadcasts(ctx context.Context, tx repository.Store, exchanged []uuid.UUID) ([]model.Offer, error) {
	stale, err := tx.Offers().ListPendingBroadcastsWithItems(ctx, exchanged)
	if err != nil {
		return nil, err
	}
	reason := staleBroadcastReason
	for i := range stale {
		if err := tx.Offers().UpdateStatus(ctx, stale[i].ID, model.OfferPending, model.OfferCancelled, &reason); err != nil {
			return nil, err
		}
		stale[i].Status, stale[i].CancelReason = model.OfferCancelled, &reason
	}
	return stale, nil
}

func validateBundle(offered, requested []uuid.UUID, message string) error {
	if len(offered) == 0 {
		return invalid("at least one offered item required")
	}
	if len(offered)+len(requested) > maxBundleSize {
		return invalid("too many items (max %d)", maxBundleSize)
	}
	if utf8.RuneCountInString(message) > maxOfferMessageLen {
		return invalid("message longer than %d characters", maxOfferMessageLen)
	}
	seen := make(map[uuid.UUID]bool, len(offered)+len(requested))
	for _, id := range append(slices.Clone(offered), requested...) {
		if id == uuid.Nil {
			return invalid("empty item id")
		}
		if seen[id] {
			return errs.Items(errs.ErrValidation, "item listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// checkBundle verifies existence, ownership and availability of every item in o.
func checkBundle(ctx context.Context, tx repository.Store, o *model.Offer) error {
	all := o.ItemIDs()
	items, err := tx.Items().GetMany(ctx, all)
	if err != nil {
		return err
	}
	byID := indexItems(items)

	var missing []uuid.UUID
	for _, id := range all {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return errs.Items(errs.ErrNotFound, "unknown items", missing...)
	}
	if bad := notOwnedBy(byID, o.OfferedItemIDs, o.InitiatorID); len(bad) > 0 {
		return errs.Items(errs.ErrValidation, "offered items must belong to the initiator", bad...)
	}
	if o.TargetID != nil {
		if bad := notOwnedBy(byID, o.RequestedItemIDs, *o.TargetID); len(bad) > 0 {
			return errs.Items(errs.ErrValidation, "requested items must belong to the target", bad...)
		}
	}
	if bad := unavailable(items, all, model.ItemAvailable); len(bad) > 0 {
		return errs.Items(errs.ErrValidation, "items not available", bad...)
	}
	return nil
}

func notOwnedBy(byID map[uuid.UUID]model.Item, ids []uuid.UUID, owner uuid.UUID) []uuid.UUID {
	var bad []uuid.UUID
	for _, id := range ids {
		if byID[id].OwnerID != owner {
			bad = append(bad, id)
		}
	}
	return bad
}

// unavailable lists ids (in input order) that are missing or not in want.
func unavailable(items []model.Item, ids []uuid.UUID, want model.ItemStatus) []uuid.UUID {
	byID := indexItems(items)
	var bad []uuid.UUID
	for _, id := range ids {
		if it, ok := byID[id]; !ok || it.Status != want {
			bad = append(bad, id)
		}
	}
	return bad
}

func canView(o *model.Offer, actor uuid.UUID) bool {
	return o.IsBroadcast() || o.IsParty(actor)
}

// others returns the parties of o other than actor.
func others(o *model.Offer, actor uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	if o.InitiatorID != actor {
		out = append(out, o.InitiatorID)
	}
	if o.TargetID != nil && *o.TargetID != actor {
		out = append(out, *o.TargetID)
	}
	return out
}

func recipients(target *uuid.UUID) []uuid.UUID {
	if target == nil {
		return nil
	}
	return []uuid.UUID{*target}
}
