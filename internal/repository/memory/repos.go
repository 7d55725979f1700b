package memory

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/gofrs/uuid/v5"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

func byID(a, b model.Item) int { return bytes.Compare(a.ID[:], b.ID[:]) }

// newestFirst orders by time desc, then id desc.
func newestFirst[T any](at func(T) (int64, uuid.UUID)) func(a, b T) int {
	return func(a, b T) int {
		ta, ia := at(a)
		tb, ib := at(b)
		if c := cmp.Compare(tb, ta); c != 0 {
			return c
		}
		return bytes.Compare(ib[:], ia[:])
	}
}

// --- items ---

type itemRepo struct{ s *Store }

func (r itemRepo) Create(_ context.Context, it *model.Item) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.items[it.ID]; ok {
			return fmt.Errorf("item %s: %w", it.ID, errs.ErrConflict)
		}
		cp := *it
		cp.ImageRefs = slices.Clone(it.ImageRefs)
		st.items[it.ID] = cp
		return nil
	})
}

func (r itemRepo) Get(_ context.Context, id uuid.UUID) (*model.Item, error) {
	var out *model.Item
	err := r.s.view(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return fmt.Errorf("item %s: %w", id, errs.ErrNotFound)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r itemRepo) GetMany(_ context.Context, ids []uuid.UUID) ([]model.Item, error) {
	var out []model.Item
	err := r.s.view(func(st *state) error {
		seen := map[uuid.UUID]bool{}
		for _, id := range ids {
			if it, ok := st.items[id]; ok && !seen[id] {
				seen[id] = true
				out = append(out, it)
			}
		}
		slices.SortFunc(out, byID)
		return nil
	})
	return out, err
}

// LockMany equals GetMany: the store mutex already serializes transactions.
func (r itemRepo) LockMany(ctx context.Context, ids []uuid.UUID) ([]model.Item, error) {
	return r.GetMany(ctx, ids)
}

func (r itemRepo) ListByOwner(_ context.Context, owner uuid.UUID, includeDeleted bool) ([]model.Item, error) {
	var out []model.Item
	err := r.s.view(func(st *state) error {
		for _, it := range st.items {
			if it.OwnerID == owner && (includeDeleted || it.Status != model.ItemDeleted) {
				out = append(out, it)
			}
		}
		slices.SortFunc(out, newestFirst(func(it model.Item) (int64, uuid.UUID) {
			return it.CreatedAt.UnixNano(), it.ID
		}))
		return nil
	})
	return out, err
}

func (r itemRepo) UpdateStatus(_ context.Context, ids []uuid.UUID, from, to model.ItemStatus) (int64, error) {
	var n int64
	err := r.s.view(func(st *state) error {
		for _, id := range ids {
			it, ok := st.items[id]
			if !ok || it.Status != from {
				continue
			}
			it.Status = to
			st.items[id] = it
			n++
		}
		return nil
	})
	return n, err
}

// --- offers ---

type offerRepo struct{ s *Store }

func (r offerRepo) Create(_ context.Context, o *model.Offer) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.offers[o.ID]; ok {
			return fmt.Errorf("offer %s: %w", o.ID, errs.ErrConflict)
		}
		if o.ParentOfferID != nil {
			if _, ok := st.offers[*o.ParentOfferID]; !ok {
				return fmt.Errorf("parent offer %s: %w", *o.ParentOfferID, errs.ErrNotFound)
			}
			for _, other := range st.offers {
				if other.ParentOfferID != nil && *other.ParentOfferID == *o.ParentOfferID {
					return fmt.Errorf("offer already countered: %w", errs.ErrConflict)
				}
			}
		}
		cp := *o
		cp.OfferedItemIDs = slices.Clone(o.OfferedItemIDs)
		cp.RequestedItemIDs = slices.Clone(o.RequestedItemIDs)
		st.offers[o.ID] = cp
		st.offerOrder = append(st.offerOrder, o.ID)
		return nil
	})
}

func (r offerRepo) Get(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	var out *model.Offer
	err := r.s.view(func(st *state) error {
		o, ok := st.offers[id]
		if !ok {
			return fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
		}
		out = &o
		return nil
	})
	return out, err
}

func (r offerRepo) Lock(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return r.Get(ctx, id)
}

func (r offerRepo) ChildOf(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	var out *model.Offer
	err := r.s.view(func(st *state) error {
		for _, oid := range st.offerOrder {
			o := st.offers[oid]
			if o.ParentOfferID != nil && *o.ParentOfferID == id {
				out = &o
				return nil
			}
		}
		return fmt.Errorf("counter to %s: %w", id, errs.ErrNotFound)
	})
	return out, err
}

func (r offerRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.OfferStatus, reason *string) error {
	return r.s.view(func(st *state) error {
		o, ok := st.offers[id]
		if !ok || o.Status != from {
			return fmt.Errorf("offer %s is no longer %s: %w", id, from, errs.ErrConflict)
		}
		o.Status = to
		if reason != nil {
			rs := *reason
			o.CancelReason = &rs
		}
		st.offers[id] = o
		return nil
	})
}

// filterOffers returns matches newest first (reverse insertion order).
func (r offerRepo) filterOffers(keep func(model.Offer) bool) ([]model.Offer, error) {
	var out []model.Offer
	err := r.s.view(func(st *state) error {
		for i := len(st.offerOrder) - 1; i >= 0; i-- {
			if o := st.offers[st.offerOrder[i]]; keep(o) {
				out = append(out, o)
			}
		}
		return nil
	})
	return out, err
}

func (r offerRepo) ListByUser(_ context.Context, user uuid.UUID, f model.OfferFilter) ([]model.Offer, error) {
	return r.filterOffers(func(o model.Offer) bool {
		isTarget := o.TargetID != nil && *o.TargetID == user
		switch f.Role {
		case model.RoleInitiator:
			if o.InitiatorID != user {
				return false
			}
		case model.RoleTarget:
			if !isTarget {
				return false
			}
		default:
			if o.InitiatorID != user && !isTarget {
				return false
			}
		}
		return f.Status == "" || o.Status == f.Status
	})
}

func (r offerRepo) ListBroadcast(_ context.Context, limit, offset int) ([]model.Offer, error) {
	all, err := r.filterOffers(func(o model.Offer) bool {
		return o.TargetID == nil && o.Status == model.OfferPending
	})
	if err != nil || offset >= len(all) {
		return nil, err
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r offerRepo) ListPendingBroadcastsWithItems(_ context.Context, itemIDs []uuid.UUID) ([]model.Offer, error) {
	out, err := r.filterOffers(func(o model.Offer) bool {
		if o.TargetID != nil || o.Status != model.OfferPending {
			return false
		}
		for _, id := range o.ItemIDs() {
			if slices.Contains(itemIDs, id) {
				return true
			}
		}
		return false
	})
	slices.Reverse(out)
	return out, err
}

// --- interests ---

type interestRepo struct{ s *Store }

func (r interestRepo) Create(_ context.Context, in *model.Interest) error {
	return r.s.view(func(st *state) error {
		for _, ex := range st.interests {
			if ex.OfferID == in.OfferID && ex.UserID == in.UserID {
				return fmt.Errorf("interest already recorded: %w", errs.ErrConflict)
			}
		}
		st.interests = append(st.interests, *in)
		return nil
	})
}

func (r interestRepo) ListByOffer(_ context.Context, offerID uuid.UUID) ([]model.Interest, error) {
	var out []model.Interest
	err := r.s.view(func(st *state) error {
		for _, in := range st.interests {
			if in.OfferID == offerID {
				out = append(out, in)
			}
		}
		return nil
	})
	return out, err
}

func (r interestRepo) ListByUser(_ context.Context, user uuid.UUID) ([]model.Interest, error) {
	var out []model.Interest
	err := r.s.view(func(st *state) error {
		for i := len(st.interests) - 1; i >= 0; i-- {
			if st.interests[i].UserID == user {
				out = append(out, st.interests[i])
			}
		}
		return nil
	})
	return out, err
}

// --- conversations ---

type conversationRepo struct{ s *Store }

func (r conversationRepo) Ensure(_ context.Context, c *model.Conversation) (*model.Conversation, error) {
	var out *model.Conversation
	err := r.s.view(func(st *state) error {
		for _, ex := range st.conversations {
			sameOffer := c.OfferID != nil && ex.OfferID != nil && *ex.OfferID == *c.OfferID
			samePair := c.OfferID == nil && ex.OfferID == nil && ex.Participants == c.Participants
			if sameOffer || samePair {
				out = &ex
				return nil
			}
		}
		cp := *c
		st.conversations[c.ID] = cp
		out = &cp
		return nil
	})
	return out, err
}

func (r conversationRepo) Get(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	var out *model.Conversation
	err := r.s.view(func(st *state) error {
		c, ok := st.conversations[id]
		if !ok {
			return fmt.Errorf("conversation %s: %w", id, errs.ErrNotFound)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r conversationRepo) ListByUser(_ context.Context, user uuid.UUID) ([]model.Conversation, error) {
	var out []model.Conversation
	err := r.s.view(func(st *state) error {
		for _, c := range st.conversations {
			if c.HasParticipant(user) {
				out = append(out, c)
			}
		}
		return nil
	})
	// most recent activity first; never-used conversations last
	slices.SortFunc(out, newestFirst(func(c model.Conversation) (int64, uuid.UUID) {
		if c.LastMessageAt == nil {
			return -1 << 62, c.ID
		}
		return c.LastMessageAt.UnixNano(), c.ID
	}))
	return out, err
}

func (r conversationRepo) AddMessage(_ context.Context, m *model.Message) error {
	return r.s.view(func(st *state) error {
		c, ok := st.conversations[m.ConversationID]
		if !ok {
			return fmt.Errorf("conversation %s: %w", m.ConversationID, errs.ErrNotFound)
		}
		st.messages = append(st.messages, *m)
		at := m.SentAt
		c.LastMessageAt = &at
		st.conversations[c.ID] = c
		return nil
	})
}

func (r conversationRepo) ListMessages(
	_ context.Context, convID uuid.UUID, before *model.MessageCursor, limit int,
) ([]model.Message, error) {
	var out []model.Message
	err := r.s.view(func(st *state) error {
		for _, m := range st.messages {
			if m.ConversationID == convID {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	key := func(m model.Message) (int64, uuid.UUID) { return m.SentAt.UnixNano(), m.ID }
	slices.SortFunc(out, newestFirst(key))
	if before != nil {
		bt, bid := before.SentAt.UnixNano(), before.ID
		i := slices.IndexFunc(out, func(m model.Message) bool {
			t, id := key(m)
			return t < bt || (t == bt && bytes.Compare(id[:], bid[:]) < 0)
		})
		if i < 0 {
			return nil, nil
		}
		out = out[i:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
