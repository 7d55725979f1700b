package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

const (
	maxTitleLen         = 200
	maxAvailabilityScan = 200
)

// ItemService defines the item registry operations.
type ItemService interface {
	// Create lists a new AVAILABLE item owned by owner.
	Create(ctx context.Context, owner uuid.UUID, in model.NewItem) (*model.Item, error)
	// Get returns a single item, including soft-deleted ones.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// ListMine returns the owner's items, newest first.
	ListMine(ctx context.Context, owner uuid.UUID, includeDeleted bool) ([]model.Item, error)
	// SoftDelete marks an owned item DELETED. Repeating it is a no-op.
	SoftDelete(ctx context.Context, actor, id uuid.UUID) (*model.Item, error)
	// CheckAvailability reports the current status for each id, in input order.
	CheckAvailability(ctx context.Context, ids []uuid.UUID) ([]model.Availability, error)
}

type ItemServiceImpl struct{ base }

// NewItemService constructs ItemService.
func NewItemService(d Deps) *ItemServiceImpl {
	return &ItemServiceImpl{base: newBase(d, "items")}
}

// Create validates and stores a new item.
// Validation rules:
// - title not blank, at most 200 characters
// - image references not blank
func (s *ItemServiceImpl) Create(ctx context.Context, owner uuid.UUID, in model.NewItem) (*model.Item, error) {
	if err := requireActor(owner); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("empty title")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, invalid("title longer than %d characters", maxTitleLen)
	}
	for i, ref := range in.ImageRefs {
		if strings.TrimSpace(ref) == "" {
			return nil, invalid("image_refs[%d] empty", i)
		}
	}

	now := s.now()
	it := &model.Item{
		ID:          s.newID(),
		OwnerID:     owner,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Condition:   in.Condition,
		Category:    in.Category,
		Type:        in.Type,
		ImageRefs:   in.ImageRefs,
		Status:      model.ItemAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Items().Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Get fetches a single item by id.
func (s *ItemServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	if id == uuid.Nil {
		return nil, invalid("empty id")
	}
	return s.store.Items().Get(ctx, id)
}

// ListMine lists the owner's items.
func (s *ItemServiceImpl) ListMine(ctx context.Context, owner uuid.UUID, includeDeleted bool) ([]model.Item, error) {
	if err := requireActor(owner); err != nil {
		return nil, err
	}
	return s.store.Items().ListByOwner(ctx, owner, includeDeleted)
}

// SoftDelete flags the item DELETED without touching offers that reference it.
func (s *ItemServiceImpl) SoftDelete(ctx context.Context, actor, id uuid.UUID) (*model.Item, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, invalid("empty id")
	}

	var out model.Item
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.Items().LockMany(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return errs.Items(errs.ErrNotFound, "unknown item", id)
		}
		out = locked[0]
		if out.OwnerID != actor {
			return forbidden("item %s belongs to another user", id)
		}
		if out.Status == model.ItemDeleted {
			return nil
		}
		if _, err := tx.Items().UpdateStatus(ctx, []uuid.UUID{id}, out.Status, model.ItemDeleted); err != nil {
			return err
		}
		out.Status = model.ItemDeleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("item deleted", zap.Stringer("item", id))
	return &out, nil
}

// CheckAvailability is a pure read used for pre-submit checks.
func (s *ItemServiceImpl) CheckAvailability(ctx context.Context, ids []uuid.UUID) ([]model.Availability, error) {
	if len(ids) == 0 {
		return nil, invalid("no item ids")
	}
	if len(ids) > maxAvailabilityScan {
		return nil, invalid("too many item ids (%d > %d)", len(ids), maxAvailabilityScan)
	}
	items, err := s.store.Items().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := indexItems(items)
	out := make([]model.Availability, len(ids))
	for i, id := range ids {
		it, ok := byID[id]
		out[i] = model.Availability{ItemID: id, Found: ok, Status: it.Status, OwnerID: it.OwnerID}
	}
	return out, nil
}

func indexItems(items []model.Item) map[uuid.UUID]model.Item {
	m := make(map[uuid.UUID]model.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}
