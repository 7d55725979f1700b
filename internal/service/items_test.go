package service

import (
	"context"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

func TestItemService_Create_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, PolicyKeep)
	owner := user()

	_, err := f.items.Create(ctx, uuid.Nil, model.NewItem{Title: "x"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = f.items.Create(ctx, owner, model.NewItem{Title: "   "})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.items.Create(ctx, owner, model.NewItem{Title: strings.Repeat("a", 201)})
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.items.Create(ctx, owner, model.NewItem{Title: "ok", ImageRefs: []string{"a.jpg", " "}})
	require.ErrorIs(t, err, errs.ErrValidation)

	it, err := f.items.Create(ctx, owner, model.NewItem{Title: "  Bike ", Description: " red ", ImageRefs: []string{"bike.jpg"}})
	require.NoError(t, err)
	require.Equal(t, "Bike", it.Title)
	require.Equal(t, "red", it.Description)
	require.Equal(t, model.ItemAvailable, it.Status)
	require.Equal(t, owner, it.OwnerID)
}

func TestItemService_ListMine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, PolicyKeep)
	owner := user()
	a := f.item(t, owner, "a")
	b := f.item(t, owner, "b")
	f.item(t, user(), "other")

	_, err := f.items.SoftDelete(ctx, owner, a)
	require.NoError(t, err)

	live, err := f.items.ListMine(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, b, live[0].ID)

	all, err := f.items.ListMine(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, b, all[0].ID, "newest first")
}

func TestItemService_SoftDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, PolicyKeep)
	owner, other := user(), user()
	id := f.item(t, owner, "lamp")

	_, err := f.items.SoftDelete(ctx, other, id)
	require.ErrorIs(t, err, errs.ErrForbidden)

	missing := user()
	_, err = f.items.SoftDelete(ctx, owner, missing)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, []uuid.UUID{missing}, itemIDsOf(t, err))

	it, err := f.items.SoftDelete(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, model.ItemDeleted, it.Status)

	again, err := f.items.SoftDelete(ctx, owner, id)
	require.NoError(t, err, "repeat delete is a no-op")
	require.Equal(t, model.ItemDeleted, again.Status)

	got, err := f.items.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "lamp", got.Title, "deleted items keep their snapshot")
}

func TestItemService_SoftDelete_LeavesOffersAlone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, PolicyKeep)
	a, b := user(), user()
	x := f.item(t, a, "x")
	z := f.item(t, b, "z")

	o, err := f.offers.Create(ctx, a, CreateOffer{TargetID: &b, OfferedItemIDs: ids(x), RequestedItemIDs: ids(z)})
	require.NoError(t, err)

	_, err = f.items.SoftDelete(ctx, a, x)
	require.NoError(t, err)
	require.Equal(t, model.OfferPending, f.offerStatus(t, a, o.ID))

	_, err = f.offers.Accept(ctx, b, o.ID)
	require.ErrorIs(t, err, errs.ErrConflict)
	require.Equal(t, []uuid.UUID{x}, itemIDsOf(t, err))
}

func TestItemService_CheckAvailability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, PolicyKeep)
	owner := user()
	a := f.item(t, owner, "a")
	b := f.item(t, owner, "b")
	_, err := f.items.SoftDelete(ctx, owner, b)
	require.NoError(t, err)
	unknown := user()

	_, err = f.items.CheckAvailability(ctx, nil)
	require.ErrorIs(t, err, errs.ErrValidation)

	tooMany := make([]uuid.UUID, maxAvailabilityScan+1)
	_, err = f.items.CheckAvailability(ctx, tooMany)
	require.ErrorIs(t, err, errs.ErrValidation)

	out, err := f.items.CheckAvailability(ctx, ids(unknown, b, a))
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, unknown, out[0].ItemID)
	require.False(t, out[0].Found)
	require.Equal(t, model.ItemDeleted, out[1].Status)
	require.True(t, out[2].Found)
	require.Equal(t, model.ItemAvailable, out[2].Status)
	require.Equal(t, owner, out[2].OwnerID)
}
