package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository"
)

func newID() uuid.UUID { return uuid.Must(uuid.NewV7()) }

func TestStore_WithinTx_RollbackDiscardsWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	it := &model.Item{ID: newID(), OwnerID: newID(), Title: "lamp", Status: model.ItemAvailable}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Items().Create(ctx, it))
		_, err := tx.Items().Get(ctx, it.ID)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Items().Get(ctx, it.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Items().Create(ctx, it)
	}))
	got, err := s.Items().Get(ctx, it.ID)
	require.NoError(t, err)
	require.Equal(t, "lamp", got.Title)
}

func TestStore_ItemStatusIsConditional(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	a := &model.Item{ID: newID(), Status: model.ItemAvailable}
	b := &model.Item{ID: newID(), Status: model.ItemDeleted}
	require.NoError(t, s.Items().Create(ctx, a))
	require.NoError(t, s.Items().Create(ctx, b))

	n, err := s.Items().UpdateStatus(ctx, []uuid.UUID{a.ID, b.ID}, model.ItemAvailable, model.ItemExchanged)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := s.Items().GetMany(ctx, []uuid.UUID{b.ID, a.ID, newID()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, it := range got {
		if it.ID == a.ID {
			require.Equal(t, model.ItemExchanged, it.Status)
		} else {
			require.Equal(t, model.ItemDeleted, it.Status)
		}
	}
}

func TestStore_OfferSingleCounterAndCAS(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	root := &model.Offer{ID: newID(), InitiatorID: newID(), Status: model.OfferPending}
	require.NoError(t, s.Offers().Create(ctx, root))

	c1 := &model.Offer{ID: newID(), ParentOfferID: &root.ID, Status: model.OfferPending}
	c2 := &model.Offer{ID: newID(), ParentOfferID: &root.ID, Status: model.OfferPending}
	require.NoError(t, s.Offers().Create(ctx, c1))
	require.ErrorIs(t, s.Offers().Create(ctx, c2), errs.ErrConflict)

	child, err := s.Offers().ChildOf(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, c1.ID, child.ID)
	_, err = s.Offers().ChildOf(ctx, c1.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Offers().UpdateStatus(ctx, c1.ID, model.OfferPending, model.OfferAccepted, nil))
	require.ErrorIs(t, s.Offers().UpdateStatus(ctx, c1.ID, model.OfferPending, model.OfferAccepted, nil), errs.ErrConflict)
}

func TestStore_ConversationEnsureIsKeyed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	pair := model.Pair(newID(), newID())
	offer := newID()

	d1, err := s.Conversations().Ensure(ctx, &model.Conversation{ID: newID(), Participants: pair})
	require.NoError(t, err)
	d2, err := s.Conversations().Ensure(ctx, &model.Conversation{ID: newID(), Participants: pair})
	require.NoError(t, err)
	require.Equal(t, d1.ID, d2.ID)

	o1, err := s.Conversations().Ensure(ctx, &model.Conversation{ID: newID(), OfferID: &offer, Participants: pair})
	require.NoError(t, err)
	require.NotEqual(t, d1.ID, o1.ID)
	o2, err := s.Conversations().Ensure(ctx, &model.Conversation{ID: newID(), OfferID: &offer, Participants: pair})
	require.NoError(t, err)
	require.Equal(t, o1.ID, o2.ID)
}

func TestStore_ListMessagesKeyset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	pair := model.Pair(newID(), newID())
	c, err := s.Conversations().Ensure(ctx, &model.Conversation{ID: newID(), Participants: pair})
	require.NoError(t, err)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Conversations().AddMessage(ctx, &model.Message{
			ID: newID(), ConversationID: c.ID, SenderID: pair[0], Content: "m", SentAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := s.Conversations().ListMessages(ctx, c.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, page[0].SentAt.After(page[1].SentAt))

	last := page[1]
	rest, err := s.Conversations().ListMessages(ctx, c.ID, &model.MessageCursor{SentAt: last.SentAt, ID: last.ID}, 10)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	require.True(t, rest[0].SentAt.Before(last.SentAt))

	got, err := s.Conversations().Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, base.Add(4*time.Second), *got.LastMessageAt)
}
