package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher_PublishesJSON(t *testing.T) {
	t.Parallel()

	fr := &fakeRedis{}
	p := NewRedisPublisher(fr, "barter.events")
	offer := uuid.Must(uuid.NewV7())
	actor := uuid.Must(uuid.NewV7())

	err := p.Publish(context.Background(), Event{
		Type: OfferAccepted, ActorID: actor, OfferID: &offer, At: time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, "barter.events", fr.channel)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fr.payload, &got))
	require.Equal(t, "offer.accepted", got["type"])
	require.Equal(t, offer.String(), got["offer_id"])
	require.Equal(t, actor.String(), got["actor_id"])
	require.NotContains(t, got, "conversation_id")
}

func TestRedisPublisher_WrapsClientError(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	p := NewRedisPublisher(&fakeRedis{err: down}, "c")
	err := p.Publish(context.Background(), Event{Type: MessageSent})
	require.ErrorIs(t, err, down)
	require.Contains(t, err.Error(), "message.sent")

	require.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
