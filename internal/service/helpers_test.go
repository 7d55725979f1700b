package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/model"
	"github.com/barterhub/barter/internal/repository/memory"
)

type recordingPub struct {
	mu   sync.Mutex
	evs  []events.Event
	fail error
}

func (p *recordingPub) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.evs = append(p.evs, ev)
	return nil
}

func (p *recordingPub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evs))
	for _, ev := range p.evs {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPub) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evs[len(p.evs)-1]
}

// stepClock advances one millisecond per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	store     *memory.Store
	pub       *recordingPub
	logs      *observer.ObservedLogs
	items     *ItemServiceImpl
	offers    *OfferServiceImpl
	interests *InterestServiceImpl
	chat      *ChatServiceImpl
}

func newFixture(t *testing.T, policy StaleInterestPolicy) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	clk := &stepClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{store: memory.New(), pub: &recordingPub{}, logs: logs}
	d := Deps{Store: f.store, Events: f.pub, Log: zap.New(core), Now: clk.Now}
	f.items = NewItemService(d)
	f.offers = NewOfferService(d, policy)
	f.interests = NewInterestService(d)
	f.chat = NewChatService(d, 100)
	return f
}

func user() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func (f *fixture) item(t *testing.T, owner uuid.UUID, title string) uuid.UUID {
	t.Helper()
	it, err := f.items.Create(context.Background(), owner, model.NewItem{Title: title, Condition: "good"})
	require.NoError(t, err)
	return it.ID
}

func (f *fixture) itemStatus(t *testing.T, id uuid.UUID) model.ItemStatus {
	t.Helper()
	it, err := f.items.Get(context.Background(), id)
	require.NoError(t, err)
	return it.Status
}

func (f *fixture) offerStatus(t *testing.T, actor, id uuid.UUID) model.OfferStatus {
	t.Helper()
	d, err := f.offers.Get(context.Background(), actor, id)
	require.NoError(t, err)
	return d.Status
}

func ids(v ...uuid.UUID) []uuid.UUID { return v }

func ptr[T any](v T) *T { return &v }

// itemIDsOf extracts the ids carried by an items error.
func itemIDsOf(t *testing.T, err error) []uuid.UUID {
	t.Helper()
	var ie *errs.ItemsError
	require.True(t, errors.As(err, &ie), "want *errs.ItemsError, got %v", err)
	return ie.ItemIDs
}
