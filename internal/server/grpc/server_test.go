package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/repository/memory"
	"github.com/barterhub/barter/internal/service"
)

const bufSize = 1 << 20

var signKey = []byte("test-secret")

func startBufGRPC(t *testing.T) *Client {
	t.Helper()
	log := zaptest.NewLogger(t)
	svc := service.New(service.Deps{Store: memory.New(), Log: log}, service.PolicyKeep, 1000)

	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
		ErrorsUnary(log),
		AuthUnary(auth.NewVerifier(signKey)),
	))
	Register(gs, New(svc))
	healthpb.RegisterHealthServer(gs, health.NewServer())
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return NewClient(cc)
}

type caller struct {
	id  uuid.UUID
	ctx context.Context
}

func newCaller(t *testing.T) caller {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	tok, err := auth.Issue(id, signKey, time.Now(), time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return caller{id: id, ctx: metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)}
}

func mustCall[Resp any](t *testing.T, c *Client, who caller, method string, in any) *Resp {
	t.Helper()
	out, err := Invoke[Resp](who.ctx, c, method, in)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	return out
}

func TestServer_E2E_NegotiationFlow(t *testing.T) {
	t.Parallel()
	cl := startBufGRPC(t)
	a, b := newCaller(t), newCaller(t)

	x := mustCall[api.Item](t, cl, a, "ItemCreate", &api.CreateItemRequest{Title: "bike"})
	z := mustCall[api.Item](t, cl, b, "ItemCreate", &api.CreateItemRequest{Title: "guitar"})
	if x.Status != "AVAILABLE" || x.OwnerID != a.id {
		t.Fatalf("unexpected item: %+v", x)
	}

	o := mustCall[api.Offer](t, cl, a, "OfferCreate", &api.CreateOfferRequest{
		TargetID: &b.id, OfferedItemIDs: []uuid.UUID{x.ID}, RequestedItemIDs: []uuid.UUID{z.ID},
	})
	acc := mustCall[api.Offer](t, cl, b, "OfferAccept", &api.IDRequest{ID: o.ID})
	if acc.Status != "ACCEPTED" {
		t.Fatalf("accept: %+v", acc)
	}
	done := mustCall[api.Offer](t, cl, a, "OfferComplete", &api.IDRequest{ID: o.ID})
	if done.Status != "COMPLETED" {
		t.Fatalf("complete: %+v", done)
	}

	av := mustCall[api.Availabilities](t, cl, a, "ItemCheckAvailability", &api.CheckAvailabilityRequest{ItemIDs: []uuid.UUID{x.ID, z.ID}})
	for _, it := range av.Items {
		if it.Status != "EXCHANGED" {
			t.Fatalf("item %s: want EXCHANGED, got %s", it.ItemID, it.Status)
		}
	}

	d := mustCall[api.OfferDetails](t, cl, b, "OfferGet", &api.IDRequest{ID: o.ID})
	if len(d.Items) != 2 || d.Superseded {
		t.Fatalf("details: %+v", d)
	}

	_, err := Invoke[api.Offer](b.ctx, cl, "OfferAccept", &api.IDRequest{ID: o.ID})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("second accept: want FailedPrecondition, got %v", err)
	}
}

func TestServer_E2E_ConflictCarriesItemIDs(t *testing.T) {
	t.Parallel()
	cl := startBufGRPC(t)
	a, b, d := newCaller(t), newCaller(t), newCaller(t)

	m := mustCall[api.Item](t, cl, a, "ItemCreate", &api.CreateItemRequest{Title: "m"})
	zb := mustCall[api.Item](t, cl, b, "ItemCreate", &api.CreateItemRequest{Title: "zb"})
	zd := mustCall[api.Item](t, cl, d, "ItemCreate", &api.CreateItemRequest{Title: "zd"})
	o1 := mustCall[api.Offer](t, cl, a, "OfferCreate", &api.CreateOfferRequest{TargetID: &b.id, OfferedItemIDs: []uuid.UUID{m.ID}, RequestedItemIDs: []uuid.UUID{zb.ID}})
	o2 := mustCall[api.Offer](t, cl, a, "OfferCreate", &api.CreateOfferRequest{TargetID: &d.id, OfferedItemIDs: []uuid.UUID{m.ID}, RequestedItemIDs: []uuid.UUID{zd.ID}})
	mustCall[api.Offer](t, cl, b, "OfferAccept", &api.IDRequest{ID: o1.ID})
	mustCall[api.Offer](t, cl, b, "OfferComplete", &api.IDRequest{ID: o1.ID})

	var trailer metadata.MD
	_, err := Invoke[api.Offer](d.ctx, cl, "OfferAccept", &api.IDRequest{ID: o2.ID}, grpc.Trailer(&trailer))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("want FailedPrecondition, got %v", err)
	}
	if got := trailer.Get(ItemIDsTrailer); len(got) != 1 || got[0] != m.ID.String() {
		t.Fatalf("trailer item ids: %v", got)
	}
}

func TestServer_E2E_ErrorCodes(t *testing.T) {
	t.Parallel()
	cl := startBufGRPC(t)
	a, outsider := newCaller(t), newCaller(t)

	_, err := Invoke[api.Items](context.Background(), cl, "ItemListMine", &api.ListItemsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no token: want Unauthenticated, got %v", err)
	}

	_, err = Invoke[api.Item](a.ctx, cl, "ItemCreate", &api.CreateItemRequest{Title: " "})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("blank title: want InvalidArgument, got %v", err)
	}

	_, err = Invoke[api.OfferDetails](a.ctx, cl, "OfferGet", &api.IDRequest{ID: uuid.Must(uuid.NewV4())})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("missing offer: want NotFound, got %v", err)
	}

	p := mustCall[api.Item](t, cl, a, "ItemCreate", &api.CreateItemRequest{Title: "p"})
	_, err = Invoke[api.Item](outsider.ctx, cl, "ItemSoftDelete", &api.IDRequest{ID: p.ID})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("foreign delete: want PermissionDenied, got %v", err)
	}
}

func TestServer_E2E_InterestAndChat(t *testing.T) {
	t.Parallel()
	cl := startBufGRPC(t)
	a, c := newCaller(t), newCaller(t)

	p := mustCall[api.Item](t, cl, a, "ItemCreate", &api.CreateItemRequest{Title: "p"})
	bc := mustCall[api.Offer](t, cl, a, "OfferCreate", &api.CreateOfferRequest{OfferedItemIDs: []uuid.UUID{p.ID}})
	if bc.TargetID != nil {
		t.Fatalf("broadcast has a target: %+v", bc)
	}
	feed := mustCall[api.Offers](t, cl, c, "OfferListBroadcast", &api.ListBroadcastRequest{})
	if len(feed.Offers) != 1 || feed.Offers[0].ID != bc.ID {
		t.Fatalf("feed: %+v", feed)
	}

	mustCall[api.Interest](t, cl, c, "InterestCreate", &api.CreateInterestRequest{OfferID: bc.ID})
	ins := mustCall[api.Interests](t, cl, a, "InterestListForOffer", &api.IDRequest{ID: bc.ID})
	if len(ins.Interests) != 1 || ins.Interests[0].UserID != c.id {
		t.Fatalf("interests: %+v", ins)
	}

	conv := mustCall[api.Conversation](t, cl, a, "ChatGetOrCreate", &api.ConversationRequest{OtherUserID: &c.id})
	mustCall[api.Message](t, cl, a, "ChatSend", &api.SendMessageRequest{ConversationID: conv.ID, Content: "still keen?"})
	page := mustCall[api.MessagePage](t, cl, c, "ChatListMessages", &api.ListMessagesRequest{ConversationID: conv.ID})
	if len(page.Messages) != 1 || page.Messages[0].Content != "still keen?" {
		t.Fatalf("messages: %+v", page)
	}
	convs := mustCall[api.Conversations](t, cl, c, "ChatListConversations", &api.Empty{})
	if len(convs.Conversations) != 1 || convs.Conversations[0].LastMessageAt == nil ||
		convs.Conversations[0].CounterpartID != a.id || convs.Conversations[0].OfferScoped {
		t.Fatalf("conversations: %+v", convs)
	}
}

func TestServer_HealthNeedsNoToken(t *testing.T) {
	t.Parallel()
	cl := startBufGRPC(t)
	resp, err := healthpb.NewHealthClient(cl.cc).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health: %v %v", resp, err)
	}
}
