package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/errs"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()

	ctx = peer.NewContext(ctx, &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/Method"}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/Panic"}

	panicH := func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	}

	_, err := ic(ctx, "req", info, panicH)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/Ok"}

	h := func(ctx context.Context, req any) (any, error) { return 42, nil }

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(int) != 42 {
		t.Fatalf("resp mismatch: %v", resp)
	}
}

func TestLoggingUnary_DurationFieldDoesNotBlock(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/Sleep"}
	h := func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}

	start := time.Now()
	resp, err := ic(ctx, "req", info, h)
	if err != nil || resp.(string) != "done" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("duration should reflect handler time")
	}
}

func TestErrorsUnary_MapsDomainErrors(t *testing.T) {
	t.Parallel()

	ic := ErrorsUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/OfferAccept"}

	cases := map[error]codes.Code{
		fmt.Errorf("%w: bad", errs.ErrValidation):  codes.InvalidArgument,
		fmt.Errorf("x: %w", errs.ErrNotFound):      codes.NotFound,
		fmt.Errorf("%w: no", errs.ErrForbidden):     codes.PermissionDenied,
		fmt.Errorf("%w: late", errs.ErrConflict):    codes.FailedPrecondition,
		errs.ErrUnauthorized:                        codes.Unauthenticated,
		errors.New("driver: bad connection"):        codes.Internal,
		status.Error(codes.Unavailable, "shutdown"): codes.Unavailable,
	}
	for in, want := range cases {
		h := func(context.Context, any) (any, error) { return nil, in }
		_, err := ic(context.Background(), "req", info, h)
		if got := status.Code(err); got != want {
			t.Fatalf("%v: want %s, got %s", in, want, got)
		}
	}

	_, err := ic(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return nil, errors.New("password=hunter2")
	})
	if msg := status.Convert(err).Message(); msg != "internal error" {
		t.Fatalf("internal details leaked: %q", msg)
	}
}

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ic := AuthUnary(auth.NewVerifier(key))
	info := &grpc.UnaryServerInfo{FullMethod: "/barter.v1.Barter/ItemListMine"}
	var seen uuid.UUID
	h := func(ctx context.Context, _ any) (any, error) {
		seen, _ = auth.ActorFromContext(ctx)
		return "ok", nil
	}

	_, err := ic(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated without metadata, got %v", err)
	}

	_, err = ic(ctxWithBearer("garbage"), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated on bad token, got %v", err)
	}

	id := uuid.Must(uuid.NewV4())
	tok, err := auth.Issue(id, key, time.Now(), time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ic(ctxWithBearer(tok), nil, info, h); err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if seen != id {
		t.Fatalf("actor mismatch: %s vs %s", seen, id)
	}

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := ic(context.Background(), nil, health, h); err != nil {
		t.Fatalf("health must not require auth: %v", err)
	}
}

func Test_bearerTokenFromMD(t *testing.T) {
	t.Parallel()

	got, ok := bearerTokenFromMD(ctxWithBearer("abc.def.ghi"))
	if !ok || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q", got)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, ok := bearerTokenFromMD(ctx); ok {
		t.Fatalf("want failure on non-bearer")
	}
	if _, ok := bearerTokenFromMD(context.Background()); ok {
		t.Fatalf("want failure on no metadata")
	}
}

func ctxWithBearer(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}
