package grpcserver

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/errs"
)

// ItemIDsTrailer lists the items a failed call was about, comma separated.
const ItemIDsTrailer = "x-item-ids"

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		// metadata only, never payloads
		log.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// ErrorsUnary converts domain errors into gRPC statuses. Item ids of an
// errs.ItemsError travel in the ItemIDsTrailer trailer.
func ErrorsUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		resp, err := next(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		e := api.FromError(err)
		if e.Kind == api.KindInternal {
			log.Error("handler failed", zap.String("method", info.FullMethod), zap.Error(err))
		}
		if len(e.ItemIDs) > 0 {
			ids := make([]string, len(e.ItemIDs))
			for i, id := range e.ItemIDs {
				ids[i] = id.String()
			}
			_ = grpc.SetTrailer(ctx, metadata.Pairs(ItemIDsTrailer, strings.Join(ids, ",")))
		}
		return nil, status.Error(api.Code(e.Kind), e.Message)
	}
}

// AuthUnary resolves the bearer token of calls to the barter service and stores the
// actor in the context. Other services (health) pass through.
func AuthUnary(v *auth.Verifier) grpc.UnaryServerInterceptor {
	prefix := "/" + ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return next(ctx, req)
		}
		tok, ok := bearerTokenFromMD(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "no bearer token")
		}
		id, err := v.Verify(tok)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return next(auth.WithActor(ctx, id), req)
	}
}

func bearerTokenFromMD(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		if tok, ok := auth.BearerToken(v); ok {
			return tok, true
		}
	}
	return "", false
}

// actor returns the caller resolved by AuthUnary.
func actor(ctx context.Context) (uuid.UUID, error) {
	id, ok := auth.ActorFromContext(ctx)
	if !ok {
		return id, errs.ErrUnauthorized
	}
	return id, nil
}
