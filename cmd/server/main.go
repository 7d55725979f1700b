// Command barter-server starts the barter marketplace gRPC and HTTP servers.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/config"
	"github.com/barterhub/barter/internal/events"
	"github.com/barterhub/barter/internal/migrate"
	"github.com/barterhub/barter/internal/repository"
	"github.com/barterhub/barter/internal/repository/memory"
	"github.com/barterhub/barter/internal/repository/postgres"
	grpcserver "github.com/barterhub/barter/internal/server/grpc"
	httpserver "github.com/barterhub/barter/internal/server/http"
	"github.com/barterhub/barter/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, prepares storage and serves until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	var logger *zap.Logger
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("store", cfg.Store),
		zap.String("policy", string(cfg.Policy)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	pub, closePub, err := openEvents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open events", zap.Error(err))
	}
	defer closePub()

	svc := service.New(service.Deps{Store: store, Events: pub, Log: logger}, cfg.Policy, cfg.MaxMessageLen)
	verifier := auth.NewVerifier([]byte(cfg.JWTKey))

	errCh := make(chan error, 2)

	var gs *grpc.Server
	if cfg.GRPCAddr != "" {
		opts := []grpc.ServerOption{
			grpc.ChainUnaryInterceptor(
				grpcserver.RecoverUnary(logger),
				grpcserver.LoggingUnary(logger),
				grpcserver.ErrorsUnary(logger),
				grpcserver.AuthUnary(verifier),
			),
		}
		if cfg.TLSCert != "" {
			creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
			if err != nil {
				logger.Fatal("failed to load TLS cert/key", zap.Error(err))
			}
			opts = append(opts, grpc.Creds(creds))
		} else {
			logger.Warn("gRPC without TLS")
		}
		gs = grpc.NewServer(opts...)
		grpcserver.Register(gs, grpcserver.New(svc))

		hs := health.NewServer()
		healthpb.RegisterHealthServer(gs, hs)
		if cfg.Dev {
			reflection.Register(gs)
		}

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("gRPC listening", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLSCert != ""))
			errCh <- gs.Serve(lis)
		}()
	}

	var hsrv *http.Server
	if cfg.HTTPAddr != "" {
		hsrv = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpserver.NewRouter(svc, httpserver.Options{
				Verifier:    verifier,
				Log:         logger,
				CORSOrigins: cfg.CORSOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
			var err error
			if cfg.TLSCert != "" {
				err = hsrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			} else {
				err = hsrv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errCh <- err
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	shutdown(cfg.ShutdownTimeout, gs, hsrv, logger)
	logger.Info("shutdown complete")
}

// openStore picks the repository backend. Postgres is migrated before use.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}
	if err := migrate.Up(ctx, cfg.DSN, log); err != nil {
		return nil, nil, err
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(db), db.Close, nil
}

// openEvents connects the Redis publisher when configured.
func openEvents(ctx context.Context, cfg *config.Config, log *zap.Logger) (events.Publisher, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("event publishing disabled")
		return events.Nop{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return events.NewRedisPublisher(client, cfg.RedisChannel), func() { _ = client.Close() }, nil
}

func shutdown(timeout time.Duration, gs *grpc.Server, hsrv *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if hsrv != nil {
		if err := hsrv.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}
	if gs == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		gs.Stop()
	}
}
