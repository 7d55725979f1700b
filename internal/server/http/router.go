// Package httpserver exposes the marketplace as a JSON REST API for polling clients.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/service"
)

// Options configures NewRouter.
type Options struct {
	Verifier    *auth.Verifier
	Log         *zap.Logger
	CORSOrigins []string
	Timeout     time.Duration // per request, default 30s
}

type handlers struct {
	svc service.Services
	log *zap.Logger
}

// NewRouter constructs the HTTP router with middleware and all routes.
func NewRouter(svc service.Services, opt Options) http.Handler {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	h := &handlers{svc: svc, log: opt.Log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opt.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opt.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate(opt.Verifier))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.createItem)
			r.Get("/", h.listItems)
			r.Post("/availability", h.checkAvailability)
			r.Get("/{id}", h.getItem)
			r.Delete("/{id}", h.deleteItem)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Post("/", h.createOffer)
			r.Get("/", h.listOffers)
			r.Get("/broadcast", h.listBroadcast)
			r.Get("/{id}", h.getOffer)
			r.Get("/{id}/chain", h.offerChain)
			r.Post("/{id}/counter", h.counterOffer)
			r.Post("/{id}/accept", h.acceptOffer)
			r.Post("/{id}/complete", h.completeOffer)
			r.Post("/{id}/cancel", h.cancelOffer)
			r.Post("/{id}/interests", h.createInterest)
			r.Get("/{id}/interests", h.listInterests)
		})

		r.Get("/interests", h.listMyInterests)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", h.getOrCreateConversation)
			r.Get("/", h.listConversations)
			r.Post("/{id}/messages", h.sendMessage)
			r.Get("/{id}/messages", h.listMessages)
		})
	})
	return r
}

// requestLogger logs one line per request, metadata only.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("dur", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

// authenticate resolves the bearer token and stores the actor in the request context.
func authenticate(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody(api.KindUnauthorized, "missing bearer token"))
				return
			}
			id, err := v.Verify(tok)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody(api.KindUnauthorized, "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), id)))
		})
	}
}
