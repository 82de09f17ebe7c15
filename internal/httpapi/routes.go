package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/floorclash/internal/hub"
	"github.com/DoyleJ11/floorclash/internal/ws"
)

type RouteOptions struct {
	PeerFrameRate float64
	// History serves archived rounds; nil when the archive is disabled.
	History ResultHistory
	Logger  *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts RouteOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("http")

	r := chi.NewRouter()
	r.Use(requestLogger(log))

	// Public routes
	r.Post("/sessions", CreateSession(h, log))
	r.Get("/sessions/{code}", GetSession(h))
	r.Delete("/sessions/{code}", DeleteSession(h))
	r.Post("/sessions/{code}/intents", PostIntent(h))
	r.Get("/sessions/{code}/history", GetHistory(opts.History))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, ws.Options{FrameRate: opts.PeerFrameRate, Logger: opts.Logger}))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("took", time.Since(start)))
		})
	}
}
