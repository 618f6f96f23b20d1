package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cryptic-backend/internal/hub"
	"github.com/DoyleJ11/cryptic-backend/internal/wordbank"
	"github.com/DoyleJ11/cryptic-backend/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	Bank           *wordbank.Bank
	Logger         *zap.Logger
	OriginPatterns []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &handlers{hub: d.Hub, bank: d.Bank, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	// Public routes
	r.Get("/healthz", healthz)
	r.Get("/categories", h.categories)
	r.Post("/lobbies", h.createLobby)
	r.Route("/lobbies/{code}", func(r chi.Router) {
		r.Get("/stream", h.stream)
		r.Post("/events", h.event)
		r.Post("/game", h.game)
	})
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{Logger: d.Logger, OriginPatterns: d.OriginPatterns}))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
