// Package server wires HTTP handlers into a ServeMux and wraps it with CORS
// and per-IP rate limiting.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// SetupRoutes returns the application handler for svc.
func SetupRoutes(svc *chat.Service) http.Handler {
	return NewHandlers(svc).Routes()
}

// Routes registers every endpoint: health check, chat polling, room
// listing, room log, WebSocket and metrics.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/chat", h.ChatHandler)
	mux.HandleFunc("/rooms", h.RoomsHandler)
	mux.HandleFunc("/rooms/log", h.RoomLogHandler)
	mux.HandleFunc("/ws", h.WebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowOriginFunc:  originAllowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	})

	limiter := newIPLimiter(currentConfig().HTTPRateLimit)
	return limiter.Middleware(c.Handler(mux))
}
