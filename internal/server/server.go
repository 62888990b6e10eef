// Package server exposes the hub over HTTP: the websocket endpoint, a small
// read-only JSON API and Prometheus metrics.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pszemocny/4-in-a-row/internal/client"
	"github.com/Pszemocny/4-in-a-row/internal/hub"
	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
)

// Server holds the HTTP handlers
type Server struct {
	hub      *hub.Hub
	store    interfaces.Store
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
}

// New creates the HTTP layer for h. g serves /metrics.
func New(h *hub.Hub, st interfaces.Store, g prometheus.Gatherer) *Server {
	return &Server{
		hub:      h,
		store:    st,
		gatherer: g,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Permissive for local play
			},
		},
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleConnections)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/history", s.handleHistory)
		r.Get("/stats/{name}", s.handleStats)
		r.Get("/players", s.handlePlayers)
	})
	return r
}

// handleConnections upgrades the request and starts the client pumps
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", logger.Fields{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		return
	}

	c := client.NewClient(uuid.NewString(), s.hub, conn)
	s.hub.RegisterClient(c)
	if c.GetSession() == nil {
		// Hub already stopped
		_ = conn.Close()
		return
	}

	go c.WritePump()
	go c.ReadPump()

	logger.Info("New connection established", logger.Fields{
		"clientID": c.GetID(),
		"remote":   conn.RemoteAddr().String(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.History()
	if err != nil {
		logger.Error("Could not read history", logger.Fields{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stats, err := s.store.PlayerStats(name)
	if err != nil {
		logger.Error("Could not read stats", logger.Fields{"error": err.Error(), "name": name})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.Players()
	if err != nil {
		logger.Error("Could not read players", logger.Fields{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// requestLogger logs each request through logrus
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request", logger.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestID": middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
