// Package api provides the HTTP API for playing a session.
// GET endpoints are read-only views of the game. POST endpoints are player
// actions and require a bearer token when an admin key is configured.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/talgya/goobernor/internal/game"
)

const (
	defaultHistoryLimit = 48
	maxHistoryLimit     = 24 * 14
)

// HistoryStore serves recorded hours.
type HistoryStore interface {
	HourlyHistory(sessionID string, limit int) ([]game.HourRecord, error)
}

// Server serves the game over HTTP.
type Server struct {
	Game     *game.Orchestrator
	History  HistoryStore // Nil disables /history
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = open.

	// ResignLimiter throttles resignations per client. Nil = unlimited.
	ResignLimiter *RateLimiter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/modal", s.handleModal)
		r.Get("/history", s.handleHistory)
		r.Get("/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(s.playerOnly)
			r.Post("/choice", s.handleChoice)
			if s.ResignLimiter != nil {
				r.With(s.ResignLimiter.Middleware).Post("/resign", s.handleResign)
			} else {
				r.Post("/resign", s.handleResign)
			}
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "player_auth", s.AdminKey != "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware allows browser frontends on any origin to read the game.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// playerOnly requires the bearer token on player actions when one is set.
func (s *Server) playerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey != "" && !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Game.Snapshot())
}

func (s *Server) handleModal(w http.ResponseWriter, r *http.Request) {
	m, ok := s.Game.CurrentModal()
	if !ok {
		http.Error(w, "no modal", http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option *int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Option == nil {
		http.Error(w, "option is required", http.StatusBadRequest)
		return
	}

	if err := s.Game.Choose(*req.Option); err != nil {
		writeGameError(w, err)
		return
	}
	slog.Debug("option chosen", "option", *req.Option, "client", clientIP(r))
	writeJSON(w, s.Game.Snapshot())
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	if err := s.Game.Resign(); err != nil {
		writeGameError(w, err)
		return
	}
	m, _ := s.Game.CurrentModal()
	writeJSON(w, map[string]any{
		"status": s.Game.Snapshot(),
		"modal":  m,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := s.History.HourlyHistory(s.Game.State().ID, limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []game.HourRecord{}
	}
	writeJSON(w, recs)
}

// handleWS upgrades to a WebSocket and greets the client with the current
// state before streaming updates.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(s.Hub, conn)
	client.Queue(Message{Type: "refresh", Data: s.Game.Snapshot()})
	if m, ok := s.Game.CurrentModal(); ok {
		client.Queue(Message{Type: "modal", Data: m})
	}
	if !s.Hub.join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// writeGameError maps sequencing errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNoModal):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrBadOption):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrAlreadyDecided),
		errors.Is(err, game.ErrNotRunning),
		errors.Is(err, game.ErrAlreadyStarted):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
