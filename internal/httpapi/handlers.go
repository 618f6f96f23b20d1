package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cryptic-backend/internal/engine"
	"github.com/DoyleJ11/cryptic-backend/internal/hub"
	"github.com/DoyleJ11/cryptic-backend/internal/lobby"
	"github.com/DoyleJ11/cryptic-backend/internal/types"
	"github.com/DoyleJ11/cryptic-backend/internal/wordbank"
	api "github.com/DoyleJ11/cryptic-backend/pkg/types"
)

const startGameTimeout = 5 * time.Second

type handlers struct {
	hub  *hub.Hub
	bank *wordbank.Bank
	log  *zap.Logger
}

func (h *handlers) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.CategoriesResponse{Categories: h.bank.Categories()})
}

func (h *handlers) createLobby(w http.ResponseWriter, r *http.Request) {
	var req api.CreateLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerName == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "playerName is required")
		return
	}

	s, err := h.hub.Create(r.Context(), req.PlayerName)
	if err != nil {
		h.log.Error("create lobby", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "failed to create lobby")
		return
	}
	writeJSON(w, http.StatusCreated, api.CreateLobbyResponse{LobbyCode: s.Code()})
}

// stream is the server-sent-events feed of one lobby. Connecting seats the
// player if they are not already in the lobby.
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("playerName")
	if player == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "playerName is required")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	if !s.HasPlayer(player) {
		if err := s.Send(engine.Event{Type: engine.EvtJoinLobby, PlayerName: player}); err != nil {
			h.fail(w, err)
			return
		}
	}

	out := make(chan api.Snapshot, 8)
	unsubscribe := s.Subscribe(func(snap api.Snapshot) {
		select {
		case out <- snap:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.Done():
			return
		case snap := <-out:
			payload, err := json.Marshal(snap)
			if err != nil {
				h.log.Error("encode snapshot", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// event takes any client message. Apart from joining, the sender must
// already be seated in the lobby.
func (h *handlers) event(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var msg types.ClientMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "bad json")
		return
	}
	ev, err := msg.ToEvent()
	if err != nil {
		h.fail(w, err)
		return
	}
	if ev.Type != engine.EvtJoinLobby && !s.HasPlayer(ev.PlayerName) {
		writeError(w, http.StatusForbidden, "forbidden", "player is not in this lobby")
		return
	}

	if ev.Type == engine.EvtStartGame {
		err = h.startGame(r.Context(), s, ev.PlayerName, ev.Config)
	} else {
		err = s.Send(ev)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) game(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req api.StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerName == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "playerName is required")
		return
	}
	if err := h.startGame(r.Context(), s, req.PlayerName, types.ConfigFromRequest(req)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) startGame(ctx context.Context, s *lobby.Session, player string, cfg engine.GameSettings) error {
	ctx, cancel := context.WithTimeout(ctx, startGameTimeout)
	defer cancel()
	return s.StartGame(ctx, player, cfg)
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*lobby.Session, bool) {
	s, ok := h.hub.Get(r.Context(), chi.URLParam(r, "code"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "lobby not found")
	}
	return s, ok
}

func (h *handlers) fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

// classify maps domain errors onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInsufficientWords):
		return http.StatusUnprocessableEntity, "insufficient_words"
	case errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusUnprocessableEntity, "invalid_config"
	case errors.Is(err, engine.ErrNoEligibleTeams):
		return http.StatusUnprocessableEntity, "no_eligible_teams"
	case errors.Is(err, engine.ErrNotLeader):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, lobby.ErrWrongPhase), errors.Is(err, engine.ErrGameInProgress):
		return http.StatusConflict, "wrong_phase"
	case errors.Is(err, lobby.ErrSessionClosed):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, lobby.ErrInboxFull):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, types.ErrUnknownMessage),
		errors.Is(err, types.ErrBadColor),
		errors.Is(err, types.ErrMissingPlayer):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, api.ErrorResponse{Code: code, Message: msg})
}
