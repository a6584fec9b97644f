package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pellston/hexhammer/internal/auth"
	"github.com/pellston/hexhammer/internal/bot"
	"github.com/pellston/hexhammer/internal/service"
	"github.com/pellston/hexhammer/pkg/engine"
)

// MatchHandler handles match lifecycle endpoints.
type MatchHandler struct {
	matchSvc  *service.MatchService
	actionSvc *service.ActionService
	wsHub     *Hub
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService, actionSvc *service.ActionService, wsHub *Hub) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc, actionSvc: actionSvc, wsHub: wsHub}
}

// CreateMatch handles POST /api/v1/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name      string `json:"name"`
		Scenario  string `json:"scenario,omitempty"`
		Seed      int64  `json:"seed,omitempty"`
		MaxTurns  int    `json:"max_turns,omitempty"`
		VsBot     bool   `json:"vs_bot,omitempty"`
		BotPolicy string `json:"bot_policy,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	match, err := h.matchSvc.CreateMatch(r.Context(), req.Name, userID, req.Scenario, req.Seed, req.MaxTurns, req.VsBot, req.BotPolicy)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrUnknownScenario) || errors.Is(err, service.ErrUnknownPolicy) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	filter := r.URL.Query().Get("filter")
	matches, err := h.matchSvc.ListMatches(r.Context(), userID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// ListScenarios handles GET /api/v1/scenarios
func (h *MatchHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": engine.ScenarioNames(),
		"policies":  bot.PolicyNames(),
	})
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	match, err := h.matchSvc.GetMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// JoinMatch handles POST /api/v1/matches/{id}/join
func (h *MatchHandler) JoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.matchSvc.JoinMatch(r.Context(), matchID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchFull) || errors.Is(err, service.ErrMatchNotWaiting) || errors.Is(err, service.ErrAlreadyJoined) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	h.wsHub.BroadcastToMatch(matchID, WSEvent{
		Type:    EventSeatChanged,
		MatchID: matchID,
		Data:    map[string]string{"user_id": userID},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// StartMatch handles POST /api/v1/matches/{id}/start
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	match, err := h.matchSvc.StartMatch(r.Context(), matchID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		} else if errors.Is(err, service.ErrSeatEmpty) || errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	// Build the opening engine state on a detached context so a client
	// disconnect cannot leave an active match without a snapshot.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.actionSvc.InitializeMatch(ctx, match); err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to initialize match state")
		writeError(w, http.StatusInternalServerError, "failed to initialize match")
		return
	}

	writeJSON(w, http.StatusOK, match)
}

// MarkReady handles POST /api/v1/matches/{id}/ready
func (h *MatchHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.setReady(w, r, h.matchSvc.MarkReady)
}

// UnmarkReady handles DELETE /api/v1/matches/{id}/ready
func (h *MatchHandler) UnmarkReady(w http.ResponseWriter, r *http.Request) {
	h.setReady(w, r, h.matchSvc.UnmarkReady)
}

func (h *MatchHandler) setReady(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) ([]string, error)) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	sides, err := fn(r.Context(), matchID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrNotInMatch) {
			status = http.StatusForbidden
		} else if errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	h.wsHub.BroadcastToMatch(matchID, WSEvent{
		Type:    EventPlayerReady,
		MatchID: matchID,
		Data: map[string]any{
			"ready_sides": sides,
			"all_ready":   len(sides) == 2,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"ready_sides": sides,
		"all_ready":   len(sides) == 2,
	})
}

// DeleteMatch handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.matchSvc.DeleteMatch(r.Context(), matchID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotWaiting) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StopMatch handles POST /api/v1/matches/{id}/stop
func (h *MatchHandler) StopMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	match, err := h.matchSvc.StopMatch(r.Context(), matchID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrMatchNotActive) {
			status = http.StatusBadRequest
		} else if errors.Is(err, service.ErrNotCreator) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	h.actionSvc.DropSession(matchID)
	h.wsHub.BroadcastToMatch(matchID, WSEvent{
		Type:    EventMatchEnded,
		MatchID: matchID,
		Data:    map[string]string{"winner": "", "reason": "stopped"},
	})
	writeJSON(w, http.StatusOK, match)
}
