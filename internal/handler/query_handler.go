package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pellston/hexhammer/internal/auth"
	"github.com/pellston/hexhammer/internal/service"
	"github.com/pellston/hexhammer/pkg/hexgrid"
)

// QueryHandler handles read-only live-state endpoints.
type QueryHandler struct {
	matchSvc  *service.MatchService
	actionSvc *service.ActionService
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(matchSvc *service.MatchService, actionSvc *service.ActionService) *QueryHandler {
	return &QueryHandler{matchSvc: matchSvc, actionSvc: actionSvc}
}

// liveStatus maps live-session errors to HTTP status codes.
func liveStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMatchNotActive), errors.Is(err, service.ErrNoLiveState):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotYourTurn):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GetState handles GET /api/v1/matches/{id}/state
func (h *QueryHandler) GetState(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	gs, err := h.actionSvc.GameState(r.Context(), matchID)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// EligibleUnits handles GET /api/v1/matches/{id}/eligible
func (h *QueryHandler) EligibleUnits(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	ids, err := h.actionSvc.EligibleUnits(r.Context(), matchID)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"unit_ids": ids})
}

// MoveDestinations handles GET /api/v1/matches/{id}/units/{unitId}/moves
func (h *QueryHandler) MoveDestinations(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	unitID, err := strconv.Atoi(r.PathValue("unitId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	dests, err := h.actionSvc.MoveDestinations(r.Context(), matchID, unitID)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	if dests == nil {
		dests = []hexgrid.Coord{}
	}
	writeJSON(w, http.StatusOK, map[string][]hexgrid.Coord{"destinations": dests})
}

// ChargeDestinations handles GET /api/v1/matches/{id}/units/{unitId}/charges.
// The preview rolls the charge distance, so only the player whose activation
// it is may ask.
func (h *QueryHandler) ChargeDestinations(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())
	unitID, err := strconv.Atoi(r.PathValue("unitId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	side, err := h.matchSvc.PlayerSide(r.Context(), matchID, userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrMatchNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, service.ErrNotInMatch) {
			status = http.StatusForbidden
		}
		writeError(w, status, err.Error())
		return
	}

	dests, err := h.actionSvc.ChargeDestinations(r.Context(), matchID, side, unitID)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	if dests == nil {
		dests = []hexgrid.Coord{}
	}
	writeJSON(w, http.StatusOK, map[string][]hexgrid.Coord{"destinations": dests})
}

// VisibleEnemies handles GET /api/v1/matches/{id}/units/{unitId}/visible
func (h *QueryHandler) VisibleEnemies(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	unitID, err := strconv.Atoi(r.PathValue("unitId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}
	radius := 24
	if q := r.URL.Query().Get("radius"); q != "" {
		radius, err = strconv.Atoi(q)
		if err != nil || radius <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
	}

	enemies, err := h.actionSvc.VisibleEnemies(r.Context(), matchID, unitID, radius)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	if enemies == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, enemies)
}

// Events handles GET /api/v1/matches/{id}/events
func (h *QueryHandler) Events(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if _, err := h.matchSvc.GetMatch(r.Context(), matchID); err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, err := h.actionSvc.Events(r.Context(), matchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}
