package handler

import (
	"errors"
	"net/http"

	"github.com/pellston/hexhammer/internal/auth"
	"github.com/pellston/hexhammer/internal/service"
)

// ActionHandler handles live-play action submission.
type ActionHandler struct {
	matchSvc  *service.MatchService
	actionSvc *service.ActionService
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(matchSvc *service.MatchService, actionSvc *service.ActionService) *ActionHandler {
	return &ActionHandler{matchSvc: matchSvc, actionSvc: actionSvc}
}

// SubmitAction handles POST /api/v1/matches/{id}/actions
func (h *ActionHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	var req service.ActionInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
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

	res, err := h.actionSvc.SubmitAction(r.Context(), matchID, side, req)
	if err != nil {
		writeError(w, liveStatus(err), err.Error())
		return
	}
	if !res.Success {
		// Rule-level rejection: the result carries the error kind so the
		// client can correct the action.
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
