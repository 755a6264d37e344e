package handlers

import (
	"net/http"

	"github.com/Dosada05/debate-system/middleware"
	"github.com/Dosada05/debate-system/services"
)

type ByeHandler struct {
	byeService services.ByeService
}

func NewByeHandler(byeService services.ByeService) *ByeHandler {
	return &ByeHandler{byeService: byeService}
}

func (h *ByeHandler) ListByeTeamsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	byeTeams, err := h.byeService.ListByeTeams(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, r, http.StatusOK, byeTeams, "")
}

// SetByeTeamHandler назначает bye команде в раунде (или переназначает
// существующий bye раунда).
func (h *ByeHandler) SetByeTeamHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		RoundNumber int `json:"round_number"`
		TeamID      int `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.byeService.CreateOrUpdateBye(r.Context(), eventID, input.RoundNumber, input.TeamID, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, r, http.StatusOK, match, "bye team set")
}

func (h *ByeHandler) RecalculateByesHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.byeService.RecalculateAll(r.Context(), eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, r, http.StatusOK, nil, "bye compensation recalculated")
}
