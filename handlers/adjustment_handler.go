package handlers

import (
	"net/http"

	"github.com/Dosada05/debate-system/middleware"
	"github.com/Dosada05/debate-system/services"
)

type AdjustmentHandler struct {
	adjustmentService services.AdjustmentService
}

func NewAdjustmentHandler(adjustmentService services.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentService: adjustmentService}
}

func (h *AdjustmentHandler) CreateVoteLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var input services.VoteLogInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	log, err := h.adjustmentService.CreateVoteLog(r.Context(), eventID, actorID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, log, "vote adjustment created")
}

func (h *AdjustmentHandler) ListVoteLogsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	logs, err := h.adjustmentService.ListVoteLogs(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, logs, "")
}

func (h *AdjustmentHandler) DeleteVoteLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	logID, err := getIDFromURL(r, "logID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.adjustmentService.DeleteVoteLog(r.Context(), eventID, logID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, nil, "vote adjustment deleted")
}

func (h *AdjustmentHandler) CreateWinLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var input services.WinLogInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	log, err := h.adjustmentService.CreateWinLog(r.Context(), eventID, actorID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, log, "win adjustment created")
}

func (h *AdjustmentHandler) ListWinLogsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	logs, err := h.adjustmentService.ListWinLogs(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, logs, "")
}

func (h *AdjustmentHandler) DeleteWinLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	logID, err := getIDFromURL(r, "logID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.adjustmentService.DeleteWinLog(r.Context(), eventID, logID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, nil, "win adjustment deleted")
}

func (h *AdjustmentHandler) CreateScoreDiffLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	var input services.ScoreDiffLogInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	log, err := h.adjustmentService.CreateScoreDiffLog(r.Context(), eventID, actorID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, log, "score diff adjustment created")
}

func (h *AdjustmentHandler) ListScoreDiffLogsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	logs, err := h.adjustmentService.ListScoreDiffLogs(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, logs, "")
}

func (h *AdjustmentHandler) DeleteScoreDiffLogHandler(w http.ResponseWriter, r *http.Request) {
	eventID, actorID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}
	logID, err := getIDFromURL(r, "logID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.adjustmentService.DeleteScoreDiffLog(r.Context(), eventID, logID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, nil, "score diff adjustment deleted")
}

func (h *AdjustmentHandler) GetStandingsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.adjustmentService.GetStandings(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, standings, "")
}

// requestIdentity извлекает eventID из URL и актора из токена; при ошибке
// сам пишет ответ.
func (h *AdjustmentHandler) requestIdentity(w http.ResponseWriter, r *http.Request) (eventID, actorID int, ok bool) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, false
	}
	actorID, err = middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return 0, 0, false
	}
	return eventID, actorID, true
}
