package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/debate-system/services"
	"github.com/go-chi/chi/v5"
)

// Коды ошибок, отдаваемые в поле error конверта ответа.
const (
	codeValidationFailed   = "VALIDATION_FAILED"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeConflict           = "CONFLICT"
	codePreconditionFailed = "PRECONDITION_FAILED"
	codeInternal           = "INTERNAL"
)

// envelope — единый формат ответа API.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", param, raw)
	}
	return id, nil
}

func errInvalidQueryParam(param, raw string) error {
	return fmt.Errorf("invalid %s query parameter: %q", param, raw)
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data envelope) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func successResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}, message string) {
	if err := writeJSON(w, status, envelope{Success: true, Data: data, Message: message}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if err := writeJSON(w, status, envelope{Success: false, Message: message, Error: code}); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, codeInternal,
		"the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, codeValidationFailed, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusNotFound, codeNotFound, err.Error())
}

func conflictResponse(w http.ResponseWriter, r *http.Request, code string, err error) {
	errorResponse(w, r, http.StatusConflict, code, err.Error())
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusForbidden, codeForbidden, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, codeForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Ресурс не найден
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrScoreNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrLogNotFound):
		notFoundResponse(w, r, err)

	// Доступ
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrNotMatchModerator),
		errors.Is(err, services.ErrNotScoreOwner):
		forbiddenResponse(w, r, err)

	// Конфликты состояния
	case errors.Is(err, services.ErrJudgeAlreadyAssigned),
		errors.Is(err, services.ErrJudgeScheduleConflict),
		errors.Is(err, services.ErrMatchPairConflict),
		errors.Is(err, services.ErrTeamAlreadyHasBye):
		conflictResponse(w, r, codeConflict, err)

	// Предусловия, упирающиеся в чужой прогресс, — тоже 409
	case errors.Is(err, services.ErrScoreAlreadySubmitted),
		errors.Is(err, services.ErrJudgeHasSubmitted),
		errors.Is(err, services.ErrLastJudgeRemoval),
		errors.Is(err, services.ErrMatchAlreadyCompleted),
		errors.Is(err, services.ErrMissingJudgeScores):
		conflictResponse(w, r, codePreconditionFailed, err)

	// Остальные предусловия — 400
	case errors.Is(err, services.ErrScoringWindowClosed),
		errors.Is(err, services.ErrIncompleteSubmission),
		errors.Is(err, services.ErrJudgeNotAssigned),
		errors.Is(err, services.ErrByeMatchNotScoreable),
		errors.Is(err, services.ErrNoScoresToSubmit):
		errorResponse(w, r, http.StatusBadRequest, codePreconditionFailed, err.Error())

	// Валидация и бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidMatchStatus),
		errors.Is(err, services.ErrEventNotActive),
		errors.Is(err, services.ErrEventCompleted),
		errors.Is(err, services.ErrTeamNotInEvent),
		errors.Is(err, services.ErrTeamNotInMatch),
		errors.Is(err, services.ErrSameTeamsInMatch),
		errors.Is(err, services.ErrInvalidRoundNumber),
		errors.Is(err, services.ErrEvenTeamCount),
		errors.Is(err, services.ErrUnknownCriterion),
		errors.Is(err, services.ErrCriterionOutOfRange),
		errors.Is(err, services.ErrCommentScoreInvalid),
		errors.Is(err, services.ErrModeratorRoleRequired):
		badRequestResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}
