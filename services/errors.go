package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
// Сгруппированы по таксономии: NotFound / Forbidden / Conflict /
// ValidationFailed / PreconditionFailed.
var (
	// Ресурс не найден
	ErrNotFound           = errors.New("requested resource not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrScoreNotFound      = errors.New("score not found")
	ErrAssignmentNotFound = errors.New("judge assignment not found")
	ErrLogNotFound        = errors.New("adjustment log not found")

	// Ошибки доступа
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrNotMatchModerator  = errors.New("only the match moderator or an admin can advance the match")
	ErrNotScoreOwner      = errors.New("only the owning judge or an admin can modify this score")

	// Ошибки конфликтов
	ErrJudgeAlreadyAssigned  = errors.New("judge is already assigned to this match")
	ErrJudgeScheduleConflict = errors.New("judge is already assigned to another match in this round")
	ErrMatchPairConflict     = errors.New("a match between these teams already exists in this round")
	ErrTeamAlreadyHasBye     = errors.New("team already has a bye match in another round")

	// Ошибки валидации
	ErrValidationFailed      = errors.New("validation failed")
	ErrInvalidMatchStatus    = errors.New("invalid match status for this event")
	ErrEventNotActive        = errors.New("event is not active")
	ErrEventCompleted        = errors.New("event is completed and immutable")
	ErrTeamNotInEvent        = errors.New("team does not belong to this event")
	ErrTeamNotInMatch        = errors.New("team is not a side of this match")
	ErrSameTeamsInMatch      = errors.New("a match requires two distinct teams")
	ErrInvalidRoundNumber    = errors.New("round number is outside the event schedule")
	ErrEvenTeamCount         = errors.New("bye matches are only valid for events with an odd team count")
	ErrUnknownCriterion      = errors.New("unknown scoring criterion")
	ErrCriterionOutOfRange   = errors.New("criterion score is out of range")
	ErrCommentScoreInvalid   = errors.New("comment score is out of range")
	ErrModeratorRoleRequired = errors.New("assigned moderator must have the moderator or admin role")

	// Нарушенные предусловия
	ErrScoringWindowClosed   = errors.New("match status does not permit judge scoring")
	ErrScoreAlreadySubmitted = errors.New("cannot modify submitted score")
	ErrIncompleteSubmission  = errors.New("submission must include scores for both teams")
	ErrLastJudgeRemoval      = errors.New("cannot remove the last assigned judge from a match")
	ErrJudgeNotAssigned      = errors.New("judge is not assigned to this match")
	ErrJudgeHasSubmitted     = errors.New("judge has submitted scores; wipe them explicitly before removal")
	ErrMatchAlreadyCompleted = errors.New("match is already completed")
	ErrMissingJudgeScores    = errors.New("match cannot be completed with missing or unsubmitted judge scores")
	ErrByeMatchNotScoreable  = errors.New("bye matches do not accept scores or assignments")
	ErrNoScoresToSubmit      = errors.New("no unsubmitted scores in the batch")
)
