package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/debate-system/events"
	"github.com/Dosada05/debate-system/live"
	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
)

type UpsertScoreInput struct {
	JudgeID        *int               `json:"judge_id"`
	TeamID         int                `json:"team_id"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	CommentScores  []float64          `json:"comment_scores"`
}

type ScoreService interface {
	UpsertScore(ctx context.Context, matchID, actorID int, input UpsertScoreInput) (*models.Score, error)
	SubmitBatch(ctx context.Context, matchID, actorID int, scoreIDs []int) (*models.Match, error)
	DeleteScore(ctx context.Context, scoreID, actorID int) error
	ListScoresByMatch(ctx context.Context, matchID, actorID int) ([]*models.Score, error)
}

type scoreService struct {
	db             *sql.DB
	eventRepo      repositories.EventRepository
	userRepo       repositories.UserRepository
	matchRepo      repositories.MatchRepository
	assignmentRepo repositories.AssignmentRepository
	scoreRepo      repositories.ScoreRepository
	publisher      events.Publisher
	hub            Broadcaster
	logger         *slog.Logger
}

func NewScoreService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	assignmentRepo repositories.AssignmentRepository,
	scoreRepo repositories.ScoreRepository,
	publisher events.Publisher,
	hub Broadcaster,
	logger *slog.Logger,
) ScoreService {
	return &scoreService{
		db:             db,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
		assignmentRepo: assignmentRepo,
		scoreRepo:      scoreRepo,
		publisher:      publisher,
		hub:            hub,
		logger:         logger,
	}
}

// UpsertScore создаёт или обновляет оценку судьи команде. Сданная оценка
// неизменяема; запись возможна только в оцениваемых статусах матча.
func (s *scoreService) UpsertScore(ctx context.Context, matchID, actorID int, input UpsertScoreInput) (*models.Score, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if match.IsBye() {
		return nil, ErrByeMatchNotScoreable
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	if !Can(actor, ActionWriteScores, match) {
		return nil, ErrForbiddenOperation
	}

	judgeID := actorID
	if input.JudgeID != nil {
		judgeID = *input.JudgeID
	}
	if judgeID != actorID && !actor.IsAdmin() {
		return nil, ErrNotScoreOwner
	}
	// Судья должен быть назначен на матч; админ пишет в обход назначений.
	if !actor.IsAdmin() {
		if _, err := s.assignmentRepo.GetByMatchAndJudge(ctx, matchID, judgeID); err != nil {
			if mapAssignmentRepoError(err) == ErrAssignmentNotFound {
				return nil, ErrJudgeNotAssigned
			}
			return nil, err
		}
	}

	if !match.HasTeam(input.TeamID) {
		return nil, fmt.Errorf("%w: team %d", ErrTeamNotInMatch, input.TeamID)
	}

	event, err := s.eventRepo.GetByID(ctx, match.EventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if !models.JudgeMayScore(match.Status, event.JudgeQuestionCount) {
		return nil, fmt.Errorf("%w: match is %q", ErrScoringWindowClosed, match.Status)
	}

	if err := validateScoreValues(event, input.CriteriaScores, input.CommentScores); err != nil {
		return nil, err
	}

	existing, err := s.scoreRepo.Find(ctx, matchID, judgeID, input.TeamID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		score := &models.Score{
			MatchID:        matchID,
			JudgeID:        judgeID,
			TeamID:         input.TeamID,
			CriteriaScores: input.CriteriaScores,
			CommentScores:  input.CommentScores,
		}
		if err := s.scoreRepo.Create(ctx, nil, score); err != nil {
			return nil, fmt.Errorf("failed to create score: %w", err)
		}
		return score, nil
	}

	if existing.IsSubmitted {
		return nil, ErrScoreAlreadySubmitted
	}
	if err := s.scoreRepo.UpdateValues(ctx, nil, existing.ID, input.CriteriaScores, input.CommentScores); err != nil {
		return nil, mapScoreRepoError(err)
	}
	existing.CriteriaScores = input.CriteriaScores
	existing.CommentScores = input.CommentScores
	return existing, nil
}

// validateScoreValues сверяет оценки с рубрикой ивента. Неизвестный критерий
// и значение вне [0, max] — ошибки валидации; баллы за вопросы лежат в
// [0, 10], и их не больше, чем вопросов в ивенте.
func validateScoreValues(event *models.Event, criteriaScores map[string]float64, commentScores []float64) error {
	for name, value := range criteriaScores {
		max, ok := event.CriterionMax(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
		}
		if value < 0 || value > max {
			return fmt.Errorf("%w: %q = %.2f (max %.2f)", ErrCriterionOutOfRange, name, value, max)
		}
	}
	if len(commentScores) > event.JudgeQuestionCount {
		return fmt.Errorf("%w: %d comment scores for %d questions", ErrCommentScoreInvalid, len(commentScores), event.JudgeQuestionCount)
	}
	for i, value := range commentScores {
		if value < 0 || value > 10 {
			return fmt.Errorf("%w: comment score %d = %.2f", ErrCommentScoreInvalid, i+1, value)
		}
	}
	return nil
}

// SubmitBatch фиксирует несданные оценки судьи. Батч обязан покрывать обе
// команды матча. Если после сдачи все назначенные судьи сдали оценки обеим
// командам, матч завершается и определяется победитель.
func (s *scoreService) SubmitBatch(ctx context.Context, matchID, actorID int, scoreIDs []int) (*models.Match, error) {
	if len(scoreIDs) == 0 {
		return nil, ErrNoScoresToSubmit
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if match.IsBye() {
		return nil, ErrByeMatchNotScoreable
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, ErrMatchAlreadyCompleted
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	if !Can(actor, ActionWriteScores, match) {
		return nil, ErrForbiddenOperation
	}

	allScores, err := s.scoreRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]*models.Score, len(allScores))
	for _, score := range allScores {
		byID[score.ID] = score
	}

	// Весь батч принадлежит одному судье; не-админ сдаёт только свои.
	batchJudgeID := 0
	coveredTeams := make(map[int]bool)
	toSubmit := make([]int, 0, len(scoreIDs))
	for _, id := range scoreIDs {
		score, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: score %d", ErrScoreNotFound, id)
		}
		if batchJudgeID == 0 {
			batchJudgeID = score.JudgeID
		} else if score.JudgeID != batchJudgeID {
			return nil, fmt.Errorf("%w: batch mixes scores of different judges", ErrValidationFailed)
		}
		coveredTeams[score.TeamID] = true
		if !score.IsSubmitted {
			toSubmit = append(toSubmit, id)
		}
	}
	if batchJudgeID != actorID && !actor.IsAdmin() {
		return nil, ErrNotScoreOwner
	}
	if !coveredTeams[match.TeamAID] || match.TeamBID == nil || !coveredTeams[*match.TeamBID] {
		return nil, ErrIncompleteSubmission
	}
	if len(toSubmit) == 0 {
		// Повторная сдача уже сданного — no-op, не повреждение.
		return nil, ErrNoScoresToSubmit
	}

	assignments, err := s.assignmentRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	submitting := make(map[int]bool, len(toSubmit))
	for _, id := range toSubmit {
		submitting[id] = true
	}
	// Пост-состояние после сдачи батча, для перепроверки полноты.
	for _, score := range allScores {
		if submitting[score.ID] {
			score.IsSubmitted = true
			submittedAt := now
			score.SubmittedAt = &submittedAt
		}
	}
	completing := validateCompletion(match, assignments, allScores) == nil
	var winnerID *int
	if completing {
		winnerID = DetermineWinner(match, allScores)
	}

	// Сдача и (возможное) завершение — одна транзакция: частичный сбой не
	// оставит матч со сданными оценками, но незафиксированным исходом.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed after submit error", slog.Any("error", rbErr))
			}
		}
	}()

	if txErr = s.scoreRepo.MarkSubmitted(ctx, tx, toSubmit, now); txErr != nil {
		return nil, txErr
	}
	if completing {
		if txErr = s.matchRepo.UpdateStatusAndWinner(ctx, tx, matchID, models.MatchStatusCompleted, winnerID); txErr != nil {
			return nil, mapMatchRepoError(txErr)
		}
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit score submission: %w", txErr)
	}

	s.hub.BroadcastToEvent(match.EventID, live.Message{
		Type:    live.MessageScoresSubmitted,
		Payload: map[string]interface{}{"match_id": matchID, "judge_id": batchJudgeID},
	})

	if completing {
		match.Status = models.MatchStatusCompleted
		match.WinnerID = winnerID
		s.publisher.PublishMatchCompleted(events.MatchCompleted{EventID: match.EventID, MatchID: match.ID})
		s.hub.BroadcastToEvent(match.EventID, live.Message{Type: live.MessageMatchCompleted, Payload: match})
	}
	return match, nil
}

// DeleteScore удаляет несданную оценку. Доступно владеющему судье и админу.
func (s *scoreService) DeleteScore(ctx context.Context, scoreID, actorID int) error {
	score, err := s.scoreRepo.GetByID(ctx, scoreID)
	if err != nil {
		return mapScoreRepoError(err)
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return mapUserRepoError(err)
	}
	if !CanModifyScore(actor, score) {
		return ErrNotScoreOwner
	}
	if score.IsSubmitted {
		return ErrScoreAlreadySubmitted
	}
	if err := s.scoreRepo.Delete(ctx, nil, scoreID); err != nil {
		return mapScoreRepoError(err)
	}
	return nil
}

// ListScoresByMatch: админ и модератор видят все оценки, судья — только свои.
func (s *scoreService) ListScoresByMatch(ctx context.Context, matchID, actorID int) ([]*models.Score, error) {
	if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return nil, mapMatchRepoError(err)
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	if actor.Role == models.RoleJudge {
		return s.scoreRepo.ListByMatchAndJudge(ctx, matchID, actorID)
	}
	return s.scoreRepo.ListByMatch(ctx, matchID)
}
