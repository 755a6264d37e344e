package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
)

type ReplaceJudgeInput struct {
	OldJudgeID   *int `json:"old_judge_id"`
	NewJudgeID   int  `json:"new_judge_id"`
	RemoveScores bool `json:"remove_scores"`
}

type AssignmentService interface {
	Assign(ctx context.Context, matchID, judgeID, actorID int) (*models.MatchAssignment, error)
	Replace(ctx context.Context, matchID, actorID int, input ReplaceJudgeInput) (*models.MatchAssignment, error)
	Remove(ctx context.Context, matchID, judgeID, actorID int, removeScores bool) error
	ListAssignments(ctx context.Context, matchID int) ([]*models.MatchAssignment, error)
}

type assignmentService struct {
	db             *sql.DB
	userRepo       repositories.UserRepository
	matchRepo      repositories.MatchRepository
	assignmentRepo repositories.AssignmentRepository
	scoreRepo      repositories.ScoreRepository
	logger         *slog.Logger
}

func NewAssignmentService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	assignmentRepo repositories.AssignmentRepository,
	scoreRepo repositories.ScoreRepository,
	logger *slog.Logger,
) AssignmentService {
	return &assignmentService{
		db:             db,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
		assignmentRepo: assignmentRepo,
		scoreRepo:      scoreRepo,
		logger:         logger,
	}
}

// Assign привязывает судью к матчу со следующим порядковым judge_number.
func (s *assignmentService) Assign(ctx context.Context, matchID, judgeID, actorID int) (*models.MatchAssignment, error) {
	match, actor, err := s.loadMatchAndActor(ctx, matchID, actorID)
	if err != nil {
		return nil, err
	}
	if !Can(actor, ActionManageAssignments, match) {
		return nil, ErrForbiddenOperation
	}
	if match.IsBye() {
		return nil, ErrByeMatchNotScoreable
	}
	// Завершённый матч судей не принимает; админ может форсировать
	// (операционное восстановление после отката статуса не требуется).
	if match.Status == models.MatchStatusCompleted && !actor.IsAdmin() {
		return nil, ErrMatchAlreadyCompleted
	}

	if _, err := s.userRepo.GetByID(ctx, judgeID); err != nil {
		return nil, mapUserRepoError(err)
	}

	if _, err := s.assignmentRepo.GetByMatchAndJudge(ctx, matchID, judgeID); err == nil {
		return nil, ErrJudgeAlreadyAssigned
	} else if mapAssignmentRepoError(err) != ErrAssignmentNotFound {
		return nil, err
	}

	maxNumber, err := s.assignmentRepo.MaxJudgeNumber(ctx, matchID)
	if err != nil {
		return nil, err
	}

	assignment := &models.MatchAssignment{
		MatchID:     matchID,
		JudgeID:     judgeID,
		JudgeNumber: maxNumber + 1,
	}
	if err := s.assignmentRepo.Create(ctx, nil, assignment); err != nil {
		return nil, mapAssignmentRepoError(err)
	}
	return assignment, nil
}

// Replace атомарно заменяет судью: снимает старое назначение (и, по флагу,
// его оценки), проверяет расписание нового судьи и создаёт новое назначение
// на той же позиции. old_judge_id = null вырождается в обычный Assign.
func (s *assignmentService) Replace(ctx context.Context, matchID, actorID int, input ReplaceJudgeInput) (*models.MatchAssignment, error) {
	if input.OldJudgeID == nil {
		return s.Assign(ctx, matchID, input.NewJudgeID, actorID)
	}

	match, actor, err := s.loadMatchAndActor(ctx, matchID, actorID)
	if err != nil {
		return nil, err
	}
	if !Can(actor, ActionManageAssignments, match) {
		return nil, ErrForbiddenOperation
	}

	oldAssignment, err := s.assignmentRepo.GetByMatchAndJudge(ctx, matchID, *input.OldJudgeID)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	if _, err := s.userRepo.GetByID(ctx, input.NewJudgeID); err != nil {
		return nil, mapUserRepoError(err)
	}
	if input.NewJudgeID == *input.OldJudgeID {
		return nil, ErrJudgeAlreadyAssigned
	}
	if _, err := s.assignmentRepo.GetByMatchAndJudge(ctx, matchID, input.NewJudgeID); err == nil {
		return nil, ErrJudgeAlreadyAssigned
	} else if mapAssignmentRepoError(err) != ErrAssignmentNotFound {
		return nil, err
	}

	conflict, err := s.assignmentRepo.HasRoundConflict(ctx, input.NewJudgeID, match.EventID, match.RoundNumber, matchID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrJudgeScheduleConflict
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed during judge replace", slog.Any("error", rbErr))
			}
		}
	}()

	if input.RemoveScores {
		if txErr = s.scoreRepo.DeleteByMatchAndJudge(ctx, tx, matchID, *input.OldJudgeID); txErr != nil {
			return nil, txErr
		}
	}
	if txErr = s.assignmentRepo.Delete(ctx, tx, oldAssignment.ID); txErr != nil {
		return nil, mapAssignmentRepoError(txErr)
	}

	// Новый судья занимает позицию старого: окна оценивания остальных
	// судей не сдвигаются.
	newAssignment := &models.MatchAssignment{
		MatchID:     matchID,
		JudgeID:     input.NewJudgeID,
		JudgeNumber: oldAssignment.JudgeNumber,
	}
	if txErr = s.assignmentRepo.Create(ctx, tx, newAssignment); txErr != nil {
		return nil, mapAssignmentRepoError(txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit judge replace: %w", txErr)
	}
	return newAssignment, nil
}

// Remove снимает судью с матча. Последнего судью снять нельзя — у матча
// всегда остаётся хотя бы одна позиция для оценок. Вне админских путей
// снятие судьи со сданными оценками требует явной зачистки оценок.
func (s *assignmentService) Remove(ctx context.Context, matchID, judgeID, actorID int, removeScores bool) error {
	match, actor, err := s.loadMatchAndActor(ctx, matchID, actorID)
	if err != nil {
		return err
	}
	if !Can(actor, ActionManageAssignments, match) {
		return ErrForbiddenOperation
	}

	assignment, err := s.assignmentRepo.GetByMatchAndJudge(ctx, matchID, judgeID)
	if err != nil {
		return mapAssignmentRepoError(err)
	}

	count, err := s.assignmentRepo.CountByMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastJudgeRemoval
	}

	if !removeScores {
		scores, err := s.scoreRepo.ListByMatchAndJudge(ctx, matchID, judgeID)
		if err != nil {
			return err
		}
		for _, score := range scores {
			if score.IsSubmitted {
				return ErrJudgeHasSubmitted
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed during judge removal", slog.Any("error", rbErr))
			}
		}
	}()

	if removeScores {
		if txErr = s.scoreRepo.DeleteByMatchAndJudge(ctx, tx, matchID, judgeID); txErr != nil {
			return txErr
		}
	}
	if txErr = s.assignmentRepo.Delete(ctx, tx, assignment.ID); txErr != nil {
		return mapAssignmentRepoError(txErr)
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit judge removal: %w", txErr)
	}
	return nil
}

// ListAssignments возвращает назначения матча по порядку позиций,
// обогащённые данными судей.
func (s *assignmentService) ListAssignments(ctx context.Context, matchID int) ([]*models.MatchAssignment, error) {
	if _, err := s.matchRepo.GetByID(ctx, matchID); err != nil {
		return nil, mapMatchRepoError(err)
	}
	assignments, err := s.assignmentRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		judge, err := s.userRepo.GetByID(ctx, a.JudgeID)
		if err != nil {
			s.logger.Warn("failed to populate judge details",
				slog.Int("judge_id", a.JudgeID), slog.Any("error", err))
			continue
		}
		a.Judge = judge
	}
	return assignments, nil
}

func (s *assignmentService) loadMatchAndActor(ctx context.Context, matchID, actorID int) (*models.Match, *models.User, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, nil, mapMatchRepoError(err)
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, mapUserRepoError(err)
	}
	return match, actor, nil
}
