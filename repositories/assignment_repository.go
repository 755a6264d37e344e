package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/debate-system/models"
	"github.com/lib/pq"
)

var (
	ErrAssignmentNotFound  = errors.New("match assignment not found")
	ErrAssignmentDuplicate = errors.New("judge is already assigned to this match")
	ErrAssignmentInvalid   = errors.New("match assignment conflict or invalid")
)

type AssignmentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, assignment *models.MatchAssignment) error
	GetByMatchAndJudge(ctx context.Context, matchID, judgeID int) (*models.MatchAssignment, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchAssignment, error)
	CountByMatch(ctx context.Context, matchID int) (int, error)
	MaxJudgeNumber(ctx context.Context, matchID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	HasRoundConflict(ctx context.Context, judgeID, eventID, round, excludeMatchID int) (bool, error)
}

type postgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &postgresAssignmentRepository{db: db}
}

func (r *postgresAssignmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAssignmentRepository) Create(ctx context.Context, exec SQLExecutor, assignment *models.MatchAssignment) error {
	query := `
		INSERT INTO match_assignments (match_id, judge_id, judge_number)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		assignment.MatchID,
		assignment.JudgeID,
		assignment.JudgeNumber,
	).Scan(&assignment.ID, &assignment.CreatedAt)

	return r.handleAssignmentError(err)
}

func (r *postgresAssignmentRepository) GetByMatchAndJudge(ctx context.Context, matchID, judgeID int) (*models.MatchAssignment, error) {
	query := `
		SELECT id, match_id, judge_id, judge_number, created_at
		FROM match_assignments
		WHERE match_id = $1 AND judge_id = $2`

	assignment := &models.MatchAssignment{}
	err := r.db.QueryRowContext(ctx, query, matchID, judgeID).Scan(
		&assignment.ID,
		&assignment.MatchID,
		&assignment.JudgeID,
		&assignment.JudgeNumber,
		&assignment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to scan assignment for match %d judge %d: %w", matchID, judgeID, err)
	}
	return assignment, nil
}

func (r *postgresAssignmentRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchAssignment, error) {
	query := `
		SELECT id, match_id, judge_id, judge_number, created_at
		FROM match_assignments
		WHERE match_id = $1
		ORDER BY judge_number ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments for match %d: %w", matchID, err)
	}
	defer rows.Close()

	assignments := make([]*models.MatchAssignment, 0)
	for rows.Next() {
		var a models.MatchAssignment
		if scanErr := rows.Scan(&a.ID, &a.MatchID, &a.JudgeID, &a.JudgeNumber, &a.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", scanErr)
		}
		assignments = append(assignments, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during assignment rows iteration: %w", err)
	}
	return assignments, nil
}

func (r *postgresAssignmentRepository) CountByMatch(ctx context.Context, matchID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_assignments WHERE match_id = $1`, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments for match %d: %w", matchID, err)
	}
	return count, nil
}

// MaxJudgeNumber возвращает наибольший занятый judge_number матча (0, если
// назначений нет). Номера не переиспользуются после удаления судьи, чтобы
// окна оценивания оставшихся судей не сдвигались.
func (r *postgresAssignmentRepository) MaxJudgeNumber(ctx context.Context, matchID int) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(judge_number), 0) FROM match_assignments WHERE match_id = $1`, matchID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max judge number for match %d: %w", matchID, err)
	}
	return max, nil
}

func (r *postgresAssignmentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM match_assignments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

// HasRoundConflict проверяет, назначен ли судья на другой незавершённый матч
// того же раунда того же ивента.
func (r *postgresAssignmentRepository) HasRoundConflict(ctx context.Context, judgeID, eventID, round, excludeMatchID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM match_assignments ma
			JOIN matches m ON m.id = ma.match_id
			WHERE ma.judge_id = $1
			  AND m.event_id = $2
			  AND m.round_number = $3
			  AND m.status <> $4
			  AND m.id <> $5
		)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, judgeID, eventID, round, models.MatchStatusCompleted, excludeMatchID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check round conflict for judge %d: %w", judgeID, err)
	}
	return exists, nil
}

func (r *postgresAssignmentRepository) handleAssignmentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrAssignmentDuplicate
		case "23503": // foreign_key_violation
			return ErrAssignmentInvalid
		}
	}
	return err
}
