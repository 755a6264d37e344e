package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/debate-system/models"
	"github.com/lib/pq"
)

var (
	ErrVoteLogNotFound      = errors.New("vote log not found")
	ErrWinLogNotFound       = errors.New("win log not found")
	ErrScoreDiffLogNotFound = errors.New("score diff log not found")
	ErrAdjustmentInvalid    = errors.New("adjustment log conflict or invalid")
)

// AdjustmentRepository хранит журналы корректировок трёх видов. Таблицы
// идентичны по форме, поэтому репозиторий один.
type AdjustmentRepository interface {
	CreateVoteLog(ctx context.Context, log *models.VoteLog) error
	ListVoteLogsByEvent(ctx context.Context, eventID int) ([]*models.VoteLog, error)
	DeleteVoteLog(ctx context.Context, id int) error

	CreateWinLog(ctx context.Context, log *models.WinLog) error
	ListWinLogsByEvent(ctx context.Context, eventID int) ([]*models.WinLog, error)
	FindWinLogByReason(ctx context.Context, eventID, teamID int, reason, createdBy string) (*models.WinLog, error)
	DeleteWinLog(ctx context.Context, id int) error

	CreateScoreDiffLog(ctx context.Context, log *models.ScoreDiffLog) error
	ListScoreDiffLogsByEvent(ctx context.Context, eventID int) ([]*models.ScoreDiffLog, error)
	FindScoreDiffLogByReason(ctx context.Context, eventID, teamID int, reason, createdBy string) (*models.ScoreDiffLog, error)
	UpdateScoreDiffValue(ctx context.Context, id int, value float64, updatedAt time.Time) error
	DeleteScoreDiffLog(ctx context.Context, id int) error
}

type postgresAdjustmentRepository struct {
	db *sql.DB
}

func NewPostgresAdjustmentRepository(db *sql.DB) AdjustmentRepository {
	return &postgresAdjustmentRepository{db: db}
}

func (r *postgresAdjustmentRepository) CreateVoteLog(ctx context.Context, log *models.VoteLog) error {
	query := `
		INSERT INTO vote_logs (event_id, team_id, votes, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		log.EventID, log.TeamID, log.Votes, log.Reason, log.CreatedBy,
	).Scan(&log.ID, &log.CreatedAt)
	return r.handleAdjustmentError(err)
}

func (r *postgresAdjustmentRepository) ListVoteLogsByEvent(ctx context.Context, eventID int) ([]*models.VoteLog, error) {
	query := `
		SELECT id, event_id, team_id, votes, reason, created_by, created_at
		FROM vote_logs
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote logs for event %d: %w", eventID, err)
	}
	defer rows.Close()

	logs := make([]*models.VoteLog, 0)
	for rows.Next() {
		var l models.VoteLog
		if scanErr := rows.Scan(&l.ID, &l.EventID, &l.TeamID, &l.Votes, &l.Reason, &l.CreatedBy, &l.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan vote log row: %w", scanErr)
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during vote log rows iteration: %w", err)
	}
	return logs, nil
}

func (r *postgresAdjustmentRepository) DeleteVoteLog(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vote_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrVoteLogNotFound)
}

func (r *postgresAdjustmentRepository) CreateWinLog(ctx context.Context, log *models.WinLog) error {
	query := `
		INSERT INTO win_logs (event_id, team_id, wins, losses, ties, reason, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		log.EventID, log.TeamID, log.Wins, log.Losses, log.Ties, log.Reason, log.CreatedBy,
	).Scan(&log.ID, &log.CreatedAt)
	return r.handleAdjustmentError(err)
}

func (r *postgresAdjustmentRepository) ListWinLogsByEvent(ctx context.Context, eventID int) ([]*models.WinLog, error) {
	query := `
		SELECT id, event_id, team_id, wins, losses, ties, reason, created_by, created_at
		FROM win_logs
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query win logs for event %d: %w", eventID, err)
	}
	defer rows.Close()

	logs := make([]*models.WinLog, 0)
	for rows.Next() {
		var l models.WinLog
		if scanErr := rows.Scan(&l.ID, &l.EventID, &l.TeamID, &l.Wins, &l.Losses, &l.Ties, &l.Reason, &l.CreatedBy, &l.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan win log row: %w", scanErr)
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during win log rows iteration: %w", err)
	}
	return logs, nil
}

func (r *postgresAdjustmentRepository) FindWinLogByReason(ctx context.Context, eventID, teamID int, reason, createdBy string) (*models.WinLog, error) {
	query := `
		SELECT id, event_id, team_id, wins, losses, ties, reason, created_by, created_at
		FROM win_logs
		WHERE event_id = $1 AND team_id = $2 AND reason = $3 AND created_by = $4`

	l := &models.WinLog{}
	err := r.db.QueryRowContext(ctx, query, eventID, teamID, reason, createdBy).Scan(
		&l.ID, &l.EventID, &l.TeamID, &l.Wins, &l.Losses, &l.Ties, &l.Reason, &l.CreatedBy, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan win log by reason: %w", err)
	}
	return l, nil
}

func (r *postgresAdjustmentRepository) DeleteWinLog(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM win_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrWinLogNotFound)
}

func (r *postgresAdjustmentRepository) CreateScoreDiffLog(ctx context.Context, log *models.ScoreDiffLog) error {
	query := `
		INSERT INTO score_diff_logs (event_id, team_id, score_diff, reason, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		log.EventID, log.TeamID, log.ScoreDiff, log.Reason, log.CreatedBy,
	).Scan(&log.ID, &log.CreatedAt, &log.UpdatedAt)
	return r.handleAdjustmentError(err)
}

func (r *postgresAdjustmentRepository) ListScoreDiffLogsByEvent(ctx context.Context, eventID int) ([]*models.ScoreDiffLog, error) {
	query := `
		SELECT id, event_id, team_id, score_diff, reason, created_by, created_at, updated_at
		FROM score_diff_logs
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score diff logs for event %d: %w", eventID, err)
	}
	defer rows.Close()

	logs := make([]*models.ScoreDiffLog, 0)
	for rows.Next() {
		var l models.ScoreDiffLog
		if scanErr := rows.Scan(&l.ID, &l.EventID, &l.TeamID, &l.ScoreDiff, &l.Reason, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan score diff log row: %w", scanErr)
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during score diff log rows iteration: %w", err)
	}
	return logs, nil
}

func (r *postgresAdjustmentRepository) FindScoreDiffLogByReason(ctx context.Context, eventID, teamID int, reason, createdBy string) (*models.ScoreDiffLog, error) {
	query := `
		SELECT id, event_id, team_id, score_diff, reason, created_by, created_at, updated_at
		FROM score_diff_logs
		WHERE event_id = $1 AND team_id = $2 AND reason = $3 AND created_by = $4`

	l := &models.ScoreDiffLog{}
	err := r.db.QueryRowContext(ctx, query, eventID, teamID, reason, createdBy).Scan(
		&l.ID, &l.EventID, &l.TeamID, &l.ScoreDiff, &l.Reason, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan score diff log by reason: %w", err)
	}
	return l, nil
}

func (r *postgresAdjustmentRepository) UpdateScoreDiffValue(ctx context.Context, id int, value float64, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE score_diff_logs SET score_diff = $1, updated_at = $2 WHERE id = $3`,
		value, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update score diff log %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrScoreDiffLogNotFound)
}

func (r *postgresAdjustmentRepository) DeleteScoreDiffLog(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM score_diff_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrScoreDiffLogNotFound)
}

func (r *postgresAdjustmentRepository) handleAdjustmentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" { // foreign_key_violation
			return ErrAdjustmentInvalid
		}
	}
	return err
}
