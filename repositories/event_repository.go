package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/debate-system/models"
)

var ErrEventNotFound = errors.New("event not found")

// EventRepository — read-oriented доступ к ивентам. CRUD ивентов живёт во
// внешнем сервисе; ядру нужны только чтение и продвижение текущего раунда.
type EventRepository interface {
	GetByID(ctx context.Context, id int) (*models.Event, error)
	UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id, round int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `
		SELECT id, name, total_rounds, current_round, judge_question_count, status, scoring_criteria, created_at
		FROM events
		WHERE id = $1`

	event := &models.Event{}
	var criteriaRaw []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.TotalRounds,
		&event.CurrentRound,
		&event.JudgeQuestionCount,
		&event.Status,
		&criteriaRaw,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event by id %d: %w", id, err)
	}

	if len(criteriaRaw) > 0 {
		if err := json.Unmarshal(criteriaRaw, &event.ScoringCriteria); err != nil {
			return nil, fmt.Errorf("failed to decode scoring criteria for event %d: %w", id, err)
		}
	}
	return event, nil
}

func (r *postgresEventRepository) UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id, round int) error {
	executor := SQLExecutor(r.db)
	if exec != nil {
		executor = exec
	}
	query := `UPDATE events SET current_round = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, round, id)
	if err != nil {
		return fmt.Errorf("failed to update current round for event %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}
