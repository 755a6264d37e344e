package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/debate-system/models"
	"github.com/lib/pq"
)

var (
	ErrScoreNotFound  = errors.New("score not found")
	ErrScoreSubmitted = errors.New("score already submitted")
	ErrScoreDuplicate = errors.New("score already exists for this match, judge and team")
	ErrScoreInvalid   = errors.New("score conflict or invalid")
)

const scoreColumns = `id, match_id, judge_id, team_id, criteria_scores, comment_scores, is_submitted, submitted_at, created_at`

type ScoreRepository interface {
	Create(ctx context.Context, exec SQLExecutor, score *models.Score) error
	UpdateValues(ctx context.Context, exec SQLExecutor, id int, criteriaScores map[string]float64, commentScores []float64) error
	GetByID(ctx context.Context, id int) (*models.Score, error)
	Find(ctx context.Context, matchID, judgeID, teamID int) (*models.Score, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.Score, error)
	ListByMatchAndJudge(ctx context.Context, matchID, judgeID int) ([]*models.Score, error)
	MarkSubmitted(ctx context.Context, exec SQLExecutor, ids []int, submittedAt time.Time) error
	ForceSubmitByJudge(ctx context.Context, exec SQLExecutor, matchID, judgeID int, submittedAt time.Time) (int64, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByMatchAndJudge(ctx context.Context, exec SQLExecutor, matchID, judgeID int) error
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresScoreRepository) Create(ctx context.Context, exec SQLExecutor, score *models.Score) error {
	criteriaRaw, commentsRaw, err := encodeScorePayload(score.CriteriaScores, score.CommentScores)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scores (match_id, judge_id, team_id, criteria_scores, comment_scores, is_submitted)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		score.MatchID,
		score.JudgeID,
		score.TeamID,
		criteriaRaw,
		commentsRaw,
	).Scan(&score.ID, &score.CreatedAt)

	return r.handleScoreError(err)
}

func (r *postgresScoreRepository) UpdateValues(ctx context.Context, exec SQLExecutor, id int, criteriaScores map[string]float64, commentScores []float64) error {
	criteriaRaw, commentsRaw, err := encodeScorePayload(criteriaScores, commentScores)
	if err != nil {
		return err
	}

	// Несданность строки перепроверяется на уровне SQL: гонка с автосдачей
	// не должна перезаписать уже зафиксированные значения.
	query := `
		UPDATE scores
		SET criteria_scores = $1, comment_scores = $2
		WHERE id = $3 AND is_submitted = FALSE`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, criteriaRaw, commentsRaw, id)
	if err != nil {
		return r.handleScoreError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows count: %w", err)
	}
	if affected == 0 {
		// Ноль строк означает либо проигранную гонку с автосдачей, либо
		// отсутствие записи — перечитываем, чтобы их различить.
		var submitted bool
		err = r.getExecutor(exec).QueryRowContext(ctx, `SELECT is_submitted FROM scores WHERE id = $1`, id).Scan(&submitted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScoreNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to recheck score %d after update: %w", id, err)
		}
		if submitted {
			return ErrScoreSubmitted
		}
		return ErrScoreNotFound
	}
	return nil
}

func (r *postgresScoreRepository) GetByID(ctx context.Context, id int) (*models.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE id = $1`

	score, err := scanScore(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to scan score by id %d: %w", id, err)
	}
	return score, nil
}

// Find возвращает nil, nil если записи нет — upsert в сервисе различает
// создание и обновление.
func (r *postgresScoreRepository) Find(ctx context.Context, matchID, judgeID, teamID int) (*models.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE match_id = $1 AND judge_id = $2 AND team_id = $3`

	score, err := scanScore(r.db.QueryRowContext(ctx, query, matchID, judgeID, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan score for match %d judge %d team %d: %w", matchID, judgeID, teamID, err)
	}
	return score, nil
}

func (r *postgresScoreRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE match_id = $1 ORDER BY judge_id ASC, team_id ASC`
	return r.queryScores(ctx, query, matchID)
}

func (r *postgresScoreRepository) ListByMatchAndJudge(ctx context.Context, matchID, judgeID int) ([]*models.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE match_id = $1 AND judge_id = $2 ORDER BY team_id ASC`
	return r.queryScores(ctx, query, matchID, judgeID)
}

func (r *postgresScoreRepository) MarkSubmitted(ctx context.Context, exec SQLExecutor, ids []int, submittedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE scores
		SET is_submitted = TRUE, submitted_at = $1
		WHERE id = ANY($2) AND is_submitted = FALSE`

	_, err := r.getExecutor(exec).ExecContext(ctx, query, submittedAt, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark scores submitted: %w", err)
	}
	return nil
}

// ForceSubmitByJudge фиксирует все несданные оценки судьи в матче
// (автосдача после закрытия окна). Возвращает число затронутых строк.
func (r *postgresScoreRepository) ForceSubmitByJudge(ctx context.Context, exec SQLExecutor, matchID, judgeID int, submittedAt time.Time) (int64, error) {
	query := `
		UPDATE scores
		SET is_submitted = TRUE, submitted_at = $1
		WHERE match_id = $2 AND judge_id = $3 AND is_submitted = FALSE`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, submittedAt, matchID, judgeID)
	if err != nil {
		return 0, fmt.Errorf("failed to force-submit scores for match %d judge %d: %w", matchID, judgeID, err)
	}
	return result.RowsAffected()
}

func (r *postgresScoreRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM scores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrScoreNotFound)
}

func (r *postgresScoreRepository) DeleteByMatchAndJudge(ctx context.Context, exec SQLExecutor, matchID, judgeID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM scores WHERE match_id = $1 AND judge_id = $2`, matchID, judgeID)
	if err != nil {
		return fmt.Errorf("failed to delete scores for match %d judge %d: %w", matchID, judgeID, err)
	}
	return nil
}

func encodeScorePayload(criteriaScores map[string]float64, commentScores []float64) ([]byte, []byte, error) {
	if criteriaScores == nil {
		criteriaScores = map[string]float64{}
	}
	if commentScores == nil {
		commentScores = []float64{}
	}
	criteriaRaw, err := json.Marshal(criteriaScores)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode criteria scores: %w", err)
	}
	commentsRaw, err := json.Marshal(commentScores)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode comment scores: %w", err)
	}
	return criteriaRaw, commentsRaw, nil
}

func scanScore(row rowScanner) (*models.Score, error) {
	score := &models.Score{}
	var criteriaRaw, commentsRaw []byte
	err := row.Scan(
		&score.ID,
		&score.MatchID,
		&score.JudgeID,
		&score.TeamID,
		&criteriaRaw,
		&commentsRaw,
		&score.IsSubmitted,
		&score.SubmittedAt,
		&score.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(criteriaRaw) > 0 {
		if err := json.Unmarshal(criteriaRaw, &score.CriteriaScores); err != nil {
			return nil, fmt.Errorf("failed to decode criteria scores: %w", err)
		}
	}
	if len(commentsRaw) > 0 {
		if err := json.Unmarshal(commentsRaw, &score.CommentScores); err != nil {
			return nil, fmt.Errorf("failed to decode comment scores: %w", err)
		}
	}
	return score, nil
}

func (r *postgresScoreRepository) queryScores(ctx context.Context, query string, args ...interface{}) ([]*models.Score, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		score, scanErr := scanScore(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", scanErr)
		}
		scores = append(scores, score)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during score rows iteration: %w", err)
	}
	return scores, nil
}

func (r *postgresScoreRepository) handleScoreError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrScoreDuplicate
		case "23503": // foreign_key_violation
			return ErrScoreInvalid
		}
	}
	return err
}
