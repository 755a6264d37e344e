package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/debate-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchEventInvalid  = errors.New("match event conflict or invalid")
	ErrMatchTeamInvalid   = errors.New("match team conflict or invalid")
	ErrMatchWinnerInvalid = errors.New("match winner conflict or invalid")
)

const matchColumns = `id, event_id, round_number, team_a_id, team_b_id, moderator_id, status, winner_id, room_id, scheduled_time, created_at`

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByEvent(ctx context.Context, eventID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListCompletedByTeam(ctx context.Context, eventID, teamID, excludeMatchID int) ([]*models.Match, error)
	ListByes(ctx context.Context, eventID int) ([]*models.Match, error)
	FindByeByTeam(ctx context.Context, eventID, teamID int) (*models.Match, error)
	FindByeByRound(ctx context.Context, eventID, round int) (*models.Match, error)
	FindByTeamsAndRound(ctx context.Context, eventID, round, teamAID, teamBID int) (*models.Match, error)
	UpdateStatusAndWinner(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, winnerID *int) error
	UpdateByeTeam(ctx context.Context, exec SQLExecutor, id, teamID int) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(event_id, round_number, team_a_id, team_b_id, moderator_id, status, winner_id, room_id, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.EventID,
		match.RoundNumber,
		match.TeamAID,
		match.TeamBID,
		match.ModeratorID,
		match.Status,
		match.WinnerID,
		match.RoomID,
		match.ScheduledTime,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, eventID int, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1`)

	args := []interface{}{eventID}
	placeholderIndex := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round_number = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *roundFilter)
		placeholderIndex++
	}

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
	}

	queryBuilder.WriteString(" ORDER BY round_number ASC, id ASC")

	return r.queryMatches(ctx, queryBuilder.String(), args...)
}

// ListCompletedByTeam возвращает завершённые не-bye матчи команды в ивенте,
// исключая excludeMatchID (сам bye-матч при расчёте дифференциала).
func (r *postgresMatchRepository) ListCompletedByTeam(ctx context.Context, eventID, teamID, excludeMatchID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE event_id = $1
		  AND status = $2
		  AND team_b_id IS NOT NULL
		  AND (team_a_id = $3 OR team_b_id = $3)
		  AND id <> $4
		ORDER BY round_number ASC, id ASC`

	return r.queryMatches(ctx, query, eventID, models.MatchStatusCompleted, teamID, excludeMatchID)
}

func (r *postgresMatchRepository) ListByes(ctx context.Context, eventID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE event_id = $1 AND team_b_id IS NULL
		ORDER BY round_number ASC`

	return r.queryMatches(ctx, query, eventID)
}

func (r *postgresMatchRepository) FindByeByTeam(ctx context.Context, eventID, teamID int) (*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE event_id = $1 AND team_b_id IS NULL AND team_a_id = $2`

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, eventID, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan bye match for team %d: %w", teamID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) FindByeByRound(ctx context.Context, eventID, round int) (*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE event_id = $1 AND team_b_id IS NULL AND round_number = $2`

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, eventID, round))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan bye match for round %d: %w", round, err)
	}
	return match, nil
}

// FindByTeamsAndRound ищет матч между двумя командами в раунде независимо от
// порядка сторон. Используется для проверки конфликта повторной пары.
func (r *postgresMatchRepository) FindByTeamsAndRound(ctx context.Context, eventID, round, teamAID, teamBID int) (*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE event_id = $1 AND round_number = $2
		  AND ((team_a_id = $3 AND team_b_id = $4) OR (team_a_id = $4 AND team_b_id = $3))`

	match, err := r.scanMatch(r.db.QueryRowContext(ctx, query, eventID, round, teamAID, teamBID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan match by teams %d/%d: %w", teamAID, teamBID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) UpdateStatusAndWinner(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, winnerID *int) error {
	query := `UPDATE matches SET status = $1, winner_id = $2 WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, winnerID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateByeTeam(ctx context.Context, exec SQLExecutor, id, teamID int) error {
	query := `UPDATE matches SET team_a_id = $1, winner_id = $1 WHERE id = $2 AND team_b_id IS NULL`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.EventID,
		&match.RoundNumber,
		&match.TeamAID,
		&match.TeamBID,
		&match.ModeratorID,
		&match.Status,
		&match.WinnerID,
		&match.RoomID,
		&match.ScheduledTime,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" { // foreign_key_violation
			switch pqErr.Constraint {
			case "matches_event_id_fkey":
				return ErrMatchEventInvalid
			case "matches_team_a_id_fkey", "matches_team_b_id_fkey":
				return ErrMatchTeamInvalid
			case "matches_winner_id_fkey":
				return ErrMatchWinnerInvalid
			}
		}
	}
	return err
}
