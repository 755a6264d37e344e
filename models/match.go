package models

import "time"

// Match представляет матч раунда. TeamBID == nil означает bye-матч:
// команда TeamAID пропускает раунд, матч создаётся сразу в статусе
// completed с winner = TeamAID.
type Match struct {
	ID            int         `json:"id" db:"id"`
	EventID       int         `json:"event_id" db:"event_id"`
	RoundNumber   int         `json:"round_number" db:"round_number"`
	TeamAID       int         `json:"team_a_id" db:"team_a_id"`
	TeamBID       *int        `json:"team_b_id,omitempty" db:"team_b_id"`
	ModeratorID   *int        `json:"moderator_id,omitempty" db:"moderator_id"`
	Status        MatchStatus `json:"status" db:"status"`
	WinnerID      *int        `json:"winner_id,omitempty" db:"winner_id"`
	RoomID        *int        `json:"room_id,omitempty" db:"room_id"`
	ScheduledTime *time.Time  `json:"scheduled_time,omitempty" db:"scheduled_time"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	TeamA *Team `json:"team_a,omitempty" db:"-"`
	TeamB *Team `json:"team_b,omitempty" db:"-"`
}

func (m *Match) IsBye() bool {
	return m.TeamBID == nil
}

// HasTeam сообщает, участвует ли команда в матче.
func (m *Match) HasTeam(teamID int) bool {
	if m.TeamAID == teamID {
		return true
	}
	return m.TeamBID != nil && *m.TeamBID == teamID
}
