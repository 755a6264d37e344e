package models

import "time"

// Журналы корректировок — append-only поправки администраторов поверх
// вычисленных результатов. Удаление записи — жёсткое: её вклад просто
// исчезает из агрегатов, считаемых в другом месте.

// VoteLog — корректировка счётчика голосов команды.
type VoteLog struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	Votes     int       `json:"votes" db:"votes"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WinLog — корректировка W/L/T записи команды. Bye-компенсация создаёт
// синтетическую запись 1-0-0 от имени системы.
type WinLog struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	Wins      int       `json:"wins" db:"wins"`
	Losses    int       `json:"losses" db:"losses"`
	Ties      int       `json:"ties" db:"ties"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ScoreDiffLog — корректировка суммарной разницы очков команды.
// Единственный лог, который обновляется на месте (bye-пересчёт).
type ScoreDiffLog struct {
	ID        int       `json:"id" db:"id"`
	EventID   int       `json:"event_id" db:"event_id"`
	TeamID    int       `json:"team_id" db:"team_id"`
	ScoreDiff float64   `json:"score_diff" db:"score_diff"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
