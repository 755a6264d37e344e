package models

import "time"

// MatchAssignment привязывает судью к матчу. Пара (match_id, judge_id)
// уникальна; judge_number — позиция 1..N, определяющая окно оценивания.
type MatchAssignment struct {
	ID          int       `json:"id" db:"id"`
	MatchID     int       `json:"match_id" db:"match_id"`
	JudgeID     int       `json:"judge_id" db:"judge_id"`
	JudgeNumber int       `json:"judge_number" db:"judge_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	Judge *User `json:"judge,omitempty" db:"-"`
}
