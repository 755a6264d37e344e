package models

import "time"

// Score — оценки одного судьи одной команде в одном матче.
// Уникальна по (match_id, judge_id, team_id). Мутабельна только пока
// is_submitted = false и матч находится в оцениваемом статусе.
type Score struct {
	ID             int                `json:"id" db:"id"`
	MatchID        int                `json:"match_id" db:"match_id"`
	JudgeID        int                `json:"judge_id" db:"judge_id"`
	TeamID         int                `json:"team_id" db:"team_id"`
	CriteriaScores map[string]float64 `json:"criteria_scores" db:"criteria_scores"`
	CommentScores  []float64          `json:"comment_scores" db:"comment_scores"`
	IsSubmitted    bool               `json:"is_submitted" db:"is_submitted"`
	SubmittedAt    *time.Time         `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
