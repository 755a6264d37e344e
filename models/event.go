package models

import "time"

// EventStatus представляет статусы ивента, соответствующие ENUM в БД.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
)

// RubricCriterion описывает один критерий оценивания и его максимальный балл.
type RubricCriterion struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

// Event представляет турнирный ивент. Статус двигается только вперёд
// (draft -> active -> completed); завершённые ивенты для этого ядра read-only.
type Event struct {
	ID                 int               `json:"id" db:"id"`
	Name               string            `json:"name" db:"name"`
	TotalRounds        int               `json:"total_rounds" db:"total_rounds"`
	CurrentRound       int               `json:"current_round" db:"current_round"`
	JudgeQuestionCount int               `json:"judge_question_count" db:"judge_question_count"`
	Status             EventStatus       `json:"status" db:"status"`
	ScoringCriteria    []RubricCriterion `json:"scoring_criteria" db:"scoring_criteria"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
}

// CriterionMax возвращает максимальный балл критерия по имени.
func (e *Event) CriterionMax(name string) (float64, bool) {
	for _, c := range e.ScoringCriteria {
		if c.Name == name {
			return c.MaxScore, true
		}
	}
	return 0, false
}
