package services

import (
	"testing"

	"github.com/Dosada05/debate-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submittedScore(judgeID, teamID int, criteria map[string]float64, comments []float64) *models.Score {
	return &models.Score{
		JudgeID:        judgeID,
		TeamID:         teamID,
		CriteriaScores: criteria,
		CommentScores:  comments,
		IsSubmitted:    true,
	}
}

func TestJudgeTeamTotal(t *testing.T) {
	// Сумма критериев + округлённое среднее по вопросам.
	score := submittedScore(1, 10,
		map[string]float64{"argumentation": 25, "clarity": 17},
		[]float64{7, 8, 8}, // среднее 7.67 -> 8
	)
	assert.InDelta(t, 50.0, judgeTeamTotal(score), 1e-9)

	// Без баллов за вопросы — только критерии.
	score = submittedScore(1, 10, map[string]float64{"argumentation": 25}, nil)
	assert.InDelta(t, 25.0, judgeTeamTotal(score), 1e-9)

	// Округление от половины — вверх по модулю: среднее 7.5 -> 8.
	score = submittedScore(1, 10, nil, []float64{7, 8})
	assert.InDelta(t, 8.0, judgeTeamTotal(score), 1e-9)
}

func TestAggregateTotalsSkipsUnsubmitted(t *testing.T) {
	draft := submittedScore(2, 10, map[string]float64{"clarity": 20}, nil)
	draft.IsSubmitted = false

	totals := AggregateTotals([]*models.Score{
		submittedScore(1, 10, map[string]float64{"clarity": 15}, nil),
		submittedScore(1, 11, map[string]float64{"clarity": 12}, nil),
		draft,
	})
	assert.InDelta(t, 15.0, totals[10], 1e-9)
	assert.InDelta(t, 12.0, totals[11], 1e-9)
}

func TestAggregateTotalsAddsAcrossJudges(t *testing.T) {
	totals := AggregateTotals([]*models.Score{
		submittedScore(1, 10, map[string]float64{"clarity": 15}, []float64{8}),
		submittedScore(2, 10, map[string]float64{"clarity": 17}, []float64{6}),
	})
	// Итоги судей складываются: (15+8) + (17+6) = 46.
	assert.InDelta(t, 46.0, totals[10], 1e-9)
}

func TestDetermineWinner(t *testing.T) {
	teamB := 11
	match := &models.Match{TeamAID: 10, TeamBID: &teamB}

	winner := DetermineWinner(match, []*models.Score{
		submittedScore(1, 10, map[string]float64{"clarity": 15}, nil),
		submittedScore(1, 11, map[string]float64{"clarity": 12}, nil),
	})
	require.NotNil(t, winner)
	assert.Equal(t, 10, *winner)

	// Строгое равенство итогов — ничья.
	winner = DetermineWinner(match, []*models.Score{
		submittedScore(1, 10, map[string]float64{"clarity": 15}, nil),
		submittedScore(1, 11, map[string]float64{"clarity": 15}, nil),
	})
	assert.Nil(t, winner)

	// Bye-матч победителя из оценок не получает.
	assert.Nil(t, DetermineWinner(&models.Match{TeamAID: 10}, nil))
}

func TestTeamDifferential(t *testing.T) {
	teamB := 11
	match := &models.Match{TeamAID: 10, TeamBID: &teamB}
	scores := []*models.Score{
		submittedScore(1, 10, map[string]float64{"clarity": 18}, nil),
		submittedScore(1, 11, map[string]float64{"clarity": 12}, nil),
	}

	assert.InDelta(t, 6.0, TeamDifferential(match, scores, 10), 1e-9)
	assert.InDelta(t, -6.0, TeamDifferential(match, scores, 11), 1e-9)
	assert.InDelta(t, 0.0, TeamDifferential(&models.Match{TeamAID: 10}, scores, 10), 1e-9)
}
