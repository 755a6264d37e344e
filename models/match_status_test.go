package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusesForQuestionCount(t *testing.T) {
	statuses := StatusesForQuestionCount(3)
	require.Equal(t, []MatchStatus{
		MatchStatusDraft,
		MatchStatusModeratorPeriod1,
		"judge_question_1",
		"judge_question_2",
		"judge_question_3",
		MatchStatusFinalScoring,
		MatchStatusCompleted,
	}, statuses)

	// Q = 0 вырождается в машину без судейских вопросов.
	assert.Equal(t, []MatchStatus{
		MatchStatusDraft,
		MatchStatusModeratorPeriod1,
		MatchStatusFinalScoring,
		MatchStatusCompleted,
	}, StatusesForQuestionCount(0))
}

func TestQuestionNumber(t *testing.T) {
	n, ok := JudgeQuestionStatus(2).QuestionNumber()
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = MatchStatusDraft.QuestionNumber()
	assert.False(t, ok)

	_, ok = MatchStatus("judge_question_0").QuestionNumber()
	assert.False(t, ok)

	_, ok = MatchStatus("judge_question_x").QuestionNumber()
	assert.False(t, ok)
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus(MatchStatusDraft, 3))
	assert.True(t, IsValidStatus("judge_question_3", 3))
	assert.False(t, IsValidStatus("judge_question_4", 3))
	assert.False(t, IsValidStatus("halftime", 3))
}

func TestJudgeMayScore(t *testing.T) {
	q := 3
	assert.False(t, JudgeMayScore(MatchStatusDraft, q))
	assert.True(t, JudgeMayScore(MatchStatusModeratorPeriod1, q))
	assert.True(t, JudgeMayScore("judge_question_1", q))
	assert.True(t, JudgeMayScore("judge_question_3", q))
	assert.True(t, JudgeMayScore(MatchStatusFinalScoring, q))
	assert.False(t, JudgeMayScore(MatchStatusCompleted, q))
	assert.False(t, JudgeMayScore("bogus", q))
}

func TestJudgeWindowPassed(t *testing.T) {
	q := 3

	// Окно судьи 1 — judge_question_1: закрыто начиная со второго вопроса.
	assert.False(t, JudgeWindowPassed("judge_question_1", q, 1))
	assert.True(t, JudgeWindowPassed("judge_question_2", q, 1))
	assert.True(t, JudgeWindowPassed(MatchStatusFinalScoring, q, 1))

	// Окно судьи 3 закрывается только на final_scoring.
	assert.False(t, JudgeWindowPassed("judge_question_3", q, 3))
	assert.True(t, JudgeWindowPassed(MatchStatusFinalScoring, q, 3))

	// Судья с номером больше Q прижимается к последнему вопросу: к
	// final_scoring все окна закрыты.
	assert.False(t, JudgeWindowPassed("judge_question_3", q, 5))
	assert.True(t, JudgeWindowPassed(MatchStatusFinalScoring, q, 5))

	// До начала судейских вопросов ни одно окно не закрыто.
	assert.False(t, JudgeWindowPassed(MatchStatusModeratorPeriod1, q, 1))
	assert.False(t, JudgeWindowPassed(MatchStatusDraft, q, 1))

	// Вырожденные входы.
	assert.False(t, JudgeWindowPassed(MatchStatusFinalScoring, q, 0))
	assert.False(t, JudgeWindowPassed(MatchStatusFinalScoring, 0, 1))
	assert.False(t, JudgeWindowPassed("bogus", q, 1))
}
