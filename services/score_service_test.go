package services

import (
	"context"
	"testing"

	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scoringFixture: активный матч на первом судейском вопросе с двумя
// назначенными судьями.
func scoringFixture(t *testing.T) (*fixture, *models.Match) {
	f := newFixture(t)
	f.addEvent(defaultEvent(1))
	f.addTeam(10, 1, "Alpha")
	f.addTeam(11, 1, "Beta")
	f.addUser(1, models.RoleAdmin)
	f.addUser(3, models.RoleJudge)
	f.addUser(4, models.RoleJudge)
	match := f.addMatch(&models.Match{
		EventID: 1, RoundNumber: 1, TeamAID: 10, TeamBID: intPtr(11),
		Status: models.JudgeQuestionStatus(1),
	})
	f.addAssignment(match.ID, 3, 1)
	f.addAssignment(match.ID, 4, 2)
	return f, match
}

func TestUpsertScoreValidation(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	t.Run("unassigned judge rejected", func(t *testing.T) {
		f.addUser(5, models.RoleJudge)
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 5, UpsertScoreInput{TeamID: 10})
		require.ErrorIs(t, err, ErrJudgeNotAssigned)
	})

	t.Run("judge cannot write for another judge", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{JudgeID: intPtr(4), TeamID: 10})
		require.ErrorIs(t, err, ErrNotScoreOwner)
	})

	t.Run("team must be a side of the match", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{TeamID: 99})
		require.ErrorIs(t, err, ErrTeamNotInMatch)
	})

	t.Run("unknown criterion rejected", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
			TeamID:         10,
			CriteriaScores: map[string]float64{"charisma": 5},
		})
		require.ErrorIs(t, err, ErrUnknownCriterion)
	})

	t.Run("criterion above rubric maximum rejected", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
			TeamID:         10,
			CriteriaScores: map[string]float64{"argumentation": 31},
		})
		require.ErrorIs(t, err, ErrCriterionOutOfRange)
	})

	t.Run("too many comment scores rejected", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
			TeamID:        10,
			CommentScores: []float64{5, 6, 7, 8}, // Q = 3
		})
		require.ErrorIs(t, err, ErrCommentScoreInvalid)
	})

	t.Run("comment score outside 0..10 rejected", func(t *testing.T) {
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
			TeamID:        10,
			CommentScores: []float64{11},
		})
		require.ErrorIs(t, err, ErrCommentScoreInvalid)
	})
}

func TestUpsertScoreWindowGate(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	for _, status := range []models.MatchStatus{models.MatchStatusDraft, models.MatchStatusCompleted} {
		match.Status = status
		_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{TeamID: 10})
		require.ErrorIs(t, err, ErrScoringWindowClosed, "status %s", status)
	}

	// final_scoring всё ещё принимает оценки.
	match.Status = models.MatchStatusFinalScoring
	_, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
		TeamID:         10,
		CriteriaScores: map[string]float64{"clarity": 10},
	})
	require.NoError(t, err)
}

func TestUpsertScoreByeMatchRejected(t *testing.T) {
	ctx := context.Background()
	f, _ := scoringFixture(t)
	bye := f.addMatch(&models.Match{EventID: 1, RoundNumber: 2, TeamAID: 10, Status: models.MatchStatusCompleted})

	_, err := f.scoreSvc.UpsertScore(ctx, bye.ID, 3, UpsertScoreInput{TeamID: 10})
	require.ErrorIs(t, err, ErrByeMatchNotScoreable)
}

func TestUpsertScoreCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	created, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
		TeamID:         10,
		CriteriaScores: map[string]float64{"argumentation": 20},
		CommentScores:  []float64{7},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// Повторная запись той же тройки (матч, судья, команда) обновляет строку.
	updated, err := f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
		TeamID:         10,
		CriteriaScores: map[string]float64{"argumentation": 25},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.InDelta(t, 25.0, updated.CriteriaScores["argumentation"], 1e-9)

	// Сданная оценка неизменяема.
	created.IsSubmitted = true
	_, err = f.scoreSvc.UpsertScore(ctx, match.ID, 3, UpsertScoreInput{
		TeamID:         10,
		CriteriaScores: map[string]float64{"argumentation": 30},
	})
	require.ErrorIs(t, err, ErrScoreAlreadySubmitted)
}

// Гонка с автосдачей: строка сдана между чтением и UPDATE. Репозиторий
// обязан вернуть «уже сдано», а не «не найдено».
func TestUpdateValuesDistinguishesSubmittedFromMissing(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	score := f.addScore(&models.Score{
		MatchID: match.ID, JudgeID: 3, TeamID: 10,
		CriteriaScores: map[string]float64{"argumentation": 20},
		IsSubmitted:    true,
	})

	err := f.scores.UpdateValues(ctx, nil, score.ID, map[string]float64{"argumentation": 25}, nil)
	require.ErrorIs(t, err, repositories.ErrScoreSubmitted)
	assert.ErrorIs(t, mapScoreRepoError(err), ErrScoreAlreadySubmitted)

	err = f.scores.UpdateValues(ctx, nil, 999, map[string]float64{"argumentation": 25}, nil)
	require.ErrorIs(t, err, repositories.ErrScoreNotFound)
	assert.ErrorIs(t, mapScoreRepoError(err), ErrScoreNotFound)
}

func TestUpsertScoreAdminOverride(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	// Админ пишет от имени судьи, минуя проверку назначения.
	score, err := f.scoreSvc.UpsertScore(ctx, match.ID, 1, UpsertScoreInput{
		JudgeID:        intPtr(3),
		TeamID:         10,
		CriteriaScores: map[string]float64{"clarity": 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, score.JudgeID)
}

func TestSubmitBatchValidation(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	_, err := f.scoreSvc.SubmitBatch(ctx, match.ID, 3, nil)
	require.ErrorIs(t, err, ErrNoScoresToSubmit)

	onlyA := f.addScore(&models.Score{MatchID: match.ID, JudgeID: 3, TeamID: 10})
	_, err = f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{onlyA.ID})
	require.ErrorIs(t, err, ErrIncompleteSubmission)

	// Батч другого судьи не-админу не принадлежит.
	otherA := f.addScore(&models.Score{MatchID: match.ID, JudgeID: 4, TeamID: 10})
	otherB := f.addScore(&models.Score{MatchID: match.ID, JudgeID: 4, TeamID: 11})
	_, err = f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{otherA.ID, otherB.ID})
	require.ErrorIs(t, err, ErrNotScoreOwner)

	// Смешанный батч.
	_, err = f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{onlyA.ID, otherB.ID})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestSubmitBatchWithoutCompletion(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	scoreA := f.addScore(&models.Score{
		MatchID: match.ID, JudgeID: 3, TeamID: 10,
		CriteriaScores: map[string]float64{"clarity": 15},
	})
	scoreB := f.addScore(&models.Score{
		MatchID: match.ID, JudgeID: 3, TeamID: 11,
		CriteriaScores: map[string]float64{"clarity": 12},
	})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	updated, err := f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{scoreA.ID, scoreB.ID})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.True(t, scoreA.IsSubmitted)
	assert.True(t, scoreB.IsSubmitted)
	// Второй судья ещё не сдал: матч не завершается.
	assert.NotEqual(t, models.MatchStatusCompleted, updated.Status)
	assert.Empty(t, f.publisher.published)

	// Повторная сдача — no-op с ошибкой, не порча данных.
	_, err = f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{scoreA.ID, scoreB.ID})
	require.ErrorIs(t, err, ErrNoScoresToSubmit)
}

func TestSubmitBatchCompletesMatchWhenAllJudgesIn(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	// Судья 3 уже сдал обе стороны.
	for teamID, value := range map[int]float64{10: 15, 11: 12} {
		f.addScore(&models.Score{
			MatchID: match.ID, JudgeID: 3, TeamID: teamID,
			CriteriaScores: map[string]float64{"clarity": value},
			IsSubmitted:    true,
		})
	}
	lastA := f.addScore(&models.Score{
		MatchID: match.ID, JudgeID: 4, TeamID: 10,
		CriteriaScores: map[string]float64{"clarity": 18},
	})
	lastB := f.addScore(&models.Score{
		MatchID: match.ID, JudgeID: 4, TeamID: 11,
		CriteriaScores: map[string]float64{"clarity": 9},
	})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	updated, err := f.scoreSvc.SubmitBatch(ctx, match.ID, 4, []int{lastA.ID, lastB.ID})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, models.MatchStatusCompleted, updated.Status)
	require.NotNil(t, updated.WinnerID)
	assert.Equal(t, 10, *updated.WinnerID) // 33 против 21

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, match.ID, f.publisher.published[0].MatchID)
}

func TestSubmitBatchRejectsCompletedMatch(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)
	match.Status = models.MatchStatusCompleted

	score := f.addScore(&models.Score{MatchID: match.ID, JudgeID: 3, TeamID: 10})
	_, err := f.scoreSvc.SubmitBatch(ctx, match.ID, 3, []int{score.ID})
	require.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestDeleteScore(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	score := f.addScore(&models.Score{MatchID: match.ID, JudgeID: 3, TeamID: 10})

	// Чужую оценку судья не удалит.
	require.ErrorIs(t, f.scoreSvc.DeleteScore(ctx, score.ID, 4), ErrNotScoreOwner)

	// Сданную — никто, кроме как через явные админские корректировки.
	score.IsSubmitted = true
	require.ErrorIs(t, f.scoreSvc.DeleteScore(ctx, score.ID, 3), ErrScoreAlreadySubmitted)

	score.IsSubmitted = false
	require.NoError(t, f.scoreSvc.DeleteScore(ctx, score.ID, 3))
	_, err := f.scores.GetByID(ctx, score.ID)
	require.Error(t, err)
}

func TestListScoresByMatchIsRoleAware(t *testing.T) {
	ctx := context.Background()
	f, match := scoringFixture(t)

	f.addScore(&models.Score{MatchID: match.ID, JudgeID: 3, TeamID: 10})
	f.addScore(&models.Score{MatchID: match.ID, JudgeID: 4, TeamID: 10})

	own, err := f.scoreSvc.ListScoresByMatch(ctx, match.ID, 3)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, 3, own[0].JudgeID)

	all, err := f.scoreSvc.ListScoresByMatch(ctx, match.ID, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
