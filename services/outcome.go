package services

import (
	"math"

	"github.com/Dosada05/debate-system/models"
)

// Калькулятор исходов. Чистые функции над сданными оценками: никакого
// состояния, один и тот же набор оценок всегда даёт один и тот же результат.

// judgeTeamTotal — итог одного судьи одной команде:
// сумма критериев + округлённое среднее по вопросам.
func judgeTeamTotal(score *models.Score) float64 {
	var total float64
	for _, v := range score.CriteriaScores {
		total += v
	}
	if len(score.CommentScores) > 0 {
		var sum float64
		for _, v := range score.CommentScores {
			sum += v
		}
		total += math.Round(sum / float64(len(score.CommentScores)))
	}
	return total
}

// AggregateTotals суммирует сданные оценки всех судей по командам.
// Итоги судей складываются, а не усредняются. Несданные строки игнорируются.
func AggregateTotals(scores []*models.Score) map[int]float64 {
	totals := make(map[int]float64)
	for _, s := range scores {
		if s == nil || !s.IsSubmitted {
			continue
		}
		totals[s.TeamID] += judgeTeamTotal(s)
	}
	return totals
}

// DetermineWinner выбирает победителя матча по агрегированным итогам.
// Строго больший итог выигрывает; равенство — ничья, победителя нет.
func DetermineWinner(match *models.Match, scores []*models.Score) *int {
	if match == nil || match.TeamBID == nil {
		return nil
	}
	totals := AggregateTotals(scores)
	totalA := totals[match.TeamAID]
	totalB := totals[*match.TeamBID]
	switch {
	case totalA > totalB:
		winner := match.TeamAID
		return &winner
	case totalB > totalA:
		winner := *match.TeamBID
		return &winner
	default:
		return nil
	}
}

// TeamDifferential — знаковая разница очков команды в матче: её итог минус
// итог соперника. Используется bye-компенсацией.
func TeamDifferential(match *models.Match, scores []*models.Score, teamID int) float64 {
	if match == nil || match.TeamBID == nil {
		return 0
	}
	totals := AggregateTotals(scores)
	if teamID == match.TeamAID {
		return totals[match.TeamAID] - totals[*match.TeamBID]
	}
	return totals[*match.TeamBID] - totals[match.TeamAID]
}
