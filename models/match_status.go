package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchStatus представляет стадии матча. Полный набор стадий зависит от
// настроенного в ивенте числа судейских вопросов Q:
//
//	draft -> moderator_period_1 -> judge_question_1 .. judge_question_Q ->
//	final_scoring -> completed
type MatchStatus string

const (
	MatchStatusDraft            MatchStatus = "draft"
	MatchStatusModeratorPeriod1 MatchStatus = "moderator_period_1"
	MatchStatusFinalScoring     MatchStatus = "final_scoring"
	MatchStatusCompleted        MatchStatus = "completed"
)

// JudgeQuestionStatus возвращает статус судейского вопроса с номером n (1..Q).
func JudgeQuestionStatus(n int) MatchStatus {
	return MatchStatus(fmt.Sprintf("judge_question_%d", n))
}

// StatusesForQuestionCount строит упорядоченный набор статусов для Q
// судейских вопросов. Чистая функция: один и тот же Q всегда даёт один
// и тот же набор.
func StatusesForQuestionCount(q int) []MatchStatus {
	if q < 0 {
		q = 0
	}
	statuses := make([]MatchStatus, 0, q+4)
	statuses = append(statuses, MatchStatusDraft, MatchStatusModeratorPeriod1)
	for n := 1; n <= q; n++ {
		statuses = append(statuses, JudgeQuestionStatus(n))
	}
	statuses = append(statuses, MatchStatusFinalScoring, MatchStatusCompleted)
	return statuses
}

// QuestionNumber извлекает номер вопроса из статуса judge_question_N.
func (s MatchStatus) QuestionNumber() (int, bool) {
	rest, ok := strings.CutPrefix(string(s), "judge_question_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// StatusIndex возвращает позицию статуса в наборе для данного Q.
// ok == false, если статус в набор не входит.
func StatusIndex(s MatchStatus, q int) (int, bool) {
	for i, candidate := range StatusesForQuestionCount(q) {
		if candidate == s {
			return i, true
		}
	}
	return 0, false
}

// IsValidStatus проверяет принадлежность статуса набору для данного Q.
func IsValidStatus(s MatchStatus, q int) bool {
	_, ok := StatusIndex(s, q)
	return ok
}

// JudgeMayScore сообщает, открыто ли окно записи оценок хоть для кого-то из
// судей: любой статус от moderator_period_1 до final_scoring включительно.
// Во время judge_question_k приоритет у судьи k, но запись другим судьям
// намеренно не запрещается (ранняя сдача оценок допустима).
func JudgeMayScore(current MatchStatus, q int) bool {
	idx, ok := StatusIndex(current, q)
	if !ok {
		return false
	}
	completedIdx, _ := StatusIndex(MatchStatusCompleted, q)
	return idx > 0 && idx < completedIdx
}

// JudgeWindowPassed сообщает, закрылось ли окно судьи с позицией judgeNumber
// при текущем статусе. Окно судьи p — стадия judge_question_p; для судей с
// номером больше Q окном считается последний вопрос. Прошедшее окно означает,
// что все несданные оценки судьи подлежат автосдаче.
func JudgeWindowPassed(current MatchStatus, q, judgeNumber int) bool {
	if judgeNumber < 1 || q < 1 {
		return false
	}
	idx, ok := StatusIndex(current, q)
	if !ok {
		return false
	}
	window := judgeNumber
	if window > q {
		window = q
	}
	windowIdx, ok := StatusIndex(JudgeQuestionStatus(window), q)
	if !ok {
		return false
	}
	return idx > windowIdx
}
