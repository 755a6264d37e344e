package models

// TeamStanding — агрегированная позиция команды в ивенте: результаты
// завершённых матчей, свёрнутые вместе с журналами корректировок.
// Не хранится в БД, вычисляется по запросу.
type TeamStanding struct {
	TeamID          int     `json:"team_id"`
	TeamName        string  `json:"team_name"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Ties            int     `json:"ties"`
	Votes           int     `json:"votes"`
	ScoreFor        float64 `json:"score_for"`
	ScoreAgainst    float64 `json:"score_against"`
	ScoreDifference float64 `json:"score_difference"`
}
