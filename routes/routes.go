package routes

import (
	"github.com/Dosada05/debate-system/handlers"
	"github.com/Dosada05/debate-system/middleware"
	"github.com/Dosada05/debate-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes собирает маршрутизатор API. Аутентификация обязательна для
// всех маршрутов; тонкие проверки полномочий (владение оценкой, привязка
// модератора) живут в сервисном слое.
func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	corsOrigins []string,
	matchHandler *handlers.MatchHandler,
	scoreHandler *handlers.ScoreHandler,
	assignmentHandler *handlers.AssignmentHandler,
	byeHandler *handlers.ByeHandler,
	adjustmentHandler *handlers.AdjustmentHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/matches", matchHandler.ListMatchesHandler)
			r.Post("/matches", matchHandler.CreateMatchHandler)

			r.Get("/standings", adjustmentHandler.GetStandingsHandler)

			r.Get("/bye-teams", byeHandler.ListByeTeamsHandler)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(models.RoleAdmin))
				r.Post("/bye-teams", byeHandler.SetByeTeamHandler)
				r.Put("/bye-teams/recalculate", byeHandler.RecalculateByesHandler)
			})

			r.Get("/vote-adjustments", adjustmentHandler.ListVoteLogsHandler)
			r.Get("/win-adjustments", adjustmentHandler.ListWinLogsHandler)
			r.Get("/score-diff-adjustments", adjustmentHandler.ListScoreDiffLogsHandler)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(models.RoleAdmin))
				r.Post("/vote-adjustments", adjustmentHandler.CreateVoteLogHandler)
				r.Delete("/vote-adjustments/{logID}", adjustmentHandler.DeleteVoteLogHandler)
				r.Post("/win-adjustments", adjustmentHandler.CreateWinLogHandler)
				r.Delete("/win-adjustments/{logID}", adjustmentHandler.DeleteWinLogHandler)
				r.Post("/score-diff-adjustments", adjustmentHandler.CreateScoreDiffLogHandler)
				r.Delete("/score-diff-adjustments/{logID}", adjustmentHandler.DeleteScoreDiffLogHandler)
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", matchHandler.GetMatchHandler)
			r.Put("/status", matchHandler.UpdateMatchStatusHandler)
			r.Delete("/", matchHandler.DeleteMatchHandler)

			r.Get("/judges", assignmentHandler.ListAssignmentsHandler)
			r.Post("/judges", assignmentHandler.AssignJudgeHandler)
			r.Put("/judges", assignmentHandler.ReplaceJudgeHandler)
			r.Delete("/judges/{judgeID}", assignmentHandler.RemoveJudgeHandler)

			r.Get("/scores", scoreHandler.ListScoresHandler)
			r.Post("/scores", scoreHandler.UpsertScoreHandler)
			r.Post("/scores/submit", scoreHandler.SubmitScoresHandler)
		})

		r.Delete("/scores/{scoreID}", scoreHandler.DeleteScoreHandler)

		r.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
	})
}
