package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/debate-system/events"
	"github.com/Dosada05/debate-system/live"
	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
)

// Broadcaster рассылает live-обновления в комнату ивента. Реализуется
// live.Hub; в тестах подменяется заглушкой.
type Broadcaster interface {
	BroadcastToEvent(eventID int, message live.Message)
}

type CreateMatchInput struct {
	RoundNumber   int        `json:"round_number"`
	TeamAID       int        `json:"team_a_id"`
	TeamBID       *int       `json:"team_b_id"`
	ModeratorID   *int       `json:"moderator_id"`
	RoomID        *int       `json:"room_id"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, eventID, actorID int, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatchesByEvent(ctx context.Context, eventID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	AdvanceStatus(ctx context.Context, matchID int, newStatus models.MatchStatus, actorID int) (*models.Match, error)
	DeleteMatch(ctx context.Context, matchID, actorID int) error
	AdvanceCurrentRound(ctx context.Context, eventID int) error
}

type matchService struct {
	eventRepo      repositories.EventRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	roomRepo       repositories.RoomRepository
	matchRepo      repositories.MatchRepository
	assignmentRepo repositories.AssignmentRepository
	scoreRepo      repositories.ScoreRepository
	byeService     ByeService
	publisher      events.Publisher
	hub            Broadcaster
	logger         *slog.Logger
}

func NewMatchService(
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	roomRepo repositories.RoomRepository,
	matchRepo repositories.MatchRepository,
	assignmentRepo repositories.AssignmentRepository,
	scoreRepo repositories.ScoreRepository,
	byeService ByeService,
	publisher events.Publisher,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		eventRepo:      eventRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		roomRepo:       roomRepo,
		matchRepo:      matchRepo,
		assignmentRepo: assignmentRepo,
		scoreRepo:      scoreRepo,
		byeService:     byeService,
		publisher:      publisher,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, eventID, actorID int, input CreateMatchInput) (*models.Match, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !Can(actor, ActionCreateMatch, nil) {
		return nil, ErrForbiddenOperation
	}

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCompleted {
		return nil, ErrEventCompleted
	}
	// Расписание draft-ивента ещё не зафиксировано: матчи принимает только
	// активный ивент.
	if event.Status != models.EventStatusActive {
		return nil, ErrEventNotActive
	}
	if input.RoundNumber < 1 || input.RoundNumber > event.TotalRounds {
		return nil, fmt.Errorf("%w: round %d of %d", ErrInvalidRoundNumber, input.RoundNumber, event.TotalRounds)
	}

	// team_b = null означает bye: матч создаётся сразу завершённым,
	// дальше им владеет движок компенсации.
	if input.TeamBID == nil {
		return s.byeService.CreateOrUpdateBye(ctx, eventID, input.RoundNumber, input.TeamAID, actorID)
	}

	if input.TeamAID == *input.TeamBID {
		return nil, ErrSameTeamsInMatch
	}
	for _, teamID := range []int{input.TeamAID, *input.TeamBID} {
		team, err := s.teamRepo.GetByID(ctx, teamID)
		if err != nil {
			return nil, mapTeamRepoError(err)
		}
		if team.EventID != eventID {
			return nil, fmt.Errorf("%w: team %d", ErrTeamNotInEvent, teamID)
		}
	}

	existing, err := s.matchRepo.FindByTeamsAndRound(ctx, eventID, input.RoundNumber, input.TeamAID, *input.TeamBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMatchPairConflict
	}

	if input.ModeratorID != nil {
		moderator, err := s.userRepo.GetByID(ctx, *input.ModeratorID)
		if err != nil {
			return nil, mapUserRepoError(err)
		}
		if moderator.Role != models.RoleModerator && moderator.Role != models.RoleAdmin {
			return nil, ErrModeratorRoleRequired
		}
	}

	scheduledTime := input.ScheduledTime
	if scheduledTime == nil && input.RoomID != nil {
		room, err := s.roomRepo.GetByID(ctx, *input.RoomID)
		if err != nil {
			return nil, mapRoomRepoError(err)
		}
		scheduledTime = room.DefaultStartTime
	}

	match := &models.Match{
		EventID:       eventID,
		RoundNumber:   input.RoundNumber,
		TeamAID:       input.TeamAID,
		TeamBID:       input.TeamBID,
		ModeratorID:   input.ModeratorID,
		Status:        models.MatchStatusDraft,
		RoomID:        input.RoomID,
		ScheduledTime: scheduledTime,
	}
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.hub.BroadcastToEvent(eventID, live.Message{Type: live.MessageMatchUpdated, Payload: match})
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	return match, nil
}

func (s *matchService) ListMatchesByEvent(ctx context.Context, eventID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.getEvent(ctx, eventID); err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByEvent(ctx, eventID, round, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for event %d: %w", eventID, err)
	}
	return matches, nil
}

// AdvanceStatus двигает машину состояний матча. Допустим любой статус из
// набора, порождённого числом вопросов ивента, — в том числе назад:
// это намеренная вольность для операционного восстановления. Переход в
// completed дополнительно проходит валидацию полноты оценок (кроме bye),
// каждый успешный переход автосдаёт оценки судей с закрывшимся окном.
func (s *matchService) AdvanceStatus(ctx context.Context, matchID int, newStatus models.MatchStatus, actorID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !Can(actor, ActionAdvanceMatch, match) {
		return nil, ErrNotMatchModerator
	}

	event, err := s.getEvent(ctx, match.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status == models.EventStatusCompleted {
		return nil, ErrEventCompleted
	}

	q := event.JudgeQuestionCount
	if !models.IsValidStatus(newStatus, q) {
		return nil, fmt.Errorf("%w: %q is not in the status set for %d judge questions", ErrInvalidMatchStatus, newStatus, q)
	}

	assignments, err := s.assignmentRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var winnerID *int
	if newStatus == models.MatchStatusCompleted {
		if match.IsBye() {
			// Bye-матчи завершены по построению; победитель не пересчитывается.
			winnerID = &match.TeamAID
		} else {
			scores, err := s.scoreRepo.ListByMatch(ctx, matchID)
			if err != nil {
				return nil, err
			}
			if err := validateCompletion(match, assignments, scores); err != nil {
				return nil, err
			}
			winnerID = DetermineWinner(match, scores)
		}
	}

	if err := s.matchRepo.UpdateStatusAndWinner(ctx, nil, matchID, newStatus, winnerID); err != nil {
		return nil, mapMatchRepoError(err)
	}
	match.Status = newStatus
	match.WinnerID = winnerID

	// Автосдача — после смены статуса, её сбой не откатывает переход.
	s.autoSubmitPassedWindows(ctx, match, assignments, q)

	s.hub.BroadcastToEvent(match.EventID, live.Message{Type: live.MessageMatchUpdated, Payload: match})

	if newStatus == models.MatchStatusCompleted {
		s.publisher.PublishMatchCompleted(events.MatchCompleted{EventID: match.EventID, MatchID: match.ID})
		s.hub.BroadcastToEvent(match.EventID, live.Message{Type: live.MessageMatchCompleted, Payload: match})
	}
	return match, nil
}

// DeleteMatch удаляет матч-черновик. Матч с начатым оцениванием или
// завершённый не удаляется: его записи уже входят в результаты ивента,
// bye-матчами владеет движок компенсации.
func (s *matchService) DeleteMatch(ctx context.Context, matchID, actorID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return mapMatchRepoError(err)
	}
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return err
	}
	if !Can(actor, ActionCreateMatch, match) {
		return ErrForbiddenOperation
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchAlreadyCompleted
	}
	if match.Status != models.MatchStatusDraft {
		return fmt.Errorf("%w: only draft matches can be deleted", ErrInvalidMatchStatus)
	}

	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		return mapMatchRepoError(err)
	}
	s.hub.BroadcastToEvent(match.EventID, live.Message{
		Type:    live.MessageMatchUpdated,
		Payload: map[string]interface{}{"match_id": matchID, "deleted": true},
	})
	return nil
}

// AdvanceCurrentRound продвигает current_round ивента, когда все матчи
// текущего раунда завершены. Вызывается обработчиком события завершения
// матча; раунд без матчей продвижением не считается.
func (s *matchService) AdvanceCurrentRound(ctx context.Context, eventID int) error {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status != models.EventStatusActive || event.CurrentRound >= event.TotalRounds {
		return nil
	}

	matches, err := s.matchRepo.ListByEvent(ctx, eventID, &event.CurrentRound, nil)
	if err != nil {
		return fmt.Errorf("failed to list matches for round %d of event %d: %w", event.CurrentRound, eventID, err)
	}
	if len(matches) == 0 {
		return nil
	}
	for _, match := range matches {
		if match.Status != models.MatchStatusCompleted {
			return nil
		}
	}

	next := event.CurrentRound + 1
	if err := s.eventRepo.UpdateCurrentRound(ctx, nil, eventID, next); err != nil {
		return mapEventRepoError(err)
	}
	s.logger.Info("advanced event to the next round",
		slog.Int("event_id", eventID),
		slog.Int("round", next),
	)
	return nil
}

// validateCompletion требует от каждого назначенного судьи сданные оценки
// для обеих сторон матча.
func validateCompletion(match *models.Match, assignments []*models.MatchAssignment, scores []*models.Score) error {
	if match.TeamBID == nil {
		return nil
	}
	submitted := make(map[[2]int]bool, len(scores))
	for _, score := range scores {
		if score.IsSubmitted {
			submitted[[2]int{score.JudgeID, score.TeamID}] = true
		}
	}
	for _, a := range assignments {
		for _, teamID := range []int{match.TeamAID, *match.TeamBID} {
			if !submitted[[2]int{a.JudgeID, teamID}] {
				return fmt.Errorf("%w: judge %d (position %d) has no submitted score for team %d",
					ErrMissingJudgeScores, a.JudgeID, a.JudgeNumber, teamID)
			}
		}
	}
	return nil
}

func (s *matchService) autoSubmitPassedWindows(ctx context.Context, match *models.Match, assignments []*models.MatchAssignment, q int) {
	now := time.Now()
	for _, a := range assignments {
		if !models.JudgeWindowPassed(match.Status, q, a.JudgeNumber) {
			continue
		}
		count, err := s.scoreRepo.ForceSubmitByJudge(ctx, nil, match.ID, a.JudgeID, now)
		if err != nil {
			s.logger.Error("auto-submission failed",
				slog.Int("match_id", match.ID),
				slog.Int("judge_id", a.JudgeID),
				slog.Any("error", err),
			)
			continue
		}
		if count > 0 {
			s.logger.Info("auto-submitted scores for passed judge window",
				slog.Int("match_id", match.ID),
				slog.Int("judge_id", a.JudgeID),
				slog.Int("judge_number", a.JudgeNumber),
				slog.Int64("scores", count),
			)
		}
	}
}

func (s *matchService) getActor(ctx context.Context, actorID int) (*models.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return actor, nil
}

func (s *matchService) getEvent(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	return event, nil
}
