package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Dosada05/debate-system/live"
	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
	"golang.org/x/sync/errgroup"
)

// SystemIdentity подписывает записи, созданные движком компенсации, чтобы
// отличать их от ручных корректировок администраторов.
const SystemIdentity = "system"

const (
	byeBaseDifferential = 3.0
	byeMethodDefault    = "default"
	byeMethodAverage    = "average"
	byeReasonPrefix     = "Bye match in round "
	scoreDiffTolerance  = 0.01
)

func byeReason(round int) string {
	return fmt.Sprintf("%s%d", byeReasonPrefix, round)
}

// ByeTeam — команда, получившая bye, с номером раунда и текущей
// компенсацией.
type ByeTeam struct {
	Team         *models.Team `json:"team"`
	MatchID      int          `json:"match_id"`
	RoundNumber  int          `json:"round_number"`
	Differential float64      `json:"differential"`
	Method       string       `json:"method"`
}

type ByeService interface {
	CreateOrUpdateBye(ctx context.Context, eventID, roundNumber, teamID, actorID int) (*models.Match, error)
	RecalculateAll(ctx context.Context, eventID int) error
	ListByeTeams(ctx context.Context, eventID int) ([]*ByeTeam, error)
}

type byeService struct {
	eventRepo      repositories.EventRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	matchRepo      repositories.MatchRepository
	scoreRepo      repositories.ScoreRepository
	adjustmentRepo repositories.AdjustmentRepository
	hub            Broadcaster
	logger         *slog.Logger
}

func NewByeService(
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	adjustmentRepo repositories.AdjustmentRepository,
	hub Broadcaster,
	logger *slog.Logger,
) ByeService {
	return &byeService{
		eventRepo:      eventRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
		scoreRepo:      scoreRepo,
		adjustmentRepo: adjustmentRepo,
		hub:            hub,
		logger:         logger,
	}
}

// CreateOrUpdateBye создаёт bye-матч раунда или переназначает его на другую
// команду, если в раунде bye уже есть. Bye сразу completed с победой
// команды; повторный вызов с той же парой раунд/команда идемпотентен.
func (s *byeService) CreateOrUpdateBye(ctx context.Context, eventID, roundNumber, teamID, actorID int) (*models.Match, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	if event.Status == models.EventStatusCompleted {
		return nil, ErrEventCompleted
	}
	if event.Status != models.EventStatusActive {
		return nil, ErrEventNotActive
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	if !Can(actor, ActionManageByes, nil) {
		return nil, ErrForbiddenOperation
	}

	if roundNumber < 1 || roundNumber > event.TotalRounds {
		return nil, ErrInvalidRoundNumber
	}

	teamCount, err := s.teamRepo.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if teamCount%2 == 0 {
		return nil, ErrEvenTeamCount
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}
	if team.EventID != eventID {
		return nil, ErrTeamNotInEvent
	}

	// Команда получает не больше одного bye за ивент.
	existing, err := s.matchRepo.FindByeByTeam(ctx, eventID, teamID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if existing != nil {
		if existing.RoundNumber == roundNumber {
			return existing, nil
		}
		return nil, ErrTeamAlreadyHasBye
	}

	roundBye, err := s.matchRepo.FindByeByRound(ctx, eventID, roundNumber)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}

	var match *models.Match
	if roundBye != nil {
		if err := s.matchRepo.UpdateByeTeam(ctx, nil, roundBye.ID, teamID); err != nil {
			return nil, mapMatchRepoError(err)
		}
		match, err = s.matchRepo.GetByID(ctx, roundBye.ID)
		if err != nil {
			return nil, mapMatchRepoError(err)
		}
	} else {
		winnerID := teamID
		match = &models.Match{
			EventID:     eventID,
			RoundNumber: roundNumber,
			TeamAID:     teamID,
			Status:      models.MatchStatusCompleted,
			WinnerID:    &winnerID,
		}
		if err := s.matchRepo.Create(ctx, nil, match); err != nil {
			return nil, mapMatchRepoError(err)
		}
	}

	if err := s.RecalculateAll(ctx, eventID); err != nil {
		// Bye уже записан; компенсацию доведёт следующий пересчёт.
		s.logger.Error("bye compensation recalculation failed",
			slog.Int("event_id", eventID), slog.Any("error", err))
	}
	return match, nil
}

// calculateDifferential возвращает компенсацию команды по завершённым
// обычным матчам: среднее знаковых разниц очков, но не меньше базовых 3.0.
func (s *byeService) calculateDifferential(ctx context.Context, byeMatch *models.Match) (float64, string, error) {
	matches, err := s.matchRepo.ListCompletedByTeam(ctx, byeMatch.EventID, byeMatch.TeamAID, byeMatch.ID)
	if err != nil {
		return 0, "", mapMatchRepoError(err)
	}
	if len(matches) == 0 {
		return byeBaseDifferential, byeMethodDefault, nil
	}

	var sum float64
	for _, match := range matches {
		scores, err := s.scoreRepo.ListByMatch(ctx, match.ID)
		if err != nil {
			return 0, "", mapScoreRepoError(err)
		}
		sum += TeamDifferential(match, scores, byeMatch.TeamAID)
	}
	avg := sum / float64(len(matches))
	if avg > byeBaseDifferential {
		return avg, byeMethodAverage, nil
	}
	return byeBaseDifferential, byeMethodDefault, nil
}

// RecalculateAll пересчитывает компенсацию каждого bye ивента: upsert
// score-diff записи (с допуском 0.01, чтобы не плодить записи на шуме
// плавающей точки), идемпотентное создание win-записи 1-0-0 и зачистка
// системных записей, оставшихся от переназначенных bye.
func (s *byeService) RecalculateAll(ctx context.Context, eventID int) error {
	byes, err := s.matchRepo.ListByes(ctx, eventID)
	if err != nil {
		return mapMatchRepoError(err)
	}

	type byeResult struct {
		match  *models.Match
		value  float64
		method string
	}
	results := make([]byeResult, len(byes))

	g, gctx := errgroup.WithContext(ctx)
	for i, bye := range byes {
		i, bye := i, bye
		g.Go(func() error {
			value, method, err := s.calculateDifferential(gctx, bye)
			if err != nil {
				return err
			}
			results[i] = byeResult{match: bye, value: value, method: method}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	recalculated := make([]*ByeTeam, 0, len(results))
	for _, res := range results {
		reason := byeReason(res.match.RoundNumber)
		if err := s.upsertScoreDiff(ctx, eventID, res.match.TeamAID, reason, res.value); err != nil {
			return err
		}
		if err := s.ensureWinLog(ctx, eventID, res.match.TeamAID, reason); err != nil {
			return err
		}
		recalculated = append(recalculated, &ByeTeam{
			Team:         res.match.TeamA,
			MatchID:      res.match.ID,
			RoundNumber:  res.match.RoundNumber,
			Differential: res.value,
			Method:       res.method,
		})
	}

	if err := s.pruneStaleByeLogs(ctx, eventID, currentByeLogKeys(byes)); err != nil {
		return err
	}

	s.hub.BroadcastToEvent(eventID, live.Message{
		Type:    live.MessageByesRecalculated,
		Payload: recalculated,
	})
	return nil
}

func currentByeLogKeys(byes []*models.Match) map[string]bool {
	valid := make(map[string]bool, len(byes))
	for _, bye := range byes {
		valid[byeLogKey(bye.TeamAID, byeReason(bye.RoundNumber))] = true
	}
	return valid
}

func byeLogKey(teamID int, reason string) string {
	return fmt.Sprintf("%d|%s", teamID, reason)
}

func (s *byeService) upsertScoreDiff(ctx context.Context, eventID, teamID int, reason string, value float64) error {
	existing, err := s.adjustmentRepo.FindScoreDiffLogByReason(ctx, eventID, teamID, reason, SystemIdentity)
	if err != nil {
		return err
	}
	if existing == nil {
		log := &models.ScoreDiffLog{
			EventID:   eventID,
			TeamID:    teamID,
			ScoreDiff: value,
			Reason:    reason,
			CreatedBy: SystemIdentity,
		}
		return s.adjustmentRepo.CreateScoreDiffLog(ctx, log)
	}
	if math.Abs(existing.ScoreDiff-value) <= scoreDiffTolerance {
		return nil
	}
	return s.adjustmentRepo.UpdateScoreDiffValue(ctx, existing.ID, value, time.Now().UTC())
}

func (s *byeService) ensureWinLog(ctx context.Context, eventID, teamID int, reason string) error {
	existing, err := s.adjustmentRepo.FindWinLogByReason(ctx, eventID, teamID, reason, SystemIdentity)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	log := &models.WinLog{
		EventID:   eventID,
		TeamID:    teamID,
		Wins:      1,
		Reason:    reason,
		CreatedBy: SystemIdentity,
	}
	return s.adjustmentRepo.CreateWinLog(ctx, log)
}

// pruneStaleByeLogs удаляет системные bye-записи, чья пара команда/раунд
// больше не соответствует ни одному bye (после переназначения bye на
// другую команду).
func (s *byeService) pruneStaleByeLogs(ctx context.Context, eventID int, valid map[string]bool) error {
	diffLogs, err := s.adjustmentRepo.ListScoreDiffLogsByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, log := range diffLogs {
		if !isByeSystemLog(log.CreatedBy, log.Reason) || valid[byeLogKey(log.TeamID, log.Reason)] {
			continue
		}
		if err := s.adjustmentRepo.DeleteScoreDiffLog(ctx, log.ID); err != nil {
			return err
		}
	}

	winLogs, err := s.adjustmentRepo.ListWinLogsByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, log := range winLogs {
		if !isByeSystemLog(log.CreatedBy, log.Reason) || valid[byeLogKey(log.TeamID, log.Reason)] {
			continue
		}
		if err := s.adjustmentRepo.DeleteWinLog(ctx, log.ID); err != nil {
			return err
		}
	}
	return nil
}

func isByeSystemLog(createdBy, reason string) bool {
	return createdBy == SystemIdentity && strings.HasPrefix(reason, byeReasonPrefix)
}

// ListByeTeams возвращает команды с bye и их текущие компенсации из
// score-diff журнала.
func (s *byeService) ListByeTeams(ctx context.Context, eventID int) ([]*ByeTeam, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}
	byes, err := s.matchRepo.ListByes(ctx, eventID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}

	result := make([]*ByeTeam, 0, len(byes))
	for _, bye := range byes {
		entry := &ByeTeam{
			Team:        bye.TeamA,
			MatchID:     bye.ID,
			RoundNumber: bye.RoundNumber,
		}
		if entry.Team == nil {
			team, err := s.teamRepo.GetByID(ctx, bye.TeamAID)
			if err != nil {
				return nil, mapTeamRepoError(err)
			}
			entry.Team = team
		}
		log, err := s.adjustmentRepo.FindScoreDiffLogByReason(ctx, eventID, bye.TeamAID, byeReason(bye.RoundNumber), SystemIdentity)
		if err != nil {
			return nil, err
		}
		if log != nil {
			entry.Differential = log.ScoreDiff
			if log.ScoreDiff > byeBaseDifferential {
				entry.Method = byeMethodAverage
			} else {
				entry.Method = byeMethodDefault
			}
		}
		result = append(result, entry)
	}
	return result, nil
}
