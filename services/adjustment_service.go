package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
	"golang.org/x/sync/errgroup"
)

type VoteLogInput struct {
	TeamID int    `json:"team_id"`
	Votes  int    `json:"votes"`
	Reason string `json:"reason"`
}

type WinLogInput struct {
	TeamID int    `json:"team_id"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Ties   int    `json:"ties"`
	Reason string `json:"reason"`
}

type ScoreDiffLogInput struct {
	TeamID    int     `json:"team_id"`
	ScoreDiff float64 `json:"score_diff"`
	Reason    string  `json:"reason"`
}

// AdjustmentService управляет журналами ручных корректировок и строит
// турнирную таблицу, сворачивая завершённые матчи с журналами.
type AdjustmentService interface {
	CreateVoteLog(ctx context.Context, eventID, actorID int, input VoteLogInput) (*models.VoteLog, error)
	ListVoteLogs(ctx context.Context, eventID int) ([]*models.VoteLog, error)
	DeleteVoteLog(ctx context.Context, eventID, logID, actorID int) error

	CreateWinLog(ctx context.Context, eventID, actorID int, input WinLogInput) (*models.WinLog, error)
	ListWinLogs(ctx context.Context, eventID int) ([]*models.WinLog, error)
	DeleteWinLog(ctx context.Context, eventID, logID, actorID int) error

	CreateScoreDiffLog(ctx context.Context, eventID, actorID int, input ScoreDiffLogInput) (*models.ScoreDiffLog, error)
	ListScoreDiffLogs(ctx context.Context, eventID int) ([]*models.ScoreDiffLog, error)
	DeleteScoreDiffLog(ctx context.Context, eventID, logID, actorID int) error

	GetStandings(ctx context.Context, eventID int) ([]*models.TeamStanding, error)
}

type adjustmentService struct {
	eventRepo      repositories.EventRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
	matchRepo      repositories.MatchRepository
	scoreRepo      repositories.ScoreRepository
	adjustmentRepo repositories.AdjustmentRepository
	logger         *slog.Logger
}

func NewAdjustmentService(
	eventRepo repositories.EventRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	adjustmentRepo repositories.AdjustmentRepository,
	logger *slog.Logger,
) AdjustmentService {
	return &adjustmentService{
		eventRepo:      eventRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		matchRepo:      matchRepo,
		scoreRepo:      scoreRepo,
		adjustmentRepo: adjustmentRepo,
		logger:         logger,
	}
}

// authorizeAdjustment проверяет право актора менять журналы и возвращает
// подпись для created_by.
func (s *adjustmentService) authorizeAdjustment(ctx context.Context, eventID, teamID, actorID int) (string, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return "", mapEventRepoError(err)
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return "", mapUserRepoError(err)
	}
	if !Can(actor, ActionAdjustResults, nil) {
		return "", ErrForbiddenOperation
	}
	if teamID != 0 {
		team, err := s.teamRepo.GetByID(ctx, teamID)
		if err != nil {
			return "", mapTeamRepoError(err)
		}
		if team.EventID != eventID {
			return "", ErrTeamNotInEvent
		}
	}
	return actor.DisplayName(), nil
}

func validateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrValidationFailed
	}
	return nil
}

func (s *adjustmentService) CreateVoteLog(ctx context.Context, eventID, actorID int, input VoteLogInput) (*models.VoteLog, error) {
	createdBy, err := s.authorizeAdjustment(ctx, eventID, input.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if err := validateReason(input.Reason); err != nil {
		return nil, err
	}
	log := &models.VoteLog{
		EventID:   eventID,
		TeamID:    input.TeamID,
		Votes:     input.Votes,
		Reason:    input.Reason,
		CreatedBy: createdBy,
	}
	if err := s.adjustmentRepo.CreateVoteLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *adjustmentService) ListVoteLogs(ctx context.Context, eventID int) ([]*models.VoteLog, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}
	return s.adjustmentRepo.ListVoteLogsByEvent(ctx, eventID)
}

func (s *adjustmentService) DeleteVoteLog(ctx context.Context, eventID, logID, actorID int) error {
	if _, err := s.authorizeAdjustment(ctx, eventID, 0, actorID); err != nil {
		return err
	}
	if err := s.adjustmentRepo.DeleteVoteLog(ctx, logID); err != nil {
		return mapAdjustmentRepoError(err)
	}
	return nil
}

func (s *adjustmentService) CreateWinLog(ctx context.Context, eventID, actorID int, input WinLogInput) (*models.WinLog, error) {
	createdBy, err := s.authorizeAdjustment(ctx, eventID, input.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if err := validateReason(input.Reason); err != nil {
		return nil, err
	}
	if input.Wins < 0 || input.Losses < 0 || input.Ties < 0 {
		return nil, ErrValidationFailed
	}
	log := &models.WinLog{
		EventID:   eventID,
		TeamID:    input.TeamID,
		Wins:      input.Wins,
		Losses:    input.Losses,
		Ties:      input.Ties,
		Reason:    input.Reason,
		CreatedBy: createdBy,
	}
	if err := s.adjustmentRepo.CreateWinLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *adjustmentService) ListWinLogs(ctx context.Context, eventID int) ([]*models.WinLog, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}
	return s.adjustmentRepo.ListWinLogsByEvent(ctx, eventID)
}

func (s *adjustmentService) DeleteWinLog(ctx context.Context, eventID, logID, actorID int) error {
	if _, err := s.authorizeAdjustment(ctx, eventID, 0, actorID); err != nil {
		return err
	}
	if err := s.adjustmentRepo.DeleteWinLog(ctx, logID); err != nil {
		return mapAdjustmentRepoError(err)
	}
	return nil
}

func (s *adjustmentService) CreateScoreDiffLog(ctx context.Context, eventID, actorID int, input ScoreDiffLogInput) (*models.ScoreDiffLog, error) {
	createdBy, err := s.authorizeAdjustment(ctx, eventID, input.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if err := validateReason(input.Reason); err != nil {
		return nil, err
	}
	log := &models.ScoreDiffLog{
		EventID:   eventID,
		TeamID:    input.TeamID,
		ScoreDiff: input.ScoreDiff,
		Reason:    input.Reason,
		CreatedBy: createdBy,
	}
	if err := s.adjustmentRepo.CreateScoreDiffLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *adjustmentService) ListScoreDiffLogs(ctx context.Context, eventID int) ([]*models.ScoreDiffLog, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}
	return s.adjustmentRepo.ListScoreDiffLogsByEvent(ctx, eventID)
}

func (s *adjustmentService) DeleteScoreDiffLog(ctx context.Context, eventID, logID, actorID int) error {
	if _, err := s.authorizeAdjustment(ctx, eventID, 0, actorID); err != nil {
		return err
	}
	if err := s.adjustmentRepo.DeleteScoreDiffLog(ctx, logID); err != nil {
		return mapAdjustmentRepoError(err)
	}
	return nil
}

// GetStandings строит таблицу ивента: W/L/T и разница очков по завершённым
// обычным матчам плюс вклад журналов корректировок. Bye-матчи в прямую
// агрегацию не входят — их компенсация уже лежит в журналах.
func (s *adjustmentService) GetStandings(ctx context.Context, eventID int) ([]*models.TeamStanding, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, mapEventRepoError(err)
	}

	var (
		teams        []*models.Team
		completed    []*models.Match
		voteLogs     []*models.VoteLog
		winLogs      []*models.WinLog
		diffLogs     []*models.ScoreDiffLog
		statusFilter = models.MatchStatusCompleted
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		teams, err = s.teamRepo.ListByEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		completed, err = s.matchRepo.ListByEvent(gctx, eventID, nil, &statusFilter)
		return err
	})
	g.Go(func() (err error) {
		voteLogs, err = s.adjustmentRepo.ListVoteLogsByEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		winLogs, err = s.adjustmentRepo.ListWinLogsByEvent(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		diffLogs, err = s.adjustmentRepo.ListScoreDiffLogsByEvent(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byTeam := make(map[int]*models.TeamStanding, len(teams))
	for _, team := range teams {
		byTeam[team.ID] = &models.TeamStanding{TeamID: team.ID, TeamName: team.Name}
	}

	// Суммы очков матчей читаются параллельно; каждая горутина пишет
	// только в свой индекс matchTotals.
	matchTotals := make([]map[int]float64, len(completed))
	tg, tctx := errgroup.WithContext(ctx)
	for i, match := range completed {
		if match.IsBye() {
			continue
		}
		i, match := i, match
		tg.Go(func() error {
			scores, err := s.scoreRepo.ListByMatch(tctx, match.ID)
			if err != nil {
				return mapScoreRepoError(err)
			}
			matchTotals[i] = AggregateTotals(scores)
			return nil
		})
	}
	if err := tg.Wait(); err != nil {
		return nil, err
	}

	for i, match := range completed {
		if match.IsBye() {
			continue
		}
		totals := matchTotals[i]
		a, okA := byTeam[match.TeamAID]
		b, okB := byTeam[*match.TeamBID]
		if !okA || !okB {
			continue
		}
		scoreA := totals[match.TeamAID]
		scoreB := totals[*match.TeamBID]
		a.ScoreFor += scoreA
		a.ScoreAgainst += scoreB
		b.ScoreFor += scoreB
		b.ScoreAgainst += scoreA
		switch {
		case match.WinnerID == nil:
			a.Ties++
			b.Ties++
		case *match.WinnerID == match.TeamAID:
			a.Wins++
			b.Losses++
		default:
			b.Wins++
			a.Losses++
		}
	}

	for _, log := range voteLogs {
		if st, ok := byTeam[log.TeamID]; ok {
			st.Votes += log.Votes
		}
	}
	for _, log := range winLogs {
		if st, ok := byTeam[log.TeamID]; ok {
			st.Wins += log.Wins
			st.Losses += log.Losses
			st.Ties += log.Ties
		}
	}
	for _, log := range diffLogs {
		if st, ok := byTeam[log.TeamID]; ok {
			st.ScoreDifference += log.ScoreDiff
		}
	}

	standings := make([]*models.TeamStanding, 0, len(byTeam))
	for _, st := range byTeam {
		st.ScoreDifference += st.ScoreFor - st.ScoreAgainst
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		if standings[i].ScoreDifference != standings[j].ScoreDifference {
			return standings[i].ScoreDifference > standings[j].ScoreDifference
		}
		return standings[i].TeamName < standings[j].TeamName
	})
	return standings, nil
}
