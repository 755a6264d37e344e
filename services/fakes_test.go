package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/debate-system/events"
	"github.com/Dosada05/debate-system/live"
	"github.com/Dosada05/debate-system/models"
	"github.com/Dosada05/debate-system/repositories"
	"github.com/stretchr/testify/require"
)

// In-memory реализации репозиториев с той же семантикой ошибок, что у
// postgres-вариантов. Транзакционный параметр exec игнорируется: атомарность
// проверяется на уровне ожиданий sqlmock (Begin/Commit/Rollback).

type fakeEventRepo struct {
	events map[int]*models.Event
}

func (r *fakeEventRepo) GetByID(_ context.Context, id int) (*models.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	return event, nil
}

func (r *fakeEventRepo) UpdateCurrentRound(_ context.Context, _ repositories.SQLExecutor, id, round int) error {
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.CurrentRound = round
	return nil
}

type fakeTeamRepo struct {
	teams map[int]*models.Team
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return team, nil
}

func (r *fakeTeamRepo) ListByEvent(_ context.Context, eventID int) ([]*models.Team, error) {
	var out []*models.Team
	for _, team := range r.teams {
		if team.EventID == eventID {
			out = append(out, team)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) CountByEvent(ctx context.Context, eventID int) (int, error) {
	teams, _ := r.ListByEvent(ctx, eventID)
	return len(teams), nil
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

type fakeRoomRepo struct {
	rooms map[int]*models.Room
}

func (r *fakeRoomRepo) GetByID(_ context.Context, id int) (*models.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	return room, nil
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	r.nextID++
	r.matches[match.ID] = match
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return match, nil
}

func (r *fakeMatchRepo) sorted() []*models.Match {
	out := make([]*models.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeMatchRepo) ListByEvent(_ context.Context, eventID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.sorted() {
		if m.EventID != eventID {
			continue
		}
		if round != nil && m.RoundNumber != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMatchRepo) ListCompletedByTeam(_ context.Context, eventID, teamID, excludeMatchID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.sorted() {
		if m.EventID != eventID || m.ID == excludeMatchID || m.TeamBID == nil {
			continue
		}
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		if m.TeamAID == teamID || *m.TeamBID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByes(_ context.Context, eventID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.sorted() {
		if m.EventID == eventID && m.TeamBID == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (r *fakeMatchRepo) FindByeByTeam(_ context.Context, eventID, teamID int) (*models.Match, error) {
	for _, m := range r.sorted() {
		if m.EventID == eventID && m.TeamBID == nil && m.TeamAID == teamID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) FindByeByRound(_ context.Context, eventID, round int) (*models.Match, error) {
	for _, m := range r.sorted() {
		if m.EventID == eventID && m.TeamBID == nil && m.RoundNumber == round {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) FindByTeamsAndRound(_ context.Context, eventID, round, teamAID, teamBID int) (*models.Match, error) {
	for _, m := range r.sorted() {
		if m.EventID != eventID || m.RoundNumber != round || m.TeamBID == nil {
			continue
		}
		straight := m.TeamAID == teamAID && *m.TeamBID == teamBID
		flipped := m.TeamAID == teamBID && *m.TeamBID == teamAID
		if straight || flipped {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) UpdateStatusAndWinner(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus, winnerID *int) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.Status = status
	match.WinnerID = winnerID
	return nil
}

func (r *fakeMatchRepo) UpdateByeTeam(_ context.Context, _ repositories.SQLExecutor, id, teamID int) error {
	match, ok := r.matches[id]
	if !ok || match.TeamBID != nil {
		return repositories.ErrMatchNotFound
	}
	match.TeamAID = teamID
	match.WinnerID = &teamID
	return nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeAssignmentRepo struct {
	assignments map[int]*models.MatchAssignment
	matches     *fakeMatchRepo
	nextID      int
}

func newFakeAssignmentRepo(matches *fakeMatchRepo) *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		assignments: make(map[int]*models.MatchAssignment),
		matches:     matches,
		nextID:      1,
	}
}

func (r *fakeAssignmentRepo) Create(_ context.Context, _ repositories.SQLExecutor, assignment *models.MatchAssignment) error {
	for _, a := range r.assignments {
		if a.MatchID == assignment.MatchID && a.JudgeID == assignment.JudgeID {
			return repositories.ErrAssignmentDuplicate
		}
	}
	assignment.ID = r.nextID
	assignment.CreatedAt = time.Now()
	r.nextID++
	r.assignments[assignment.ID] = assignment
	return nil
}

func (r *fakeAssignmentRepo) GetByMatchAndJudge(_ context.Context, matchID, judgeID int) (*models.MatchAssignment, error) {
	for _, a := range r.assignments {
		if a.MatchID == matchID && a.JudgeID == judgeID {
			return a, nil
		}
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) ListByMatch(_ context.Context, matchID int) ([]*models.MatchAssignment, error) {
	var out []*models.MatchAssignment
	for _, a := range r.assignments {
		if a.MatchID == matchID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JudgeNumber < out[j].JudgeNumber })
	return out, nil
}

func (r *fakeAssignmentRepo) CountByMatch(ctx context.Context, matchID int) (int, error) {
	list, _ := r.ListByMatch(ctx, matchID)
	return len(list), nil
}

func (r *fakeAssignmentRepo) MaxJudgeNumber(ctx context.Context, matchID int) (int, error) {
	list, _ := r.ListByMatch(ctx, matchID)
	max := 0
	for _, a := range list {
		if a.JudgeNumber > max {
			max = a.JudgeNumber
		}
	}
	return max, nil
}

func (r *fakeAssignmentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.assignments[id]; !ok {
		return repositories.ErrAssignmentNotFound
	}
	delete(r.assignments, id)
	return nil
}

func (r *fakeAssignmentRepo) HasRoundConflict(_ context.Context, judgeID, eventID, round, excludeMatchID int) (bool, error) {
	for _, a := range r.assignments {
		if a.JudgeID != judgeID {
			continue
		}
		match, ok := r.matches.matches[a.MatchID]
		if !ok || match.ID == excludeMatchID {
			continue
		}
		if match.EventID == eventID && match.RoundNumber == round && match.Status != models.MatchStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

type fakeScoreRepo struct {
	scores map[int]*models.Score
	nextID int
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{scores: make(map[int]*models.Score), nextID: 1}
}

func (r *fakeScoreRepo) Create(_ context.Context, _ repositories.SQLExecutor, score *models.Score) error {
	score.ID = r.nextID
	score.CreatedAt = time.Now()
	r.nextID++
	r.scores[score.ID] = score
	return nil
}

func (r *fakeScoreRepo) UpdateValues(_ context.Context, _ repositories.SQLExecutor, id int, criteriaScores map[string]float64, commentScores []float64) error {
	score, ok := r.scores[id]
	if !ok {
		return repositories.ErrScoreNotFound
	}
	if score.IsSubmitted {
		return repositories.ErrScoreSubmitted
	}
	score.CriteriaScores = criteriaScores
	score.CommentScores = commentScores
	return nil
}

func (r *fakeScoreRepo) GetByID(_ context.Context, id int) (*models.Score, error) {
	score, ok := r.scores[id]
	if !ok {
		return nil, repositories.ErrScoreNotFound
	}
	return score, nil
}

func (r *fakeScoreRepo) Find(_ context.Context, matchID, judgeID, teamID int) (*models.Score, error) {
	for _, s := range r.scores {
		if s.MatchID == matchID && s.JudgeID == judgeID && s.TeamID == teamID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeScoreRepo) sorted() []*models.Score {
	out := make([]*models.Score, 0, len(r.scores))
	for _, s := range r.scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeScoreRepo) ListByMatch(_ context.Context, matchID int) ([]*models.Score, error) {
	var out []*models.Score
	for _, s := range r.sorted() {
		if s.MatchID == matchID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScoreRepo) ListByMatchAndJudge(_ context.Context, matchID, judgeID int) ([]*models.Score, error) {
	var out []*models.Score
	for _, s := range r.sorted() {
		if s.MatchID == matchID && s.JudgeID == judgeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScoreRepo) MarkSubmitted(_ context.Context, _ repositories.SQLExecutor, ids []int, submittedAt time.Time) error {
	for _, id := range ids {
		score, ok := r.scores[id]
		if !ok || score.IsSubmitted {
			continue
		}
		score.IsSubmitted = true
		at := submittedAt
		score.SubmittedAt = &at
	}
	return nil
}

func (r *fakeScoreRepo) ForceSubmitByJudge(_ context.Context, _ repositories.SQLExecutor, matchID, judgeID int, submittedAt time.Time) (int64, error) {
	var count int64
	for _, s := range r.scores {
		if s.MatchID == matchID && s.JudgeID == judgeID && !s.IsSubmitted {
			s.IsSubmitted = true
			at := submittedAt
			s.SubmittedAt = &at
			count++
		}
	}
	return count, nil
}

func (r *fakeScoreRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.scores[id]; !ok {
		return repositories.ErrScoreNotFound
	}
	delete(r.scores, id)
	return nil
}

func (r *fakeScoreRepo) DeleteByMatchAndJudge(_ context.Context, _ repositories.SQLExecutor, matchID, judgeID int) error {
	for id, s := range r.scores {
		if s.MatchID == matchID && s.JudgeID == judgeID {
			delete(r.scores, id)
		}
	}
	return nil
}

type fakeAdjustmentRepo struct {
	voteLogs      map[int]*models.VoteLog
	winLogs       map[int]*models.WinLog
	scoreDiffLogs map[int]*models.ScoreDiffLog
	nextID        int
}

func newFakeAdjustmentRepo() *fakeAdjustmentRepo {
	return &fakeAdjustmentRepo{
		voteLogs:      make(map[int]*models.VoteLog),
		winLogs:       make(map[int]*models.WinLog),
		scoreDiffLogs: make(map[int]*models.ScoreDiffLog),
		nextID:        1,
	}
}

func (r *fakeAdjustmentRepo) CreateVoteLog(_ context.Context, log *models.VoteLog) error {
	log.ID = r.nextID
	log.CreatedAt = time.Now()
	r.nextID++
	r.voteLogs[log.ID] = log
	return nil
}

func (r *fakeAdjustmentRepo) ListVoteLogsByEvent(_ context.Context, eventID int) ([]*models.VoteLog, error) {
	var out []*models.VoteLog
	for _, log := range r.voteLogs {
		if log.EventID == eventID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdjustmentRepo) DeleteVoteLog(_ context.Context, id int) error {
	if _, ok := r.voteLogs[id]; !ok {
		return repositories.ErrVoteLogNotFound
	}
	delete(r.voteLogs, id)
	return nil
}

func (r *fakeAdjustmentRepo) CreateWinLog(_ context.Context, log *models.WinLog) error {
	log.ID = r.nextID
	log.CreatedAt = time.Now()
	r.nextID++
	r.winLogs[log.ID] = log
	return nil
}

func (r *fakeAdjustmentRepo) ListWinLogsByEvent(_ context.Context, eventID int) ([]*models.WinLog, error) {
	var out []*models.WinLog
	for _, log := range r.winLogs {
		if log.EventID == eventID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdjustmentRepo) FindWinLogByReason(_ context.Context, eventID, teamID int, reason, createdBy string) (*models.WinLog, error) {
	for _, log := range r.winLogs {
		if log.EventID == eventID && log.TeamID == teamID && log.Reason == reason && log.CreatedBy == createdBy {
			return log, nil
		}
	}
	return nil, nil
}

func (r *fakeAdjustmentRepo) DeleteWinLog(_ context.Context, id int) error {
	if _, ok := r.winLogs[id]; !ok {
		return repositories.ErrWinLogNotFound
	}
	delete(r.winLogs, id)
	return nil
}

func (r *fakeAdjustmentRepo) CreateScoreDiffLog(_ context.Context, log *models.ScoreDiffLog) error {
	log.ID = r.nextID
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt
	r.nextID++
	r.scoreDiffLogs[log.ID] = log
	return nil
}

func (r *fakeAdjustmentRepo) ListScoreDiffLogsByEvent(_ context.Context, eventID int) ([]*models.ScoreDiffLog, error) {
	var out []*models.ScoreDiffLog
	for _, log := range r.scoreDiffLogs {
		if log.EventID == eventID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdjustmentRepo) FindScoreDiffLogByReason(_ context.Context, eventID, teamID int, reason, createdBy string) (*models.ScoreDiffLog, error) {
	for _, log := range r.scoreDiffLogs {
		if log.EventID == eventID && log.TeamID == teamID && log.Reason == reason && log.CreatedBy == createdBy {
			return log, nil
		}
	}
	return nil, nil
}

func (r *fakeAdjustmentRepo) UpdateScoreDiffValue(_ context.Context, id int, value float64, updatedAt time.Time) error {
	log, ok := r.scoreDiffLogs[id]
	if !ok {
		return repositories.ErrScoreDiffLogNotFound
	}
	log.ScoreDiff = value
	log.UpdatedAt = updatedAt
	return nil
}

func (r *fakeAdjustmentRepo) DeleteScoreDiffLog(_ context.Context, id int) error {
	if _, ok := r.scoreDiffLogs[id]; !ok {
		return repositories.ErrScoreDiffLogNotFound
	}
	delete(r.scoreDiffLogs, id)
	return nil
}

type fakeHub struct {
	messages []live.Message
}

func (h *fakeHub) BroadcastToEvent(eventID int, message live.Message) {
	message.EventID = eventID
	h.messages = append(h.messages, message)
}

func (h *fakeHub) typesSent() []string {
	var out []string
	for _, m := range h.messages {
		out = append(out, m.Type)
	}
	return out
}

type fakePublisher struct {
	published []events.MatchCompleted
}

func (p *fakePublisher) PublishMatchCompleted(event events.MatchCompleted) {
	p.published = append(p.published, event)
}

// fixture собирает сервисы поверх in-memory репозиториев и sqlmock-базы.
type fixture struct {
	db   *sql.DB
	mock sqlmock.Sqlmock

	events      *fakeEventRepo
	teams       *fakeTeamRepo
	users       *fakeUserRepo
	rooms       *fakeRoomRepo
	matches     *fakeMatchRepo
	assignments *fakeAssignmentRepo
	scores      *fakeScoreRepo
	adjustments *fakeAdjustmentRepo

	hub       *fakeHub
	publisher *fakePublisher

	matchSvc      MatchService
	scoreSvc      ScoreService
	assignmentSvc AssignmentService
	byeSvc        ByeService
	adjustmentSvc AdjustmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		db:          db,
		mock:        mock,
		events:      &fakeEventRepo{events: make(map[int]*models.Event)},
		teams:       &fakeTeamRepo{teams: make(map[int]*models.Team)},
		users:       &fakeUserRepo{users: make(map[int]*models.User)},
		rooms:       &fakeRoomRepo{rooms: make(map[int]*models.Room)},
		matches:     newFakeMatchRepo(),
		scores:      newFakeScoreRepo(),
		adjustments: newFakeAdjustmentRepo(),
		hub:         &fakeHub{},
		publisher:   &fakePublisher{},
	}
	f.assignments = newFakeAssignmentRepo(f.matches)

	f.byeSvc = NewByeService(f.events, f.teams, f.users, f.matches, f.scores, f.adjustments, f.hub, logger)
	f.matchSvc = NewMatchService(f.events, f.teams, f.users, f.rooms, f.matches, f.assignments, f.scores, f.byeSvc, f.publisher, f.hub, logger)
	f.scoreSvc = NewScoreService(db, f.events, f.users, f.matches, f.assignments, f.scores, f.publisher, f.hub, logger)
	f.assignmentSvc = NewAssignmentService(db, f.users, f.matches, f.assignments, f.scores, logger)
	f.adjustmentSvc = NewAdjustmentService(f.events, f.teams, f.users, f.matches, f.scores, f.adjustments, logger)
	return f
}

func (f *fixture) addEvent(event *models.Event) *models.Event {
	if event.Status == "" {
		event.Status = models.EventStatusActive
	}
	f.events.events[event.ID] = event
	return event
}

func (f *fixture) addTeam(id, eventID int, name string) *models.Team {
	team := &models.Team{ID: id, EventID: eventID, Name: name}
	f.teams.teams[id] = team
	return team
}

func (f *fixture) addUser(id int, role models.UserRole) *models.User {
	user := &models.User{ID: id, FirstName: "User", LastName: string(role), Role: role}
	f.users.users[id] = user
	return user
}

func (f *fixture) addMatch(match *models.Match) *models.Match {
	if match.Status == "" {
		match.Status = models.MatchStatusDraft
	}
	_ = f.matches.Create(context.Background(), nil, match)
	return match
}

func (f *fixture) addAssignment(matchID, judgeID, judgeNumber int) *models.MatchAssignment {
	a := &models.MatchAssignment{MatchID: matchID, JudgeID: judgeID, JudgeNumber: judgeNumber}
	_ = f.assignments.Create(context.Background(), nil, a)
	return a
}

func (f *fixture) addScore(score *models.Score) *models.Score {
	_ = f.scores.Create(context.Background(), nil, score)
	return score
}

// стандартный ивент: 5 раундов, 3 судейских вопроса, рубрика из двух
// критериев.
func defaultEvent(id int) *models.Event {
	return &models.Event{
		ID:                 id,
		Name:               "Autumn Ethics Bowl",
		TotalRounds:        5,
		CurrentRound:       1,
		JudgeQuestionCount: 3,
		Status:             models.EventStatusActive,
		ScoringCriteria: []models.RubricCriterion{
			{Name: "argumentation", MaxScore: 30},
			{Name: "clarity", MaxScore: 20},
		},
	}
}

func intPtr(v int) *int { return &v }
