package service

import (
	"context"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportQuiz() *model.Quiz {
	q := &model.Quiz{Title: "Finals", Status: model.QuizActive}
	q.ID = "quiz-1"
	q.Questions = []model.Question{
		{QuestionText: "one", Points: 60, CorrectOption: 0},
		{QuestionText: "two", Points: 40, CorrectOption: 1},
	}
	q.Questions[0].ID = "q1"
	q.Questions[1].ID = "q2"
	return q
}

func submitted(team uint, score int, start time.Time, took time.Duration, answers ...model.GradedAnswer) model.Attempt {
	s := start
	end := start.Add(took)
	a := model.Attempt{TeamID: team, QuizID: "quiz-1", Score: score, StartTime: &s, SubmittedAt: &end, Answers: answers}
	a.ID = "attempt-" + string(rune('a'+team))
	return a
}

func TestComputeReportEmpty(t *testing.T) {
	report := ComputeReport(reportQuiz(), nil, nil)

	assert.Equal(t, 100, report.TotalPossibleScore)
	assert.Equal(t, 0, report.SubmittedCount)
	assert.Equal(t, 0, report.HighestScore)
	assert.Equal(t, 100, report.LowestScore)
	assert.Equal(t, 0.0, report.AverageScore)
	assert.Empty(t, report.TeamResults)
	require.Len(t, report.ScoreDistribution, 6)
	for _, b := range report.ScoreDistribution {
		assert.Zero(t, b.Count)
	}
	require.Len(t, report.QuestionStats, 2)
	assert.Equal(t, 0.0, report.QuestionStats[0].CorrectPercentage)
}

func TestComputeReportDistributionBoundaries(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	attempts := []model.Attempt{
		submitted(1, 0, start, time.Minute),
		submitted(2, 50, start, time.Minute),
		submitted(3, 51, start, time.Minute),
		submitted(4, 90, start, time.Minute),
		submitted(5, 91, start, time.Minute),
		submitted(6, 100, start, time.Minute),
		{TeamID: 7, QuizID: "quiz-1"},
	}

	report := ComputeReport(reportQuiz(), attempts, nil)

	counts := map[string]int{}
	total := 0
	for _, b := range report.ScoreDistribution {
		counts[b.Range] = b.Count
		total += b.Count
	}
	assert.Equal(t, report.SubmittedCount, total)
	assert.Equal(t, 6, report.SubmittedCount)
	assert.Equal(t, 7, report.TotalAttempts)
	assert.Equal(t, 2, counts["0-50"])
	assert.Equal(t, 1, counts["51-60"])
	assert.Equal(t, 0, counts["61-70"])
	assert.Equal(t, 1, counts["81-90"])
	assert.Equal(t, 2, counts["91-100"])
	assert.Equal(t, 100, report.HighestScore)
	assert.Equal(t, 0, report.LowestScore)
}

func TestComputeReportAverageAndQuestionStats(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	right := model.GradedAnswer{QuestionID: "q1", SelectedOption: 0, IsCorrect: true}
	wrong := model.GradedAnswer{QuestionID: "q1", SelectedOption: 2}
	other := model.GradedAnswer{QuestionID: "stale", SelectedOption: 1, IsCorrect: true}
	attempts := []model.Attempt{
		submitted(1, 1, start, time.Minute, right),
		submitted(2, 1, start, time.Minute, wrong),
		submitted(3, 2, start, time.Minute, wrong, other),
	}

	report := ComputeReport(reportQuiz(), attempts, nil)

	assert.Equal(t, 1.33, report.AverageScore)
	assert.Equal(t, 3, report.QuestionStats[0].TotalAnswers)
	assert.Equal(t, 1, report.QuestionStats[0].CorrectAnswers)
	assert.Equal(t, 33.33, report.QuestionStats[0].CorrectPercentage)
	assert.Equal(t, 0, report.QuestionStats[1].TotalAnswers)
}

func TestComputeReportRanking(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	noStart := submitted(4, 60, start, time.Minute)
	noStart.StartTime = nil
	attempts := []model.Attempt{
		noStart,
		submitted(1, 60, start, 5*time.Minute),
		submitted(2, 60, start, 2*time.Minute+5*time.Second),
		submitted(3, 100, start, 9*time.Minute),
	}
	teams := map[uint]model.Team{
		1: {TeamName: "Ants"},
		2: {TeamName: "Bees"},
		3: {TeamName: "Cats"},
	}

	report := ComputeReport(reportQuiz(), attempts, teams)

	require.Len(t, report.TeamResults, 4)
	names := []string{}
	for i, r := range report.TeamResults {
		assert.Equal(t, i+1, r.Rank)
		names = append(names, r.TeamName)
	}
	assert.Equal(t, []string{"Cats", "Bees", "Ants", "Unknown team"}, names)
	assert.Equal(t, "2:05", report.TeamResults[1].TimeTaken)
	assert.Equal(t, "N/A", report.TeamResults[3].TimeTaken)
	assert.Equal(t, "100%", report.TeamResults[0].FinalScore)
	assert.Equal(t, "60%", report.TeamResults[1].FinalScore)
}

func TestFormatElapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(61*time.Minute + 9*time.Second)

	s, d := FormatElapsed(&start, &end)
	assert.Equal(t, "61:09", s)
	assert.Equal(t, end.Sub(start), d)

	s, _ = FormatElapsed(nil, &end)
	assert.Equal(t, "N/A", s)
	s, _ = FormatElapsed(&end, &start)
	assert.Equal(t, "N/A", s)
}

func TestReportServiceCachesUntilSubmission(t *testing.T) {
	f := newFixture(t, config.QuizConfig{ReportCacheSeconds: 300})
	f.attempt.OnSubmitted(f.reports.HandleSubmission)
	quiz := f.createQuiz(t, quizOpts{points: uniform(2, 1), correct: []int{0, 0}})
	team := f.createTeam(t, "alpha")
	ctx := context.Background()

	first, err := f.reports.Report(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.SubmittedCount)

	cached, err := f.cache.Get(ctx, quiz.ID)
	require.NoError(t, err)
	assert.NotNil(t, cached)

	_, err = f.attempt.Submit(ctx, team.ID, quiz.ID, []AnswerInput{{QuestionID: quiz.Questions[0].ID, SelectedOption: 0}})
	require.NoError(t, err)

	cached, err = f.cache.Get(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, cached, "a submission drops the cached report")

	second, err := f.reports.Report(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.SubmittedCount)
	require.Len(t, second.TeamResults, 1)
	assert.Equal(t, "alpha", second.TeamResults[0].TeamName)
}

func TestReportServiceResults(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(2, 1), correct: []int{0, 0}})
	alpha := f.createTeam(t, "alpha")
	beta := f.createTeam(t, "beta")
	ctx := context.Background()

	_, err := f.attempt.Submit(ctx, alpha.ID, quiz.ID, nil)
	require.NoError(t, err)
	_, err = f.attempt.Submit(ctx, beta.ID, quiz.ID, []AnswerInput{
		{QuestionID: quiz.Questions[0].ID, SelectedOption: 0},
		{QuestionID: quiz.Questions[1].ID, SelectedOption: 0},
	})
	require.NoError(t, err)

	rows, err := f.reports.Results(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Score)
	require.NotNil(t, rows[0].Team)
	assert.Equal(t, "beta", rows[0].Team.TeamName)

	_, err = f.reports.Results(ctx, "")
	assert.ErrorIs(t, err, util.ErrQuizIDRequired)
}

func TestWarmActive(t *testing.T) {
	f := newFixture(t, config.QuizConfig{ReportCacheSeconds: 60})
	active := f.createQuiz(t, quizOpts{points: uniform(1, 1)})
	pending := f.createQuiz(t, quizOpts{status: model.QuizPending, points: uniform(1, 1)})
	ctx := context.Background()

	n, err := f.reports.WarmActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, _ := f.cache.Get(ctx, active.ID)
	assert.NotNil(t, data)
	data, _ = f.cache.Get(ctx, pending.ID)
	assert.Nil(t, data)
}

// submitDuringBuild runs submit the first time the report service resolves
// teams, which happens after the attempts were listed.
type submitDuringBuild struct {
	TeamStore
	submit func()
}

func (s *submitDuringBuild) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Team, error) {
	if s.submit != nil {
		submit := s.submit
		s.submit = nil
		submit()
	}
	return s.TeamStore.FindByIDs(ctx, ids)
}

func TestReportBuiltBeforeSubmissionIsNotCached(t *testing.T) {
	cfg := config.QuizConfig{ReportCacheSeconds: 300}
	f := newFixture(t, cfg)
	quiz := f.createQuiz(t, quizOpts{points: uniform(1, 1), correct: []int{0}})
	team := f.createTeam(t, "alpha")
	ctx := context.Background()

	teams := &submitDuringBuild{TeamStore: f.teams}
	reports := NewReportService(f.quizzes, f.attempts, teams, f.cache, nil, cfg)
	f.attempt.OnSubmitted(reports.HandleSubmission)
	teams.submit = func() {
		_, err := f.attempt.Submit(ctx, team.ID, quiz.ID, []AnswerInput{{QuestionID: quiz.Questions[0].ID, SelectedOption: 0}})
		require.NoError(t, err)
	}

	first, err := reports.Report(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.SubmittedCount)

	cached, err := f.cache.Get(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	second, err := reports.Report(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.SubmittedCount)
}
