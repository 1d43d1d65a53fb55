package service

import (
	"context"
	"fmt"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/repository/memory"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	quizzes  *memory.QuizStore
	attempts *memory.AttemptStore
	teams    *memory.TeamStore
	cache    *memory.ReportCache
	attempt  *AttemptService
	reports  *ReportService
	admin    *QuizAdminService

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, cfg config.QuizConfig) *fixture {
	t.Helper()
	f := &fixture{
		quizzes:  memory.NewQuizStore(),
		attempts: memory.NewAttemptStore(),
		teams:    memory.NewTeamStore(),
		cache:    memory.NewReportCache(),
		now:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.attempt = NewAttemptService(f.quizzes, f.attempts, cfg)
	f.attempt.Clock = f.clock
	f.reports = NewReportService(f.quizzes, f.attempts, f.teams, f.cache, nil, cfg)
	f.admin = NewQuizAdminService(f.quizzes, f.attempts, f.teams, f.reports)
	f.admin.Clock = f.clock
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type quizOpts struct {
	shuffle   bool
	status    model.QuizStatus
	timeLimit int
	points    []int
	correct   []int
}

func (f *fixture) createQuiz(t *testing.T, opts quizOpts) *model.Quiz {
	t.Helper()
	status := opts.status
	if status == "" {
		status = model.QuizActive
	}
	quiz := &model.Quiz{
		Title:            "Regional Finals",
		Status:           status,
		TimeLimit:        opts.timeLimit,
		ShuffleQuestions: opts.shuffle,
	}
	if status == model.QuizActive {
		start := f.clock()
		quiz.StartTime = &start
	}
	for i, p := range opts.points {
		correct := 0
		if i < len(opts.correct) {
			correct = opts.correct[i]
		}
		quiz.Questions = append(quiz.Questions, model.Question{
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: correct,
			Points:        p,
		})
	}
	require.NoError(t, f.quizzes.Create(context.Background(), quiz))
	return quiz
}

func (f *fixture) createTeam(t *testing.T, name string) *model.Team {
	t.Helper()
	team := &model.Team{
		TeamName:       name,
		TeamLeaderName: name + " Leader",
		Email:          name + "@example.com",
		StudentID:      "S-" + name,
		Password:       "x",
	}
	require.NoError(t, f.teams.Create(context.Background(), team))
	return team
}

func uniform(n, points int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = points
	}
	return out
}
