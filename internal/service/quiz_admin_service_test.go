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

func intPtr(v int) *int { return &v }

func questionInput(text string, correct int) QuestionInput {
	return QuestionInput{
		QuestionText:  text,
		Options:       []string{"red", "green", "blue"},
		CorrectOption: intPtr(correct),
	}
}

func TestCreateQuizDefaults(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz, err := f.admin.CreateQuiz(context.Background(), CreateQuizInput{
		Questions: []QuestionInput{questionInput("first", 0), questionInput("second", 2)},
	})
	require.NoError(t, err)

	assert.Equal(t, model.DefaultQuizTitle, quiz.Title)
	assert.Equal(t, model.DifficultyMedium, quiz.Difficulty)
	assert.Equal(t, model.QuizPending, quiz.Status)
	assert.Nil(t, quiz.StartTime)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, model.DefaultPoints, quiz.Questions[0].Points)
	assert.NotEmpty(t, quiz.Questions[0].ID)
	assert.Equal(t, 2, quiz.Questions[1].CorrectOption)
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	cases := map[string]CreateQuizInput{
		"correct option out of range": {Questions: []QuestionInput{questionInput("q", 3)}},
		"missing correct option":      {Questions: []QuestionInput{{QuestionText: "q", Options: []string{"a", "b"}}}},
		"single option":               {Questions: []QuestionInput{{QuestionText: "q", Options: []string{"a"}, CorrectOption: intPtr(0)}}},
		"negative time limit":         {TimeLimit: -1},
		"unknown difficulty":          {Difficulty: "extreme"},
		"unknown status":              {Status: "archived"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.admin.CreateQuiz(context.Background(), in)
			assert.Equal(t, util.KindInvalidArgument, util.KindOf(err))
		})
	}
}

func TestUpdateDetailsAppliesPresentFields(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(1, 1)})
	title := "  Semi Finals "
	limit := 25

	details, err := f.admin.UpdateDetails(context.Background(), quiz.ID, QuizDetailsInput{Title: &title, TimeLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, "Semi Finals", details.Title)
	assert.Equal(t, 25, details.TimeLimit)
	assert.False(t, details.ShuffleQuestions)

	stored, err := f.quizzes.FindByID(context.Background(), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Semi Finals", stored.Title)

	empty := ""
	_, err = f.admin.UpdateDetails(context.Background(), quiz.ID, QuizDetailsInput{Title: &empty})
	assert.Equal(t, util.KindInvalidArgument, util.KindOf(err))
}

func TestResetOrDelete(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	ctx := context.Background()

	unused := f.createQuiz(t, quizOpts{points: uniform(2, 1)})
	outcome, err := f.admin.ResetOrDelete(ctx, unused.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Deleted)
	_, err = f.quizzes.FindByID(ctx, unused.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	used := f.createQuiz(t, quizOpts{timeLimit: 30, shuffle: true, points: uniform(2, 1)})
	_, err = f.attempt.Submit(ctx, 1, used.ID, nil)
	require.NoError(t, err)

	outcome, err = f.admin.ResetOrDelete(ctx, used.ID)
	require.NoError(t, err)
	assert.False(t, outcome.Deleted)

	stored, err := f.quizzes.FindByID(ctx, used.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultQuizTitle, stored.Title)
	assert.Equal(t, 0, stored.TimeLimit)
	assert.False(t, stored.ShuffleQuestions)
	assert.Equal(t, model.QuizActive, stored.Status)
	assert.Len(t, stored.Questions, 2)

	result, err := f.attempt.GetResult(ctx, 1, used.ID)
	require.NoError(t, err)
	assert.NotNil(t, result.SubmittedAt)
}

func TestReplaceQuestionsKeepsIdentity(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(3, 1)})
	ids := quiz.QuestionIDs()
	ctx := context.Background()

	edited := questionInput("edited", 1)
	edited.ID = ids[2]
	updated, err := f.admin.ReplaceQuestions(ctx, quiz.ID, []QuestionInput{edited, questionInput("brand new", 0)})
	require.NoError(t, err)

	require.Len(t, updated.Questions, 2)
	assert.Equal(t, ids[2], updated.Questions[0].ID)
	assert.Equal(t, "edited", updated.Questions[0].QuestionText)
	assert.NotContains(t, ids, updated.Questions[1].ID)

	_, err = f.admin.ReplaceQuestions(ctx, quiz.ID, nil)
	assert.Equal(t, util.KindInvalidArgument, util.KindOf(err))
	_, err = f.admin.ReplaceQuestions(ctx, "missing", []QuestionInput{questionInput("x", 0)})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestQuestionCRUD(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(1, 1)})
	ctx := context.Background()

	added, err := f.admin.AddQuestion(ctx, quiz.ID, questionInput("added", 1))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	in := questionInput("renamed", 2)
	in.Points = 5
	updated, err := f.admin.UpdateQuestion(ctx, quiz.ID, added.ID, in)
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)

	stored, err := f.quizzes.FindByID(ctx, quiz.ID)
	require.NoError(t, err)
	q, ok := stored.QuestionByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", q.QuestionText)
	assert.Equal(t, 5, q.Points)
	assert.Equal(t, 6, stored.TotalPoints())

	require.NoError(t, f.admin.DeleteQuestion(ctx, quiz.ID, added.ID))
	err = f.admin.DeleteQuestion(ctx, quiz.ID, added.ID)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
	_, err = f.admin.UpdateQuestion(ctx, quiz.ID, "nope", in)
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}

func TestUpdateStatusStampsOnce(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{status: model.QuizPending, points: uniform(1, 1)})
	ctx := context.Background()

	started, err := f.admin.UpdateStatus(ctx, quiz.ID, model.QuizActive)
	require.NoError(t, err)
	require.NotNil(t, started.StartTime)
	firstStart := *started.StartTime

	f.advance(time.Hour)
	done, err := f.admin.UpdateStatus(ctx, quiz.ID, model.QuizCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.EndTime)
	firstEnd := *done.EndTime

	f.advance(time.Hour)
	again, err := f.admin.UpdateStatus(ctx, quiz.ID, model.QuizActive)
	require.NoError(t, err)
	assert.True(t, firstStart.Equal(*again.StartTime))
	again, err = f.admin.UpdateStatus(ctx, quiz.ID, model.QuizCompleted)
	require.NoError(t, err)
	assert.True(t, firstEnd.Equal(*again.EndTime))

	_, err = f.admin.UpdateStatus(ctx, quiz.ID, "paused")
	assert.ErrorIs(t, err, util.ErrInvalidStatus)
}

func TestActivateAll(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	f.createQuiz(t, quizOpts{status: model.QuizPending})
	f.createQuiz(t, quizOpts{status: model.QuizCompleted})
	f.createQuiz(t, quizOpts{status: model.QuizActive})

	n, err := f.admin.ActivateAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ids, err := f.quizzes.ListIDsByStatus(context.Background(), model.QuizActive)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}
