package service

import (
	"context"
	"encoding/json"
	"errors"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGrade(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: []int{1, 2, 1}, correct: []int{0, 1, 2}})
	ids := quiz.QuestionIDs()

	graded, score, submitted := Grade(quiz, []AnswerInput{
		{QuestionID: ids[0], SelectedOption: 0},
		{QuestionID: ids[1], SelectedOption: 1},
		{QuestionID: ids[2], SelectedOption: 1},
	})

	assert.Equal(t, 3, score)
	assert.Equal(t, 4, quiz.TotalPoints())
	require.Len(t, graded, 3)
	assert.True(t, graded[0].IsCorrect)
	assert.True(t, graded[1].IsCorrect)
	assert.False(t, graded[2].IsCorrect)
	assert.Equal(t, ids, submitted)
}

func TestGradeSkipsUnknownAndRepeatedAnswers(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: []int{2, 2}, correct: []int{1, 1}})
	ids := quiz.QuestionIDs()

	graded, score, submitted := Grade(quiz, []AnswerInput{
		{QuestionID: ids[0], SelectedOption: 0},
		{QuestionID: ids[0], SelectedOption: 1},
		{QuestionID: "gone", SelectedOption: 1},
		{QuestionID: "", SelectedOption: 1},
	})

	assert.Equal(t, 0, score, "only the first answer to a question counts")
	assert.Len(t, graded, 1)
	assert.Equal(t, []string{ids[0], "gone"}, submitted)
}

func TestGetOrCreateAttemptConcurrent(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{shuffle: true, points: uniform(12, 1)})
	ctx := context.Background()

	const workers = 16
	results := make([]*model.Attempt, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			a, err := f.attempt.GetOrCreateAttempt(ctx, 1, quiz)
			results[i] = a
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, a := range results[1:] {
		assert.Equal(t, results[0].ID, a.ID)
		assert.Equal(t, []string(results[0].QuestionOrder), []string(a.QuestionOrder))
	}
	n, err := f.attempts.CountByQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSubmitConcurrentSucceedsOnce(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: []int{1, 1}, correct: []int{0, 0}})
	answers := []AnswerInput{{QuestionID: quiz.Questions[0].ID, SelectedOption: 0}}
	ctx := context.Background()

	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := f.attempt.Submit(ctx, 7, quiz.ID, answers)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, util.ErrAlreadySubmitted):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 19, dup.Load())

	result, err := f.attempt.GetResult(ctx, 7, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
}

func TestSubmitCreatedFlagAndTotals(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: []int{1, 2, 1}, correct: []int{0, 1, 2}})
	ids := quiz.QuestionIDs()
	ctx := context.Background()

	res, err := f.attempt.Submit(ctx, 1, quiz.ID, []AnswerInput{
		{QuestionID: ids[0], SelectedOption: 0},
		{QuestionID: ids[1], SelectedOption: 1},
		{QuestionID: ids[2], SelectedOption: 1},
	})
	require.NoError(t, err)
	assert.True(t, res.AttemptCreated)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 4, res.TotalPoints)

	_, err = f.attempt.GetQuestions(ctx, 2, quiz.ID)
	require.NoError(t, err)
	res, err = f.attempt.Submit(ctx, 2, quiz.ID, nil)
	require.NoError(t, err)
	assert.False(t, res.AttemptCreated)
	assert.Equal(t, 0, res.Score)

	_, err = f.attempt.Submit(ctx, 2, quiz.ID, nil)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
	assert.Equal(t, util.KindAlreadySubmitted, util.KindOf(err))
}

func TestSubmitMarksAnsweredQuestionsAttempted(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(3, 1)})
	ctx := context.Background()

	_, err := f.attempt.Submit(ctx, 1, quiz.ID, []AnswerInput{
		{QuestionID: quiz.Questions[1].ID, SelectedOption: 2},
	})
	require.NoError(t, err)

	progress, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.True(t, progress.IsCompleted)
	for _, q := range progress.Questions {
		assert.Equal(t, q.ID == quiz.Questions[1].ID, q.Attempted, q.ID)
	}
}

func TestSubmitRejectsInactiveQuiz(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{status: model.QuizPending, points: uniform(2, 1)})

	_, err := f.attempt.Submit(context.Background(), 1, quiz.ID, nil)
	assert.ErrorIs(t, err, util.ErrQuizNotActive)
	assert.Equal(t, util.KindInvalidState, util.KindOf(err))

	_, err = f.attempt.Submit(context.Background(), 1, "missing", nil)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitTimeLimit(t *testing.T) {
	cfg := config.QuizConfig{EnforceTimeLimit: true, TimeLimitGraceSeconds: 30}
	f := newFixture(t, cfg)
	quiz := f.createQuiz(t, quizOpts{timeLimit: 10, points: uniform(2, 1)})
	ctx := context.Background()

	progress, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, progress.Deadline)
	assert.Equal(t, f.clock().Add(10*time.Minute), *progress.Deadline)

	_, err = f.attempt.GetQuestions(ctx, 2, quiz.ID)
	require.NoError(t, err)

	f.advance(10*time.Minute + 20*time.Second)
	_, err = f.attempt.Submit(ctx, 1, quiz.ID, nil)
	assert.NoError(t, err, "inside the grace period")

	f.advance(15 * time.Second)
	_, err = f.attempt.Submit(ctx, 2, quiz.ID, nil)
	assert.ErrorIs(t, err, util.ErrTimeLimitExceeded)

	f.attempt.UpdateConfig(config.QuizConfig{EnforceTimeLimit: false})
	_, err = f.attempt.Submit(ctx, 2, quiz.ID, nil)
	assert.NoError(t, err, "advisory once enforcement is switched off")
}

func TestSubmitNotifiesListeners(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(1, 1)})

	var got []string
	f.attempt.OnSubmitted(func(quizID string) { got = append(got, quizID) })

	_, err := f.attempt.Submit(context.Background(), 1, quiz.ID, nil)
	require.NoError(t, err)
	_, _ = f.attempt.Submit(context.Background(), 1, quiz.ID, nil)

	assert.Equal(t, []string{quiz.ID}, got)
}

func TestParticipantViewsNeverExposeCorrectOption(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{shuffle: true, points: uniform(4, 1), correct: []int{3, 2, 1, 0}})
	ctx := context.Background()

	active, err := f.attempt.ActiveQuizView(ctx, 1)
	require.NoError(t, err)
	progress, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	envelope, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 0)
	require.NoError(t, err)

	for _, v := range []interface{}{active, progress, envelope} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "correctOption")
	}
}

func TestGetQuestionAtBounds(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(3, 1)})
	ctx := context.Background()

	for _, idx := range []int{-1, 3} {
		_, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, idx)
		assert.ErrorIs(t, err, util.ErrInvalidQuestionIndex)
		assert.Equal(t, util.KindInvalidArgument, util.KindOf(err))
		assert.Contains(t, util.MessageOf(err), "max: 2")
	}

	env, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, env.CurrentQuestion)
	assert.Equal(t, 3, env.TotalQuestions)
	assert.Equal(t, quiz.Questions[2].ID, env.QuestionData.ID)
}

func TestGetQuestionAtMissingQuiz(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	ctx := context.Background()

	_, err := f.attempt.GetQuestionAt(ctx, 1, "", 0)
	assert.ErrorIs(t, err, util.ErrQuizIDRequired)

	_, err = f.attempt.GetQuestionAt(ctx, 1, "nope", 0)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	empty := f.createQuiz(t, quizOpts{})
	_, err = f.attempt.GetQuestionAt(ctx, 1, empty.ID, 0)
	assert.ErrorIs(t, err, util.ErrNoQuestions)
}

func TestShuffledOrderIsStablePerTeam(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{shuffle: true, points: uniform(10, 1)})
	ctx := context.Background()

	first, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	ids := func(p *QuizProgress) []string {
		out := make([]string, len(p.Questions))
		for i, q := range p.Questions {
			out[i] = q.ID
		}
		return out
	}

	for i := 0; i < 5; i++ {
		again, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, ids(first), ids(again))
		assert.False(t, again.OrderChanged)
	}

	for i, id := range ids(first) {
		env, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, i)
		require.NoError(t, err)
		assert.Equal(t, id, env.QuestionData.ID)
	}

	got := ids(first)
	sort.Strings(got)
	want := quiz.QuestionIDs()
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestOrderRederivedOnceAfterQuestionRemoved(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(3, 1)})
	ids := quiz.QuestionIDs()
	ctx := context.Background()

	_, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)

	require.NoError(t, f.quizzes.DeleteQuestion(ctx, quiz.ID, ids[1]))

	env, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 1)
	require.NoError(t, err)
	assert.True(t, env.OrderChanged)
	assert.Equal(t, ids[2], env.QuestionData.ID)

	env, err = f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 1)
	require.NoError(t, err)
	assert.False(t, env.OrderChanged)

	_, err = f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 2)
	assert.ErrorIs(t, err, util.ErrInvalidQuestionIndex)
}

func TestQuestionsAddedAfterFreezeAreNotAppended(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(2, 1)})
	ctx := context.Background()

	_, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)

	require.NoError(t, f.quizzes.AddQuestion(ctx, &model.Question{
		QuizID:       quiz.ID,
		QuestionText: "late",
		Options:      []string{"x", "y"},
	}))

	progress, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, progress.Questions, 2)
	assert.Equal(t, 3, progress.TotalQuestions)
	assert.False(t, progress.OrderChanged)

	fresh, err := f.attempt.GetQuestions(ctx, 2, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.Questions, 3)
}

func TestMarkAttemptedIsIdempotent(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(2, 1)})
	qid := quiz.Questions[0].ID
	ctx := context.Background()

	require.NoError(t, f.attempt.MarkAttempted(ctx, 1, quiz.ID, qid))
	require.NoError(t, f.attempt.MarkAttempted(ctx, 1, quiz.ID, qid))

	attempt, err := f.attempts.Find(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{qid}, attempt.AttemptedQuestions)

	env, err := f.attempt.GetQuestionAt(ctx, 1, quiz.ID, 0)
	require.NoError(t, err)
	assert.True(t, env.QuestionData.Attempted)

	err = f.attempt.MarkAttempted(ctx, 1, quiz.ID, "unknown")
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)

	err = f.attempt.MarkAttempted(ctx, 1, quiz.ID, "")
	assert.Equal(t, util.KindInvalidArgument, util.KindOf(err))
}

func TestGetResultRequiresSubmission(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(2, 1)})
	ctx := context.Background()

	_, err := f.attempt.GetResult(ctx, 1, quiz.ID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	_, err = f.attempt.GetResult(ctx, 1, quiz.ID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = f.attempt.Submit(ctx, 1, quiz.ID, []AnswerInput{{QuestionID: quiz.Questions[0].ID, SelectedOption: 0}})
	require.NoError(t, err)
	result, err := f.attempt.GetResult(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.NotNil(t, result.SubmittedAt)
}

func TestActiveQuizViewPicksLatestStart(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	ctx := context.Background()

	_, err := f.attempt.ActiveQuizView(ctx, 1)
	assert.ErrorIs(t, err, util.ErrNoActiveQuiz)

	f.createQuiz(t, quizOpts{points: uniform(1, 1)})
	f.advance(time.Minute)
	latest := f.createQuiz(t, quizOpts{points: uniform(2, 1)})

	view, err := f.attempt.ActiveQuizView(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, view.ID)
	assert.Len(t, view.Questions, 2)
}

func TestListAvailableNewestFirst(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	first := f.createQuiz(t, quizOpts{status: model.QuizPending})
	time.Sleep(2 * time.Millisecond)
	second := f.createQuiz(t, quizOpts{status: model.QuizCompleted})

	list, err := f.attempt.ListAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestSubmittedAttemptKeepsOrderAfterQuestionRemoved(t *testing.T) {
	f := newFixture(t, config.QuizConfig{})
	quiz := f.createQuiz(t, quizOpts{points: uniform(3, 1)})
	ids := quiz.QuestionIDs()
	ctx := context.Background()

	_, err := f.attempt.Submit(ctx, 1, quiz.ID, []AnswerInput{{QuestionID: ids[0], SelectedOption: 0}})
	require.NoError(t, err)
	before, err := f.attempts.Find(ctx, 1, quiz.ID)
	require.NoError(t, err)

	require.NoError(t, f.quizzes.DeleteQuestion(ctx, quiz.ID, ids[1]))

	progress, err := f.attempt.GetQuestions(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.False(t, progress.OrderChanged)
	assert.Len(t, progress.Questions, 2)

	after, err := f.attempts.Find(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, before.QuestionOrder, after.QuestionOrder)
	assert.Equal(t, before.OrderVersion, after.OrderVersion)
}
