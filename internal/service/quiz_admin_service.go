package service

import (
	"context"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/logger"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

type QuestionInput struct {
	ID            string   `json:"_id" yaml:"id"`
	QuestionText  string   `json:"questionText" yaml:"questionText"`
	ImageURL      *string  `json:"imageUrl" yaml:"imageUrl"`
	Options       []string `json:"options" yaml:"options"`
	CorrectOption *int     `json:"correctOption" yaml:"correctOption"`
	Points        int      `json:"points" yaml:"points"`
}

func (q QuestionInput) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.QuestionText, validation.Required),
		validation.Field(&q.Options, validation.Required, validation.Length(2, 0), validation.Each(validation.Required)),
		validation.Field(&q.CorrectOption, validation.NotNil, validation.Min(0), validation.Max(len(q.Options)-1)),
		validation.Field(&q.Points, validation.Min(0)),
	)
}

func (q QuestionInput) toModel(quizID string) model.Question {
	points := q.Points
	if points <= 0 {
		points = model.DefaultPoints
	}
	question := model.Question{
		QuizID:        quizID,
		QuestionText:  strings.TrimSpace(q.QuestionText),
		ImageURL:      q.ImageURL,
		Options:       append([]string{}, q.Options...),
		CorrectOption: *q.CorrectOption,
		Points:        points,
	}
	question.ID = q.ID
	return question
}

var difficulties = []interface{}{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

type QuizDetailsInput struct {
	Title            *string           `json:"title"`
	Description      *string           `json:"description"`
	TimeLimit        *int              `json:"timeLimit"`
	Difficulty       *model.Difficulty `json:"difficulty"`
	ShuffleQuestions *bool             `json:"shuffleQuestions"`
}

func (in QuizDetailsInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&in.TimeLimit, validation.Min(0)),
		validation.Field(&in.Difficulty, validation.In(difficulties...)),
	)
}

type CreateQuizInput struct {
	Code             *string          `json:"code" yaml:"code"`
	Title            string           `json:"title" yaml:"title"`
	Description      string           `json:"description" yaml:"description"`
	TimeLimit        int              `json:"timeLimit" yaml:"timeLimit"`
	Difficulty       model.Difficulty `json:"difficulty" yaml:"difficulty"`
	ShuffleQuestions bool             `json:"shuffleQuestions" yaml:"shuffleQuestions"`
	Status           model.QuizStatus `json:"status" yaml:"status"`
	Questions        []QuestionInput  `json:"questions" yaml:"questions"`
}

func (in CreateQuizInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Length(0, 255)),
		validation.Field(&in.TimeLimit, validation.Min(0)),
		validation.Field(&in.Difficulty, validation.In(difficulties...)),
		validation.Field(&in.Status, validation.In(model.QuizPending, model.QuizActive, model.QuizCompleted)),
		validation.Field(&in.Questions),
	)
}

// QuizDetails 不含题库的测验信息
type QuizDetails struct {
	ID               string           `json:"_id"`
	Code             *string          `json:"code,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	TimeLimit        int              `json:"timeLimit"`
	Difficulty       model.Difficulty `json:"difficulty"`
	Status           model.QuizStatus `json:"status"`
	ShuffleQuestions bool             `json:"shuffleQuestions"`
	StartTime        *time.Time       `json:"startTime"`
	EndTime          *time.Time       `json:"endTime"`
	TotalQuestions   int              `json:"totalQuestions"`
	TotalPoints      int              `json:"totalPoints"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func detailsOf(q *model.Quiz) *QuizDetails {
	return &QuizDetails{
		ID:               q.ID,
		Code:             q.QuizCode,
		Title:            q.Title,
		Description:      q.Description,
		TimeLimit:        q.TimeLimit,
		Difficulty:       q.Difficulty,
		Status:           q.Status,
		ShuffleQuestions: q.ShuffleQuestions,
		StartTime:        q.StartTime,
		EndTime:          q.EndTime,
		TotalQuestions:   len(q.Questions),
		TotalPoints:      q.TotalPoints(),
		CreatedAt:        q.CreatedAt,
	}
}

// ResetOutcome 表示测验被删除还是仅被重置
type ResetOutcome struct {
	Deleted bool        `json:"deleted"`
	Quiz    *model.Quiz `json:"quiz,omitempty"`
}

// QuizAdminService 管理员的测验与题目管理
type QuizAdminService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Teams    TeamStore
	Reports  *ReportService
	Clock    func() time.Time
}

func NewQuizAdminService(quizzes QuizStore, attempts AttemptStore, teams TeamStore, reports *ReportService) *QuizAdminService {
	return &QuizAdminService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Teams:    teams,
		Reports:  reports,
		Clock:    time.Now,
	}
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return util.Invalid(err.Error())
}

func (s *QuizAdminService) changed(ctx context.Context, quizID string) {
	if s.Reports != nil {
		s.Reports.Invalidate(ctx, quizID)
	}
}

func (s *QuizAdminService) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.Teams.List(ctx)
}

func (s *QuizAdminService) ListQuizzes(ctx context.Context) ([]QuizDetails, error) {
	quizzes, err := s.Quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]QuizDetails, 0, len(quizzes))
	for i := range quizzes {
		list = append(list, *detailsOf(&quizzes[i]))
	}
	return list, nil
}

func (s *QuizAdminService) CreateQuiz(ctx context.Context, in CreateQuizInput) (*model.Quiz, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	quiz := &model.Quiz{
		QuizCode:         in.Code,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		TimeLimit:        in.TimeLimit,
		Difficulty:       in.Difficulty,
		Status:           in.Status,
		ShuffleQuestions: in.ShuffleQuestions,
	}
	if quiz.Title == "" {
		quiz.Title = model.DefaultQuizTitle
	}
	if quiz.Difficulty == "" {
		quiz.Difficulty = model.DifficultyMedium
	}
	if quiz.Status == "" {
		quiz.Status = model.QuizPending
	}
	now := s.Clock()
	if quiz.Status == model.QuizActive || quiz.Status == model.QuizCompleted {
		quiz.StartTime = &now
	}
	if quiz.Status == model.QuizCompleted {
		quiz.EndTime = &now
	}
	for _, qi := range in.Questions {
		q := qi.toModel("")
		q.ID = ""
		quiz.Questions = append(quiz.Questions, q)
	}

	if err := s.Quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	logger.Log.Info("Quiz created", zap.String("quizId", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

func (s *QuizAdminService) GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	return s.Quizzes.FindByID(ctx, quizID)
}

func (s *QuizAdminService) GetDetails(ctx context.Context, quizID string) (*QuizDetails, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return detailsOf(quiz), nil
}

// UpdateDetails 只更新 in 中提供的字段
func (s *QuizAdminService) UpdateDetails(ctx context.Context, quizID string, in QuizDetailsInput) (*QuizDetails, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		quiz.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		quiz.Description = *in.Description
	}
	if in.TimeLimit != nil {
		quiz.TimeLimit = *in.TimeLimit
	}
	if in.Difficulty != nil {
		quiz.Difficulty = *in.Difficulty
	}
	if in.ShuffleQuestions != nil {
		quiz.ShuffleQuestions = *in.ShuffleQuestions
	}
	if err := s.Quizzes.UpdateDetails(ctx, quiz); err != nil {
		return nil, err
	}
	s.changed(ctx, quiz.ID)
	return detailsOf(quiz), nil
}

// ResetOrDelete 无人作答的测验直接删除；已有答题记录的测验保留题目、状态和时间戳，
// 只重置基本信息，保证历史记录仍可解析
func (s *QuizAdminService) ResetOrDelete(ctx context.Context, quizID string) (*ResetOutcome, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	count, err := s.Attempts.CountByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		if err := s.Quizzes.Delete(ctx, quizID); err != nil {
			return nil, err
		}
		s.changed(ctx, quizID)
		logger.Log.Info("Quiz deleted", zap.String("quizId", quizID))
		return &ResetOutcome{Deleted: true}, nil
	}

	quiz.ResetDetails()
	if err := s.Quizzes.UpdateDetails(ctx, quiz); err != nil {
		return nil, err
	}
	s.changed(ctx, quizID)
	logger.Log.Info("Quiz details reset", zap.String("quizId", quizID), zap.Int64("attempts", count))
	return &ResetOutcome{Quiz: quiz}, nil
}

// ReplaceQuestions 用 questions 整体替换题库，带已有ID的题目保留其ID
func (s *QuizAdminService) ReplaceQuestions(ctx context.Context, quizID string, questions []QuestionInput) (*model.Quiz, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if len(questions) == 0 {
		return nil, util.Invalid("please provide at least one question")
	}
	if err := validation.Validate(questions); err != nil {
		return nil, invalid(err)
	}

	list := make([]model.Question, 0, len(questions))
	for _, qi := range questions {
		list = append(list, qi.toModel(quizID))
	}
	if err := s.Quizzes.ReplaceQuestions(ctx, quizID, list); err != nil {
		return nil, err
	}
	s.changed(ctx, quizID)
	logger.Log.Info("Quiz questions replaced", zap.String("quizId", quizID), zap.Int("questions", len(list)))
	return s.Quizzes.FindByID(ctx, quizID)
}

func (s *QuizAdminService) AddQuestion(ctx context.Context, quizID string, in QuestionInput) (*model.Question, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	q := in.toModel(quizID)
	q.ID = ""
	if err := s.Quizzes.AddQuestion(ctx, &q); err != nil {
		return nil, err
	}
	s.changed(ctx, quizID)
	return &q, nil
}

// UpdateQuestion 原地修改题目，ID 不变
func (s *QuizAdminService) UpdateQuestion(ctx context.Context, quizID, questionID string, in QuestionInput) (*model.Question, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	q := in.toModel(quizID)
	q.ID = questionID
	if err := s.Quizzes.UpdateQuestion(ctx, &q); err != nil {
		return nil, err
	}
	s.changed(ctx, quizID)
	return &q, nil
}

func (s *QuizAdminService) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	if quizID == "" {
		return util.ErrQuizIDRequired
	}
	if err := s.Quizzes.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.changed(ctx, quizID)
	logger.Log.Info("Question deleted", zap.String("quizId", quizID), zap.String("questionId", questionID))
	return nil
}

// UpdateStatus 切换测验状态，开始和结束时间只写入一次
func (s *QuizAdminService) UpdateStatus(ctx context.Context, quizID string, status model.QuizStatus) (*model.Quiz, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	quiz, err := s.Quizzes.UpdateStatus(ctx, quizID, status, s.Clock())
	if err != nil {
		return nil, err
	}
	s.changed(ctx, quizID)
	logger.Log.Info("Quiz status changed", zap.String("quizId", quizID), zap.String("status", string(status)))
	return quiz, nil
}

func (s *QuizAdminService) ActivateAll(ctx context.Context) (int64, error) {
	n, err := s.Quizzes.ActivateAll(ctx, s.Clock())
	if err != nil {
		return 0, err
	}
	logger.Log.Info("Quizzes activated", zap.Int64("count", n))
	return n, nil
}
