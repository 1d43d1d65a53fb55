package service

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/logger"
	"quiz_arena_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SanitizedQuestion 参赛队伍看到的题目，不包含正确选项
type SanitizedQuestion struct {
	ID           string   `json:"_id"`
	QuestionText string   `json:"questionText"`
	ImageURL     *string  `json:"imageUrl"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
	Attempted    bool     `json:"attempted"`
}

type QuestionEnvelope struct {
	QuizTitle       string            `json:"quizTitle"`
	QuizID          string            `json:"quizId"`
	TimeLimit       int               `json:"timeLimit"`
	TotalQuestions  int               `json:"totalQuestions"`
	CurrentQuestion int               `json:"currentQuestion"`
	OrderChanged    bool              `json:"orderChanged"`
	QuestionData    SanitizedQuestion `json:"questionData"`
}

type ActiveQuiz struct {
	ID           string              `json:"_id"`
	Title        string              `json:"title"`
	Questions    []SanitizedQuestion `json:"questions"`
	StartTime    *time.Time          `json:"startTime"`
	TimeLimit    int                 `json:"timeLimit"`
	Shuffled     bool                `json:"shuffled"`
	OrderChanged bool                `json:"orderChanged"`
}

type QuizProgress struct {
	QuizID          string              `json:"quizId"`
	QuizTitle       string              `json:"quizTitle"`
	Description     string              `json:"description"`
	TimeLimit       int                 `json:"timeLimit"`
	Difficulty      model.Difficulty    `json:"difficulty"`
	Status          model.QuizStatus    `json:"status"`
	TotalQuestions  int                 `json:"totalQuestions"`
	TotalPoints     int                 `json:"totalPoints"`
	CurrentScore    int                 `json:"currentScore"`
	Shuffled        bool                `json:"shuffled"`
	UserStartTime   *time.Time          `json:"userStartTime"`
	UserSubmittedAt *time.Time          `json:"userSubmittedAt"`
	IsCompleted     bool                `json:"isCompleted"`
	Deadline        *time.Time          `json:"deadline"`
	OrderChanged    bool                `json:"orderChanged"`
	Questions       []SanitizedQuestion `json:"questions"`
}

type QuizSummary struct {
	ID          string           `json:"_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TimeLimit   int              `json:"timeLimit"`
	Difficulty  model.Difficulty `json:"difficulty"`
	Status      model.QuizStatus `json:"status"`
	StartTime   *time.Time       `json:"startTime"`
}

type AnswerInput struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

type SubmitResult struct {
	Score       int `json:"score"`
	TotalPoints int `json:"totalPoints"`
	// AttemptCreated 提交时才首次创建答题记录
	AttemptCreated bool `json:"-"`
}

// AttemptService 通过队伍自己的答题记录提供题目：固定的题目顺序、已答集合以及唯一一次评分提交
type AttemptService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Clock    func() time.Time

	mu        sync.RWMutex
	cfg       config.QuizConfig
	listeners []func(quizID string)
}

func NewAttemptService(quizzes QuizStore, attempts AttemptStore, cfg config.QuizConfig) *AttemptService {
	return &AttemptService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Clock:    time.Now,
		cfg:      cfg,
	}
}

// UpdateConfig 替换热加载后的测验配置
func (s *AttemptService) UpdateConfig(cfg config.QuizConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *AttemptService) config() config.QuizConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// OnSubmitted 注册每次评分提交后执行的回调
func (s *AttemptService) OnSubmitted(fn func(quizID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *AttemptService) notifySubmitted(quizID string) {
	s.mu.RLock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(quizID)
	}
}

// GetOrCreateAttempt 获取队伍在该测验的答题记录，首次访问时计算题目顺序并创建
func (s *AttemptService) GetOrCreateAttempt(ctx context.Context, teamID uint, quiz *model.Quiz) (*model.Attempt, error) {
	attempt, _, err := s.getOrCreate(ctx, teamID, quiz)
	return attempt, err
}

func (s *AttemptService) getOrCreate(ctx context.Context, teamID uint, quiz *model.Quiz) (*model.Attempt, bool, error) {
	attempt, err := s.Attempts.Find(ctx, teamID, quiz.ID)
	if err != nil && !errors.Is(err, util.ErrAttemptNotFound) {
		return nil, false, err
	}

	created := false
	if attempt == nil {
		now := s.Clock()
		fresh := &model.Attempt{
			TeamID:        teamID,
			QuizID:        quiz.ID,
			QuestionOrder: ComputeOrder(quiz.QuestionIDs(), quiz.ShuffleQuestions, nil),
			Answers:       []model.GradedAnswer{},
			StartTime:     &now,
		}
		if quiz.TimeLimit > 0 {
			deadline := now.Add(time.Duration(quiz.TimeLimit) * time.Minute)
			fresh.Deadline = &deadline
		}

		attempt, created, err = s.Attempts.CreateIfAbsent(ctx, fresh)
		if err != nil {
			return nil, false, err
		}
		if created {
			monitoring.AttemptsCreated.Inc()
			logger.Log.Info("Attempt created",
				zap.Uint("teamId", teamID),
				zap.String("quizId", quiz.ID),
				zap.Bool("shuffled", quiz.ShuffleQuestions),
			)
		}
	}

	if len(attempt.QuestionOrder) == 0 && len(quiz.Questions) > 0 {
		attempt, err = s.replaceOrder(ctx, attempt, quiz)
		if err != nil {
			return nil, false, err
		}
	}
	return attempt, created, nil
}

// replaceOrder 保存新计算的题目顺序；若其他请求已先替换，则沿用并返回对方的顺序
func (s *AttemptService) replaceOrder(ctx context.Context, attempt *model.Attempt, quiz *model.Quiz) (*model.Attempt, error) {
	order := ComputeOrder(quiz.QuestionIDs(), quiz.ShuffleQuestions, nil)
	ok, err := s.Attempts.SetQuestionOrder(ctx, attempt.ID, attempt.OrderVersion, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.Attempts.Find(ctx, attempt.TeamID, attempt.QuizID)
	}
	attempt.QuestionOrder = order
	attempt.OrderVersion++
	return attempt, nil
}

// orderIsStale 判断固定顺序中是否引用了已被删除的题目
func orderIsStale(attempt *model.Attempt, quiz *model.Quiz) bool {
	for _, id := range attempt.QuestionOrder {
		if _, ok := quiz.QuestionByID(id); !ok {
			return true
		}
	}
	return false
}

// rederiveIfStale 顺序引用了已删除题目时，按当前题库重新生成一次，bool 表示顺序是否变化。
// 已提交的记录不再变化，保留评分时的顺序
func (s *AttemptService) rederiveIfStale(ctx context.Context, attempt *model.Attempt, quiz *model.Quiz) (*model.Attempt, bool, error) {
	if attempt.Submitted() || !orderIsStale(attempt, quiz) {
		return attempt, false, nil
	}
	oldLength := len(attempt.QuestionOrder)
	updated, err := s.replaceOrder(ctx, attempt, quiz)
	if err != nil {
		return nil, false, err
	}
	monitoring.OrderRederived.Inc()
	logger.Log.Warn("Question order re-derived after quiz content changed",
		zap.Uint("teamId", attempt.TeamID),
		zap.String("quizId", quiz.ID),
		zap.Int("oldLength", oldLength),
		zap.Int("newLength", len(updated.QuestionOrder)),
	)
	return updated, true, nil
}

func sanitize(q *model.Question, attempt *model.Attempt) SanitizedQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return SanitizedQuestion{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		ImageURL:     q.ImageURL,
		Options:      options,
		Points:       q.PointValue(),
		Attempted:    attempt.HasAttempted(q.ID),
	}
}

// orderedQuestions 按答题记录的顺序取出题目，已不存在的题目会被跳过
func orderedQuestions(attempt *model.Attempt, quiz *model.Quiz) []SanitizedQuestion {
	questions := make([]SanitizedQuestion, 0, len(attempt.QuestionOrder))
	for _, id := range attempt.QuestionOrder {
		q, ok := quiz.QuestionByID(id)
		if !ok {
			continue
		}
		questions = append(questions, sanitize(q, attempt))
	}
	return questions
}

// loadQuizWithQuestions 为参赛端视图加载测验及题目
func (s *AttemptService) loadQuizWithQuestions(ctx context.Context, quizID string) (*model.Quiz, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, util.ErrNoQuestions
	}
	return quiz, nil
}

// ActiveQuizView 获取队伍视角下的当前进行中测验
func (s *AttemptService) ActiveQuizView(ctx context.Context, teamID uint) (*ActiveQuiz, error) {
	quiz, err := s.Quizzes.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	attempt, err := s.GetOrCreateAttempt(ctx, teamID, quiz)
	if err != nil {
		return nil, err
	}
	attempt, changed, err := s.rederiveIfStale(ctx, attempt, quiz)
	if err != nil {
		return nil, err
	}

	return &ActiveQuiz{
		ID:           quiz.ID,
		Title:        quiz.Title,
		Questions:    orderedQuestions(attempt, quiz),
		StartTime:    quiz.StartTime,
		TimeLimit:    quiz.TimeLimit,
		Shuffled:     quiz.ShuffleQuestions,
		OrderChanged: changed,
	}, nil
}

// GetQuestionAt 按固定顺序获取第 index 道题
func (s *AttemptService) GetQuestionAt(ctx context.Context, teamID uint, quizID string, index int) (*QuestionEnvelope, error) {
	quiz, err := s.loadQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.GetOrCreateAttempt(ctx, teamID, quiz)
	if err != nil {
		return nil, err
	}

	changed := false
	for {
		if index < 0 || index >= len(attempt.QuestionOrder) {
			return nil, util.Detail(util.ErrInvalidQuestionIndex,
				"invalid question index: %d (max: %d)", index, len(attempt.QuestionOrder)-1)
		}

		if q, ok := quiz.QuestionByID(attempt.QuestionOrder[index]); ok {
			return &QuestionEnvelope{
				QuizTitle:       quiz.Title,
				QuizID:          quiz.ID,
				TimeLimit:       quiz.TimeLimit,
				TotalQuestions:  len(quiz.Questions),
				CurrentQuestion: index + 1,
				OrderChanged:    changed,
				QuestionData:    sanitize(q, attempt),
			}, nil
		}

		if changed {
			return nil, util.ErrQuestionNotFound
		}
		attempt, changed, err = s.rederiveIfStale(ctx, attempt, quiz)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, util.ErrQuestionNotFound
		}
	}
}

// GetQuestions 获取完整的有序题目列表及进度信息
func (s *AttemptService) GetQuestions(ctx context.Context, teamID uint, quizID string) (*QuizProgress, error) {
	quiz, err := s.loadQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.GetOrCreateAttempt(ctx, teamID, quiz)
	if err != nil {
		return nil, err
	}
	attempt, changed, err := s.rederiveIfStale(ctx, attempt, quiz)
	if err != nil {
		return nil, err
	}

	difficulty := quiz.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	return &QuizProgress{
		QuizID:          quiz.ID,
		QuizTitle:       quiz.Title,
		Description:     quiz.Description,
		TimeLimit:       quiz.TimeLimit,
		Difficulty:      difficulty,
		Status:          quiz.Status,
		TotalQuestions:  len(quiz.Questions),
		TotalPoints:     quiz.TotalPoints(),
		CurrentScore:    attempt.Score,
		Shuffled:        quiz.ShuffleQuestions,
		UserStartTime:   attempt.StartTime,
		UserSubmittedAt: attempt.SubmittedAt,
		IsCompleted:     attempt.Submitted(),
		Deadline:        attempt.Deadline,
		OrderChanged:    changed,
		Questions:       orderedQuestions(attempt, quiz),
	}, nil
}

// MarkAttempted 将题目加入队伍的已答集合，重复调用无副作用
func (s *AttemptService) MarkAttempted(ctx context.Context, teamID uint, quizID, questionID string) error {
	if quizID == "" || questionID == "" {
		return util.Invalid("quiz ID and question ID are required")
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return err
	}
	if _, ok := quiz.QuestionByID(questionID); !ok {
		return util.ErrQuestionNotFound
	}
	attempt, err := s.GetOrCreateAttempt(ctx, teamID, quiz)
	if err != nil {
		return err
	}
	if attempt.HasAttempted(questionID) {
		return nil
	}
	return s.Attempts.AddView(ctx, attempt.ID, questionID)
}

// Grade 对答案评分：未知题目忽略，同一题只计第一次作答。
// 返回队伍提交过的所有不重复题目ID
func Grade(quiz *model.Quiz, answers []AnswerInput) ([]model.GradedAnswer, int, []string) {
	graded := make([]model.GradedAnswer, 0, len(answers))
	submitted := make([]string, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	score := 0
	for _, a := range answers {
		if a.QuestionID == "" || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		submitted = append(submitted, a.QuestionID)

		q, ok := quiz.QuestionByID(a.QuestionID)
		if !ok {
			continue
		}
		correct := a.SelectedOption == q.CorrectOption
		if correct {
			score += q.PointValue()
		}
		graded = append(graded, model.GradedAnswer{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      correct,
		})
	}
	return graded, score, submitted
}

// Submit 提交答案并评分，每支队伍每个测验最多成功一次
func (s *AttemptService) Submit(ctx context.Context, teamID uint, quizID string, answers []AnswerInput) (*SubmitResult, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	quiz, err := s.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizActive {
		return nil, util.ErrQuizNotActive
	}

	attempt, created, err := s.getOrCreate(ctx, teamID, quiz)
	if err != nil {
		return nil, err
	}
	if attempt.Submitted() {
		monitoring.SubmissionCounter.WithLabelValues("duplicate").Inc()
		return nil, util.ErrAlreadySubmitted
	}

	now := s.Clock()
	cfg := s.config()
	if cfg.EnforceTimeLimit && attempt.Deadline != nil && now.After(attempt.Deadline.Add(cfg.Grace())) {
		monitoring.SubmissionCounter.WithLabelValues("late").Inc()
		return nil, util.ErrTimeLimitExceeded
	}

	graded, score, submitted := Grade(quiz, answers)
	err = s.Attempts.Submit(ctx, attempt.ID, model.Submission{
		Answers:     graded,
		Score:       score,
		SubmittedAt: now,
		QuestionIDs: submitted,
	})
	if errors.Is(err, util.ErrAlreadySubmitted) {
		monitoring.SubmissionCounter.WithLabelValues("duplicate").Inc()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	monitoring.SubmissionCounter.WithLabelValues("graded").Inc()
	logger.Log.Info("Submission graded",
		zap.Uint("teamId", teamID),
		zap.String("quizId", quiz.ID),
		zap.Int("score", score),
		zap.Int("answers", len(graded)),
	)
	s.notifySubmitted(quiz.ID)

	return &SubmitResult{
		Score:          score,
		TotalPoints:    quiz.TotalPoints(),
		AttemptCreated: created,
	}, nil
}

// GetResult 获取队伍已评分的答题记录
func (s *AttemptService) GetResult(ctx context.Context, teamID uint, quizID string) (*model.Attempt, error) {
	if quizID == "" {
		return nil, util.ErrQuizIDRequired
	}
	if _, err := s.Quizzes.FindByID(ctx, quizID); err != nil {
		return nil, err
	}
	attempt, err := s.Attempts.Find(ctx, teamID, quizID)
	if err != nil {
		return nil, err
	}
	if !attempt.Submitted() {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

// ListAvailable 列出所有测验，按创建时间倒序
func (s *AttemptService) ListAvailable(ctx context.Context) ([]QuizSummary, error) {
	quizzes, err := s.Quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		summaries = append(summaries, QuizSummary{
			ID:          q.ID,
			Title:       q.Title,
			Description: q.Description,
			TimeLimit:   q.TimeLimit,
			Difficulty:  q.Difficulty,
			Status:      q.Status,
			StartTime:   q.StartTime,
		})
	}
	return summaries, nil
}
