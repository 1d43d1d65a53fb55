package memory

import (
	"context"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"sort"
	"sync"
	"time"
)

type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]*model.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]*model.Quiz)}
}

func (s *QuizStore) Create(_ context.Context, quiz *model.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = model.GenerateUUID()
	}
	if _, ok := s.quizzes[quiz.ID]; ok {
		return util.ErrDuplicate
	}
	if quiz.QuizCode != nil {
		for _, q := range s.quizzes {
			if q.QuizCode != nil && *q.QuizCode == *quiz.QuizCode {
				return util.ErrDuplicate
			}
		}
	}
	now := time.Now()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	if quiz.Status == "" {
		quiz.Status = model.QuizPending
	}
	if quiz.Difficulty == "" {
		quiz.Difficulty = model.DifficultyMedium
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == "" {
			q.ID = model.GenerateUUID()
		}
		q.QuizID = quiz.ID
		q.Position = i
		q.CreatedAt = now
		q.UpdatedAt = now
	}
	s.quizzes[quiz.ID] = quiz.Clone()
	return nil
}

func (s *QuizStore) FindByID(_ context.Context, id string) (*model.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, util.ErrQuizNotFound
	}
	return q.Clone(), nil
}

func (s *QuizStore) FindActive(_ context.Context) (*model.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *model.Quiz
	for _, q := range s.quizzes {
		if q.Status != model.QuizActive {
			continue
		}
		if best == nil || startedAfter(q, best) {
			best = q
		}
	}
	if best == nil {
		return nil, util.ErrNoActiveQuiz
	}
	return best.Clone(), nil
}

func startedAfter(a, b *model.Quiz) bool {
	switch {
	case a.StartTime != nil && b.StartTime != nil && !a.StartTime.Equal(*b.StartTime):
		return a.StartTime.After(*b.StartTime)
	case a.StartTime != nil && b.StartTime == nil:
		return true
	case a.StartTime == nil && b.StartTime != nil:
		return false
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (s *QuizStore) sorted() []*model.Quiz {
	list := make([]*model.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		list = append(list, q)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (s *QuizStore) List(_ context.Context) ([]model.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizzes []model.Quiz
	for _, q := range s.sorted() {
		cp := q.Clone()
		cp.Questions = nil
		quizzes = append(quizzes, *cp)
	}
	return quizzes, nil
}

func (s *QuizStore) ListIDsByStatus(_ context.Context, status model.QuizStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, q := range s.sorted() {
		if q.Status == status {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (s *QuizStore) UpdateDetails(_ context.Context, quiz *model.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quiz.ID]
	if !ok {
		return util.ErrQuizNotFound
	}
	q.Title = quiz.Title
	q.Description = quiz.Description
	q.TimeLimit = quiz.TimeLimit
	q.Difficulty = quiz.Difficulty
	q.ShuffleQuestions = quiz.ShuffleQuestions
	q.UpdatedAt = time.Now()
	return nil
}

func applyStatus(q *model.Quiz, status model.QuizStatus, now time.Time) {
	q.Status = status
	q.UpdatedAt = now
	if status == model.QuizActive && q.StartTime == nil {
		t := now
		q.StartTime = &t
	}
	if status == model.QuizCompleted && q.EndTime == nil {
		t := now
		q.EndTime = &t
	}
}

func (s *QuizStore) UpdateStatus(_ context.Context, id string, status model.QuizStatus, now time.Time) (*model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, util.ErrQuizNotFound
	}
	applyStatus(q, status, now)
	return q.Clone(), nil
}

func (s *QuizStore) ActivateAll(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, q := range s.quizzes {
		if q.Status != model.QuizActive {
			applyStatus(q, model.QuizActive, now)
			n++
		}
	}
	return n, nil
}

func (s *QuizStore) ReplaceQuestions(_ context.Context, quizID string, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return util.ErrQuizNotFound
	}
	existing := make(map[string]model.Question, len(q.Questions))
	for _, old := range q.Questions {
		existing[old.ID] = old
	}

	now := time.Now()
	kept := make(map[string]bool, len(questions))
	next := make([]model.Question, 0, len(questions))
	for i := range questions {
		in := &questions[i]
		in.QuizID = quizID
		in.Position = i
		in.UpdatedAt = now
		if old, ok := existing[in.ID]; ok && in.ID != "" && !kept[in.ID] {
			kept[in.ID] = true
			in.CreatedAt = old.CreatedAt
		} else {
			in.ID = model.GenerateUUID()
			in.CreatedAt = now
		}
		next = append(next, *in.Clone())
	}
	q.Questions = next
	q.UpdatedAt = now
	return nil
}

func (s *QuizStore) AddQuestion(_ context.Context, question *model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[question.QuizID]
	if !ok {
		return util.ErrQuizNotFound
	}
	if question.ID == "" {
		question.ID = model.GenerateUUID()
	}
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now
	question.Position = 0
	if n := len(q.Questions); n > 0 {
		question.Position = q.Questions[n-1].Position + 1
	}
	q.Questions = append(q.Questions, *question.Clone())
	return nil
}

func (s *QuizStore) UpdateQuestion(_ context.Context, question *model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[question.QuizID]
	if !ok {
		return util.ErrQuestionNotFound
	}
	existing, ok := q.QuestionByID(question.ID)
	if !ok {
		return util.ErrQuestionNotFound
	}
	existing.QuestionText = question.QuestionText
	existing.ImageURL = question.Clone().ImageURL
	existing.Options = question.Clone().Options
	existing.CorrectOption = question.CorrectOption
	existing.Points = question.Points
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *QuizStore) DeleteQuestion(_ context.Context, quizID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return util.ErrQuestionNotFound
	}
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			q.Questions = append(q.Questions[:i], q.Questions[i+1:]...)
			return nil
		}
	}
	return util.ErrQuestionNotFound
}

func (s *QuizStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return util.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}
