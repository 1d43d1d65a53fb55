package memory

import (
	"context"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"sort"
	"sync"
	"time"
)

type attemptKey struct {
	teamID uint
	quizID string
}

type AttemptStore struct {
	mu       sync.Mutex
	attempts map[attemptKey]*model.Attempt
	byID     map[string]*model.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[attemptKey]*model.Attempt),
		byID:     make(map[string]*model.Attempt),
	}
}

func (s *AttemptStore) Find(_ context.Context, teamID uint, quizID string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptKey{teamID, quizID}]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return a.Clone(), nil
}

func (s *AttemptStore) CreateIfAbsent(_ context.Context, attempt *model.Attempt) (*model.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{attempt.TeamID, attempt.QuizID}
	if existing, ok := s.attempts[key]; ok {
		return existing.Clone(), false, nil
	}
	if attempt.ID == "" {
		attempt.ID = model.GenerateUUID()
	}
	now := time.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	if attempt.AttemptedQuestions == nil {
		attempt.AttemptedQuestions = []string{}
	}
	stored := attempt.Clone()
	s.attempts[key] = stored
	s.byID[stored.ID] = stored
	return attempt, true, nil
}

func (s *AttemptStore) SetQuestionOrder(_ context.Context, attemptID string, expectedVersion int, order []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[attemptID]
	if !ok || a.OrderVersion != expectedVersion {
		return false, nil
	}
	a.QuestionOrder = append([]string{}, order...)
	a.OrderVersion++
	a.UpdatedAt = time.Now()
	return true, nil
}

func addView(a *model.Attempt, questionID string) {
	if questionID == "" || a.HasAttempted(questionID) {
		return
	}
	a.AttemptedQuestions = append(a.AttemptedQuestions, questionID)
}

func (s *AttemptStore) AddView(_ context.Context, attemptID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[attemptID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	addView(a, questionID)
	return nil
}

func (s *AttemptStore) Submit(_ context.Context, attemptID string, sub model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[attemptID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	if a.Submitted() {
		return util.ErrAlreadySubmitted
	}
	submittedAt := sub.SubmittedAt
	a.Answers = append(a.Answers[:0:0], sub.Answers...)
	a.Score = sub.Score
	a.SubmittedAt = &submittedAt
	if a.StartTime == nil {
		start := submittedAt
		a.StartTime = &start
	}
	for _, id := range sub.QuestionIDs {
		addView(a, id)
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (s *AttemptStore) ListByQuiz(_ context.Context, quizID string) ([]model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var attempts []model.Attempt
	for key, a := range s.attempts {
		if key.quizID == quizID {
			attempts = append(attempts, *a.Clone())
		}
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		if attempts[i].Score != attempts[j].Score {
			return attempts[i].Score > attempts[j].Score
		}
		return attempts[i].ID < attempts[j].ID
	})
	return attempts, nil
}

func (s *AttemptStore) CountByQuiz(_ context.Context, quizID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.attempts {
		if key.quizID == quizID {
			n++
		}
	}
	return n, nil
}
