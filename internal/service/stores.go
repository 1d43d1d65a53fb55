package service

import (
	"context"
	"quiz_arena_backend/internal/model"
	"time"
)

// 以下接口由 gorm 仓库和 repository/memory 中的内存实现提供。
// 查询不到记录时返回 util 中对应的错误，持久化失败返回 Unavailable

type TeamStore interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id uint) (*model.Team, error)
	FindByEmail(ctx context.Context, email string) (*model.Team, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
	List(ctx context.Context) ([]model.Team, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Team, error)
}

type AdminStore interface {
	Create(ctx context.Context, admin *model.Admin) error
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	FindByID(ctx context.Context, id uint) (*model.Admin, error)
}

type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	FindByID(ctx context.Context, id string) (*model.Quiz, error)
	FindActive(ctx context.Context) (*model.Quiz, error)
	List(ctx context.Context) ([]model.Quiz, error)
	ListIDsByStatus(ctx context.Context, status model.QuizStatus) ([]string, error)
	UpdateDetails(ctx context.Context, quiz *model.Quiz) error
	UpdateStatus(ctx context.Context, id string, status model.QuizStatus, now time.Time) (*model.Quiz, error)
	ActivateAll(ctx context.Context, now time.Time) (int64, error)
	ReplaceQuestions(ctx context.Context, quizID string, questions []model.Question) error
	AddQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, q *model.Question) error
	DeleteQuestion(ctx context.Context, quizID, questionID string) error
	Delete(ctx context.Context, id string) error
}

type AttemptStore interface {
	Find(ctx context.Context, teamID uint, quizID string) (*model.Attempt, error)
	CreateIfAbsent(ctx context.Context, attempt *model.Attempt) (*model.Attempt, bool, error)
	SetQuestionOrder(ctx context.Context, attemptID string, expectedVersion int, order []string) (bool, error)
	AddView(ctx context.Context, attemptID, questionID string) error
	Submit(ctx context.Context, attemptID string, sub model.Submission) error
	ListByQuiz(ctx context.Context, quizID string) ([]model.Attempt, error)
	CountByQuiz(ctx context.Context, quizID string) (int64, error)
}

// ReportCache 缓存序列化后的报告，未命中时 Get 返回 nil, nil
type ReportCache interface {
	Get(ctx context.Context, quizID string) ([]byte, error)
	Set(ctx context.Context, quizID string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, quizID string) error
}

type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
