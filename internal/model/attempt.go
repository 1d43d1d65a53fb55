package model

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt 每支队伍在每个测验上的答题记录：题目顺序、进度和评分结果，(team_id, quiz_id) 唯一
type Attempt struct {
	UUIDBase
	TeamID        uint                              `gorm:"not null;uniqueIndex:idx_attempt_team_quiz,priority:1" json:"teamId"`
	QuizID        string                            `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempt_team_quiz,priority:2;index" json:"quizId"`
	QuestionOrder datatypes.JSONSlice[string]       `gorm:"type:json" json:"questionOrder"`
	OrderVersion  int                               `gorm:"default:0" json:"orderVersion"`
	Answers       datatypes.JSONSlice[GradedAnswer] `gorm:"type:json" json:"answers"`
	Score         int                               `gorm:"default:0" json:"score"`
	StartTime     *time.Time                        `json:"startTime"`
	Deadline      *time.Time                        `json:"deadline,omitempty"`
	SubmittedAt   *time.Time                        `gorm:"index" json:"submittedAt"`

	AttemptedQuestions []string `gorm:"-" json:"attemptedQuestions"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// HasAttempted 判断队伍是否打开过该题
func (a *Attempt) HasAttempted(questionID string) bool {
	for _, id := range a.AttemptedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

type GradedAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// AttemptView 记录队伍打开过的题目，只插入不删除，已答集合只增不减
type AttemptView struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	AttemptID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_view_attempt_question,priority:1" json:"attemptId"`
	QuestionID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_view_attempt_question,priority:2" json:"questionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (AttemptView) TableName() string {
	return "attempt_views"
}

// Submission 一次性写入答题记录的评分结果
type Submission struct {
	Answers     []GradedAnswer
	Score       int
	SubmittedAt time.Time
	// QuestionIDs 合并到已答集合
	QuestionIDs []string
}

func (a *Attempt) Clone() *Attempt {
	cp := *a
	if a.QuestionOrder != nil {
		cp.QuestionOrder = append(datatypes.JSONSlice[string]{}, a.QuestionOrder...)
	}
	if a.Answers != nil {
		cp.Answers = append(datatypes.JSONSlice[GradedAnswer]{}, a.Answers...)
	}
	if a.AttemptedQuestions != nil {
		cp.AttemptedQuestions = append([]string{}, a.AttemptedQuestions...)
	}
	cp.StartTime = cloneTime(a.StartTime)
	cp.Deadline = cloneTime(a.Deadline)
	cp.SubmittedAt = cloneTime(a.SubmittedAt)
	return &cp
}
