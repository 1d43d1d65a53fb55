package model

import (
	"time"

	"gorm.io/datatypes"
)

type QuizStatus string

const (
	QuizPending   QuizStatus = "pending"
	QuizActive    QuizStatus = "active"
	QuizCompleted QuizStatus = "completed"
)

func (s QuizStatus) Valid() bool {
	switch s {
	case QuizPending, QuizActive, QuizCompleted:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	DefaultQuizTitle = "Main Quiz"
	DefaultPoints    = 1
)

type Quiz struct {
	UUIDBase
	QuizCode         *string    `gorm:"size:64;uniqueIndex" json:"code,omitempty"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	TimeLimit        int        `gorm:"default:0" json:"timeLimit"` // minutes, 0 = unlimited
	Difficulty       Difficulty `gorm:"size:16;default:'medium'" json:"difficulty"`
	Status           QuizStatus `gorm:"size:16;default:'pending';index" json:"status"`
	ShuffleQuestions bool       `gorm:"default:false" json:"shuffleQuestions"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	Questions        []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionIDs 按录入顺序返回题目ID
func (q *Quiz) QuestionIDs() []string {
	ids := make([]string, len(q.Questions))
	for i := range q.Questions {
		ids[i] = q.Questions[i].ID
	}
	return ids
}

// QuestionByID 根据ID查找题目
func (q *Quiz) QuestionByID(id string) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// TotalPoints 测验总分
func (q *Quiz) TotalPoints() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].PointValue()
	}
	return total
}

// ResetDetails 将基本信息恢复默认值，状态、开始结束时间和题库不变
func (q *Quiz) ResetDetails() {
	q.Title = DefaultQuizTitle
	q.Description = ""
	q.TimeLimit = 0
	q.Difficulty = DifficultyMedium
	q.ShuffleQuestions = false
}

type Question struct {
	UUIDBase
	QuizID        string                      `gorm:"index;type:varchar(36);not null" json:"quizId"`
	Position      int                         `gorm:"default:0" json:"position"`
	QuestionText  string                      `gorm:"type:text;not null" json:"questionText"`
	ImageURL      *string                     `gorm:"size:512" json:"imageUrl"`
	Options       datatypes.JSONSlice[string] `gorm:"type:json" json:"options"`
	CorrectOption int                         `gorm:"not null" json:"correctOption"`
	Points        int                         `gorm:"default:1" json:"points"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) PointValue() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// Clone 深拷贝，不与 q 共享切片
func (q *Quiz) Clone() *Quiz {
	cp := *q
	if q.QuizCode != nil {
		code := *q.QuizCode
		cp.QuizCode = &code
	}
	cp.StartTime = cloneTime(q.StartTime)
	cp.EndTime = cloneTime(q.EndTime)
	if q.Questions != nil {
		cp.Questions = make([]Question, len(q.Questions))
		for i := range q.Questions {
			cp.Questions[i] = *q.Questions[i].Clone()
		}
	}
	return &cp
}

func (q *Question) Clone() *Question {
	cp := *q
	if q.ImageURL != nil {
		url := *q.ImageURL
		cp.ImageURL = &url
	}
	if q.Options != nil {
		cp.Options = append(datatypes.JSONSlice[string]{}, q.Options...)
	}
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
