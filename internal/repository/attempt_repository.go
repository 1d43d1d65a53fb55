package repository

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Find 获取队伍在测验上的答题记录，并加载已答集合
func (r *AttemptRepository) Find(ctx context.Context, teamID uint, quizID string) (*model.Attempt, error) {
	db := r.DB.WithContext(ctx)
	var attempt model.Attempt
	err := db.Where("team_id = ? AND quiz_id = ?", teamID, quizID).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	if err := loadViews(db, []*model.Attempt{&attempt}); err != nil {
		return nil, util.Unavailable(err)
	}
	return &attempt, nil
}

// CreateIfAbsent 队伍尚无记录时插入；并发插入导致唯一键冲突时返回胜出的那一行，
// bool 表示是否由本次插入
func (r *AttemptRepository) CreateIfAbsent(ctx context.Context, attempt *model.Attempt) (*model.Attempt, bool, error) {
	err := r.DB.WithContext(ctx).Create(attempt).Error
	if err == nil {
		attempt.AttemptedQuestions = []string{}
		return attempt, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, util.Unavailable(err)
	}
	existing, err := r.Find(ctx, attempt.TeamID, attempt.QuizID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SetQuestionOrder 版本号仍为 expectedVersion 时替换题目顺序，被其他写入抢先时返回 false
func (r *AttemptRepository) SetQuestionOrder(ctx context.Context, attemptID string, expectedVersion int, order []string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND order_version = ?", attemptID, expectedVersion).
		Updates(map[string]interface{}{
			"question_order": datatypes.JSONSlice[string](order),
			"order_version":  gorm.Expr("order_version + 1"),
		})
	if res.Error != nil {
		return false, util.Unavailable(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *AttemptRepository) AddView(ctx context.Context, attemptID, questionID string) error {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.AttemptView{AttemptID: attemptID, QuestionID: questionID}).Error
	return util.Unavailable(err)
}

// Submit 只评分一次，submitted_at 上的条件更新决定并发提交的胜者
func (r *AttemptRepository) Submit(ctx context.Context, attemptID string, sub model.Submission) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND submitted_at IS NULL", attemptID).
			Updates(map[string]interface{}{
				"answers":      datatypes.JSONSlice[model.GradedAnswer](sub.Answers),
				"score":        sub.Score,
				"submitted_at": sub.SubmittedAt,
				"start_time":   gorm.Expr("COALESCE(start_time, ?)", sub.SubmittedAt),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrAlreadySubmitted
		}

		if len(sub.QuestionIDs) == 0 {
			return nil
		}
		views := make([]model.AttemptView, 0, len(sub.QuestionIDs))
		seen := make(map[string]bool, len(sub.QuestionIDs))
		for _, id := range sub.QuestionIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			views = append(views, model.AttemptView{AttemptID: attemptID, QuestionID: id})
		}
		if len(views) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&views).Error
	})
	return util.Unavailable(err)
}

// ListByQuiz 获取测验的全部答题记录，按成绩排序
func (r *AttemptRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.Attempt, error) {
	db := r.DB.WithContext(ctx)
	var attempts []model.Attempt
	if err := db.Where("quiz_id = ?", quizID).Order("score DESC, submitted_at ASC").Find(&attempts).Error; err != nil {
		return nil, util.Unavailable(err)
	}
	ptrs := make([]*model.Attempt, len(attempts))
	for i := range attempts {
		ptrs[i] = &attempts[i]
	}
	if err := loadViews(db, ptrs); err != nil {
		return nil, util.Unavailable(err)
	}
	return attempts, nil
}

func (r *AttemptRepository) CountByQuiz(ctx context.Context, quizID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, util.Unavailable(err)
}

func loadViews(db *gorm.DB, attempts []*model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	byID := make(map[string]*model.Attempt, len(attempts))
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		a.AttemptedQuestions = []string{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	var views []model.AttemptView
	if err := db.Where("attempt_id IN ?", ids).Order("id ASC").Find(&views).Error; err != nil {
		return err
	}
	for _, v := range views {
		if a, ok := byID[v.AttemptID]; ok {
			a.AttemptedQuestions = append(a.AttemptedQuestions, v.QuestionID)
		}
	}
	return nil
}
