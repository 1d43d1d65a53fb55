package repository

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// Create 创建测验及其题目，题目位置按切片顺序
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	for i := range quiz.Questions {
		quiz.Questions[i].Position = i
	}
	err := r.DB.WithContext(ctx).Create(quiz).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrDuplicate
	}
	return util.Unavailable(err)
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Where("id = ?", id).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &quiz, nil
}

// FindActive 获取最近开始的进行中测验
func (r *QuizRepository) FindActive(ctx context.Context) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Where("status = ?", model.QuizActive).
		Order("start_time DESC, created_at DESC").
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNoActiveQuiz
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &quiz, nil
}

// List 获取所有测验（不含题目），按创建时间倒序
func (r *QuizRepository) List(ctx context.Context) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, util.Unavailable(err)
}

func (r *QuizRepository) ListIDsByStatus(ctx context.Context, status model.QuizStatus) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("status = ?", status).
		Order("created_at DESC").
		Pluck("id", &ids).Error
	return ids, util.Unavailable(err)
}

// UpdateDetails 更新测验基本信息，零值也会写入
func (r *QuizRepository) UpdateDetails(ctx context.Context, quiz *model.Quiz) error {
	res := r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]interface{}{
			"title":             quiz.Title,
			"description":       quiz.Description,
			"time_limit":        quiz.TimeLimit,
			"difficulty":        quiz.Difficulty,
			"shuffle_questions": quiz.ShuffleQuestions,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return util.Unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.mustExist(ctx, &model.Quiz{}, "id = ?", quiz.ID)
	}
	return nil
}

// mustExist 处理 RowsAffected 为 0 的情况，MySQL 在数据未变化时也会返回 0
func (r *QuizRepository) mustExist(ctx context.Context, m interface{}, query string, args ...interface{}) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(m).Where(query, args...).Count(&count).Error; err != nil {
		return util.Unavailable(err)
	}
	if count > 0 {
		return nil
	}
	if _, ok := m.(*model.Question); ok {
		return util.ErrQuestionNotFound
	}
	return util.ErrQuizNotFound
}

func statusUpdates(status model.QuizStatus, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case model.QuizActive:
		updates["start_time"] = gorm.Expr("COALESCE(start_time, ?)", now)
	case model.QuizCompleted:
		updates["end_time"] = gorm.Expr("COALESCE(end_time, ?)", now)
	}
	return updates
}

// UpdateStatus 更新测验状态，start_time 和 end_time 只在首次进入对应状态时写入
func (r *QuizRepository) UpdateStatus(ctx context.Context, id string, status model.QuizStatus, now time.Time) (*model.Quiz, error) {
	res := r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", id).
		Updates(statusUpdates(status, now))
	if res.Error != nil {
		return nil, util.Unavailable(res.Error)
	}
	return r.FindByID(ctx, id)
}

// ActivateAll 将所有未开始的测验设为进行中
func (r *QuizRepository) ActivateAll(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("status <> ?", model.QuizActive).
		Updates(statusUpdates(model.QuizActive, now))
	return res.RowsAffected, util.Unavailable(res.Error)
}

// ReplaceQuestions 整体替换题库：已属于该测验的ID原地更新，其余新建，
// 未列出的已有题目会被删除
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quizID string, questions []model.Question) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Quiz{}).Where("id = ?", quizID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrQuizNotFound
		}

		var existingIDs []string
		if err := tx.Model(&model.Question{}).Where("quiz_id = ?", quizID).Pluck("id", &existingIDs).Error; err != nil {
			return err
		}
		existing := make(map[string]bool, len(existingIDs))
		for _, id := range existingIDs {
			existing[id] = true
		}

		kept := make(map[string]bool, len(questions))
		for i := range questions {
			q := &questions[i]
			q.QuizID = quizID
			q.Position = i
			if q.ID != "" && existing[q.ID] && !kept[q.ID] {
				kept[q.ID] = true
				if err := tx.Model(&model.Question{}).
					Where("id = ? AND quiz_id = ?", q.ID, quizID).
					Updates(questionUpdates(q)).Error; err != nil {
					return err
				}
				continue
			}
			q.ID = model.GenerateUUID()
			if err := tx.Create(q).Error; err != nil {
				return err
			}
		}

		var removed []string
		for _, id := range existingIDs {
			if !kept[id] {
				removed = append(removed, id)
			}
		}
		if len(removed) > 0 {
			if err := tx.Where("id IN ?", removed).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Quiz{}).Where("id = ?", quizID).Update("updated_at", time.Now()).Error
	})
	return util.Unavailable(err)
}

func questionUpdates(q *model.Question) map[string]interface{} {
	return map[string]interface{}{
		"position":       q.Position,
		"question_text":  q.QuestionText,
		"image_url":      q.ImageURL,
		"options":        q.Options,
		"correct_option": q.CorrectOption,
		"points":         q.Points,
		"updated_at":     time.Now(),
	}
}

// AddQuestion 将题目追加到测验末尾
func (r *QuizRepository) AddQuestion(ctx context.Context, q *model.Question) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Quiz{}).Where("id = ?", q.QuizID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrQuizNotFound
		}

		var maxPos *int
		if err := tx.Model(&model.Question{}).Where("quiz_id = ?", q.QuizID).
			Select("MAX(position)").Scan(&maxPos).Error; err != nil {
			return err
		}
		q.Position = 0
		if maxPos != nil {
			q.Position = *maxPos + 1
		}
		return tx.Create(q).Error
	})
	return util.Unavailable(err)
}

// UpdateQuestion 原地修改题目，ID 和位置不变
func (r *QuizRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	updates := questionUpdates(q)
	delete(updates, "position")
	res := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id = ? AND quiz_id = ?", q.ID, q.QuizID).
		Updates(updates)
	if res.Error != nil {
		return util.Unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.mustExist(ctx, &model.Question{}, "id = ? AND quiz_id = ?", q.ID, q.QuizID)
	}
	return nil
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND quiz_id = ?", questionID, quizID).
		Delete(&model.Question{})
	if res.Error != nil {
		return util.Unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}

// Delete 删除测验及其题目
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Quiz{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrQuizNotFound
		}
		return nil
	})
	return util.Unavailable(err)
}
