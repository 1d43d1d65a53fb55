package repository

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"

	"gorm.io/gorm"
)

type TeamRepository struct {
	DB *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{DB: db}
}

// Create 创建队伍，email 和 student_id 的唯一索引决定并发注册的结果
func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	err := r.DB.WithContext(ctx).Create(team).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrDuplicate
	}
	return util.Unavailable(err)
}

func (r *TeamRepository) FindByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	err := r.DB.WithContext(ctx).First(&team, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTeamNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &team, nil
}

func (r *TeamRepository) FindByEmail(ctx context.Context, email string) (*model.Team, error) {
	var team model.Team
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTeamNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &team, nil
}

func (r *TeamRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *TeamRepository) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	return r.exists(ctx, "student_id = ?", studentID)
}

func (r *TeamRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Team{}).Where(query, arg).Count(&count).Error
	if err != nil {
		return false, util.Unavailable(err)
	}
	return count > 0, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&teams).Error
	return teams, util.Unavailable(err)
}

// FindByIDs 按ID批量获取队伍
func (r *TeamRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Team, error) {
	result := make(map[uint]model.Team, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var teams []model.Team
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, util.Unavailable(err)
	}
	for _, t := range teams {
		result[t.ID] = t
	}
	return result, nil
}
