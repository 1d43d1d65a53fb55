package repository

import (
	"context"
	"errors"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/internal/util"

	"gorm.io/gorm"
)

type AdminRepository struct {
	DB *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{DB: db}
}

func (r *AdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	err := r.DB.WithContext(ctx).Create(admin).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrEmailRegistered
	}
	return util.Unavailable(err)
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAdminNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &admin, nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id uint) (*model.Admin, error) {
	var admin model.Admin
	err := r.DB.WithContext(ctx).First(&admin, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAdminNotFound
	}
	if err != nil {
		return nil, util.Unavailable(err)
	}
	return &admin, nil
}
