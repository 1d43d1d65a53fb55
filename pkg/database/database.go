package database

import (
	"fmt"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/model"
	applog "quiz_arena_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
}

// InitDB 初始化 MySQL 连接，TranslateError 将唯一索引冲突转换为 gorm.ErrDuplicatedKey，
// 答题记录的并发创建依赖于此
func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logMode := logger.Warn
	if debug {
		logMode = logger.Info
	}

	db, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 自动迁移所有表
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Team{},
		&model.Admin{},
		&model.Quiz{},
		&model.Question{},
		&model.Attempt{},
		&model.AttemptView{},
	)
	if err != nil {
		return err
	}

	applog.Log.Info("Database migration completed")
	return nil
}
