package cli

import (
	"fmt"
	"quiz_arena_backend/internal/app"
	"quiz_arena_backend/pkg/database"
	"quiz_arena_backend/pkg/logger"

	"github.com/spf13/cobra"
)

// NewMigrateCmd 执行 MySQL 表结构迁移后退出
func NewMigrateCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			defer logger.Log.Sync()

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("nothing to migrate for the %q driver", cfg.Database.Driver)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db)
		},
	}
}
