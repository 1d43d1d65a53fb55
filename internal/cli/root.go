package cli

import (
	"os"
	"path/filepath"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var configDir string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("QUIZ_ARENA_CONFIG_DIR")
	if envConfig == "" {
		envConfig = "configs"
	}

	cmd := &cobra.Command{
		Use:           "quiz-arena",
		Short:         "Timed multiple-choice quiz backend for team competitions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", envConfig, "directory holding config.yaml")
	cmd.AddCommand(NewServeCmd(&configDir))
	cmd.AddCommand(NewMigrateCmd(&configDir))
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewAdminCmd(&configDir))
	cmd.AddCommand(NewQuizCmd(&configDir))
	return cmd
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	logger.InitLogger(cfg)
	return cfg, nil
}

func configFile(dir string) string {
	return filepath.Join(dir, "config.yaml")
}
