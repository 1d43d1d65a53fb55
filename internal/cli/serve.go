package cli

import (
	"quiz_arena_backend/internal/app"
	"quiz_arena_backend/pkg/configwatcher"
	"quiz_arena_backend/pkg/logger"

	"github.com/spf13/cobra"
)

// NewServeCmd 启动 HTTP 服务
func NewServeCmd(configDir *string) *cobra.Command {
	var port string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			defer logger.Log.Sync()

			if port != "" {
				cfg.Server.Port = port
			}

			application, err := app.NewApp(cfg)
			if err != nil {
				return err
			}

			file := ""
			if watch {
				file = configFile(*configDir)
			}
			return application.Run(file, configwatcher.WatchConfig)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on, overrides server.port")
	cmd.Flags().BoolVar(&watch, "watch-config", true, "reload the quiz section when config.yaml changes")
	return cmd
}
