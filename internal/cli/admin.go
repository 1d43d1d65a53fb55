package cli

import (
	"bufio"
	"fmt"
	"os"
	"quiz_arena_backend/internal/app"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/pkg/logger"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewHashPasswordCmd 输出 bcrypt 哈希，用于手动初始化管理员
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (reads stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password is empty")
			}

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func NewAdminCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(configDir))
	return cmd
}

func newAdminCreateCmd(configDir *string) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("QUIZ_ARENA_ADMIN_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or QUIZ_ARENA_ADMIN_PASSWORD) are required")
			}

			application, err := openPersistentApp(*configDir)
			if err != nil {
				return err
			}
			defer application.Close()

			admin, err := application.Services.Auth.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			logger.Log.Info("Admin created", zap.Uint("id", admin.ID), zap.String("email", admin.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "admin %d created for %s\n", admin.ID, admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	return cmd
}

// openPersistentApp 基于 MySQL 初始化服务，写数据的命令不支持内存驱动
func openPersistentApp(configDir string) (*app.App, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return nil, fmt.Errorf("this command needs a persistent database, driver is %q", cfg.Database.Driver)
	}
	return app.NewApp(cfg)
}
