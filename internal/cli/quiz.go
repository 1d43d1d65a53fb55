package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"quiz_arena_backend/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewQuizCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage quizzes from the command line",
	}
	cmd.AddCommand(newQuizActivateAllCmd(configDir))
	cmd.AddCommand(newQuizImportCmd(configDir))
	return cmd
}

func newQuizActivateAllCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "activate-all",
		Short: "Mark every quiz active, stamping start times that are still unset",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openPersistentApp(*configDir)
			if err != nil {
				return err
			}
			defer application.Close()

			n, err := application.Services.QuizAdmin.ActivateAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d quizzes activated\n", n)
			return nil
		},
	}
}

func newQuizImportCmd(configDir *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create quizzes from a YAML file, one document per quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			inputs, err := DecodeQuizzes(f)
			if err != nil {
				return err
			}

			application, err := openPersistentApp(*configDir)
			if err != nil {
				return err
			}
			defer application.Close()

			for i, in := range inputs {
				quiz, err := application.Services.QuizAdmin.CreateQuiz(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("quiz #%d (%s): %w", i+1, in.Title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s %q with %d questions\n", quiz.ID, quiz.Title, len(quiz.Questions))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// DecodeQuizzes 将 r 中的每个 YAML 文档解析为测验定义
func DecodeQuizzes(r io.Reader) ([]service.CreateQuizInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var out []service.CreateQuizInput
	for {
		var in service.CreateQuizInput
		err := dec.Decode(&in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out)+1, err)
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out)+1, err)
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, errors.New("no quizzes found")
	}
	return out, nil
}
