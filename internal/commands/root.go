package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/app"
	"github.com/rfenaux/ctm/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := &cobra.Command{
		Use:           "ctm",
		Short:         "Cognitive task manager: agent continuity, priority scheduling, tiered memory",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rootOverride, err := cmd.Flags().GetString("root"); err == nil && rootOverride != "" {
				app.SetRootOverride(rootOverride)
			}
			return app.EnsureRootDir()
		},
	}

	root.PersistentFlags().String("root", "", "Override the on-disk store root")
	root.Flags().BoolP("version", "v", false, "version for ctm")

	root.AddCommand(newStatusCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newSpawnCmd())
	root.AddCommand(newSwitchCmd())
	root.AddCommand(newPauseCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newCompleteCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newPriorityCmd())
	root.AddCommand(newDeadlineCmd())
	root.AddCommand(newDeadlinesCmd())
	root.AddCommand(newBlockCmd())
	root.AddCommand(newUnblockCmd())
	root.AddCommand(newDepsCmd())
	root.AddCommand(newQueueCmd())
	root.AddCommand(newCheckpointCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newRepairCmd())

	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Default().Error("command failed", "error", err.Error())
		}
	}
	return err
}
