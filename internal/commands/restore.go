package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [name]",
		Short: "Restore the agents/scheduler/index from a checkpoint (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				if err := svc.Restore(name); err != nil {
					return err
				}
				type resp struct {
					Restored string `json:"restored"`
				}
				if name == "" {
					name = "latest"
				}
				return output.PrintSuccess(resp{Restored: name})
			})
		},
	}
}
