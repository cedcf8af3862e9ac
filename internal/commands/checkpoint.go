package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint [id]",
		Short: "Snapshot every non-terminal agent (or just one), the scheduler, and the index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id := ""
				if len(args) == 1 {
					resolved, err := svc.ResolveID(args[0])
					if err != nil {
						return err
					}
					id = resolved
				}
				result, err := svc.Checkpoint(id, time.Now().UTC())
				if err != nil {
					return err
				}
				return output.PrintSuccess(result)
			})
		},
	}
}
