package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newUnblockCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "unblock <id> [--from <id>]",
		Short: "Remove one blocker (or, with no --from, every blocker)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				fromID := ""
				if from != "" {
					resolved, err := svc.ResolveID(from)
					if err != nil {
						return err
					}
					fromID = resolved
				}
				if err := svc.Unblock(id, fromID); err != nil {
					return err
				}
				type resp struct {
					Unblocked string `json:"unblocked"`
					From      string `json:"from,omitempty"`
				}
				return output.PrintSuccess(resp{Unblocked: id, From: fromID})
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "id of the blocker to remove (default: all)")
	return cmd
}
