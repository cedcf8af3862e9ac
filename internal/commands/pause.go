package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [id]",
		Short: "Pause the active agent, or a specific one",
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
				if err := svc.Pause(id, time.Now().UTC()); err != nil {
					return err
				}
				type resp struct {
					Paused string `json:"paused,omitempty"`
				}
				return output.PrintSuccess(resp{Paused: id})
			})
		},
	}
}
