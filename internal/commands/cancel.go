package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Mark an agent cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				if err := svc.Cancel(id, time.Now().UTC()); err != nil {
					return err
				}
				type resp struct {
					Cancelled string `json:"cancelled"`
				}
				return output.PrintSuccess(resp{Cancelled: id})
			})
		},
	}
}
