package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused or unblocked agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				a, err := svc.Resume(id, time.Now().UTC())
				if err != nil {
					return err
				}
				type resp struct {
					Agent *models.Agent `json:"agent"`
				}
				return output.PrintSuccess(resp{Agent: a})
			})
		},
	}
}
