package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the full record for one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				a, err := svc.Agents.Load(id)
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
