package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newDeadlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadline <id> <date|clear>",
		Short: "Set or clear an agent's deadline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			raw := args[1]

			var deadline *time.Time
			if raw != "clear" {
				parsed, err := parseDeadline(raw, now)
				if err != nil {
					return err
				}
				deadline = &parsed
			}

			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				a, err := svc.SetDeadline(id, deadline, now)
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
