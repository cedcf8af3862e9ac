package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <+|->",
		Short: "Nudge an agent's priority level up or down one rung",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := args[1]
			if direction != "+" && direction != "-" {
				return fmt.Errorf("priority direction must be + or -, got %q", direction)
			}
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				a, err := svc.AdjustPriority(id, direction, time.Now().UTC())
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
