package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newSpawnCmd() *cobra.Command {
	var goal, project, priorityLevel, source, deadline string
	var tags, triggers, blockedBy []string

	cmd := &cobra.Command{
		Use:   "spawn <title>",
		Short: "Create a new agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			return withService(func(svc *actions.Service) error {
				opts := actions.SpawnOptions{
					Goal:       goal,
					Project:    project,
					Priority:   models.Priority(priorityLevel),
					Tags:       tags,
					Triggers:   triggers,
					BlockedBy:  blockedBy,
					SourceType: source,
				}
				if deadline != "" {
					d, err := parseDeadline(deadline, now)
					if err != nil {
						return err
					}
					opts.Deadline = &d
				}

				a, err := svc.Spawn(args[0], opts, now)
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

	cmd.Flags().StringVar(&goal, "goal", "", "goal description")
	cmd.Flags().StringVar(&project, "project", "", "owning project path")
	cmd.Flags().StringVar(&priorityLevel, "priority", "normal", "priority level (critical|high|normal|low|background)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().StringSliceVar(&triggers, "triggers", nil, "comma-separated switch-suggestion phrases")
	cmd.Flags().StringSliceVar(&blockedBy, "blocked-by", nil, "ids this agent is blocked by")
	cmd.Flags().StringVar(&source, "source", "cli", "provenance source type")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline: YYYY-MM-DD, YYYY-MM-DDTHH:MM, or +Nh/+Nd/+Nw/+Nm")
	return cmd
}
