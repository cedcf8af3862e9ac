package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newListCmd() *cobra.Command {
	var all bool
	var statusFilter string
	var projectFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents, optionally filtered by status or project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				var ids []string
				var err error

				switch {
				case statusFilter != "":
					ids, err = svc.Index.GetByStatus(models.Status(statusFilter))
				case projectFilter != "":
					ids, err = svc.Index.GetByProject(projectFilter)
				case all:
					ids, err = svc.Agents.ListIDs()
				default:
					ids, err = svc.Index.GetAllActive()
				}
				if err != nil {
					return err
				}

				summaries, err := summariesFor(svc, ids)
				if err != nil {
					return err
				}

				type resp struct {
					Agents []models.AgentSummary `json:"agents"`
				}
				return output.PrintSuccess(resp{Agents: summaries})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include completed/cancelled agents")
	cmd.Flags().StringVar(&statusFilter, "status", "", "filter by status")
	cmd.Flags().StringVar(&projectFilter, "project", "", "filter by project")
	return cmd
}

func summariesFor(svc *actions.Service, ids []string) ([]models.AgentSummary, error) {
	var out []models.AgentSummary
	for _, id := range ids {
		info, ok, err := svc.Index.GetInfo(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info)
		}
	}
	return out, nil
}
