package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/models"
	"github.com/rfenaux/ctm/internal/output"
)

func newQueueCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Rebuild and print the priority queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				st, err := svc.Queue(project, time.Now().UTC())
				if err != nil {
					return err
				}
				type resp struct {
					Queue          []models.QueueEntry `json:"queue"`
					ProjectContext string               `json:"project_context,omitempty"`
				}
				return output.PrintSuccess(resp{Queue: st.PriorityQueue, ProjectContext: st.ProjectContext})
			})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "pin the scheduler's project context before rebuilding")
	return cmd
}
