package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

// deadlineView is one agent's deadline row, enriched with a human-readable
// relative time ("3 days from now") alongside the raw RFC3339 value.
type deadlineView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Deadline string `json:"deadline"`
	In       string `json:"in"`
}

func newDeadlinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadlines",
		Short: "List every non-terminal agent with a deadline, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				agents, err := svc.Deadlines()
				if err != nil {
					return err
				}
				views := make([]deadlineView, 0, len(agents))
				for _, a := range agents {
					views = append(views, deadlineView{
						ID:       a.ID,
						Title:    a.Title,
						Deadline: a.Deadline.Format("2006-01-02T15:04:05Z07:00"),
						In:       humanize.Time(*a.Deadline),
					})
				}
				type resp struct {
					Deadlines []deadlineView `json:"deadlines"`
				}
				return output.PrintSuccess(resp{Deadlines: views})
			})
		},
	}
}
