package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newCompleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "complete [id]",
		Short: "Mark an agent (default: the active one) completed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				now := time.Now().UTC()
				id := ""
				if len(args) == 1 {
					resolved, err := svc.ResolveID(args[0])
					if err != nil {
						return err
					}
					id = resolved
				} else {
					st, err := svc.Sched.Load(now)
					if err != nil {
						return err
					}
					id = st.ActiveAgent
				}
				if id == "" {
					return fmt.Errorf("no active agent and no id given")
				}
				if err := svc.Complete(id, force, now); err != nil {
					return err
				}
				type resp struct {
					Completed string `json:"completed"`
				}
				return output.PrintSuccess(resp{Completed: id})
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "has no effect: complete always succeeds and sets progress to 100%")
	return cmd
}
