package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/deps"
	"github.com/rfenaux/ctm/internal/output"
)

// depsView is one agent's place in the dependency graph.
type depsView struct {
	ID         string   `json:"id"`
	Blockers   []string `json:"blockers,omitempty"`
	Dependents []string `json:"dependents,omitempty"`
}

func newDepsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "deps [<id>|--all]",
		Short: "Show an agent's blockers and dependents, or every high-impact blocker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				if all {
					impacts, err := svc.Deps.HighImpactBlockers(1)
					if err != nil {
						return err
					}
					type resp struct {
						HighImpactBlockers []deps.HighImpactCount `json:"high_impact_blockers"`
					}
					return output.PrintSuccess(resp{HighImpactBlockers: impacts})
				}

				if len(args) != 1 {
					return cmd.Help()
				}
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				a, err := svc.Agents.Load(id)
				if err != nil {
					return err
				}
				dependents, err := svc.Deps.FindDependents(id)
				if err != nil {
					return err
				}
				return output.PrintSuccess(depsView{ID: id, Blockers: a.Blockers, Dependents: dependents})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every agent with at least one dependent")
	return cmd
}
