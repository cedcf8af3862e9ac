package commands

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/memory"
	"github.com/rfenaux/ctm/internal/output"
)

func newStatusCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active agent, queue summary, and memory pressure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			return withService(func(svc *actions.Service) error {
				st, err := svc.Sched.Load(now)
				if err != nil {
					return err
				}

				type resp struct {
					ActiveAgent    string `json:"active_agent,omitempty"`
					QueueLength    int    `json:"queue_length"`
					ProjectContext string `json:"project_context,omitempty"`
					Switches       int    `json:"switches"`
					LastSwitchAgo  string `json:"last_switch_ago,omitempty"`
				}
				r := resp{
					ActiveAgent:    st.ActiveAgent,
					QueueLength:    len(st.PriorityQueue),
					ProjectContext: st.ProjectContext,
					Switches:       st.Session.Switches,
				}
				if st.LastSwitch != nil {
					r.LastSwitchAgo = humanize.Time(*st.LastSwitch)
				}

				if !verbose {
					return output.PrintSuccess(r)
				}

				tiersState, err := svc.Tiers.Load()
				if err != nil {
					return err
				}
				wp, err := svc.Working.Load()
				if err != nil {
					return err
				}
				l1PressureOn, l1Ratio := svc.Tiers.CheckPressure(tiersState, memory.TierActive)
				l2PressureOn, l2Ratio := svc.Tiers.CheckPressure(tiersState, memory.TierWorking)

				type verboseResp struct {
					resp
					L1Agents        int     `json:"l1_agents"`
					L1UnderPressure bool    `json:"l1_under_pressure"`
					L1Ratio         float64 `json:"l1_ratio"`
					L2Agents        int     `json:"l2_agents"`
					L2UnderPressure bool    `json:"l2_under_pressure"`
					L2Ratio         float64 `json:"l2_ratio"`
					L3Entries       int     `json:"l3_entries"`
					HotAgents       int     `json:"hot_agents"`
					TokenUsage      int     `json:"token_usage"`
				}
				return output.PrintSuccess(verboseResp{
					resp:            r,
					L1Agents:        len(tiersState.L1),
					L1UnderPressure: l1PressureOn,
					L1Ratio:         l1Ratio,
					L2Agents:        len(tiersState.L2),
					L2UnderPressure: l2PressureOn,
					L2Ratio:         l2Ratio,
					L3Entries:       len(tiersState.L3),
					HotAgents:       len(wp.HotAgents),
					TokenUsage:      wp.TokenUsage,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "include per-tier diagnostics")
	return cmd
}
