package commands

import (
	"github.com/spf13/cobra"

	"github.com/rfenaux/ctm/internal/actions"
	"github.com/rfenaux/ctm/internal/output"
)

func newBlockCmd() *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "block <id> --by <id>",
		Short: "Block an agent on another",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *actions.Service) error {
				id, err := svc.ResolveID(args[0])
				if err != nil {
					return err
				}
				blockerID, err := svc.ResolveID(by)
				if err != nil {
					return err
				}
				if err := svc.Block(id, blockerID); err != nil {
					return err
				}
				type resp struct {
					Blocked string `json:"blocked"`
					By      string `json:"by"`
				}
				return output.PrintSuccess(resp{Blocked: id, By: blockerID})
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "id of the blocking agent (required)")
	cmd.MarkFlagRequired("by")
	return cmd
}
