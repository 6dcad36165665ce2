package commands

import (
	"github.com/spf13/cobra"
)

func newMoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "move GROUP[:REPO[:FROM]] SPEC",
		Short: MsgMoveShort,
		Long:  MsgMoveLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(rt *runtime) error {
				return forEachSpec(args[1], func(spec string) error {
					return rt.wf.Move(args[0], spec)
				})
			})
		},
	}
}
