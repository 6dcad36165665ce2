package commands

import (
	"github.com/spf13/cobra"
)

func newBuildCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build SPEC",
		Short: MsgBuildShort,
		Long:  MsgBuildLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(rt *runtime) error {
				return forEachSpec(args[0], rt.wf.Build)
			})
		},
	}
}
