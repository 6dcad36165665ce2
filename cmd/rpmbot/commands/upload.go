package commands

import (
	"github.com/spf13/cobra"
)

func newUploadCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload GROUP[:REPO] SPEC",
		Short: MsgUploadShort,
		Long:  MsgUploadLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(rt *runtime) error {
				return forEachSpec(args[1], func(spec string) error {
					return rt.wf.Upload(args[0], spec)
				})
			})
		},
	}
}
