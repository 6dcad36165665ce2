package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpmbot/rpmbot/pkg/workflow"
)

func newTestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:       "test [STEP] SPEC",
		Short:     MsgTestShort,
		Long:      MsgTestLong + "\n\nValid steps: " + strings.Join(workflow.TestSteps(), ", ") + ".",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: workflow.TestSteps(),
		RunE: func(cmd *cobra.Command, args []string) error {
			step := workflow.StepAll
			specs := args[0]
			if len(args) == 2 {
				step = args[0]
				specs = args[1]
			}
			return o.run(func(rt *runtime) error {
				return forEachSpec(specs, func(spec string) error {
					return rt.wf.Test(step, spec)
				})
			})
		},
	}
}
