// Package commands wires the rpmbot command tree and the per-run
// bootstrap: configuration loading, rpm macro preloading, the build area
// layout and the framed run log.
package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpmbot/rpmbot/internal/version"
	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/logging"
)

// options carries the global flags into the verb commands.
type options struct {
	verbosity  int
	logConsole bool
	force      bool
}

// Main executes the command tree and maps the outcome to the process exit
// code contract: 0 ok, 1 configuration, 2 I/O, 101 general, 102 command
// execution, 127 internal.
func Main(args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		reportError(err)
		return errors.ExitCode(err)
	}
	return 0
}

func reportError(err error) {
	pterm.Error.Println(err.Error())

	if hint := errors.GetHint(err); hint != "" {
		pterm.Println(pterm.LightYellow("HINT: " + hint))
	} else if errors.IsErrorCode(err, errors.ErrConfig) {
		pterm.Println(pterm.LightYellow("HINT: check `~/" + mainIniName + "` or spec-specific INI files"))
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:     "rpmbot",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(o.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&o.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().BoolVarP(&o.logConsole, "log-console", "l", false, MsgFlagLogConsole)
	rootCmd.PersistentFlags().BoolVarP(&o.force, "force", "f", false, MsgFlagForce)

	rootCmd.AddCommand(
		newBuildCmd(o),
		newTestCmd(o),
		newUploadCmd(o),
		newMoveCmd(o),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rpmbot version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}

// forEachSpec runs fn for every spec of a comma-separated list, strictly in
// order, stopping at the first failure.
func forEachSpec(list string, fn func(spec string) error) error {
	for _, s := range strings.Split(list, ",") {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}
