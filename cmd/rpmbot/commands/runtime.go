package commands

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/rpmbot/rpmbot/pkg/config"
	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/pipeline"
	"github.com/rpmbot/rpmbot/pkg/rpm"
	"github.com/rpmbot/rpmbot/pkg/shell"
	"github.com/rpmbot/rpmbot/pkg/spec"
	"github.com/rpmbot/rpmbot/pkg/workflow"
)

// mainIniName is the user-global configuration file in $HOME.
const mainIniName = "rpmbot.ini"

// runtime is the bootstrapped state one verb executes against.
type runtime struct {
	wf  *workflow.Workflow
	out *pipeline.Output

	// logFile is the bot's own run log, nil when stdout is already
	// redirected to a file and serves as the run log itself.
	logFile *os.File
	start   time.Time
}

// run bootstraps a runtime, executes fn and closes the run log with the
// outcome frame. All verbs funnel through here so every run, failed or
// not, leaves a framed record.
func (o *options) run(fn func(rt *runtime) error) error {
	rt, err := newRuntime(o)
	if err != nil {
		return err
	}
	return rt.finish(fn(rt))
}

func newRuntime(o *options) (*runtime, error) {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return nil, errors.New(errors.ErrConfig, "cannot determine user name of this build machine")
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return nil, errors.New(errors.ErrConfig, "cannot determine host name of this build machine")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "cannot locate home directory")
	}

	macros := rpm.NewMacroCache("")
	cfg := config.New(macros, &shell.Runner{})
	if err := cfg.LoadFile(filepath.Join(home, mainIniName)); err != nil {
		return nil, err
	}

	specDirs, err := spec.ParseDirs(cfg)
	if err != nil {
		return nil, err
	}

	// Also the availability check for the rpmbuild executable.
	if err := macros.Preload(paths.IsDir); err != nil {
		return nil, err
	}
	topdir, err := macros.Eval("_topdir")
	if err != nil {
		return nil, err
	}
	layout := paths.NewLayout(topdir)
	for _, d := range layout.InitDirs() {
		if err := paths.EnsureDir(d); err != nil {
			return nil, err
		}
	}

	rt := &runtime{
		out:   &pipeline.Output{Console: os.Stdout, EchoConsole: o.logConsole},
		start: time.Now(),
	}

	// With stdout at a terminal the run log goes to its own file; when
	// stdout is redirected, it already is the log.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		logPath := layout.RunLogPath()
		if err := paths.RotateLog(logPath); err != nil {
			return nil, err
		}
		f, err := os.Create(logPath)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrIO, "cannot create run log `%s`", logPath)
		}
		rt.logFile = f
		rt.out.RunLog = f
	} else {
		rt.out.RunLog = os.Stdout
	}

	fmt.Fprintf(rt.out.RunLog, "[%s, %s]\n",
		rt.start.Format(pipeline.DateTimeFormat), strings.Join(os.Args, " "))

	rt.wf = workflow.New(cfg, specDirs, layout, macros, rt.out)
	rt.wf.Force = o.force
	rt.wf.BuildUser = u.Username + "@" + host
	return rt, nil
}

// finish writes the run's closing frame and status line and passes err
// through unchanged.
func (rt *runtime) finish(err error) error {
	end := time.Now()
	elapsed := fmt.Sprintf("%.3f", end.Sub(rt.start).Seconds())
	rc := errors.ExitCode(err)

	if rt.logFile != nil {
		status := "Succeeded"
		if rc != 0 {
			status = fmt.Sprintf("Failed with exit code %d", rc)
		}
		fmt.Fprintf(os.Stdout, "%s (%s s).\n", status, elapsed)
	}

	fmt.Fprintf(rt.out.RunLog, "[%s, exit code %d, %s s]\n\n",
		end.Format(pipeline.DateTimeFormat), rc, elapsed)

	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
	return err
}
