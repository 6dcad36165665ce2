package pipeline

import (
	"fmt"
	"os"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// DateTimeFormat is the timestamp format of log frames and the run log.
const DateTimeFormat = "2006-01-02 15:04:05"

// frame writes one bracketed log record.
func frame(f *os.File, fields ...string) {
	_, _ = fmt.Fprintf(f, "[%s]\n", strings.Join(fields, ", "))
}

func elapsedSeconds(start, end time.Time) string {
	return fmt.Sprintf("%.3f s", end.Sub(start).Seconds())
}

// RunLogged runs a pipeline with its merged output fully redirected into the
// named log file. A bracketed start record (timestamp and full command line)
// is written before and an end record (timestamp, status, elapsed time)
// after, regardless of outcome. On failure the returned error names the log
// file so the caller can point the user at it.
func (r *Runner) RunLogged(logFile string, commands [][]string, pattern *regexp.Regexp) ([]string, error) {
	f, err := os.Create(logFile)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot create log file `%s`", logFile)
	}
	defer func() { _ = f.Close() }()

	cmdlines := make([]string, len(commands))
	for i, argv := range commands {
		cmdlines[i] = strings.Join(argv, " ")
	}

	start := time.Now()
	frame(f, start.Format(DateTimeFormat), strings.Join(cmdlines, " | "))

	lines, runErr := r.Run(commands, pattern, f)

	status := "exit code 0"
	if runErr != nil {
		status = runErr.Error()
		if botErr, ok := runErr.(*errors.RpmbotError); ok {
			status = botErr.Message
		}
	}

	end := time.Now()
	frame(f, end.Format(DateTimeFormat), status, elapsedSeconds(start, end))

	if runErr != nil {
		cmd, _ := errors.GetDetail(runErr, "command").(string)
		return lines, errors.Newf(errors.ErrRun,
			"the following command failed with %s:\n  %s", status, cmd).
			WithDetail("command", cmd).
			WithDetail("log", logFile).
			WithHint(fmt.Sprintf("inspect `%s` for more info", logFile))
	}
	return lines, nil
}

// RunLoggedSingle is a shortcut to RunLogged for one command.
func (r *Runner) RunLoggedSingle(logFile string, command []string, pattern *regexp.Regexp) ([]string, error) {
	return r.RunLogged(logFile, [][]string{command}, pattern)
}

// FuncLogged applies the same start/end framing around an internal operation
// so its diagnostics land in the same log format as external commands. All
// Output.Log calls and all commands run without an explicit sink are
// redirected into the log file for the duration. An unexpected panic is
// recorded with its stack trace before being re-raised as an error.
func (r *Runner) FuncLogged(logFile, name string, fn func() error) (err error) {
	f, ferr := os.Create(logFile)
	if ferr != nil {
		return errors.Wrapf(ferr, errors.ErrIO, "cannot create log file `%s`", logFile)
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	frame(f, start.Format(DateTimeFormat), "internal: "+name)

	prev := r.Output.pushRedirect(f)

	defer func() {
		r.Output.popRedirect(prev)

		status := "exit code 0"
		if p := recover(); p != nil {
			_, _ = fmt.Fprintf(f, "unexpected panic: %v\n%s", p, debug.Stack())
			err = errors.Newf(errors.ErrInternal, "unexpected panic in %s: %v", name, p)
			status = "panic"
		} else if err != nil {
			_, _ = fmt.Fprintf(f, "%s\n", err.Error())
			status = "failed"
		}

		end := time.Now()
		frame(f, end.Format(DateTimeFormat), status, elapsedSeconds(start, end))

		if err != nil {
			err = errors.Wrapf(err, errors.GetErrorCode(err), "operation %s failed", name).
				WithDetail("log", logFile).
				WithHint(fmt.Sprintf("inspect `%s` for more info", logFile))
		}
	}()

	err = fn()
	return err
}
