package pipeline

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// Runner executes commands within one run's output context.
type Runner struct {
	Output *Output

	// Dir, when set, is the working directory of every started command.
	Dir string
}

// NewRunner creates a runner bound to the given output context.
func NewRunner(out *Output) *Runner {
	return &Runner{Output: out}
}

// Run executes one command, or several chained by pipes, and returns the
// lines of merged output matched by pattern (the first capture group when
// the pattern has one, the full match otherwise), in order of appearance.
//
// Every stage's stderr is merged into the same destination as the final
// stage's stdout, so any stage's diagnostics reach the log. When no sink is
// given, the current redirection target of the Output is used; if that is
// nil too, output is captured and discarded (matching still applies).
//
// Failure is decided by the last stage alone: a broken intermediate stage
// that still yields correct final output does not abort the run. This
// mirrors a long-standing defect in one of the chained unpack tools and is
// deliberately load-bearing; see the pipeline tests.
func (r *Runner) Run(commands [][]string, pattern *regexp.Regexp, sink io.Writer) ([]string, error) {
	if len(commands) == 0 {
		return nil, errors.New(errors.ErrInternal, "empty command pipeline")
	}

	if sink == nil {
		sink = r.Output.Redirect()
	}

	duplicate := r.Output.EchoConsole &&
		r.Output.RunLog != r.Output.Console &&
		sink != r.Output.Console

	// A pipe of our own is needed whenever lines must be inspected or
	// teed. It is also needed when several stages share a sink that is
	// not a real file: their merged stderr must be serialized by the
	// kernel, not by interleaved in-process writes.
	_, sinkIsFile := sink.(*os.File)
	capture := duplicate || pattern != nil || sink == nil ||
		(len(commands) > 1 && !sinkIsFile)

	cmds := make([]*exec.Cmd, len(commands))
	for i, argv := range commands {
		if len(argv) == 0 {
			return nil, errors.New(errors.ErrInternal, "empty command in pipeline")
		}
		cmds[i] = exec.Command(argv[0], argv[1:]...)
		cmds[i].Dir = r.Dir
	}

	var captureEnd *os.File // read end of the merged stream, when capturing
	var closeAfterStart []*os.File

	// merged is where every stage's stderr and the last stage's stdout go.
	var merged io.Writer = sink
	if capture {
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrIO, "cannot create pipe")
		}
		captureEnd = pr
		merged = pw
		closeAfterStart = append(closeAfterStart, pw)
	}

	for i, cmd := range cmds {
		cmd.Stderr = merged
		if i == len(cmds)-1 {
			cmd.Stdout = merged
		} else {
			pr, pw, err := os.Pipe()
			if err != nil {
				closeAll(closeAfterStart)
				if captureEnd != nil {
					_ = captureEnd.Close()
				}
				return nil, errors.Wrap(err, errors.ErrIO, "cannot create pipe")
			}
			cmd.Stdout = pw
			cmds[i+1].Stdin = pr
			closeAfterStart = append(closeAfterStart, pw, pr)
		}
	}

	started := 0
	for _, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			closeAll(closeAfterStart)
			if captureEnd != nil {
				_ = captureEnd.Close()
			}
			for _, c := range cmds[:started] {
				_ = c.Wait()
			}
			return nil, errors.Wrapf(err, errors.ErrRun, "cannot start `%s`", cmd.Path).
				WithDetail("command", strings.Join(cmd.Args, " "))
		}
		started++
	}

	// The children hold their own copies of every pipe end now.
	closeAll(closeAfterStart)

	var lines []string
	var scanErr error
	if capture {
		scanner := bufio.NewScanner(captureEnd)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if pattern != nil {
				if m := pattern.FindStringSubmatch(line); m != nil {
					if len(m) > 1 {
						lines = append(lines, m[1])
					} else {
						lines = append(lines, m[0])
					}
				}
			}
			if duplicate {
				_, _ = io.WriteString(r.Output.Console, line+"\n")
			}
			if sink != nil {
				_, _ = io.WriteString(sink, line+"\n")
			}
		}
		scanErr = scanner.Err()
		_ = captureEnd.Close()
	}

	// Wait for every stage; only the last one's status is authoritative.
	var lastErr error
	for i, cmd := range cmds {
		err := cmd.Wait()
		if i == len(cmds)-1 {
			lastErr = err
		}
	}

	// A scan failure stops capture mid-stream and kills the children on
	// SIGPIPE, so it outranks whatever exit status they died with.
	if scanErr != nil {
		last := cmds[len(cmds)-1]
		return lines, errors.Wrap(scanErr, errors.ErrIO, "cannot read command output").
			WithDetail("command", strings.Join(last.Args, " "))
	}

	if lastErr != nil {
		last := cmds[len(cmds)-1]
		if exitErr, ok := lastErr.(*exec.ExitError); ok {
			return lines, errors.Newf(errors.ErrRun, "exit code %d", exitErr.ExitCode()).
				WithDetail("command", strings.Join(last.Args, " "))
		}
		return lines, errors.Wrapf(lastErr, errors.ErrRun, "command `%s` failed", last.Path).
			WithDetail("command", strings.Join(last.Args, " "))
	}

	return lines, nil
}

// RunSingle is a shortcut for a one-command pipeline.
func (r *Runner) RunSingle(command []string, pattern *regexp.Regexp) ([]string, error) {
	return r.Run([][]string{command}, pattern, nil)
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
