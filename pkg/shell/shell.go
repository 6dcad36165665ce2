// Package shell runs shell command lines through an embedded POSIX
// interpreter instead of spawning /bin/sh, so `${SHELL:...}` interpolation
// behaves the same on every platform the builder runs on.
package shell

import (
	"bytes"
	"context"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// Runner executes shell command lines and captures their standard output.
// The zero value runs in the current directory with the process environment.
type Runner struct {
	// Dir is the working directory for executed commands. Empty means the
	// current directory.
	Dir string

	// Env overrides the process environment when non-nil.
	Env []string
}

// Output runs command and returns its trimmed standard output. Standard
// error is captured alongside stdout so diagnostics from failing commands
// end up in the returned error.
func (r *Runner) Output(ctx context.Context, command string) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRun, "cannot parse shell command").
			WithDetail("command", command)
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}

	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	}
	if r.Dir != "" {
		opts = append(opts, interp.Dir(r.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRun, "cannot create shell interpreter").
			WithDetail("command", command)
	}

	if err := runner.Run(ctx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return "", errors.Newf(errors.ErrRun, "exit code %d", status).
				WithDetail("command", command).
				WithDetail("output", out.String())
		}
		return "", errors.Wrap(err, errors.ErrRun, "shell command failed").
			WithDetail("command", command)
	}

	return strings.TrimSpace(out.String()), nil
}
