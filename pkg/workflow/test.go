package workflow

import (
	"strings"

	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/rpm"
	"github.com/rpmbot/rpmbot/pkg/spec"
)

// StepAll is the default test step: a full binary build.
const StepAll = "all"

// testSteps maps a step name to the builder flags short-circuiting to it.
var testSteps = map[string][]string{
	StepAll:   {"-bb"},
	"prep":    {"-bp", "--short-circuit"},
	"build":   {"-bc", "--short-circuit"},
	"install": {"-bi", "--short-circuit"},
	"pack":    {"-bb", "--short-circuit"},
}

// TestSteps lists the valid test step names.
func TestSteps() []string {
	return []string{StepAll, "prep", "build", "install", "pack"}
}

// Test runs a test build of one spec for the base architecture only,
// optionally short-circuited to a single build step. Test builds use a
// neutral dist tag and never touch summaries or repositories.
func (w *Workflow) Test(step, name string) error {
	opts, ok := testSteps[step]
	if !ok {
		return errors.Newf(errors.ErrInvalidInput, "unknown test step `%s`", step).
			WithHint("valid steps are " + strings.Join(TestSteps(), ", "))
	}

	cfg := w.Config.Clone()
	sp, err := spec.Resolve(name, w.SpecDirs, cfg)
	if err != nil {
		return err
	}
	w.Output.Log("Spec file       : %s", sp.Path)
	w.Output.Log("Spec source dir : %s", sp.SourceDir)

	archs, err := cfg.GetWords("general", "archs")
	if err != nil {
		return err
	}
	baseArch := archs[0]

	suffix := step
	if step == StepAll {
		suffix = ""
	}
	logFile := w.Layout.TestLogPath(sp.Base, suffix)
	if err := paths.RotateLog(logFile); err != nil {
		return err
	}

	w.Output.Log("Creating test RPMs for `%s` target (logging to %s)...", baseArch, logFile)

	args := []string{w.Exes.Rpmbuild, "--target=" + baseArch,
		"--define=dist %nil", "--define=_sourcedir " + sp.SourceDir}
	args = append(args, opts...)
	args = append(args, sp.Path)

	rpms, err := w.Runner.RunLoggedSingle(logFile, args, rpm.WrotePattern(baseArch))
	if err != nil {
		return err
	}

	// Only full and pack runs get far enough to produce RPMs.
	if step == StepAll || step == "pack" {
		if len(rpms) == 0 {
			return errors.Newf(errors.ErrNotFound,
				"cannot find `.(%s|noarch).rpm` file names in `%s`", baseArch, logFile)
		}
		w.Output.Log("Successfully generated the following RPMs:")
		w.Output.Log(strings.Join(rpms, "\n"))
	}
	return nil
}
