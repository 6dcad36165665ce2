// Package workflow implements the bot's commands: building all configured
// targets of a spec, test builds of single steps, and promoting finished
// builds along a repository group chain.
package workflow

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rpmbot/rpmbot/pkg/config"
	"github.com/rpmbot/rpmbot/pkg/logging"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/pipeline"
	"github.com/rpmbot/rpmbot/pkg/repo"
	"github.com/rpmbot/rpmbot/pkg/rpm"
)

// Executables names the external tools a run invokes. Overridable for
// tests, which substitute small shell stubs.
type Executables struct {
	Rpmbuild string
	Rpm2Cpio string
	Cpio     string
	Zip      string
}

// DefaultExecutables resolves every tool through PATH.
func DefaultExecutables() Executables {
	return Executables{
		Rpmbuild: rpm.DefaultExe,
		Rpm2Cpio: "rpm2cpio",
		Cpio:     "cpio",
		Zip:      "zip",
	}
}

// Workflow carries the state shared by all commands of one run.
type Workflow struct {
	// Config is the run's base configuration. Each processed spec works on
	// a clone so per-spec INI overlays never leak into the next spec.
	Config *config.Store

	// SpecDirs are the configured spec search directory groups.
	SpecDirs [][]string

	// Layout is the machine-local build area derived from rpm macros.
	Layout *paths.Layout

	// Macros evaluates rpm macros for local artifact locations.
	Macros *rpm.MacroCache

	// Output is the run's output context; Runner executes commands in it.
	Output *pipeline.Output
	Runner *pipeline.Runner

	// BuildUser is the `user@host` recorded in build summaries.
	BuildUser string

	// Force overwrites existing builds at the destination (-f).
	Force bool

	Exes Executables

	logger zerolog.Logger
}

// New creates a workflow over an initialized configuration and layout.
func New(cfg *config.Store, specDirs [][]string, layout *paths.Layout,
	macros *rpm.MacroCache, out *pipeline.Output) *Workflow {
	return &Workflow{
		Config:   cfg,
		SpecDirs: specDirs,
		Layout:   layout,
		Macros:   macros,
		Output:   out,
		Runner:   pipeline.NewRunner(out),
		Exes:     DefaultExecutables(),
		logger:   logging.GetLogger("workflow"),
	}
}

// localRepo describes the local build area in repository terms, so summary
// reading and promotion treat it like any other source location.
func (w *Workflow) localRepo() (repo.Repository, error) {
	rpmDir, err := w.Macros.Eval("_rpmdir")
	if err != nil {
		return repo.Repository{}, err
	}
	srcrpmDir, err := w.Macros.Eval("_srcrpmdir")
	if err != nil {
		return repo.Repository{}, err
	}
	return repo.Repository{
		Base: w.Layout.Topdir(),
		RPM:  rpmDir,
		Srpm: srcrpmDir,
		Zip:  w.Layout.ZipDir(),
		Log:  filepath.Join(w.Layout.LogDir(), paths.BuildLogDirName),
	}, nil
}
