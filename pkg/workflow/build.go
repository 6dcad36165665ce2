package workflow

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/pipeline"
	"github.com/rpmbot/rpmbot/pkg/rpm"
	"github.com/rpmbot/rpmbot/pkg/spec"
	"github.com/rpmbot/rpmbot/pkg/summary"
)

// Build produces RPMs for every configured architecture of one spec, plus
// the SRPM and the ZIP, and records them all in the build summary. The
// summary is written last: its presence means the whole build succeeded.
func (w *Workflow) Build(name string) error {
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
	w.Output.Log("Targets: %s, ZIP (%s), SRPM", strings.Join(archs, ", "), archs[0])

	logBase := w.Layout.BuildLogDir(sp.Base)
	summaryPath := filepath.Join(logBase, paths.SummaryName)

	if paths.IsFile(summaryPath) {
		ver, _ := summary.Version(summaryPath)
		if !w.Force {
			return errors.Newf(errors.ErrDuplicateBuild,
				"build summary for `%s` (%s) already exists (%s)", sp.Base, ver, summaryPath).
				WithHint("use -f option to overwrite this build with another one w/o uploading it")
		}
		w.Output.Note("Overwriting previous build of `%s` (%s) due to -f option.", sp.Base, ver)
	}

	if err := paths.RemovePath(logBase); err != nil {
		return err
	}
	if err := paths.EnsureDir(logBase); err != nil {
		return err
	}

	// RPMs for all architectures.

	var (
		baseRPMs   []string
		builtArchs []string
	)
	archRPMs := make(map[string][]string)
	noarchOnly := true

	for _, arch := range archs {
		logFile := filepath.Join(logBase, arch+".log")
		w.Output.Log("Creating RPMs for `%s` target (logging to %s)...", arch, logFile)

		rpms, err := w.Runner.RunLoggedSingle(logFile,
			[]string{w.Exes.Rpmbuild, "--target=" + arch, "-bb",
				"--define=_sourcedir " + sp.SourceDir, sp.Path},
			rpm.WrotePattern(arch))
		if err != nil {
			return err
		}
		if len(rpms) == 0 {
			return errors.Newf(errors.ErrNotFound,
				"cannot find `.(%s|noarch).rpm` file names in `%s`", arch, logFile)
		}

		archRPMs[arch] = rpms
		builtArchs = append(builtArchs, arch)
		if baseRPMs == nil {
			baseRPMs = rpms
		}

		for _, r := range rpms {
			if strings.HasSuffix(r, "."+arch+".rpm") {
				noarchOnly = false
				break
			}
		}
		if noarchOnly {
			w.Output.Log("Skipping other targets because `%s` produced only `noarch` RPMs.", arch)
			break
		}
	}

	// SRPM.

	logFile := filepath.Join(logBase, "srpm.log")
	w.Output.Log("Creating SRPM (logging to %s)...", logFile)

	srpms, err := w.Runner.RunLoggedSingle(logFile,
		[]string{w.Exes.Rpmbuild, "-bs", "--define=_sourcedir " + sp.SourceDir, sp.Path},
		rpm.SrpmWrotePattern())
	if err != nil {
		return err
	}
	if len(srpms) == 0 {
		return errors.Newf(errors.ErrNotFound,
			"cannot find `.src.rpm` file name in `%s`", logFile)
	}
	srpm := srpms[0]

	_, verFull, err := rpm.ParseSrpmBase(filepath.Base(srpm), sp.Base)
	if err != nil {
		return err
	}

	// ZIP with base-arch RPM contents.

	zipFile := filepath.Join(w.Layout.ZipDir(),
		fmt.Sprintf("%s-%s.zip", sp.Base, strings.ReplaceAll(verFull, ".", "_")))
	logFile = filepath.Join(logBase, "zip.log")
	w.Output.Log("Creating ZIP (logging to %s)...", logFile)

	if err := w.Runner.FuncLogged(logFile, "generate zip", func() error {
		return w.generateZip(zipFile, baseRPMs)
	}); err != nil {
		return err
	}

	// Summary, written only once everything above succeeded.

	artifacts := []summary.Artifact{
		{Class: summary.ClassSrpm, Path: srpm},
		{Class: summary.ClassZip, Path: zipFile},
	}
	for _, arch := range builtArchs {
		for _, r := range archRPMs[arch] {
			artifacts = append(artifacts, summary.Artifact{Class: arch, Path: r})
		}
	}
	if err := summary.Write(summaryPath, verFull, w.BuildUser, time.Now(), artifacts); err != nil {
		return err
	}

	w.logger.Info().Str("spec", sp.Base).Str("version", verFull).Msg("Build finished")
	w.Output.Log("Generated all packages for version %s.", verFull)
	return nil
}

// generateZip unpacks the base-arch RPMs into the zip staging root and
// packs the unpacked tree, consuming it (`zip -m`).
func (w *Workflow) generateZip(zipFile string, rpms []string) error {
	zipDir := w.Layout.ZipDir()
	unpacked := filepath.Join(zipDir, paths.UnpackRootName)

	runner := &pipeline.Runner{Output: w.Output, Dir: zipDir}

	if err := paths.RemovePath(unpacked); err != nil {
		return err
	}
	for _, r := range rpms {
		w.Output.Log("Unpacking `%s`...", r)
		if _, err := runner.Run([][]string{
			{w.Exes.Rpm2Cpio, r},
			{w.Exes.Cpio, "-idm"},
		}, nil, nil); err != nil {
			return err
		}
	}

	if err := paths.RemovePath(zipFile); err != nil {
		return err
	}
	w.Output.Log("Creating `%s`...", zipFile)
	_, err := runner.RunSingle([]string{w.Exes.Zip, "-mry9", zipFile, paths.UnpackRootName}, nil)
	return err
}
