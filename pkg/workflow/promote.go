package workflow

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/pipeline"
	"github.com/rpmbot/rpmbot/pkg/repo"
	"github.com/rpmbot/rpmbot/pkg/spec"
	"github.com/rpmbot/rpmbot/pkg/summary"
)

// parseGroupArg splits a `GROUP[:REPO[:FROM]]` command argument.
func parseGroupArg(arg string) (group, to, from string) {
	parts := strings.SplitN(arg, ":", 3)
	group = parts[0]
	if len(parts) > 1 {
		to = parts[1]
	}
	if len(parts) > 2 {
		from = parts[2]
	}
	return group, to, from
}

// Upload promotes a finished local build into a repository of the group:
// the named one, or the group's first. Local build logs are zipped along,
// and the local build area is cleaned up afterwards.
func (w *Workflow) Upload(groupArg, name string) error {
	return w.promote(groupArg, name, true)
}

// Move promotes an already uploaded build to the next repository in the
// group chain, or between the explicitly named ones.
func (w *Workflow) Move(groupArg, name string) error {
	return w.promote(groupArg, name, false)
}

func (w *Workflow) promote(groupArg, name string, isUpload bool) error {
	cfg := w.Config.Clone()

	var specBase string
	if isUpload {
		// Per-spec INI overlays may adjust the group settings.
		sp, err := spec.Resolve(name, w.SpecDirs, cfg)
		if err != nil {
			return err
		}
		specBase = sp.Base
	} else {
		// Moving needs no spec file, just the package name.
		specBase = strings.TrimSuffix(filepath.Base(name), ".spec")
	}

	groupName, toName, fromName := parseGroupArg(groupArg)
	if isUpload && fromName != "" {
		return errors.Newf(errors.ErrInvalidInput, "extra input in GROUP spec: `%s`", fromName)
	}

	local, err := w.localRepo()
	if err != nil {
		return err
	}
	group, err := repo.ReadGroup(cfg, groupName, local)
	if err != nil {
		return err
	}

	var fromRepo *repo.Repository
	switch {
	case isUpload:
		fromRepo = &group.Local
	case fromName != "":
		if fromRepo, err = group.Repo(fromName); err != nil {
			return err
		}
	default:
		var ok bool
		if fromRepo, ok = group.FindSummaryRepo(specBase); !ok {
			return errors.Newf(errors.ErrNotFound,
				"no build of `%s` found in any repository of group `%s`", specBase, groupName).
				WithHint("use `upload` command to upload a build to the group first")
		}
	}

	var toRepo *repo.Repository
	switch {
	case toName != "":
		if toRepo, err = group.Repo(toName); err != nil {
			return err
		}
	case isUpload:
		toRepo = group.First()
	default:
		if toRepo, err = group.Next(fromRepo.Name); err != nil {
			return err
		}
	}

	w.Output.Log("From repository : %s", fromRepo.Base)
	w.Output.Log("To repository   : %s", toRepo.Base)

	var sumPath string
	if isUpload {
		sumPath = fromRepo.SummaryPath(specBase, "")
	} else {
		var ok bool
		if sumPath, ok = fromRepo.FindSummary(specBase); !ok {
			return errors.Newf(errors.ErrNotFound,
				"no build of `%s` in repository `%s` of group `%s`",
				specBase, fromRepo.Name, groupName)
		}
	}
	sum, err := summary.Read(sumPath, fromRepo.Resolve)
	if err != nil {
		return err
	}

	w.Output.Log("Version         : %s", sum.Version)
	w.Output.Log("Build user      : %s", sum.BuildUser)
	w.Output.Log("Build time      : %s", sum.BuildTime.Local().Format(pipeline.DateTimeFormat))

	toSummary := toRepo.SummaryPath(specBase, sum.Version)
	if paths.IsFile(toSummary) {
		if !w.Force {
			return errors.Newf(errors.ErrDuplicateBuild,
				"build summary for `%s` already exists (%s)", specBase, toSummary).
				WithHint("if recovering from a failure, use -f option to overwrite this build with a new one")
		}
		w.Output.Note("Overwriting previous build of `%s` due to -f option.", specBase)
	}

	// Copy artifacts. Destination class directories must already exist:
	// repositories are provisioned by hand, not created on the fly.
	for _, rec := range sum.Records {
		dst := toRepo.ClassDir(rec.Class)
		w.Output.Log("Copying %s -> %s...", rec.Path, dst)
		if !paths.IsDir(dst) {
			return errors.Newf(errors.ErrIO, "`%s` is not a directory", dst)
		}
		if err := paths.CopyFileToDir(rec.Path, dst); err != nil {
			return err
		}
	}

	// Bring the logs over. A local build has per-target logs that are
	// zipped first; repositories already hold them zipped.
	fromLog := filepath.Dir(sumPath)
	zipPath := filepath.Join(fromLog, "logs.zip")

	var logFiles []string
	if isUpload {
		w.Output.Log("Packing logs to %s...", zipPath)
		for _, class := range sum.Classes() {
			logFiles = append(logFiles, filepath.Join(fromLog, class+".log"))
		}
		cmd := append([]string{w.Exes.Zip, "-jy9", zipPath}, logFiles...)
		if _, err := w.Runner.RunSingle(cmd, nil); err != nil {
			return err
		}
	}

	toLog := filepath.Dir(toSummary)
	w.Output.Log("Copying logs from %s -> %s...", fromLog, toLog)

	if err := paths.RemovePath(toLog); err != nil {
		return err
	}
	if err := paths.EnsureDir(toLog); err != nil {
		return err
	}

	logsToCopy := []string{zipPath, sumPath}
	for _, src := range logsToCopy {
		if err := paths.CopyFileToDir(src, toLog); err != nil {
			return err
		}
	}

	// The destination summary is in place: the promotion is committed.
	// Source cleanup failures from here on are reported but not fatal.
	cleanupErr := func(err error) {
		w.Output.Note("Cleanup failed: %s", err)
		w.logger.Warn().Err(err).Str("spec", specBase).Msg("Promotion cleanup failed")
	}

	w.Output.Log("Removing copied packages...")
	for _, rec := range sum.Records {
		if err := os.Remove(rec.Path); err != nil {
			cleanupErr(err)
		}
	}

	if isUpload {
		archiveDir := w.Layout.ArchiveLogDir(specBase, sum.Version)
		w.Output.Log("Archiving logs to %s...", archiveDir)
		if err := paths.RemovePath(archiveDir); err != nil {
			return err
		}
		if err := paths.EnsureDir(archiveDir); err != nil {
			return err
		}
		for _, src := range logsToCopy {
			if err := paths.MoveFileToDir(src, archiveDir); err != nil {
				cleanupErr(err)
			}
		}
		for _, src := range logFiles {
			if err := os.Remove(src); err != nil {
				cleanupErr(err)
			}
		}
	} else {
		w.Output.Log("Removing copied logs...")
		for _, src := range logsToCopy {
			if err := os.Remove(src); err != nil {
				cleanupErr(err)
			}
		}
	}

	if err := paths.RemovePath(fromLog); err != nil {
		cleanupErr(err)
	}

	w.logger.Info().Str("spec", specBase).Str("version", sum.Version).
		Str("from", fromRepo.Name).Str("to", toRepo.Name).Msg("Promotion finished")
	return nil
}
