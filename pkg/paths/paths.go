// Package paths provides centralized path handling for rpmbot.
// The local build layout is anchored at the builder's _topdir macro; the
// zip staging area and the log tree are bot-owned additions next to the
// builder's own RPMS/SRPMS directories.
package paths

import (
	"path/filepath"
)

// Directory and file names inside the local layout.
// These are not user-configurable: repository layouts come from the INI
// file, but the local build tree must look the same on every machine.
const (
	// ZipDirName is the staging area for zip artifacts
	ZipDirName = "zip"

	// LogDirName is the root of the bot's log tree
	LogDirName = "logs"

	// BuildLogDirName holds per-package build logs and summaries
	BuildLogDirName = "build"

	// TestLogDirName holds test-build logs
	TestLogDirName = "test"

	// ArchiveLogDirName holds logs of uploaded builds
	ArchiveLogDirName = "archive"

	// RunLogName is the bot's own append-only run log
	RunLogName = "rpmbot.log"

	// SummaryName is the build summary file inside a package's log dir
	SummaryName = "summary"

	// UnpackRootName is the tree RPM payloads unpack into before zipping
	UnpackRootName = "@unixroot"
)

// Layout computes every bot-owned path under the builder's topdir.
type Layout struct {
	topdir string
}

// NewLayout anchors a layout at the builder's _topdir.
func NewLayout(topdir string) *Layout {
	return &Layout{topdir: topdir}
}

// Topdir returns the builder's top directory.
func (l *Layout) Topdir() string { return l.topdir }

// ZipDir returns the zip staging directory.
func (l *Layout) ZipDir() string { return filepath.Join(l.topdir, ZipDirName) }

// LogDir returns the root of the log tree.
func (l *Layout) LogDir() string { return filepath.Join(l.topdir, LogDirName) }

// BuildLogDir returns the build-log directory for a package.
func (l *Layout) BuildLogDir(specBase string) string {
	return filepath.Join(l.LogDir(), BuildLogDirName, specBase)
}

// TestLogPath returns the test log for a package and step. An empty step is
// the full test build.
func (l *Layout) TestLogPath(specBase, step string) string {
	name := specBase
	if step != "" {
		name += "." + step
	}
	return filepath.Join(l.LogDir(), TestLogDirName, name+".log")
}

// ArchiveLogDir returns where logs of an uploaded version are retired.
func (l *Layout) ArchiveLogDir(specBase, version string) string {
	return filepath.Join(l.LogDir(), ArchiveLogDirName, specBase, version)
}

// RunLogPath returns the bot's own run log file.
func (l *Layout) RunLogPath() string {
	return filepath.Join(l.LogDir(), RunLogName)
}

// InitDirs lists the directories a run must be able to write into.
func (l *Layout) InitDirs() []string {
	return []string{
		l.ZipDir(),
		filepath.Join(l.LogDir(), BuildLogDirName),
		filepath.Join(l.LogDir(), TestLogDirName),
	}
}
