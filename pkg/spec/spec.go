// Package spec locates RPM spec files and loads the per-directory and
// per-package configuration overlays that apply to them.
package spec

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rpmbot/rpmbot/pkg/config"
	"github.com/rpmbot/rpmbot/pkg/errors"
)

// IniName is the configuration overlay file looked up next to spec files.
const IniName = "rpmbot.ini"

// Spec is a resolved spec file.
type Spec struct {
	// Path is the absolute path of the spec file.
	Path string

	// Base is the file name without directory or .spec extension. It names
	// the package throughout log trees and summaries.
	Base string

	// SourceDir is the auxiliary source directory for this spec: the spec's
	// own directory when it is already named after the package, otherwise a
	// subdirectory named after it.
	SourceDir string
}

// ParseDirs reads `general.spec_dirs` into groups of alternate directories.
// Each line starts a new group; a line prefixed with `+` adds an alternate
// to the previous one.
func ParseDirs(cfg *config.Store) ([][]string, error) {
	lines, err := cfg.GetLines("general", "spec_dirs")
	if err != nil {
		return nil, err
	}

	var groups [][]string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "+") && len(groups) > 0 {
			last := len(groups) - 1
			groups[last] = append(groups[last], strings.TrimSpace(line[1:]))
		} else {
			groups = append(groups, []string{line})
		}
	}
	return groups, nil
}

func sameFile(a, b string) bool {
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}

// Resolve finds the spec file named by name, either as an explicit path or
// by searching specDirs group by group. The `.spec` extension is assumed
// when missing. On success the directory overlays that apply to the found
// spec are loaded into cfg (group root first, then the matched alternate,
// then the spec's own directory) and `general.archs` is checked to be set.
func Resolve(name string, specDirs [][]string, cfg *config.Store) (*Spec, error) {
	if filepath.Ext(name) != ".spec" {
		name += ".spec"
	}

	var (
		fullSpec   string
		base       string
		matchGroup []string
		matchDir   string
		explicit   bool
		found      bool
	)

	if dir := filepath.Dir(name); dir != "." {
		// Explicit path. Also detect whether it lives inside a configured
		// spec directory so that directory's overlays still apply.
		explicit = true
		base = strings.TrimSuffix(filepath.Base(name), ".spec")
		abs, err := filepath.Abs(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrIO, "cannot resolve spec path")
		}
		fullSpec = abs
		if fi, err := os.Stat(fullSpec); err == nil && !fi.IsDir() {
			found = true
			specDir := filepath.Dir(fullSpec)
			for _, dirs := range specDirs {
				for _, d := range dirs {
					if sameFile(d, specDir) || sameFile(filepath.Join(d, base), specDir) {
						matchGroup, matchDir = dirs, d
						break
					}
				}
				if matchGroup != nil {
					break
				}
			}
		}
	} else {
		base = strings.TrimSuffix(name, ".spec")
	search:
		for _, dirs := range specDirs {
			for _, d := range dirs {
				for _, candidate := range []string{
					filepath.Join(d, name),
					filepath.Join(d, base, name),
				} {
					if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
						abs, err := filepath.Abs(candidate)
						if err != nil {
							return nil, errors.Wrap(err, errors.ErrIO, "cannot resolve spec path")
						}
						fullSpec = abs
						matchGroup, matchDir = dirs, d
						found = true
						break search
					}
				}
			}
		}
	}

	if !found {
		if explicit {
			return nil, errors.Newf(errors.ErrNotFound, "cannot find `%s`", name)
		}
		return nil, errors.Newf(errors.ErrNotFound, "cannot find `%s` in %v", name, specDirs)
	}

	// Overlays: first alternate of the matched group, the matched alternate
	// itself when different, then the spec's own directory.
	if matchGroup != nil {
		if err := cfg.LoadFileIfExists(filepath.Join(matchGroup[0], IniName)); err != nil {
			return nil, err
		}
		if !sameFile(matchDir, matchGroup[0]) {
			if err := cfg.LoadFileIfExists(filepath.Join(matchDir, IniName)); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.LoadFileIfExists(filepath.Join(filepath.Dir(fullSpec), IniName)); err != nil {
		return nil, err
	}

	sourceDir := filepath.Dir(fullSpec)
	if filepath.Base(sourceDir) != base {
		sourceDir = filepath.Join(sourceDir, base)
	}

	if archs, err := cfg.Get("general", "archs"); err != nil || archs == "" {
		return nil, errors.New(errors.ErrConfig, "no value for option `general.archs`")
	}

	return &Spec{Path: fullSpec, Base: base, SourceDir: sourceDir}, nil
}
