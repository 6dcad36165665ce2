// Package repo models repository groups: ordered chains of named
// repositories, each with a fixed storage layout for every artifact class
// plus logs. Repository order defines the only valid promotion direction.
package repo

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rpmbot/rpmbot/pkg/config"
	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/summary"
)

// Repository is one named storage location within a group. The zero Name
// identifies the local build area, where rpmbuild itself puts artifacts.
type Repository struct {
	Name   string
	Layout string

	// Absolute directories per artifact class.
	Base string
	RPM  string
	Srpm string
	Zip  string
	Log  string
}

// IsLocal reports whether this is the local build pseudo-repository.
func (r *Repository) IsLocal() bool { return r.Name == "" }

// Resolve returns the expected location of an artifact inside this
// repository. srpm and zip classes live flat in their directories; every
// other class is a target architecture under the rpm directory.
func (r *Repository) Resolve(class, name string) string {
	switch class {
	case summary.ClassSrpm:
		return filepath.Join(r.Srpm, name)
	case summary.ClassZip:
		return filepath.Join(r.Zip, name)
	default:
		return filepath.Join(r.RPM, class, name)
	}
}

// ClassDir returns the destination directory for an artifact class.
func (r *Repository) ClassDir(class string) string {
	switch class {
	case summary.ClassSrpm:
		return r.Srpm
	case summary.ClassZip:
		return r.Zip
	default:
		return filepath.Join(r.RPM, class)
	}
}

// PackageLogDir returns the log tree for one package. At the local build
// area logs live directly under the package name; at repositories each
// promoted version keeps its own subdirectory.
func (r *Repository) PackageLogDir(specBase, version string) string {
	if r.IsLocal() {
		return filepath.Join(r.Log, specBase)
	}
	return filepath.Join(r.Log, specBase, version)
}

// SummaryPath returns the summary file location for a package version.
func (r *Repository) SummaryPath(specBase, version string) string {
	return filepath.Join(r.PackageLogDir(specBase, version), paths.SummaryName)
}

// FindSummary locates a summary file for the package in this repository's
// log tree. At the local build area there is at most one; at repositories
// the most recently written version wins when several are present.
func (r *Repository) FindSummary(specBase string) (string, bool) {
	if r.IsLocal() {
		p := r.SummaryPath(specBase, "")
		if paths.IsFile(p) {
			return p, true
		}
		return "", false
	}

	matches, err := filepath.Glob(filepath.Join(r.Log, specBase, "*", paths.SummaryName))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, ierr := os.Stat(matches[i])
		fj, jerr := os.Stat(matches[j])
		if ierr != nil || jerr != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], true
}

// Group is an ordered repository chain read from configuration.
type Group struct {
	Name  string
	Base  string
	Repos []Repository

	// Local is the build area artifacts are first uploaded from.
	Local Repository
}

// ReadGroup reads a repository group's settings. local describes the
// machine-local build area (derived from rpm macros, not from the INI).
func ReadGroup(cfg *config.Store, group string, local Repository) (*Group, error) {
	section := "group." + group

	base, err := cfg.Get(section, "base")
	if err != nil {
		return nil, err
	}
	repoNames, err := cfg.GetWords(section, "repositories")
	if err != nil {
		return nil, err
	}
	if len(repoNames) == 0 {
		return nil, errors.Newf(errors.ErrConfig, "no repositories in group `%s`", group)
	}

	g := &Group{Name: group, Base: base, Local: local}

	for _, name := range repoNames {
		repoSection := "repository." + group + ":" + name

		layout, err := cfg.Get(repoSection, "layout")
		if err != nil {
			return nil, err
		}
		repoBase, err := cfg.Get(repoSection, "base")
		if err != nil {
			return nil, err
		}

		r := Repository{
			Name:   name,
			Layout: layout,
			Base:   filepath.Join(base, repoBase),
		}

		layoutSection := "layout." + layout
		for _, part := range []struct {
			key string
			dst *string
		}{
			{"rpm", &r.RPM},
			{"srpm", &r.Srpm},
			{"zip", &r.Zip},
			{"log", &r.Log},
		} {
			sub, err := cfg.Get(layoutSection, part.key)
			if err != nil {
				return nil, err
			}
			*part.dst = filepath.Join(r.Base, sub)
		}

		g.Repos = append(g.Repos, r)
	}

	return g, nil
}

// Repo returns the named repository, or Local for the empty name.
func (g *Group) Repo(name string) (*Repository, error) {
	if name == "" {
		return &g.Local, nil
	}
	for i := range g.Repos {
		if g.Repos[i].Name == name {
			return &g.Repos[i], nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "no repository `%s` in group `%s`", name, g.Name)
}

// First returns the first repository of the chain.
func (g *Group) First() *Repository { return &g.Repos[0] }

// Next returns the repository immediately after the named one. The empty
// name (the local build area) precedes the first repository.
func (g *Group) Next(name string) (*Repository, error) {
	if name == "" {
		return g.First(), nil
	}
	for i := range g.Repos {
		if g.Repos[i].Name == name {
			if i+1 >= len(g.Repos) {
				return nil, errors.Newf(errors.ErrNotFound,
					"no repository after `%s` in group `%s`", name, g.Name)
			}
			return &g.Repos[i+1], nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "no repository `%s` in group `%s`", name, g.Name)
}

// FindSummaryRepo returns the first repository in chain order whose log
// tree holds a summary for the package.
func (g *Group) FindSummaryRepo(specBase string) (*Repository, bool) {
	for i := range g.Repos {
		if _, ok := g.Repos[i].FindSummary(specBase); ok {
			return &g.Repos[i], true
		}
	}
	return nil, false
}
