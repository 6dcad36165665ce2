// Package config implements the layered, section-scoped configuration store.
//
// Configuration is read from INI files (syntax handled by gopkg.in/ini.v1).
// Files are loaded in sequence: the user-global file first, then zero or more
// overlays along the package spec's resolved location. A later load overrides
// same-named keys in the same section and never removes keys from earlier
// loads.
//
// Values may contain interpolation placeholders, resolved recursively on
// every Get. See interpolate.go for the placeholder kinds and the depth
// guard.
package config

import (
	"context"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// DefaultSection holds keys defined outside any section. Its keys act as
// per-section fallbacks, the way INI defaults traditionally do.
const DefaultSection = "DEFAULT"

// MacroEvaluator resolves ${RPM:name} placeholders. Implementations are
// expected to cache: a macro is evaluated by the external builder at most
// once per run.
type MacroEvaluator interface {
	Eval(name string) (string, error)
}

// ShellRunner resolves ${SHELL:command} placeholders.
type ShellRunner interface {
	Output(ctx context.Context, command string) (string, error)
}

// Store is a layered key/value store with section scoping and recursive
// interpolation. It is created once per run and cloned per package so
// per-package overlays never leak across packages.
type Store struct {
	sections map[string]map[string]string

	macros MacroEvaluator
	shell  ShellRunner

	// env is swappable for tests; defaults to os.Getenv.
	env func(string) string
}

// New creates an empty store. macros and shell may be nil, in which case the
// corresponding placeholder kinds fail with a configuration error.
func New(macros MacroEvaluator, shell ShellRunner) *Store {
	return &Store{
		sections: make(map[string]map[string]string),
		macros:   macros,
		shell:    shell,
		env:      os.Getenv,
	}
}

// Clone returns a deep copy of all sections and keys. The macro evaluator
// and shell runner are shared, preserving once-per-run macro evaluation.
func (s *Store) Clone() *Store {
	c := &Store{
		sections: make(map[string]map[string]string, len(s.sections)),
		macros:   s.macros,
		shell:    s.shell,
		env:      s.env,
	}
	for name, keys := range s.sections {
		sec := make(map[string]string, len(keys))
		for k, v := range keys {
			sec[k] = v
		}
		c.sections[name] = sec
	}
	return c
}

var loadOptions = ini.LoadOptions{
	// Continuation lines joined with a newline, so getLines on a multi-line
	// value sees one entry per line.
	AllowPythonMultilineValues: true,
}

// LoadFile overlays the given INI file onto the store. Keys already present
// are overridden, everything else is kept.
func (s *Store) LoadFile(path string) error {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfig, "cannot read configuration from `%s`", path)
	}
	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			name = DefaultSection
		}
		for key, val := range sec.KeysHash() {
			s.Set(name, key, val)
		}
	}
	return nil
}

// LoadFileIfExists overlays the given INI file when it exists and is
// otherwise a no-op. Used for the optional per-directory and per-package
// overlays.
func (s *Store) LoadFileIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return s.LoadFile(path)
}

// Set stores a raw (uninterpolated) value.
func (s *Store) Set(section, key, value string) {
	sec, ok := s.sections[section]
	if !ok {
		sec = make(map[string]string)
		s.sections[section] = sec
	}
	sec[key] = value
}

// HasSection reports whether any key was loaded for the section.
func (s *Store) HasSection(section string) bool {
	_, ok := s.sections[section]
	return ok
}

// lookup fetches the raw value, falling back to the default section.
func (s *Store) lookup(section, key string) (string, bool) {
	if sec, ok := s.sections[section]; ok {
		if v, ok := sec[key]; ok {
			return v, true
		}
	}
	if sec, ok := s.sections[DefaultSection]; ok {
		if v, ok := sec[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Get returns the fully interpolated value for (section, key).
func (s *Store) Get(section, key string) (string, error) {
	return s.get(section, key, 0)
}

// GetRaw returns the stored value without interpolation.
func (s *Store) GetRaw(section, key string) (string, error) {
	raw, ok := s.lookup(section, key)
	if !ok {
		return "", errors.Newf(errors.ErrConfig, "no value for option `%s.%s`", section, key)
	}
	return raw, nil
}

func (s *Store) get(section, key string, depth int) (string, error) {
	raw, ok := s.lookup(section, key)
	if !ok {
		return "", errors.Newf(errors.ErrConfig, "no value for option `%s.%s`", section, key)
	}
	return s.resolve(section, key, raw, depth)
}

// GetList returns the value split by sep with empty tokens dropped. An empty
// sep splits on any whitespace.
func (s *Store) GetList(section, key, sep string) ([]string, error) {
	v, err := s.Get(section, key)
	if err != nil {
		return nil, err
	}
	var parts []string
	if sep == "" {
		parts = strings.Fields(v)
	} else {
		parts = strings.Split(v, sep)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetLines splits the value into non-empty lines.
func (s *Store) GetLines(section, key string) ([]string, error) {
	return s.GetList(section, key, "\n")
}

// GetWords splits the value into whitespace-separated words.
func (s *Store) GetWords(section, key string) ([]string, error) {
	return s.GetList(section, key, "")
}
