package config

import (
	"context"
	"regexp"
	"strings"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

// MaxInterpolationDepth bounds recursive and cyclic placeholder definitions
// without an explicit cycle-detection graph. Exceeding it is a fatal
// configuration error, never a silent truncation.
const MaxInterpolationDepth = 10

// Placeholder kinds, in match-group order: ${ENV:NAME}, ${SHELL:command},
// ${RPM:name}, ${section.key}, ${key}.
var placeholderRe = regexp.MustCompile(
	`\$\{(?:ENV:(\w+)|SHELL:([^}]+)|RPM:([\w]+)|(\w+)\.(\w+)|(\w+))\}`)

// resolve substitutes every placeholder in raw. Each placeholder resolves
// one level deeper than the value that contains it, and that level is given
// back once the placeholder is substituted: sibling placeholders in a flat
// value all resolve at the same depth, while genuine reference chains (and
// cycles) grow one level per hop until MaxInterpolationDepth cuts them off.
// Substituted text is not re-scanned beyond that recursion.
func (s *Store) resolve(section, key, raw string, depth int) (string, error) {
	matches := placeholderRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	out := raw
	for _, m := range matches {
		if depth+1 >= MaxInterpolationDepth {
			return "", errors.Newf(errors.ErrConfig,
				"interpolation too deep for option `%s.%s`", section, key).
				WithDetail("value", raw)
		}

		var sub string
		var err error
		switch {
		case m[1] != "":
			sub, err = s.resolveEnv(m[1])
		case m[2] != "":
			sub, err = s.resolveShell(m[2])
		case m[3] != "":
			sub, err = s.resolveMacro(m[3])
		case m[4] != "":
			sub, err = s.get(m[4], m[5], depth+1)
		default:
			sub, err = s.get(section, m[6], depth+1)
		}
		if err != nil {
			if errors.IsErrorCode(err, errors.ErrConfig) {
				return "", err
			}
			return "", errors.Wrapf(err, errors.ErrConfig,
				"failed to interpolate %s in option `%s.%s`", m[0], section, key)
		}

		out = strings.ReplaceAll(out, m[0], sub)
	}
	return out, nil
}

func (s *Store) resolveEnv(name string) (string, error) {
	v := s.env(name)
	if v == "" {
		return "", errors.Newf(errors.ErrConfig,
			"environment variable `%s` is unset or empty", name)
	}
	return v, nil
}

func (s *Store) resolveShell(command string) (string, error) {
	if s.shell == nil {
		return "", errors.New(errors.ErrConfig, "no shell runner configured")
	}
	return s.shell.Output(context.Background(), command)
}

func (s *Store) resolveMacro(name string) (string, error) {
	if s.macros == nil {
		return "", errors.New(errors.ErrConfig, "no macro evaluator configured")
	}
	return s.macros.Eval(name)
}
