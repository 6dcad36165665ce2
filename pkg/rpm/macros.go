package rpm

import (
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rpmbot/rpmbot/pkg/errors"
	"github.com/rpmbot/rpmbot/pkg/logging"
)

// Macros the bot itself needs, preloaded in a single builder invocation.
var preloadedMacros = []string{"_topdir", "_sourcedir", "dist", "_bindir", "_rpmdir", "_srcrpmdir"}

// MacroCache lazily evaluates rpm macros through the external builder and
// caches the results for the lifetime of the run. A macro is evaluated at
// most once per run, and an empty expansion is cached like any other value.
//
// The cache is confined to the single-threaded control flow of a run, so it
// carries no locking.
type MacroCache struct {
	// Exe is the builder executable. Defaults to DefaultExe.
	Exe string

	values map[string]string
	logger zerolog.Logger
}

// NewMacroCache creates a cache invoking the given builder executable.
// An empty exe selects DefaultExe.
func NewMacroCache(exe string) *MacroCache {
	if exe == "" {
		exe = DefaultExe
	}
	return &MacroCache{
		Exe:    exe,
		values: make(map[string]string),
		logger: logging.GetLogger("rpm.macros"),
	}
}

// Eval returns the expansion of the named macro, invoking the builder on
// first use only. An undefined macro expands to the empty string.
func (c *MacroCache) Eval(name string) (string, error) {
	if v, ok := c.values[name]; ok {
		return v, nil
	}

	out, err := c.commandOutput("--eval", "%{?"+name+"}")
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(out)
	c.values[name] = v

	c.logger.Debug().Str("macro", name).Str("value", v).Msg("Evaluated rpm macro")
	return v, nil
}

// Preload evaluates the bot's standard macro set in one builder invocation
// (which doubles as the availability check for the builder executable) and
// verifies that _topdir and _sourcedir point at directories.
func (c *MacroCache) Preload(isDir func(path string) bool) error {
	exprs := make([]string, len(preloadedMacros))
	for i, m := range preloadedMacros {
		exprs[i] = "%{?" + m + "}"
	}

	out, err := c.commandOutput("--eval", strings.Join(exprs, "|"))
	if err != nil {
		return err
	}

	parts := strings.Split(strings.TrimSpace(out), "|")
	if len(parts) != len(preloadedMacros) {
		return errors.Newf(errors.ErrRun,
			"unexpected macro expansion from `%s`: %q", c.Exe, out)
	}
	for i, m := range preloadedMacros {
		c.values[m] = parts[i]
	}

	for _, m := range []string{"_topdir", "_sourcedir"} {
		if c.values[m] == "" || !isDir(c.values[m]) {
			return errors.Newf(errors.ErrConfig,
				"value of `%%%s` in %s is `%s` and not a directory", m, c.Exe, c.values[m])
		}
	}
	return nil
}

func (c *MacroCache) commandOutput(args ...string) (string, error) {
	out, err := exec.Command(c.Exe, args...).Output()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRun, "cannot run `%s`", c.Exe).
			WithDetail("command", c.Exe+" "+strings.Join(args, " "))
	}
	return string(out), nil
}
