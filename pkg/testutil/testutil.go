// Package testutil provides the shared fixture for tests that exercise
// builds against a temporary rpm build area. It fabricates the directory
// layout, a configuration store and small shell stubs standing in for the
// external tools, so tests run hermetically without rpmbuild installed.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpmbot/rpmbot/pkg/config"
	"github.com/rpmbot/rpmbot/pkg/paths"
	"github.com/rpmbot/rpmbot/pkg/pipeline"
)

// StubVersion is the package version every stub build produces.
const StubVersion = "1.2-3.oc00"

// Env is a self-contained build area for one test.
type Env struct {
	T *testing.T

	// Topdir is the rpm build area root; Layout is derived from it.
	Topdir string
	Layout *paths.Layout

	// SpecDir holds the test's spec files.
	SpecDir string

	// BinDir holds the stub executables.
	BinDir string

	// Config is preloaded with general.archs and general.spec_dirs.
	Config *config.Store

	// Output collects console and run-log writes into buffers.
	Output  *pipeline.Output
	Console *bytes.Buffer
	RunLog  *bytes.Buffer
}

// NewEnv creates a fully provisioned build area under t.TempDir().
func NewEnv(t *testing.T) *Env {
	t.Helper()

	root := t.TempDir()
	e := &Env{
		T:       t,
		Topdir:  filepath.Join(root, "rpmbuild"),
		SpecDir: filepath.Join(root, "specs"),
		BinDir:  filepath.Join(root, "bin"),
		Console: &bytes.Buffer{},
		RunLog:  &bytes.Buffer{},
	}
	e.Layout = paths.NewLayout(e.Topdir)
	e.Output = &pipeline.Output{Console: e.Console, RunLog: e.RunLog}

	dirs := append(e.Layout.InitDirs(),
		e.SpecDir, e.BinDir, e.RPMSDir(), e.SRPMSDir(), e.SourceDir())
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	e.Config = config.New(nil, nil)
	e.Config.Set("general", "archs", "pentium4")
	e.Config.Set("general", "spec_dirs", e.SpecDir)

	e.writeStubs()
	return e
}

// RPMSDir is the binary artifact root (the `_rpmdir` macro).
func (e *Env) RPMSDir() string { return filepath.Join(e.Topdir, "RPMS") }

// SRPMSDir is the source artifact directory (the `_srcrpmdir` macro).
func (e *Env) SRPMSDir() string { return filepath.Join(e.Topdir, "SRPMS") }

// SourceDir is the shared source directory (the `_sourcedir` macro).
func (e *Env) SourceDir() string { return filepath.Join(e.Topdir, "SOURCES") }

// Stub returns the path of a stub executable written by NewEnv.
func (e *Env) Stub(name string) string { return filepath.Join(e.BinDir, name) }

// WriteSpec creates a spec file in SpecDir and returns its path.
func (e *Env) WriteSpec(base string) string {
	e.T.Helper()
	path := filepath.Join(e.SpecDir, base+".spec")
	content := fmt.Sprintf("Name: %s\nVersion: 1.2\nRelease: 3\n", base)
	require.NoError(e.T, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteFile creates a file with the given content, making parent
// directories as needed.
func (e *Env) WriteFile(path, content string) {
	e.T.Helper()
	require.NoError(e.T, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.T, os.WriteFile(path, []byte(content), 0o644))
}

// AddGroup registers a one-layout repository group in Config and
// provisions the class directories of every named repository on disk,
// returning the group's base directory.
func (e *Env) AddGroup(group string, repos ...string) string {
	e.T.Helper()

	base := filepath.Join(e.Topdir, "repos", group)
	e.Config.Set("group."+group, "base", base)
	list := ""
	for i, r := range repos {
		if i > 0 {
			list += " "
		}
		list += r
	}
	e.Config.Set("group."+group, "repositories", list)
	e.Config.Set("layout.test", "rpm", "rpm")
	e.Config.Set("layout.test", "srpm", "srpm")
	e.Config.Set("layout.test", "zip", "zip")
	e.Config.Set("layout.test", "log", "log")

	for _, r := range repos {
		section := "repository." + group + ":" + r
		e.Config.Set(section, "layout", "test")
		e.Config.Set(section, "base", r)
		for _, sub := range []string{
			filepath.Join("rpm", "pentium4"),
			filepath.Join("rpm", "i686"),
			"srpm", "zip", "log",
		} {
			require.NoError(e.T, os.MkdirAll(filepath.Join(base, r, sub), 0o755))
		}
	}
	return base
}

// writeStubs fabricates the external tools. The rpmbuild stub answers
// macro evaluation and writes empty artifacts with matching `Wrote:`
// lines; rpm2cpio, cpio and zip cooperate just enough for zip generation.
func (e *Env) writeStubs() {
	e.T.Helper()

	rpmbuild := fmt.Sprintf(`#!/bin/sh
ver=%s
rpms_dir=%s
srpms_dir=%s
topdir=%s
sources_dir=%s

mode=build
target=""
for a in "$@"; do
  last="$a"
  case "$a" in
    --eval) mode=eval ;;
    -bs) mode=srpm ;;
    --target=*) target="${a#--target=}" ;;
  esac
done

if [ "$mode" = eval ]; then
  expr="$last"
  out=""
  for m in $(printf '%%s' "$expr" | tr '|' ' '); do
    case "$m" in
      *_topdir*) v="$topdir" ;;
      *_sourcedir*) v="$sources_dir" ;;
      *_rpmdir*) v="$rpms_dir" ;;
      *_srcrpmdir*) v="$srpms_dir" ;;
      *_bindir*) v=/usr/bin ;;
      *dist*) v=.oc00 ;;
      *) v="" ;;
    esac
    out="$out|$v"
  done
  printf '%%s\n' "${out#|}"
  exit 0
fi

base=$(basename "$last")
base="${base%%.spec}"

if [ -n "$RPMBOT_STUB_FAIL" ]; then
  echo "error: stub failure" >&2
  exit 1
fi

if [ "$mode" = srpm ]; then
  name="$base"
  [ -n "$RPMBOT_STUB_NAME" ] && name="$RPMBOT_STUB_NAME"
  f="$srpms_dir/$name-$ver.src.rpm"
  echo "src payload $base" > "$f"
  echo "Wrote: $f"
  exit 0
fi

mkdir -p "$rpms_dir/$target"
if [ -n "$RPMBOT_STUB_NOARCH" ]; then
  f="$rpms_dir/$target/$base-$ver.noarch.rpm"
else
  f="$rpms_dir/$target/$base-$ver.$target.rpm"
fi
echo "bin payload $base $target" > "$f"
echo "Wrote: $f"
`,
		StubVersion, e.RPMSDir(), e.SRPMSDir(), e.Topdir, e.SourceDir())

	rpm2cpio := `#!/bin/sh
cat "$1"
`

	cpio := `#!/bin/sh
cat > /dev/null
mkdir -p @unixroot/usr/bin
echo payload > @unixroot/usr/bin/stub
`

	zip := `#!/bin/sh
flags="$1"
out="$2"
shift 2
echo "zip $flags $*" > "$out"
case "$flags" in
  -m*) for f in "$@"; do rm -rf "$f"; done ;;
esac
`

	for name, content := range map[string]string{
		"rpmbuild": rpmbuild,
		"rpm2cpio": rpm2cpio,
		"cpio":     cpio,
		"zip":      zip,
	} {
		require.NoError(e.T, os.WriteFile(e.Stub(name), []byte(content), 0o755))
	}
}
