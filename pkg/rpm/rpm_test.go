package rpm

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

func TestVersionGrammar(t *testing.T) {
	valid := []string{"1.2-3.oc00", "0-1.fc40", "2.11.4-0.20240101.oc00"}
	for _, v := range valid {
		assert.True(t, ValidVersion(v), v)
	}

	invalid := []string{"", "1.2", "abc-1.oc00", "1.2-3", "1.2-3.oc00 "}
	for _, v := range invalid {
		assert.False(t, ValidVersion(v), v)
	}
}

func TestBuildUserGrammar(t *testing.T) {
	assert.True(t, ValidBuildUser("builder@buildhost"))
	assert.True(t, ValidBuildUser("j.doe-2@host.example.org"))
	assert.False(t, ValidBuildUser("builder"))
	assert.False(t, ValidBuildUser("@host"))
	assert.False(t, ValidBuildUser("user@host extra"))
}

func TestWrotePattern(t *testing.T) {
	re := WrotePattern("pentium4")

	m := re.FindStringSubmatch("Wrote: /build/RPMS/pentium4/foo-1.2-3.oc00.pentium4.rpm")
	require.NotNil(t, m)
	assert.Equal(t, "/build/RPMS/pentium4/foo-1.2-3.oc00.pentium4.rpm", m[1])

	m = re.FindStringSubmatch("Wrote: /build/RPMS/noarch/foo-doc-1.2-3.oc00.noarch.rpm")
	require.NotNil(t, m)

	assert.Nil(t, re.FindStringSubmatch("Wrote: /build/RPMS/i686/foo-1.2-3.oc00.i686.rpm"))
	assert.Nil(t, re.FindStringSubmatch("Checking for unpackaged file(s)"))
}

func TestSrpmWrotePattern(t *testing.T) {
	m := SrpmWrotePattern().FindStringSubmatch("Wrote: /build/SRPMS/foo-1.2-3.oc00.src.rpm")
	require.NotNil(t, m)
	assert.Equal(t, "/build/SRPMS/foo-1.2-3.oc00.src.rpm", m[1])
}

func TestParseSrpmBase(t *testing.T) {
	name, ver, err := ParseSrpmBase("foo-1.2-3.oc00.src.rpm", "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", name)
	assert.Equal(t, "1.2-3.oc00", ver)

	// Names containing dashes resolve against the version grammar.
	name, ver, err = ParseSrpmBase("libc-devel-2-1.2-3.oc00.src.rpm", "libc-devel-2")
	require.NoError(t, err)
	assert.Equal(t, "libc-devel-2", name)
	assert.Equal(t, "1.2-3.oc00", ver)

	_, _, err = ParseSrpmBase("garbage.src.rpm", "foo")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, _, err = ParseSrpmBase("bar-1.2-3.oc00.src.rpm", "foo")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNameMismatch))
	assert.Contains(t, errors.GetHint(err), "rename")
}

// stubBuilder writes a fake rpmbuild that serves --eval requests and counts
// its invocations in a sibling file.
func stubBuilder(t *testing.T, topdir string) string {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "rpmbuild")
	script := fmt.Sprintf(`#!/bin/sh
echo x >> "%s/calls"
case "$2" in
  '%%{?_topdir}|%%{?_sourcedir}|%%{?dist}|%%{?_bindir}|%%{?_rpmdir}|%%{?_srcrpmdir}')
    echo '%[2]s|%[2]s/SOURCES|.oc00|/usr/bin|%[2]s/RPMS|%[2]s/SRPMS' ;;
  '%%{?dist}') echo '.oc00' ;;
  '%%{?_topdir}') echo '%[2]s' ;;
  *) echo '' ;;
esac
`, dir, topdir)
	require.NoError(t, os.WriteFile(exe, []byte(script), 0755))
	return exe
}

func callCount(t *testing.T, exe string) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(exe), "calls"))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(data) / 2 // "x\n" per call
}

func TestMacroCacheEvalOnce(t *testing.T) {
	topdir := t.TempDir()
	exe := stubBuilder(t, topdir)
	c := NewMacroCache(exe)

	v, err := c.Eval("dist")
	require.NoError(t, err)
	assert.Equal(t, ".oc00", v)
	assert.Equal(t, 1, callCount(t, exe))

	v, err = c.Eval("dist")
	require.NoError(t, err)
	assert.Equal(t, ".oc00", v)
	assert.Equal(t, 1, callCount(t, exe))
}

func TestMacroCacheEmptyExpansionCached(t *testing.T) {
	exe := stubBuilder(t, t.TempDir())
	c := NewMacroCache(exe)

	v, err := c.Eval("no_such_macro")
	require.NoError(t, err)
	assert.Equal(t, "", v)
	assert.Equal(t, 1, callCount(t, exe))

	_, err = c.Eval("no_such_macro")
	require.NoError(t, err)
	assert.Equal(t, 1, callCount(t, exe))
}

func TestMacroCacheEvalFailure(t *testing.T) {
	c := NewMacroCache(filepath.Join(t.TempDir(), "no-such-rpmbuild"))
	_, err := c.Eval("dist")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRun))
}

func TestPreload(t *testing.T) {
	topdir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(topdir, "SOURCES"), 0755))
	exe := stubBuilder(t, topdir)

	c := NewMacroCache(exe)
	isDir := func(p string) bool {
		fi, err := os.Stat(p)
		return err == nil && fi.IsDir()
	}
	require.NoError(t, c.Preload(isDir))
	assert.Equal(t, 1, callCount(t, exe))

	// Preloaded macros come from the cache, no further invocations.
	v, err := c.Eval("_rpmdir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(topdir, "RPMS"), v)
	assert.Equal(t, 1, callCount(t, exe))
}

func TestPreloadRejectsMissingTopdir(t *testing.T) {
	exe := stubBuilder(t, filepath.Join(t.TempDir(), "missing"))
	c := NewMacroCache(exe)
	err := c.Preload(func(string) bool { return false })
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
}
