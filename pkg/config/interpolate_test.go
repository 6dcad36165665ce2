package config

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpmbot/rpmbot/pkg/errors"
)

type fakeMacros struct {
	values map[string]string
	calls  map[string]int
}

func (f *fakeMacros) Eval(name string) (string, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	v, ok := f.values[name]
	if !ok {
		return "", nil
	}
	return v, nil
}

type fakeShell struct {
	outputs map[string]string
	err     error
}

func (f *fakeShell) Output(_ context.Context, command string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.outputs[command], nil
}

func TestPlainInterpolation(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "base", "/build")
	s.Set("general", "logs", "${base}/logs")
	s.Set("repo", "dir", "${general.base}/repo")

	v, err := s.Get("general", "logs")
	require.NoError(t, err)
	assert.Equal(t, "/build/logs", v)

	v, err = s.Get("repo", "dir")
	require.NoError(t, err)
	assert.Equal(t, "/build/repo", v)
}

func TestNestedInterpolation(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "a", "x")
	s.Set("general", "b", "${a}y")
	s.Set("general", "c", "${b}z")

	v, err := s.Get("general", "c")
	require.NoError(t, err)
	assert.Equal(t, "xyz", v)
}

func TestManySiblingPlaceholdersStayWithinDepth(t *testing.T) {
	// Depth is consumed by reference chains, not by the number of
	// placeholders sitting side by side in one value.
	s := New(nil, nil)
	value := ""
	for i := 0; i < 12; i++ {
		key := string(rune('a' + i))
		s.Set("general", key, key)
		value += "${" + key + "}"
	}
	s.Set("general", "all", value)

	v, err := s.Get("general", "all")
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijkl", v)
}

func TestDeepReferenceChainStillCapped(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "k0", "end")
	for i := 1; i <= 12; i++ {
		s.Set("general", fmt.Sprintf("k%d", i), fmt.Sprintf("${k%d}", i-1))
	}

	// Within the cap resolves, beyond it fails.
	v, err := s.Get("general", "k8")
	require.NoError(t, err)
	assert.Equal(t, "end", v)

	_, err = s.Get("general", "k12")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "too deep")
}

func TestRepeatedPlaceholderReplacedEverywhere(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "a", "x")
	s.Set("general", "b", "${a}-${a}")

	v, err := s.Get("general", "b")
	require.NoError(t, err)
	assert.Equal(t, "x-x", v)
}

func TestSelfReferenceFailsWithDepthError(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "loop", "${loop}")

	_, err := s.Get("general", "loop")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "general.loop")
	assert.Contains(t, err.Error(), "too deep")
}

func TestTransitiveCycleFailsWithDepthError(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "a", "${b}")
	s.Set("general", "b", "${c}")
	s.Set("general", "c", "${a}")

	_, err := s.Get("general", "a")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "too deep")
}

func TestEnvInterpolation(t *testing.T) {
	s := New(nil, nil)
	s.env = func(name string) string {
		if name == "HOME_DIR" {
			return "/home/builder"
		}
		return ""
	}
	s.Set("general", "cache", "${ENV:HOME_DIR}/cache")

	v, err := s.Get("general", "cache")
	require.NoError(t, err)
	assert.Equal(t, "/home/builder/cache", v)
}

func TestEnvUnsetFails(t *testing.T) {
	s := New(nil, nil)
	s.env = func(string) string { return "" }
	s.Set("general", "cache", "${ENV:NO_SUCH_VAR}/cache")

	_, err := s.Get("general", "cache")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "NO_SUCH_VAR")
}

func TestShellInterpolation(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{"uname -m": "i686"}}
	s := New(nil, sh)
	s.Set("general", "host_arch", "arch=${SHELL:uname -m}")

	v, err := s.Get("general", "host_arch")
	require.NoError(t, err)
	assert.Equal(t, "arch=i686", v)
}

func TestShellFailureBecomesConfigError(t *testing.T) {
	sh := &fakeShell{err: errors.Newf(errors.ErrRun, "exit code 1")}
	s := New(nil, sh)
	s.Set("general", "bad", "${SHELL:false}")

	_, err := s.Get("general", "bad")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "${SHELL:false}")
}

func TestMacroInterpolation(t *testing.T) {
	m := &fakeMacros{values: map[string]string{"_topdir": "/build/rpmbuild"}}
	s := New(m, nil)
	s.Set("general", "top", "${RPM:_topdir}")

	v, err := s.Get("general", "top")
	require.NoError(t, err)
	assert.Equal(t, "/build/rpmbuild", v)
}

func TestMacroEvaluatorSharedAcrossClones(t *testing.T) {
	m := &fakeMacros{values: map[string]string{"dist": ".oc00"}}
	s := New(m, nil)
	s.Set("general", "dist", "${RPM:dist}")

	c := s.Clone()

	_, err := s.Get("general", "dist")
	require.NoError(t, err)
	_, err = c.Get("general", "dist")
	require.NoError(t, err)

	// Both stores went through the same evaluator (caching is the
	// evaluator's job, tested in pkg/rpm).
	assert.Equal(t, 2, m.calls["dist"])
}

func TestMixedPlaceholders(t *testing.T) {
	m := &fakeMacros{values: map[string]string{"_topdir": "/build"}}
	sh := &fakeShell{outputs: map[string]string{"id -un": "builder"}}
	s := New(m, sh)
	s.env = func(name string) string {
		if name == "OS" {
			return "os2"
		}
		return ""
	}
	s.Set("general", "tag", "${RPM:_topdir}/${SHELL:id -un}/${ENV:OS}")

	v, err := s.Get("general", "tag")
	require.NoError(t, err)
	assert.Equal(t, "/build/builder/os2", v)
}

func TestGetRawSkipsInterpolation(t *testing.T) {
	s := New(nil, nil)
	s.Set("general", "tpl", "${undefined}")

	v, err := s.GetRaw("general", "tpl")
	require.NoError(t, err)
	assert.Equal(t, "${undefined}", v)
}
