package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrConfig, "no value for option `general.archs`")
	assert.Equal(t, "[CONFIG] no value for option `general.archs`", err.Error())

	wrapped := Wrap(errors.New("permission denied"), ErrIO, "cannot read summary")
	assert.Equal(t, "[IO] cannot read summary: permission denied", wrapped.Error())
	assert.Equal(t, "permission denied", wrapped.Unwrap().Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrIO, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrIO, "nothing %d", 1))
}

func TestIsErrorCode(t *testing.T) {
	err := Newf(ErrRun, "command failed with exit code %d", 2)
	assert.True(t, IsErrorCode(err, ErrRun))
	assert.False(t, IsErrorCode(err, ErrConfig))

	// Codes survive wrapping in plain fmt errors.
	deep := fmt.Errorf("outer: %w", err)
	assert.True(t, IsErrorCode(deep, ErrRun))
	assert.Equal(t, ErrRun, GetErrorCode(deep))

	assert.Equal(t, ErrUnknown, GetErrorCode(errors.New("plain")))
}

func TestHintAndDetails(t *testing.T) {
	err := New(ErrDuplicateBuild, "build summary already exists").
		WithHint("use -f to overwrite this build").
		WithDetail("version", "1.2-3.oc00")

	assert.Equal(t, "use -f to overwrite this build", GetHint(err))
	assert.Equal(t, "1.2-3.oc00", GetDetail(err, "version"))
	assert.Nil(t, GetDetail(err, "missing"))
	assert.Empty(t, GetHint(errors.New("plain")))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", New(ErrConfig, "x"), ExitConfig},
		{"io", New(ErrIO, "x"), ExitIO},
		{"run", New(ErrRun, "x"), ExitRun},
		{"internal", New(ErrInternal, "x"), ExitInternal},
		{"plain error", errors.New("x"), ExitError},
		{"domain rule", New(ErrDuplicateBuild, "x"), ExitError},
		{"not found", New(ErrNotFound, "x"), ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
