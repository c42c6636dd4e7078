package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		sentinel error
	}{
		{"probe", KindProbe, ErrProbe},
		{"aspect ratio", KindUnsupportedAspectRatio, ErrUnsupportedAspectRatio},
		{"execution", KindExecution, ErrExecution},
		{"io", KindIO, ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", New(tt.kind, "export", errors.New("boom")))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
			for _, other := range sentinels {
				if other != tt.sentinel {
					assert.NotErrorIs(t, err, other)
				}
			}
		})
	}
}

func TestErrorIsSameKind(t *testing.T) {
	err := New(KindExecution, "export", nil)
	assert.True(t, errors.Is(err, &Error{Kind: KindExecution}))
	assert.False(t, errors.Is(err, &Error{Kind: KindIO}))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("exit status 1")
	err := New(KindExecution, "export", cause).
		WithStage("executing").
		WithProcess("ffmpeg", 1).
		WithMessage("ffmpeg export failed")

	assert.Equal(t, "export (executing): ffmpeg export failed [ffmpeg exit 1]: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestNewf(t *testing.T) {
	err := Newf(KindUnsupportedAspectRatio, "", "Unsupported aspect ratio format: %s", "3:2")
	assert.Equal(t, "Unsupported aspect ratio format: 3:2", err.Error())
	assert.Equal(t, -1, err.ExitCode)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
