package errdefs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFetchErrorMatchesCause(t *testing.T) {
	err := NewFetchError("ht!tp://bad", InvalidURL("ht!tp://bad", "missing scheme"))

	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, ErrInvalidURL))
	assert.False(t, errors.Is(err, ErrInvalidEncoding))
	assert.Contains(t, err.Error(), "ht!tp://bad")
}

func TestStepNotFoundMessage(t *testing.T) {
	err := StepNotFound("bogus", []string{"fetch_html", "extract_recipe"})
	assert.True(t, errors.Is(err, ErrStepNotFound))
	assert.Contains(t, err.Error(), "unknown step bogus, valid steps are: fetch_html, extract_recipe")
}

func TestIsChainFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid url", NewFetchError("x", InvalidURL("x", "no host")), true},
		{"step not found", StepNotFound("x", nil), true},
		{"cycle", Cycle("a", []string{"a", "b"}), true},
		{"plain fetch", NewFetchError("x", fmt.Errorf("connection refused")), false},
		{"step failure", StepFailed(fmt.Errorf("no recipe")), false},
		{"sink failure", SinkFailed(fmt.Errorf("disk full")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsChainFatal(tt.err))
		})
	}
}

func TestKindsAreDistinct(t *testing.T) {
	sink := SinkFailed(fmt.Errorf("rejected"))
	assert.True(t, errors.Is(sink, ErrSinkFailed))
	assert.False(t, errors.Is(sink, ErrStepExecutionFailed))
	assert.Equal(t, "save failed: rejected", sink.Error())

	stepErr := StepFailed(fmt.Errorf("no recipe found"))
	assert.True(t, errors.Is(stepErr, ErrStepExecutionFailed))
	assert.Equal(t, "no recipe found", stepErr.Error())
}
