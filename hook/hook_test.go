package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	tests := []struct {
		name        string
		try         func() error
		catch       func(error) error
		wantErr     string
		wantPanic   bool
		wantFinally bool
	}{
		{name: "success", try: func() error { return nil }, wantFinally: true},
		{name: "error passes through", try: func() error { return errors.New("boom") }, wantErr: "boom", wantFinally: true},
		{
			name:        "catch rewrites",
			try:         func() error { return errors.New("boom") },
			catch:       func(err error) error { return errors.New("caught: " + err.Error()) },
			wantErr:     "caught: boom",
			wantFinally: true,
		},
		{name: "panic recovered", try: func() error { panic("nil map") }, wantErr: "panic: nil map", wantPanic: true, wantFinally: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finallyRan := false
			err := Call(Func{
				TryFunc:     tt.try,
				CatchFunc:   tt.catch,
				FinallyFunc: func() { finallyRan = true },
			})
			assert.Equal(t, tt.wantFinally, finallyRan)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
			var pe *PanicError
			assert.Equal(t, tt.wantPanic, errors.As(err, &pe))
			if tt.wantPanic {
				assert.NotEmpty(t, pe.Stack)
			}
		})
	}
}

func TestCallNil(t *testing.T) {
	assert.Error(t, Call(nil))
}
