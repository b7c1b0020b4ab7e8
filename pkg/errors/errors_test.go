package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "GenomeEmpty",
			code:    GenomeEmpty,
			message: "genome has no data",
		},
		{
			name:    "PopulationFull",
			code:    PopulationFull,
			message: "population at capacity",
		},
		{
			name:    "ValidationFailed",
			code:    ValidationFailed,
			message: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())

			// Test nil original error for new errors
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("original error")

	tests := []struct {
		name       string
		err        error
		code       ErrorCode
		wrapMsg    string
		expectNil  bool
		expectCode ErrorCode
	}{
		{
			name:       "Wrap normal error",
			err:        originalErr,
			code:       InvalidArgument,
			wrapMsg:    "crossover parent check",
			expectNil:  false,
			expectCode: InvalidArgument,
		},
		{
			name:      "Wrap nil error",
			err:       nil,
			code:      InvalidArgument,
			wrapMsg:   "crossover parent check",
			expectNil: true,
		},
		{
			name:       "Wrap custom error",
			err:        New(GenomeEmpty, "no data"),
			code:       GenomeInvalid,
			wrapMsg:    "mutation target",
			expectNil:  false,
			expectCode: GenomeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, tt.code, tt.wrapMsg)

			if tt.expectNil {
				assert.Nil(t, wrapped)
				return
			}

			assert.NotNil(t, wrapped)

			ourErr := wrapped.(*Error)
			assert.Equal(t, tt.expectCode, ourErr.Code())
			assert.Contains(t, ourErr.Error(), tt.wrapMsg)
			assert.Equal(t, tt.err, ourErr.Unwrap())
		})
	}
}

// TestWithFields tests attaching structured context to errors.
func TestWithFields(t *testing.T) {
	t.Run("Attach to custom error", func(t *testing.T) {
		err := New(PopulationFull, "cannot add individual")
		withCtx := WithFields(err, Fields{"capacity": 100, "size": 100})

		require.NotNil(t, withCtx)
		ourErr := withCtx.(*Error)
		assert.Equal(t, PopulationFull, ourErr.Code())
		assert.Equal(t, 100, ourErr.Fields()["capacity"])
	})

	t.Run("Attach to standard error", func(t *testing.T) {
		err := stderrors.New("plain")
		withCtx := WithFields(err, Fields{"generation": 7})

		require.NotNil(t, withCtx)
		ourErr := withCtx.(*Error)
		assert.Equal(t, Unknown, ourErr.Code())
		assert.Equal(t, 7, ourErr.Fields()["generation"])
	})

	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.Nil(t, WithFields(nil, Fields{"x": 1}))
	})

	t.Run("Fields are merged not shared", func(t *testing.T) {
		base := WithFields(New(Unknown, "base"), Fields{"a": 1})
		extended := WithFields(base, Fields{"b": 2})

		baseErr := base.(*Error)
		extErr := extended.(*Error)

		assert.NotContains(t, baseErr.Fields(), "b")
		assert.Equal(t, 1, extErr.Fields()["a"])
		assert.Equal(t, 2, extErr.Fields()["b"])
	})
}

// TestErrorMatching tests errors.Is and errors.As behavior.
func TestErrorMatching(t *testing.T) {
	err := Wrap(New(GenomeEmpty, "inner"), PopulationEmpty, "outer")

	assert.True(t, stderrors.Is(err, New(PopulationEmpty, "anything")))
	assert.True(t, stderrors.Is(err, New(GenomeEmpty, "anything")))
	assert.False(t, stderrors.Is(err, New(PopulationFull, "anything")))

	var target *Error
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, PopulationEmpty, target.Code())
}

// TestCodeOf tests code extraction.
func TestCodeOf(t *testing.T) {
	assert.Equal(t, Unknown, CodeOf(nil))
	assert.Equal(t, Unknown, CodeOf(stderrors.New("plain")))
	assert.Equal(t, SizeMismatch, CodeOf(New(SizeMismatch, "bad sizes")))
}

// TestCheckContext tests the context helper.
func TestCheckContext(t *testing.T) {
	t.Run("Active context", func(t *testing.T) {
		assert.NoError(t, CheckContext(context.Background(), "evaluate"))
	})

	t.Run("Canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := CheckContext(ctx, "evaluate")
		require.Error(t, err)
		assert.Equal(t, Canceled, CodeOf(err))
		assert.Contains(t, err.Error(), "evaluate canceled")
	})
}
