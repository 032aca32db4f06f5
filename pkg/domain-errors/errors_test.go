package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("keeps cause reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "cache unavailable")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "cache unavailable: connection refused", err.Error())
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeValidation, "batch too large")
	outer := Wrap(inner, CodeBadRequest, "invalid request")

	assert.True(t, HasCode(outer, CodeBadRequest))
	assert.True(t, HasCode(outer, CodeValidation))
	assert.False(t, HasCode(outer, CodeInternal))
	assert.True(t, Is(fmt.Errorf("context: %w", inner), CodeValidation))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "missing")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
