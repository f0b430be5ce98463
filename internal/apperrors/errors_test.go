package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidInput, CodeOf(InvalidInput("title", "required")))
	assert.Equal(t, CodeUnauthorized, CodeOf(Unauthorized("nope")))
	assert.Equal(t, CodePrecondition, CodeOf(NotFound("request", "abc")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
	assert.Equal(t, CodeInternal, CodeOf(Wrap(errors.New("db down"), CodeInternal, "query failed")))
}

func TestCodeOf_WrappedChain(t *testing.T) {
	inner := New(CodeInvariant, "no intake department")
	outer := fmt.Errorf("sweep: %w", inner)

	assert.Equal(t, CodeInvariant, CodeOf(outer))
	assert.True(t, HasCode(outer, CodeInvariant))
	assert.False(t, HasCode(outer, CodePrecondition))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))

	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "query failed")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "internal")
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNotFound_IndistinguishableFromPrecondition(t *testing.T) {
	missing := NotFound("request", "abc")
	filtered := New(CodePrecondition, "request abc not found or not in the expected state")

	assert.Equal(t, CodeOf(missing), CodeOf(filtered))
}
