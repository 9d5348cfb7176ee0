package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("doubao")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, 502, HTTPStatusOf(err))
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "doubao")
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrStageBusy, "stage busy")
	wrapped := fmt.Errorf("dispatch: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.Equal(t, ErrStageBusy, GetErrorCode(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.Equal(t, 0, HTTPStatusOf(plain))
	_, ok := AsError(plain)
	assert.False(t, ok)
}

func TestError_MessageFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code only",
			err:  NewError(ErrValidation, "missing name"),
			want: "[VALIDATION] missing name",
		},
		{
			name: "with status",
			err:  NewError(ErrUnauthorized, "bad key").WithHTTPStatus(401),
			want: "[UNAUTHORIZED 401] bad key",
		},
		{
			name: "with provider and cause",
			err:  NewError(ErrUpstreamError, "boom").WithProvider("gemini").WithCause(errors.New("eof")),
			want: "[gemini: UPSTREAM_ERROR] boom: eof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
