package errz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := Newf(ErrProtocol, ErrNotRelaxed, "function %d: %s", 2, "jumps have not been relaxed")
	require.Equal(t, "protocol error: function 2: jumps have not been relaxed", err.Error())
	require.True(t, errors.Is(err, ErrNotRelaxed))
	require.False(t, errors.Is(err, ErrUnboundLabel))
	require.True(t, err.IsFatal())
}

func TestNew(t *testing.T) {
	err := New(ErrInternal, ErrGeneratorConsumed)
	require.Equal(t, "internal error: module generator already consumed", err.Error())
	require.ErrorIs(t, err, ErrGeneratorConsumed)
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", New(ErrEncoding, ErrJumpTable))
	require.True(t, Is(wrapped, ErrEncoding))
	require.False(t, Is(wrapped, ErrProtocol))
	require.False(t, Is(errors.New("plain"), ErrInternal))
}

func TestWithCause(t *testing.T) {
	err := (&StructuredError{Kind: ErrInternal, Message: "boom"}).WithCause(ErrHandlerRange)
	require.ErrorIs(t, err, ErrHandlerRange)
}

func TestErrorKindString(t *testing.T) {
	require.Equal(t, "internal error", ErrInternal.String())
	require.Equal(t, "protocol error", ErrProtocol.String())
	require.Equal(t, "encoding error", ErrEncoding.String())
	require.Equal(t, "error", ErrorKind(99).String())
}
