package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(CodeStorage, "insert snapshot", base)

	require.EqualError(t, err, "insert snapshot: boom")
	require.True(t, IsCode(err, CodeStorage))
	require.False(t, IsCode(err, CodeNotFound))
	require.ErrorIs(t, err, base)
}
