package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/e1732a364fed/blinkpipe/utils"
	"github.com/stretchr/testify/require"
)

func TestErrInErrIs(t *testing.T) {
	e := utils.ErrInErr{ErrDesc: "TLS handshake header is too short", ErrDetail: utils.ErrFrameTooShort, Data: 12}
	require.ErrorIs(t, e, utils.ErrFrameTooShort)
	require.NotErrorIs(t, e, utils.ErrMalformedHeader)

	wrapped := fmt.Errorf("preset failed: %w", e)
	require.ErrorIs(t, wrapped, utils.ErrFrameTooShort)

	var eie utils.ErrInErr
	require.True(t, errors.As(wrapped, &eie))
	require.Equal(t, 12, eie.Data)
	require.Contains(t, e.Error(), "too short")
}
