package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", Clone(ErrSessionExpired, ""))
	appErr := FromError(err)
	require.Equal(t, ErrSessionExpired.Code, appErr.Code)
	require.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.Equal(t, ErrInternal.Code, appErr.Code)
	require.EqualError(t, appErr, "internal server error: boom")
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := Wrap(errors.New("dial tcp"), ErrFetchFailed.Code, ErrFetchFailed.Status, ErrFetchFailed.Message)
	require.True(t, Is(wrapped, ErrFetchFailed))
	require.False(t, Is(wrapped, ErrSessionExpired))
	require.False(t, Is(nil, ErrFetchFailed))
	require.NotEqual(t, ErrSessionExpired.Message, ErrFetchFailed.Message)
}
