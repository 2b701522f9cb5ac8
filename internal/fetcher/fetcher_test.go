package fetcher

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckStatus(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckStatus("https://example.com", http.StatusOK))

	err := CheckStatus("https://example.com", http.StatusNotFound)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Contains(t, err.Error(), "404 Not Found")

	require.ErrorIs(t, CheckStatus("https://example.com", http.StatusNoContent), ErrUnexpectedStatus)
}
