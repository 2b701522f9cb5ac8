package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenLocalAndMemory(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{Provider: ProviderLocal, Dir: t.TempDir()},
		{Provider: "", Dir: t.TempDir()},
		{Provider: ProviderMemory},
	} {
		store, closeFn, err := Open(context.Background(), cfg)
		require.NoError(t, err, "provider %q", cfg.Provider)

		_, err = store.PutObject(context.Background(), "x.csv", "text/csv", strings.NewReader("1"))
		require.NoError(t, err)
		data, err := store.GetObject(context.Background(), "x.csv")
		require.NoError(t, err)
		require.Equal(t, "1", string(data))
		require.NoError(t, closeFn())
	}
}

func TestOpenRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, closeFn, err := Open(context.Background(), Config{Provider: "s3"})
	require.Error(t, err)
	require.NotNil(t, closeFn)

	_, _, err = Open(context.Background(), Config{Provider: ProviderGCS})
	require.Error(t, err)
}
