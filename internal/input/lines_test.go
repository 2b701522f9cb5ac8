package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadLinesTrimsAndSkipsBlanks(t *testing.T) {
	t.Parallel()

	lines, err := ReadLines(strings.NewReader("  https://a \n\n\thttps://b\r\n   \nhttps://c"))
	require.NoError(t, err)
	require.Equal(t, []string{"https://a", "https://b", "https://c"}, lines)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("good\nfine\n"), 0o600))

	lines, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"good", "fine"}, lines)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
