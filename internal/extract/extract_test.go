package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>T</title><style>p{}</style></head>
<body><h1>Heading</h1><p>good <b>day</b></p><div>ignored</div><p>bad &amp; sad</p></body></html>`

func TestParagraphs(t *testing.T) {
	t.Parallel()

	text, err := Paragraphs{}.Extract([]byte(page))
	require.NoError(t, err)
	require.Equal(t, "good day bad & sad", text)
}

func TestParagraphsWithoutParagraphs(t *testing.T) {
	t.Parallel()

	text, err := Paragraphs{}.Extract([]byte("<html><body><div>x</div></body></html>"))
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestStrictKeepsAllText(t *testing.T) {
	t.Parallel()

	text, err := NewStrict().Extract([]byte(page))
	require.NoError(t, err)
	require.Contains(t, text, "Heading")
	require.Contains(t, text, "ignored")
	require.Contains(t, text, "bad & sad")
	require.NotContains(t, text, "<")
}

func TestNew(t *testing.T) {
	t.Parallel()

	ex, err := New("")
	require.NoError(t, err)
	require.IsType(t, Paragraphs{}, ex)

	ex, err = New("STRICT")
	require.NoError(t, err)
	require.IsType(t, &Strict{}, ex)

	_, err = New("xpath")
	require.ErrorIs(t, err, ErrUnknownMode)
}
