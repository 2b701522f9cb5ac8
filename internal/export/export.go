// Package export writes the per-URL sentiment table.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JakeFAU/concurrent-sentiment/internal/sentiment"
)

// DefaultObject is the object name used when none is configured.
const DefaultObject = "sentiment_analysis.csv"

// ErrLengthMismatch is returned when URLs and scores do not pair up.
var ErrLengthMismatch = errors.New("url and score counts differ")

// Header is the column layout of the sentiment table.
var Header = []string{"url", "sentiment"}

// Row is one line of the sentiment table.
type Row struct {
	URL       string
	Sentiment sentiment.Label
}

// BlobStore receives the encoded table.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
}

// Rows pairs each URL with the label of its score, keeping input order.
func Rows(urls []string, scores []int32) ([]Row, error) {
	if len(urls) != len(scores) {
		return nil, fmt.Errorf("%w: %d urls, %d scores", ErrLengthMismatch, len(urls), len(scores))
	}
	rows := make([]Row, len(urls))
	for i, u := range urls {
		rows[i] = Row{URL: u, Sentiment: sentiment.Classify(scores[i])}
	}
	return rows, nil
}

// WriteCSV encodes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.URL, string(r.Sentiment)}); err != nil {
			return fmt.Errorf("write row for %s: %w", r.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save encodes rows and stores them as object, returning the store's URI.
func Save(ctx context.Context, store BlobStore, object string, rows []Row) (string, error) {
	if object == "" {
		object = DefaultObject
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", err
	}
	uri, err := store.PutObject(ctx, object, "text/csv", &buf)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", object, err)
	}
	return uri, nil
}
