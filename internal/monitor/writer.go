package monitor

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// RecordWriter persists a finished run.
type RecordWriter interface {
	WriteRun(ctx context.Context, rec RunRecord) error
}

// RecordWriterFunc adapts a function to RecordWriter.
type RecordWriterFunc func(ctx context.Context, rec RunRecord) error

// WriteRun implements RecordWriter.
func (f RecordWriterFunc) WriteRun(ctx context.Context, rec RunRecord) error { return f(ctx, rec) }

// MultiWriter hands every record to all of its writers, even when some fail.
type MultiWriter []RecordWriter

// WriteRun implements RecordWriter.
func (m MultiWriter) WriteRun(ctx context.Context, rec RunRecord) error {
	var result *multierror.Error
	for _, w := range m {
		if w == nil {
			continue
		}
		if err := w.WriteRun(ctx, rec); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// SummaryStore persists run summaries (e.g. a database table).
type SummaryStore interface {
	SaveRun(ctx context.Context, s Summary) error
}

// Publisher announces run summaries on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// StoreWriter saves the summary of each record.
type StoreWriter struct {
	Store SummaryStore
}

// WriteRun implements RecordWriter.
func (w StoreWriter) WriteRun(ctx context.Context, rec RunRecord) error {
	sum, err := rec.Summary()
	if err != nil {
		return err
	}
	return w.Store.SaveRun(ctx, sum)
}

// PublishWriter publishes the summary of each record.
type PublishWriter struct {
	Publisher Publisher
	Topic     string
}

// WriteRun implements RecordWriter.
func (w PublishWriter) WriteRun(ctx context.Context, rec RunRecord) error {
	sum, err := rec.Summary()
	if err != nil {
		return err
	}
	_, err = w.Publisher.Publish(ctx, w.Topic, sum)
	return err
}
