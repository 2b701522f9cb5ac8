package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
	"github.com/JakeFAU/concurrent-sentiment/internal/partition"
	"github.com/JakeFAU/concurrent-sentiment/internal/results"
	"github.com/JakeFAU/concurrent-sentiment/internal/sentiment"
)

// ErrRangeOutOfBounds is returned when a range reaches past the item list or
// the result buffer.
var ErrRangeOutOfBounds = errors.New("range out of bounds")

// Fetcher downloads the document at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a fetched document into scoreable text.
type Extractor interface {
	Extract(body []byte) (string, error)
}

// Scorer maps text to an integer score.
type Scorer interface {
	Score(text string) int32
}

// WorkFunc processes every index of one range.
type WorkFunc func(ctx context.Context, r partition.Range) error

// RangeWorker fetches, scores and stores the items of a range in order.
type RangeWorker struct {
	urls      []string
	fetcher   Fetcher
	extractor Extractor
	scorer    Scorer
	sink      results.Sink
	logger    *zap.Logger
}

// NewRangeWorker builds a RangeWorker over the full item list. The sink must
// have one slot per URL.
func NewRangeWorker(
	urls []string,
	fetcher Fetcher,
	extractor Extractor,
	scorer Scorer,
	sink results.Sink,
	logger *zap.Logger,
) *RangeWorker {
	return &RangeWorker{
		urls:      urls,
		fetcher:   fetcher,
		extractor: extractor,
		scorer:    scorer,
		sink:      sink,
		logger:    logging.OrNop(logger),
	}
}

// Run processes r.Start through r.End sequentially. The first failure aborts
// the range; nothing is retried.
func (w *RangeWorker) Run(ctx context.Context, r partition.Range) error {
	if r.Len() == 0 {
		return nil
	}
	if r.Start < 0 || r.End >= len(w.urls) || r.End >= w.sink.Len() {
		return fmt.Errorf("range %s over %d items: %w", r, len(w.urls), ErrRangeOutOfBounds)
	}
	w.logger.Debug("range started", zap.Stringer("range", r))
	for i := r.Start; i <= r.End; i++ {
		if err := w.process(ctx, i); err != nil {
			return err
		}
	}
	w.logger.Debug("range finished", zap.Stringer("range", r))
	return nil
}

func (w *RangeWorker) process(ctx context.Context, i int) error {
	url := w.urls[i]
	body, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObserveFetchFailure(url)
		return fmt.Errorf("item %d (%s): fetch: %w", i, url, err)
	}
	text, err := w.extractor.Extract(body)
	if err != nil {
		return fmt.Errorf("item %d (%s): extract: %w", i, url, err)
	}
	score := w.scorer.Score(text)
	w.sink.Store(i, score)
	metrics.ObserveItem(string(sentiment.Classify(score)))
	return nil
}
