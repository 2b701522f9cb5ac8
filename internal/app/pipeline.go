package app

import (
	"fmt"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/executor"
	"github.com/JakeFAU/concurrent-sentiment/internal/extract"
	collyfetcher "github.com/JakeFAU/concurrent-sentiment/internal/fetcher/colly"
	"github.com/JakeFAU/concurrent-sentiment/internal/fetcher/headless"
	"github.com/JakeFAU/concurrent-sentiment/internal/fetcher/ratelimit"
	"github.com/JakeFAU/concurrent-sentiment/internal/sentiment"
)

// NewFetcher builds the configured page fetcher, rate limited per host when
// configured. The close function is never nil.
func NewFetcher(cfg config.Config) (executor.Fetcher, func() error, error) {
	f, closeFn, err := newEngine(cfg)
	if err != nil {
		return nil, closeFn, err
	}
	return ratelimit.Wrap(f, ratelimit.Config{RPS: cfg.Fetch.RatePerSecond, Burst: cfg.Fetch.RateBurst}), closeFn, nil
}

func newEngine(cfg config.Config) (executor.Fetcher, func() error, error) {
	switch cfg.Fetch.Engine {
	case config.EngineChromedp:
		f, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Fetch.HeadlessMaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavigationTimeout(),
		})
		if err != nil {
			return nil, func() error { return nil }, fmt.Errorf("start headless fetcher: %w", err)
		}
		return f, f.Close, nil
	default:
		f := collyfetcher.New(collyfetcher.Config{UserAgent: cfg.Fetch.UserAgent, Timeout: cfg.FetchTimeout()})
		return f, func() error { return nil }, nil
	}
}

// NewPipeline loads the word lists and builds fetch, extract and score
// stages. Worker processes call it too, so it opens no shared services.
func NewPipeline(cfg config.Config) (analysis.Pipeline, func() error, error) {
	noop := func() error { return nil }
	vocab, err := sentiment.Load(cfg.Input.PositiveWordsFile, cfg.Input.NegativeWordsFile)
	if err != nil {
		return analysis.Pipeline{}, noop, err
	}
	ex, err := extract.New(cfg.Extract.Mode)
	if err != nil {
		return analysis.Pipeline{}, noop, err
	}
	f, closeFn, err := NewFetcher(cfg)
	if err != nil {
		return analysis.Pipeline{}, noop, err
	}
	return analysis.Pipeline{Fetcher: f, Extractor: ex, Scorer: vocab}, closeFn, nil
}
