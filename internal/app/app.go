// Package app holds the long-lived services of an analysis run and wires them
// together from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/api"
	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/id/uuid"
	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
	memorypublisher "github.com/JakeFAU/concurrent-sentiment/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/concurrent-sentiment/internal/publisher/pubsub"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage/memory"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage/postgres"
)

// localTopic names the in-memory topic used when Pub/Sub is not configured.
const localTopic = "monitor-runs"

// RunStore saves and lists run summaries.
type RunStore interface {
	monitor.SummaryStore
	api.RunLister
}

// Publisher announces run summaries and can be closed.
type Publisher interface {
	monitor.Publisher
	io.Closer
}

type closer struct {
	name string
	fn   func() error
}

// App is the dependency container for one process.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	blobs     storage.BlobStore
	runs      RunStore
	publisher Publisher
	topic     string
	server    *api.Server
	ids       *uuid.Generator

	// NewProbe overrides the resource probe used by the monitor.
	NewProbe func() (monitor.Probe, error)

	closers []closer
}

// Option customises New.
type Option func(*App)

// WithBlobStore replaces the configured output store.
func WithBlobStore(store storage.BlobStore) Option {
	return func(a *App) { a.blobs = store }
}

// WithRunStore replaces the configured run summary store.
func WithRunStore(store RunStore) Option {
	return func(a *App) { a.runs = store }
}

// WithPublisher replaces the configured Pub/Sub publisher.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// New builds the services named by cfg. Anything already opened is closed
// again when a later service fails.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logging.OrNop(logger), ids: uuid.New()}
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.blobs == nil {
		store, closeFn, err := storage.Open(ctx, storage.Config{
			Provider: cfg.Output.Provider,
			Dir:      cfg.Output.Dir,
			Bucket:   cfg.Output.GCSBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("open output store: %w", err)
		}
		a.blobs = store
		a.onClose("output store", closeFn)
		a.logger.Info("output store ready", zap.String("provider", cfg.Output.Provider))
	}

	if a.runs == nil {
		if cfg.Database.DSN != "" {
			pg, err := postgres.New(ctx, postgres.Config{DSN: cfg.Database.DSN, Table: cfg.Database.Table})
			if err != nil {
				return nil, fmt.Errorf("open run store: %w", err)
			}
			a.onClose("run store", func() error { pg.Close(); return nil })
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, err
			}
			a.runs = pg
			a.logger.Info("run summaries go to postgres", zap.String("table", cfg.Database.Table))
		} else {
			a.runs = memory.NewRunStore()
		}
	}

	a.topic = cfg.PubSub.Topic
	if a.publisher == nil {
		if cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			a.logger.Debug("no Pub/Sub topic configured, keeping run summaries in memory")
			a.publisher = memorypublisher.New()
			a.topic = localTopic
		} else {
			pub, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID)
			if err != nil {
				return nil, fmt.Errorf("open publisher: %w", err)
			}
			a.publisher = pub
			a.logger.Info("run summaries published",
				zap.String("project", cfg.PubSub.ProjectID),
				zap.String("topic", cfg.PubSub.Topic),
			)
		}
	}
	if a.topic == "" {
		a.topic = localTopic
	}
	a.onClose("publisher", a.publisher.Close)

	a.server = api.NewServer(a.runs, a.logger.Named("api"))
	return a, nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Blobs returns the output store.
func (a *App) Blobs() storage.BlobStore { return a.blobs }

// Runs returns the run summary store.
func (a *App) Runs() RunStore { return a.runs }

// Publisher returns the run summary publisher.
func (a *App) Publisher() Publisher { return a.publisher }

// Server returns the status server.
func (a *App) Server() *api.Server { return a.server }

// RecordWriter fans a finished run out to the metrics CSV, the run store and
// the publisher.
func (a *App) RecordWriter() monitor.RecordWriter {
	return monitor.MultiWriter{
		monitor.CSVWriter{Store: a.blobs, Prefix: a.cfg.Output.Prefix},
		monitor.StoreWriter{Store: a.runs},
		monitor.PublishWriter{Publisher: a.publisher, Topic: a.topic},
	}
}

// Close releases every service in reverse order of opening and reports all
// failures together.
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return result.ErrorOrNil()
}
