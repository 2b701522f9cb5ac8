package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/app"
	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/extract"
	"github.com/JakeFAU/concurrent-sentiment/internal/fetcher"
	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
	memorypublisher "github.com/JakeFAU/concurrent-sentiment/internal/publisher/memory"
	"github.com/JakeFAU/concurrent-sentiment/internal/sentiment"
	"github.com/JakeFAU/concurrent-sentiment/internal/storage/memory"
)

// MockPublisher mocks the app.Publisher interface.
type MockPublisher struct {
	mock.Mock
}

// Publish satisfies monitor.Publisher for the mock.
func (m *MockPublisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	args := m.Called(ctx, topic, payload)
	return args.String(0), args.Error(1)
}

// Close satisfies io.Closer for the mock.
func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type pageFetcher map[string]string

func (f pageFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, fetcher.CheckStatus(url, 404)
	}
	return []byte(body), nil
}

func testConfig() config.Config {
	return config.Config{
		Executor: config.ExecutorConfig{Mode: config.ModeThread, Workers: 2, MinLoadPerWorker: 1},
		Fetch:    config.FetchConfig{Engine: config.EngineColly, TimeoutSeconds: 5},
		Monitor:  config.MonitorConfig{Name: "test", Runs: 2, IntervalsSeconds: []float64{0.5, 0.5}},
		Output:   config.OutputConfig{Provider: "memory", Prefix: "metrics", SentimentObject: "out.csv"},
	}
}

func flatProbe() (monitor.Probe, error) {
	return monitor.ProbeFunc(func() (float64, float64, error) { return 10, 20, nil }), nil
}

func testPipeline() analysis.Pipeline {
	return analysis.Pipeline{
		Fetcher: pageFetcher{
			"u1": "<p>good great</p>",
			"u2": "<p>bad</p>",
			"u3": "<p>nothing here</p>",
		},
		Extractor: extract.Paragraphs{},
		Scorer:    sentiment.NewVocabulary([]string{"good", "great"}, []string{"bad"}),
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	assert.IsType(t, &memory.BlobStore{}, a.Blobs())
	assert.IsType(t, &memory.RunStore{}, a.Runs())
	assert.IsType(t, &memorypublisher.Publisher{}, a.Publisher())
	assert.NotNil(t, a.Server())
	assert.Len(t, a.RecordWriter(), 3)
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Output.Provider = "ftp"
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open output store")
}

func TestAnalyze_WritesOutputs(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PubSub = config.PubSubConfig{ProjectID: "p", Topic: "runs"}

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "runs", mock.AnythingOfType("monitor.Summary")).Return("msg", nil).Times(2)
	pub.On("Close").Return(nil).Once()

	blobs := memory.NewBlobStore()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithBlobStore(blobs), app.WithPublisher(pub))
	require.NoError(t, err)
	a.NewProbe = flatProbe

	out, err := a.Analyze(context.Background(), app.AnalyzeRequest{
		URLs:     []string{"u1", "u2", "u3"},
		Pipeline: testPipeline(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.JobID)
	assert.Equal(t, "memory://out.csv", out.SentimentURI)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, sentiment.Positive, out.Rows[0].Sentiment)
	assert.Equal(t, sentiment.Negative, out.Rows[1].Sentiment)
	assert.Equal(t, sentiment.Neutral, out.Rows[2].Sentiment)

	table, err := blobs.GetObject(context.Background(), "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "url,sentiment\nu1,Positive\nu2,Negative\nu3,Neutral\n", string(table))

	assert.ElementsMatch(t, []string{
		"metrics/metrics_monitor_test_1.csv",
		"metrics/metrics_monitor_test_2.csv",
		"out.csv",
	}, blobs.Objects())

	runs, err := a.Runs().ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, out.JobID, r.JobID)
		assert.InDelta(t, 10, r.AvgCPU, 1e-9)
		assert.InDelta(t, 20, r.AvgRAM, 1e-9)
	}

	require.NoError(t, a.Close())
	pub.AssertExpectations(t)
}

func TestAnalyze_FetchFailureSkipsExport(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Monitor.Runs = 1
	cfg.Monitor.IntervalsSeconds = []float64{0.5}

	blobs := memory.NewBlobStore()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithBlobStore(blobs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	a.NewProbe = flatProbe

	_, err = a.Analyze(context.Background(), app.AnalyzeRequest{
		URLs:     []string{"u1", "missing"},
		Pipeline: testPipeline(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcher.ErrUnexpectedStatus)

	for _, obj := range blobs.Objects() {
		assert.False(t, strings.HasSuffix(obj, "out.csv"), "sentiment table must not be written")
	}
}

func TestAnalyze_BadMonitorConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Monitor.IntervalsSeconds = []float64{1}
	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Analyze(context.Background(), app.AnalyzeRequest{URLs: []string{"u1"}, Pipeline: testPipeline()})
	require.ErrorIs(t, err, monitor.ErrIntervalCount)
}

func TestClose_AggregatesErrors(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PubSub = config.PubSubConfig{ProjectID: "p", Topic: "runs"}
	pub := new(MockPublisher)
	pub.On("Close").Return(errors.New("pubsub down")).Once()

	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithPublisher(pub))
	require.NoError(t, err)

	err = a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close publisher: pubsub down")
	require.NoError(t, a.Close(), "second close is a no-op")
	pub.AssertExpectations(t)
}

func TestNewPipeline_MissingWordList(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Input.PositiveWordsFile = t.TempDir() + "/absent.txt"
	cfg.Input.NegativeWordsFile = t.TempDir() + "/absent.txt"
	_, closeFn, err := app.NewPipeline(cfg)
	require.Error(t, err)
	require.NotNil(t, closeFn)
	assert.NoError(t, closeFn())
}

func TestAnalyze_InMemoryPublisherByDefault(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Monitor.Runs = 1
	cfg.Monitor.IntervalsSeconds = []float64{0.5}

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	a.NewProbe = flatProbe

	out, err := a.Analyze(context.Background(), app.AnalyzeRequest{URLs: []string{"u1"}, Pipeline: testPipeline()})
	require.NoError(t, err)

	pub, ok := a.Publisher().(*memorypublisher.Publisher)
	require.True(t, ok)
	msgs := pub.Messages("monitor-runs")
	require.Len(t, msgs, 1)
	sum, ok := msgs[0].Payload.(monitor.Summary)
	require.True(t, ok)
	assert.Equal(t, out.JobID, sum.JobID)
	assert.Equal(t, 1, sum.Run)
}
