package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/api"
	"github.com/JakeFAU/concurrent-sentiment/internal/app"
	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/export"
	"github.com/JakeFAU/concurrent-sentiment/internal/extract"
	"github.com/JakeFAU/concurrent-sentiment/internal/partition"
	"github.com/JakeFAU/concurrent-sentiment/internal/results"
	"github.com/JakeFAU/concurrent-sentiment/internal/sentiment"
)

type fakeApp struct {
	req     app.AnalyzeRequest
	err     error
	closed  bool
	server  *api.Server
	started bool
}

func (f *fakeApp) Analyze(_ context.Context, req app.AnalyzeRequest) (app.Outcome, error) {
	f.started = true
	f.req = req
	if f.err != nil {
		return app.Outcome{}, f.err
	}
	return app.Outcome{JobID: "job-1", Rows: make([]export.Row, len(req.URLs)), SentimentURI: "memory://out.csv"}, nil
}

func (f *fakeApp) Server() *api.Server { return f.server }

func (f *fakeApp) Close() error {
	f.closed = true
	return nil
}

type staticFetcher map[string]string

func (f staticFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	return []byte(f[url]), nil
}

func stubPipeline(t *testing.T) {
	t.Helper()
	prev := pipelineFactory
	pipelineFactory = func(config.Config) (analysis.Pipeline, func() error, error) {
		return analysis.Pipeline{
			Fetcher:   staticFetcher{"u1": "<p>good</p>", "u2": "<p>bad bad</p>"},
			Extractor: extract.Paragraphs{},
			Scorer:    sentiment.NewVocabulary([]string{"good"}, []string{"bad"}),
		}, func() error { return nil }, nil
	}
	t.Cleanup(func() { pipelineFactory = prev })
}

func stubApp(t *testing.T, fake *fakeApp) *config.Config {
	t.Helper()
	var seen config.Config
	prev := newApp
	newApp = func(_ context.Context, cfg config.Config, _ *zap.Logger) (App, error) {
		seen = cfg
		return fake, nil
	}
	t.Cleanup(func() { newApp = prev })
	return &seen
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeURLs(t *testing.T, urls ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(urls, "\n")+"\n"), 0o600))
	return p
}

func TestAnalyzeCommand(t *testing.T) {
	stubPipeline(t)
	fake := &fakeApp{}
	seen := stubApp(t, fake)

	out, err := execute(t, "", "analyze", "--urls", writeURLs(t, "u1", "u2"), "--workers", "3", "--mode", "process")
	require.NoError(t, err)

	assert.Contains(t, out, "job job-1: 2 urls scored")
	assert.Equal(t, []string{"u1", "u2"}, fake.req.URLs)
	assert.NotNil(t, fake.req.WorkerCommand)
	assert.Equal(t, 3, seen.Executor.Workers)
	assert.Equal(t, config.ModeProcess, seen.Executor.Mode)
	assert.True(t, fake.closed)
}

func TestAnalyzeCommand_SkipsBlankURLLines(t *testing.T) {
	stubPipeline(t)
	fake := &fakeApp{}
	stubApp(t, fake)

	p := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(p, []byte("u1\n\n   \nu2\n"), 0o600))

	_, err := execute(t, "", "analyze", "--urls", p)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, fake.req.URLs)
}

func TestAnalyzeCommand_InvalidMode(t *testing.T) {
	stubPipeline(t)
	fake := &fakeApp{}
	stubApp(t, fake)

	_, err := execute(t, "", "analyze", "--urls", writeURLs(t, "u1"), "--mode", "fibers")
	require.ErrorIs(t, err, config.ErrInvalid)
	assert.False(t, fake.started)
}

func TestAnalyzeCommand_PropagatesFailure(t *testing.T) {
	stubPipeline(t)
	fake := &fakeApp{err: errors.New("boom")}
	stubApp(t, fake)

	_, err := execute(t, "", "analyze", "--urls", writeURLs(t, "u1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze: boom")
	assert.True(t, fake.closed)
}

func TestAnalyzeCommand_MissingURLFile(t *testing.T) {
	stubPipeline(t)
	fake := &fakeApp{}
	stubApp(t, fake)

	_, err := execute(t, "", "analyze", "--urls", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read urls")
	assert.False(t, fake.started)
}

func TestWorkerCommand_ScoresRange(t *testing.T) {
	stubPipeline(t)
	called := false
	prev := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		called = true
		return nil, errors.New("worker must not build services")
	}
	t.Cleanup(func() { newApp = prev })

	buf, err := results.CreateShared(t.TempDir(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })

	_, err = execute(t, "u1\nu2\n", "worker", "--job-id", "job-1",
		"--start", "0", "--end", "1", "--buffer", buf.Path(), "--count", "2")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, []int32{1, -1}, results.Snapshot(buf))
}

func TestWorkerCommand_CountMismatch(t *testing.T) {
	stubPipeline(t)

	buf, err := results.CreateShared(t.TempDir(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })

	_, err = execute(t, "u1\nu2\n", "worker", "--start", "0", "--end", "1", "--buffer", buf.Path(), "--count", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker got 2 urls, want 3")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sentiment dev (none, go"), out)
}

func TestWorkerArgs(t *testing.T) {
	t.Parallel()

	spec := analysis.WorkerSpec{
		JobID:      "j",
		Range:      partition.Range{Start: 4, End: 8},
		BufferPath: "/tmp/buf",
		Count:      12,
	}
	assert.Equal(t, []string{
		"worker", "--config", "cfg.yaml", "--job-id", "j",
		"--start", "4", "--end", "8", "--buffer", "/tmp/buf", "--count", "12",
	}, workerArgs("cfg.yaml", spec))
	assert.Equal(t, "worker", workerArgs("", spec)[0])
	assert.NotContains(t, workerArgs("", spec), "--config")
}

func TestWorkerCommandBuildsChild(t *testing.T) {
	t.Parallel()

	c, err := workerCommand("")(context.Background(), analysis.WorkerSpec{
		Range: partition.Range{Start: 0, End: 1}, BufferPath: "b", Count: 2, URLs: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "worker", c.Args[1])
	require.NotNil(t, c.Stdin)
}
