package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "en.wikipedia.org/wiki/Go", "en.wikipedia.org"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	require.NotNil(t, itemsTotal)
	require.NotNil(t, samplerCPUPercent)
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(itemsCounter("Positive"))
	ObserveItem("Positive")
	require.InDelta(t, before+1, testutil.ToFloat64(itemsCounter("Positive")), 0.0001)

	ObserveSample(12.5, 40)
	require.InDelta(t, 12.5, testutil.ToFloat64(samplerCPUPercent), 0.0001)
	require.InDelta(t, 40, testutil.ToFloat64(samplerRAMPercent), 0.0001)

	IncActiveWorkers()
	DecActiveWorkers()
	ObserveFetchFailure("https://example.com/x")
	ObserveJob("thread", "succeeded", time.Second)
	ObserveRun("test", "succeeded")
	ObserveHTTPRequest("GET", "/healthz", 200, time.Millisecond)
	require.GreaterOrEqual(t, testutil.ToFloat64(fetchFailuresTotal.WithLabelValues("example.com")), 1.0)
}

func itemsCounter(label string) prometheus.Counter {
	Init()
	return itemsTotal.WithLabelValues(label)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://en.wikipedia.org", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
