package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func fakeGCS(t *testing.T, status int, body string) []option.ClientOption {
	t.Helper()
	return []option.ClientOption{
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{
			Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				assert.Contains(t, r.URL.Path, "/storage/v1/b/results")
				return &http.Response{
					StatusCode: status,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     http.Header{"Content-Type": {"application/json"}},
					Request:    r,
				}, nil
			}),
		}),
	}
}

func TestDialChecksBucket(t *testing.T) {
	t.Parallel()

	store, err := Dial(context.Background(), Config{Bucket: "results"}, fakeGCS(t, http.StatusOK, `{"name":"results"}`)...)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestDialFailsForMissingBucket(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), Config{Bucket: "results"},
		fakeGCS(t, http.StatusNotFound, `{"error":{"code":404,"message":"Not Found"}}`)...)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"results"`)
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), Config{})
	require.ErrorIs(t, err, ErrBucketRequired)

	_, err = New(nil, Config{Bucket: "b"})
	require.Error(t, err)
}
