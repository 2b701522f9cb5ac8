// Package fetcher holds what the page fetcher implementations share.
package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus marks a fetch whose response status was not 200 OK.
// It is fatal to the job; fetches are never retried.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// StatusError reports the URL and status of a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot fetch %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Is makes errors.Is(err, ErrUnexpectedStatus) hold for a *StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// CheckStatus returns a *StatusError unless code is 200.
func CheckStatus(url string, code int) error {
	if code == http.StatusOK {
		return nil
	}
	return &StatusError{URL: url, Code: code}
}
