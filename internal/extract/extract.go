// Package extract turns fetched HTML into the plain text that gets scored.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Extraction modes accepted by New.
const (
	ModeParagraphs = "paragraphs"
	ModeStrict     = "strict"
)

// ErrUnknownMode is returned by New for an unsupported mode.
var ErrUnknownMode = errors.New("unknown extract mode")

var repeatedSpace = regexp.MustCompile(`\s+`)

// Extractor pulls scoreable text out of an HTML document.
type Extractor interface {
	Extract(body []byte) (string, error)
}

// New returns the Extractor for mode. An empty mode selects paragraphs.
func New(mode string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeParagraphs:
		return Paragraphs{}, nil
	case ModeStrict:
		return NewStrict(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// Paragraphs joins the text of every <p> element with single spaces.
type Paragraphs struct{}

// Extract implements Extractor.
func (Paragraphs) Extract(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, " "), nil
}

// Strict strips every tag from the document and keeps the remaining text.
type Strict struct {
	policyPool sync.Pool
}

// NewStrict builds a Strict extractor.
func NewStrict() *Strict {
	return &Strict{
		policyPool: sync.Pool{
			New: func() any {
				return bluemonday.StrictPolicy()
			},
		},
	}
}

// Extract implements Extractor.
func (s *Strict) Extract(body []byte) (string, error) {
	policy := s.policyPool.Get().(*bluemonday.Policy)
	defer s.policyPool.Put(policy)

	text := policy.SanitizeBytes(body)
	return strings.TrimSpace(html.UnescapeString(repeatedSpace.ReplaceAllString(string(text), " "))), nil
}
