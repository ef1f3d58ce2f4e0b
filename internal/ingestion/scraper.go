package ingestion

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/job-assistant/internal/fetch"
)

const (
	// MinScrapedLength is the shortest extracted posting accepted as real content.
	MinScrapedLength = 100
	// MaxScrapedLength caps the posting text handed to the language model.
	MaxScrapedLength = 15000
	// TruncationMarker is appended when a posting exceeds MaxScrapedLength.
	TruncationMarker = "\n\n[Content truncated]"
)

// FetchError reports why a job posting could not be scraped.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Scraper turns a job posting URL into cleaned plain text.
type Scraper struct {
	Options *fetch.Options
	// Render, when set, re-fetches pages whose static HTML holds too little text.
	Render fetch.Renderer
	Logger *zap.Logger
}

// NewScraper builds a scraper. render may be nil to disable the browser fallback.
func NewScraper(opts *fetch.Options, render fetch.Renderer, logger *zap.Logger) *Scraper {
	if opts == nil {
		opts = fetch.DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{Options: opts, Render: render, Logger: logger}
}

// Fetch downloads the posting and returns its cleaned, truncated text.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	text, _, err := s.FetchWithMetadata(ctx, url)
	return text, err
}

// FetchWithMetadata is Fetch plus provenance for the scraped text.
func (s *Scraper) FetchWithMetadata(ctx context.Context, url string) (string, *Metadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", nil, &FetchError{URL: url, Message: "empty URL"}
	}

	platform := fetch.DetectPlatform(url)
	log := s.Logger.With(zap.String("url", url), zap.String("platform", string(platform)))

	result, err := fetch.URL(ctx, url, s.Options)
	if err != nil {
		return "", nil, &FetchError{URL: url, Message: "request failed", Cause: err}
	}

	text, err := extract(result.HTML, platform)
	if err != nil {
		return "", nil, &FetchError{URL: url, Message: "could not parse page", Cause: err}
	}

	if s.Render != nil && fetch.ShouldUseBrowser(text) {
		log.Info("static page too short, rendering in browser", zap.Int("chars", len(text)))
		html, renderErr := s.Render(ctx, url)
		if renderErr != nil {
			log.Warn("browser render failed, keeping static text", zap.Error(renderErr))
		} else if rendered, extractErr := extract(html, platform); extractErr == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	text = CleanText(text)
	if len(text) < MinScrapedLength {
		return "", nil, &FetchError{
			URL:     url,
			Message: fmt.Sprintf("extracted content too short (%d chars, need %d)", len(text), MinScrapedLength),
		}
	}

	text = Truncate(text)
	log.Debug("scraped job posting", zap.Int("chars", len(text)))

	meta := NewMetadata(text, url)
	meta.Platform = string(platform)
	return text, meta, nil
}

func extract(html string, platform fetch.Platform) (string, error) {
	return fetch.ExtractMainText(html, fetch.ContentSelectors(platform), fetch.NoiseSelectors(platform)...)
}

// Truncate cuts text to MaxScrapedLength bytes on a rune boundary and marks the cut.
func Truncate(text string) string {
	if len(text) <= MaxScrapedLength {
		return text
	}
	cut := MaxScrapedLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + TruncationMarker
}
