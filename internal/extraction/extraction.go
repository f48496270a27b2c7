// Package extraction fetches a job posting and pulls a best-guess plain text
// description out of its HTML.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/p-shah256/resume-tailor/internal/cleaner"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5 << 20
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// a container must hold more than this many characters to be chosen
	minContentLength = 100
)

// DefaultSelectors is the ordered list of containers tried before falling
// back to the whole body. Earlier entries win.
var DefaultSelectors = []string{
	".job-description",
	"#job-description",
	"[data-automation='jobDescriptionSection']",
	"[data-testid='jobDescriptionText']",
	".description",
	"#description",
	".job-requirements",
	"#job-requirements",
	".qualifications",
	"#qualifications",
	".content",
	"#content",
	"article",
	"main",
	".main",
}

var ErrInvalidURL = errors.New("invalid URL")

// FetchError reports a failed GET of a job posting. StatusCode is zero when
// no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Selectors    []string
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	selectors []string
	clean     *cleaner.Cleaner
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(opts.Selectors) == 0 {
		opts.Selectors = DefaultSelectors
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		selectors: opts.Selectors,
		clean:     cleaner.NewCleaner(),
	}
}

// ValidateURL accepts only absolute http and https URLs.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Fetch issues a single GET for rawURL and returns the extracted description.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	logger := slog.With("component", "extraction", "operation", "Fetch")

	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: u.String(), StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: u.String(), Err: fmt.Errorf("decode body: %w", err)}
	}

	text, err := f.Extract(body)
	if err != nil {
		return "", &FetchError{URL: u.String(), Err: err}
	}

	logger.Info("Fetched job posting",
		"url", u.String(),
		"chars", utf8.RuneCountInString(text),
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

// Extract returns the text of the first candidate container holding more
// than 100 characters, or the whole body text when none does.
func (f *Fetcher) Extract(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	for _, sel := range f.selectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(candidate.Text())
		if utf8.RuneCountInString(text) > minContentLength {
			slog.Debug("Job description container matched", "selector", sel)
			return f.clean.CleanText(text), nil
		}
	}

	return f.clean.CleanText(doc.Find("body").Text()), nil
}
