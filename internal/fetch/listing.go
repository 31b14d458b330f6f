package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxContentLength = 5000

// Page is the readable part of a fetched listing page.
type Page struct {
	URL     string
	Title   string
	Excerpt string
	Content string
}

// ListingFetcher downloads a property portal page and extracts its main text.
type ListingFetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewListingFetcher() *ListingFetcher {
	return &ListingFetcher{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	}
}

func (f *ListingFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid listing url: %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 5<<20), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	text := article.TextContent
	if strings.TrimSpace(text) == "" {
		text = article.Content
	}
	content := truncate(StripHTML(text), maxContentLength)

	return &Page{
		URL:     rawURL,
		Title:   StripHTML(article.Title),
		Excerpt: StripHTML(article.Excerpt),
		Content: content,
	}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... (truncated)"
}

var strict = bluemonday.StrictPolicy()

// StripHTML removes all markup and returns plain, unescaped text.
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
