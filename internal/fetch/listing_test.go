package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<!doctype html>
<html><head><title>3 bed semi-detached house for sale</title></head>
<body>
<nav>Home | Buy | Rent</nav>
<article>
<h1>3 bed semi-detached house for sale</h1>
<p>A <b>beautifully presented</b> family home on Elm Road, close to excellent schools and transport links.</p>
<p>The property offers a spacious living room, a modern fitted kitchen &amp; a landscaped rear garden.</p>
<p>Upstairs there are three generous bedrooms and a family bathroom. Offered chain free.</p>
</article>
</body></html>`

func TestListingFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	page, err := NewListingFetcher().Fetch(context.Background(), srv.URL+"/listing/1")
	require.NoError(t, err)
	assert.Contains(t, page.Content, "beautifully presented")
	assert.Contains(t, page.Content, "kitchen & a landscaped")
	assert.NotContains(t, page.Content, "<b>")
}

func TestListingFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewListingFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "status 404")

	_, err = f.Fetch(context.Background(), "ftp://example.com/x")
	assert.ErrorContains(t, err, "invalid listing url")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Fish & chips", StripHTML("<p>Fish &amp; chips</p>"))
	assert.Equal(t, "plain", StripHTML("  plain "))
}

func TestListingFetcher_TruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", 4991) + strings.Repeat("£", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><article><p>" + body + "</p></article></body></html>"))
	}))
	defer srv.Close()

	page, err := NewListingFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(page.Content))
	assert.True(t, strings.HasSuffix(page.Content, "£... (truncated)"))
	assert.LessOrEqual(t, len(strings.TrimSuffix(page.Content, "... (truncated)")), maxContentLength)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab... (truncated)", truncate("ab£", 3))
	assert.Equal(t, "ab£... (truncated)", truncate("ab£c", 4))
}
