// Package rssfeed implements a source adapter over merchant RSS/Atom
// product feeds. Many stores publish deal and new-arrival feeds; this
// adapter turns their entries into listings so a deployment works out of
// the box without any scraping or merchant API credentials.
package rssfeed

import (
	"context"
	"fmt"
	"html"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/shopscope/shopscope/pkg/domain"
)

// Adapter fetches one or more product feeds and converts their entries
// into listings. Implements source.Adapter.
type Adapter struct {
	name      string
	feedURLs  []string
	client    *http.Client
	userAgent string
	sanitizer *bluemonday.Policy
}

// New creates a feed adapter for the given source name and feed URLs
func New(name string, feedURLs []string, timeout time.Duration, userAgent string) *Adapter {
	return &Adapter{
		name:     name,
		feedURLs: feedURLs,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Name returns the source name the adapter was registered under
func (a *Adapter) Name() string { return a.name }

// Search fetches all configured feeds, converts entries to listings and keeps the
// ones matching the query terms. Individual feed failures are logged and skipped;
// an error is returned only when every feed fails.
func (a *Adapter) Search(ctx context.Context, terms string, _ domain.Filters, limit int) ([]domain.Item, error) {
	words := tokenize(terms)

	var items []domain.Item
	var failures int
	for _, url := range a.feedURLs {
		feed, err := a.fetchFeed(ctx, url)
		if err != nil {
			lgr.Printf("[WARN] failed to fetch feed %s for %s: %v", url, a.name, err)
			failures++
			continue
		}
		for _, entry := range feed.Items {
			item := a.convert(entry)
			if !matches(item, words) {
				continue
			}
			items = append(items, item)
			if limit > 0 && len(items) >= limit {
				return items, nil
			}
		}
	}

	if failures > 0 && failures == len(a.feedURLs) {
		return nil, fmt.Errorf("all %d feeds failed for source %s", failures, a.name)
	}
	return items, nil
}

// convert maps a feed entry to a listing. Price is recovered from the entry
// text when the feed embeds one, descriptions are stripped of markup.
func (a *Adapter) convert(entry *gofeed.Item) domain.Item {
	item := domain.Item{
		Title:   strings.TrimSpace(entry.Title),
		URL:     entry.Link,
		Site:    a.name,
		FoundAt: time.Now(),
		InStock: true,
	}

	desc := entry.Description
	if desc == "" {
		desc = entry.Content
	}
	item.Description = strings.TrimSpace(html.UnescapeString(a.sanitizer.Sanitize(desc)))

	if price, ok := extractPrice(entry.Title + " " + item.Description); ok {
		item.Price = &price
		item.Currency = "USD"
	}

	if len(entry.Categories) > 0 {
		item.Category = strings.ToLower(strings.TrimSpace(entry.Categories[0]))
		for _, c := range entry.Categories {
			item.Tags = append(item.Tags, strings.ToLower(strings.TrimSpace(c)))
		}
	}

	if entry.Image != nil {
		item.ImageURL = entry.Image.URL
	}

	item.Normalize()
	return item
}

// fetchFeed retrieves and parses one feed URL
func (a *Adapter) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	body, err := a.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// fetch retrieves content from a URL
func (a *Adapter) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", a.userAgent)
	addBrowserHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// priceRe matches a leading currency marker followed by an amount, e.g. "$49.99"
var priceRe = regexp.MustCompile(`[$]\s*([0-9]+(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)`)

// extractPrice pulls the first dollar amount out of free text
func extractPrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// tokenize splits query terms into lowercase words
func tokenize(terms string) []string {
	return strings.Fields(strings.ToLower(terms))
}

// matches reports whether the listing text contains at least one query word.
// An empty query matches everything; ranking happens downstream.
func matches(item domain.Item, words []string) bool {
	if len(words) == 0 {
		return true
	}
	text := strings.ToLower(item.Title + " " + item.Description)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// acceptLanguages contains common browser Accept-Language values
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,es;q=0.8",
	"en-US,en;q=0.9,fr;q=0.8",
	"en-US,en;q=0.9,de;q=0.8",
}

// addBrowserHeaders adds browser-like headers for feed fetching,
// some merchants refuse requests that look like bots
func addBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,text/html;q=0.7,*/*;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")

	// randomized language
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))]) //nolint:gosec // non-cryptographic randomness is fine for header variation

	req.Header.Set("Connection", "keep-alive")
}
