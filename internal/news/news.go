package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"cvposts-backend/internal/shared/metrics"
	"cvposts-backend/internal/shared/telemetry"
)

const (
	DefaultFeedURL = "https://news.google.com/rss/search"
	DefaultLimit   = 5

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Item is one news article related to the CV's industry.
type Item struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
}

// Searcher looks up recent articles for a query.
type Searcher interface {
	Search(ctx context.Context, query string) []Item
}

// Client queries an RSS search feed.
type Client struct {
	FeedURL    string
	Limit      int
	HTTPClient *http.Client
}

// NewClient builds a feed client. Zero values fall back to the Google News
// search feed, five items and a ten second timeout.
func NewClient(feedURL string, limit int, timeout time.Duration) *Client {
	if strings.TrimSpace(feedURL) == "" {
		feedURL = DefaultFeedURL
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		FeedURL:    feedURL,
		Limit:      limit,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Query builds the search string from an industry label and expertise areas.
func Query(industry string, expertise []string) string {
	return strings.TrimSpace(industry + " " + strings.Join(expertise, " "))
}

// Search returns at most Limit items for query. Failures are logged and
// yield an empty, non-nil slice.
func (c *Client) Search(ctx context.Context, query string) []Item {
	items, err := c.fetch(ctx, query)
	if err != nil {
		metrics.IncNewsLookupFailed()
		telemetry.Warn("news.lookup_failed", map[string]any{
			"request_id": telemetry.RequestID(ctx),
			"query":      query,
			"error":      err,
		})
		return []Item{}
	}
	return items
}

func (c *Client) fetch(ctx context.Context, query string) ([]Item, error) {
	endpoint, err := url.Parse(c.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]Item, 0, limit)
	for _, it := range feed.Items {
		if len(out) == limit {
			break
		}
		if it == nil {
			continue
		}
		out = append(out, Item{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Published: strings.TrimSpace(it.Published),
		})
	}
	return out, nil
}
