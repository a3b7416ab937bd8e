// Package search queries the Brave news API and normalizes raw results
// into canonical Article records.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the Brave news search endpoint.
const DefaultEndpoint = "https://api.search.brave.com/res/v1/news/search"

// Client queries the search provider. Multiple API keys are rotated
// round-robin across queries to spread provider-side rate limits.
type Client struct {
	endpoint    string
	keys        []string
	keyIndex    int
	skipDomains []string
	httpClient  *http.Client
}

// NewClient creates a search client. keys must be non-empty.
func NewClient(keys []string, skipDomains []string) *Client {
	return &Client{
		endpoint:    DefaultEndpoint,
		keys:        keys,
		skipDomains: skipDomains,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SetEndpoint overrides the provider endpoint, used by tests.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// rawResult is the provider's wire shape for one result. Unknown image
// shapes are kept raw and resolved by pickImage.
type rawResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Age         string `json:"age"`
}

// Search queries the provider for one term. One failing query must not
// abort the run, so non-200 responses and network errors are logged and
// yield an empty slice rather than an error.
func (c *Client) Search(query string, count int, freshness string) []Article {
	apiKey := c.nextKey()

	req, err := http.NewRequest(http.MethodGet, c.endpoint, nil)
	if err != nil {
		log.Printf("✗ Search request for %q: %v", query, err)
		return nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	q.Set("search_lang", "en")
	if freshness != "" {
		q.Set("freshness", freshness)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("X-Subscription-Token", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("✗ Search error for %q: %v", query, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("✗ Search provider returned %d for %q", resp.StatusCode, query)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("✗ Reading search response for %q: %v", query, err)
		return nil
	}

	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("✗ Parsing search response for %q: %v", query, err)
		return nil
	}

	articles := make([]Article, 0, len(payload.Results))
	for _, raw := range payload.Results {
		article, ok := c.normalize(query, raw)
		if ok {
			articles = append(articles, article)
		}
	}

	return articles
}

// normalize converts one raw provider item into an Article, applying the
// field clamps and the domain skip-list. ok is false when the item should
// be discarded.
func (c *Client) normalize(term string, raw json.RawMessage) (Article, bool) {
	var item rawResult
	if err := json.Unmarshal(raw, &item); err != nil {
		return Article{}, false
	}

	var imageFields map[string]json.RawMessage
	json.Unmarshal(raw, &imageFields)

	article := Article{
		Term:        term,
		URL:         clamp(item.URL, maxURLLen),
		Title:       clamp(item.Title, maxTitleLen),
		Description: clamp(item.Description, maxDescriptionLen),
		ImageURL:    pickImage(imageFields),
		Domain:      strings.ToLower(clamp(item.Domain, maxURLLen)),
		Age:         parseAge(item.Age),
	}

	if article.URL == "" || article.Title == "" {
		return Article{}, false
	}

	if article.Domain == "" {
		article.Domain = domainOf(article.URL)
	}

	if c.skipped(article.Domain) {
		return Article{}, false
	}

	return article, true
}

// skipped reports whether domain matches the configured skip-list. A list
// entry matches the domain itself and any subdomain.
func (c *Client) skipped(domain string) bool {
	for _, skip := range c.skipDomains {
		skip = strings.ToLower(skip)
		if domain == skip || strings.HasSuffix(domain, "."+skip) {
			return true
		}
	}
	return false
}

// nextKey rotates through configured API keys round-robin.
func (c *Client) nextKey() string {
	if len(c.keys) == 0 {
		return ""
	}
	key := c.keys[c.keyIndex%len(c.keys)]
	c.keyIndex++
	return key
}

// domainOf extracts the hostname from an article URL, without the common
// www prefix.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// String implements fmt.Stringer for log lines.
func (a Article) String() string {
	return fmt.Sprintf("%s (%s)", a.Title, a.Domain)
}
