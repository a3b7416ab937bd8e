package rewrite

import (
	"fmt"
	"io"
	"net/http"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// maxSourceChars bounds how much fetched source content goes into the
// prompt, roughly 2000 tokens at 4 chars per token.
const maxSourceChars = 8000

// SourceFetcher retrieves the article page itself and converts it to
// markdown so the model sees more than the search snippet. Entirely
// optional: any failure falls back to the description-only prompt.
type SourceFetcher struct {
	converter  *md.Converter
	httpClient *http.Client
}

// NewSourceFetcher creates a fetcher with a default converter.
func NewSourceFetcher() *SourceFetcher {
	return &SourceFetcher{
		converter:  md.NewConverter("", true, nil),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads url and returns its content as truncated markdown.
func (f *SourceFetcher) Fetch(url string) (string, error) {
	resp, err := f.httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	markdown, err := f.converter.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", url, err)
	}

	if len(markdown) > maxSourceChars {
		markdown = markdown[:maxSourceChars] + "..."
	}
	return markdown, nil
}
