package publish

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxImageBytes bounds a featured-image download.
const maxImageBytes = 10 << 20

// HTTPImageSource downloads image bytes over plain HTTP.
type HTTPImageSource struct {
	httpClient *http.Client
}

// NewHTTPImageSource creates an image source with a 60 second timeout.
func NewHTTPImageSource() *HTTPImageSource {
	return &HTTPImageSource{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch downloads the image at url.
func (s *HTTPImageSource) Fetch(url string) ([]byte, string, error) {
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", url, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body from %s", url)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
