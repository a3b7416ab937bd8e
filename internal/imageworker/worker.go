// Package imageworker backfills featured images for published posts that
// have none, generating them through a fallback chain of image providers
// under the shared generation caps.
package imageworker

import (
	"fmt"
	"log"
	"mime"
	"strings"
	"time"

	"github.com/matthewxmurphy/creatornewsdesk/internal/ratelimit"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

// Stats counts what one worker pass did.
type Stats struct {
	Attempted int `json:"attempted"`
	Generated int `json:"generated"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// PostAPI is the slice of the WordPress client the worker consumes.
type PostAPI interface {
	PostsNeedingImages(limit int) ([]wordpress.PostRef, error)
	UploadMedia(filename string, data []byte, contentType string, postID int) (int, error)
	UpdatePost(id int, fields map[string]any) error
}

// Downloader fetches generated image bytes from a provider URL.
type Downloader interface {
	Fetch(url string) (data []byte, contentType string, err error)
}

// Worker finds posts without a featured image and fills them in. Providers
// are tried in order; the first URL wins.
type Worker struct {
	wp        PostAPI
	providers []Provider
	download  Downloader
	limiter   *ratelimit.Limiter
	enabled   bool
}

// New creates a worker over the given provider chain.
func New(wp PostAPI, providers []Provider, download Downloader, limiter *ratelimit.Limiter, enabled bool) *Worker {
	return &Worker{
		wp:        wp,
		providers: providers,
		download:  download,
		limiter:   limiter,
		enabled:   enabled,
	}
}

// Run processes up to limit posts and returns the pass statistics. The only
// erroring path is the initial post listing; per-post failures are counted
// and the pass continues.
func (w *Worker) Run(limit int) (Stats, error) {
	var stats Stats

	if !w.enabled {
		log.Println("→ Image worker disabled (run_enabled=false)")
		return stats, nil
	}
	if len(w.providers) == 0 {
		return stats, fmt.Errorf("no image providers configured")
	}

	posts, err := w.wp.PostsNeedingImages(limit)
	if err != nil {
		return stats, fmt.Errorf("listing posts needing images: %w", err)
	}
	log.Printf("→ %d posts need a featured image", len(posts))

	for _, post := range posts {
		if !w.limiter.Allow() {
			log.Println("→ Generation caps reached, stopping")
			stats.Skipped += len(posts) - stats.Attempted - stats.Skipped
			break
		}

		stats.Attempted++
		w.processPost(post, &stats)
	}

	if err := w.limiter.Persist(); err != nil {
		log.Printf("✗ Persisting usage ledger: %v", err)
	}

	log.Printf("✓ Image pass: %d attempted, %d generated, %d uploaded, %d failed, %d skipped",
		stats.Attempted, stats.Generated, stats.Uploaded, stats.Failed, stats.Skipped)
	return stats, nil
}

// processPost generates, downloads, and attaches one featured image,
// updating stats as it goes.
func (w *Worker) processPost(post wordpress.PostRef, stats *Stats) {
	prompt := promptFor(post.Title)

	imageURL := ""
	for _, provider := range w.providers {
		url, err := provider.Generate(prompt)
		if err != nil {
			log.Printf("✗ %s failed for post %d: %v", provider.Name(), post.ID, err)
			continue
		}
		imageURL = url
		break
	}
	if imageURL == "" {
		stats.Failed++
		return
	}

	// The cap counts generations, so a failed upload still burns a slot.
	stats.Generated++
	w.limiter.Record(time.Now())

	data, contentType, err := w.download.Fetch(imageURL)
	if err != nil {
		log.Printf("✗ Downloading image for post %d: %v", post.ID, err)
		stats.Failed++
		return
	}

	mediaID, err := w.wp.UploadMedia("featured"+extensionFor(contentType), data, contentType, post.ID)
	if err != nil {
		log.Printf("✗ Uploading image for post %d: %v", post.ID, err)
		stats.Failed++
		return
	}

	if err := w.wp.UpdatePost(post.ID, map[string]any{"featured_media": mediaID}); err != nil {
		log.Printf("✗ Setting featured image for post %d: %v", post.ID, err)
		stats.Failed++
		return
	}

	stats.Uploaded++
	log.Printf("✓ Featured image attached to post %d", post.ID)
}

// promptFor builds a generation prompt from a post title, truncated so a
// long headline does not dominate the prompt.
func promptFor(title string) string {
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > 50 {
		title = string(r[:50])
	}
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("Featured image for: %s. Professional news article illustration.", title)
}

// extensionFor maps an image content type to a file extension, defaulting
// to .jpg.
func extensionFor(contentType string) string {
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".jpg"
	}
	return exts[0]
}
