// Package publish drives the per-article WordPress state machine: draft
// creation, featured-image attachment, the draft-to-publish flip, and the
// best-effort social side effect.
package publish

import (
	"fmt"
	"log"
	"mime"
	"strings"

	"github.com/matthewxmurphy/creatornewsdesk/internal/rewrite"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

// State is the publish lifecycle position of one article.
type State string

const (
	StateQueued        State = "queued"
	StateMediaUploaded State = "media_uploaded"
	StateMediaFailed   State = "media_failed"
	StatePublished     State = "published"
	StateDraftOnly     State = "draft_only"
	StateSocialPosted  State = "socially_posted"
	StateSocialSkipped State = "social_skipped"
)

// Meta state markers written into post metadata. Intermediate markers are
// the resumability trail: a crash between steps leaves the last successful
// marker on the post.
const (
	metaKey       = "cnd_state"
	metaQueued    = "queued"
	metaGenerated = "generated"
	metaFailed    = "failed"
)

// PostAPI is the slice of the WordPress client the publisher consumes.
type PostAPI interface {
	CreatePost(input wordpress.PostInput) (int, error)
	UpdatePost(id int, fields map[string]any) error
	UploadMedia(filename string, data []byte, contentType string, postID int) (int, error)
}

// ImageSource fetches featured-image bytes from a URL.
type ImageSource interface {
	Fetch(url string) (data []byte, contentType string, err error)
}

// SocialPoster announces a published post to a social channel.
type SocialPoster interface {
	Post(postID int, title, excerpt string) error
}

// Result records where an article landed in the state machine.
type Result struct {
	PostID  int
	MediaID int
	State   State
}

// Publisher creates posts and walks them through the publish states.
// Every transition is one HTTP call; there is no multi-step transaction.
type Publisher struct {
	wp     PostAPI
	images ImageSource
	social SocialPoster
	mode   string // draft | publish
}

// New creates a Publisher. social may be nil when no social channel is
// configured.
func New(wp PostAPI, images ImageSource, social SocialPoster, mode string) *Publisher {
	return &Publisher{wp: wp, images: images, social: social, mode: mode}
}

// Publish runs one article through the state machine. An error is returned
// only when the initial draft could not be created; every later failure is
// reflected in the Result state while the draft stays on the WordPress side
// carrying its failure marker for manual follow-up.
//
// A post reaches publish status only when a featured image was attached in
// the same run. That gate is policy: no image, no publication.
func (p *Publisher) Publish(post *rewrite.Post, categoryID int, tagIDs []int) (*Result, error) {
	input := wordpress.PostInput{
		Title:   post.Headline,
		Content: post.BodyHTML,
		Excerpt: post.MetaDescription,
		Status:  "draft",
		Tags:    tagIDs,
		Meta: map[string]string{
			metaKey:          metaQueued,
			"cnd_source_url": post.SourceURL,
			"cnd_term":       post.SourceTerm,
		},
	}
	if categoryID > 0 {
		input.Categories = []int{categoryID}
	}

	postID, err := p.wp.CreatePost(input)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	result := &Result{PostID: postID, State: StateQueued}
	log.Printf("→ Draft %d created: %s", postID, post.Headline)

	mediaID, err := p.attachFeaturedImage(postID, post)
	if err != nil {
		log.Printf("✗ Featured image for post %d: %v", postID, err)
		p.markFailed(postID)
		result.State = StateMediaFailed
		return result, nil
	}
	result.MediaID = mediaID
	result.State = StateMediaUploaded

	if p.mode == "publish" {
		if err := p.wp.UpdatePost(postID, map[string]any{
			"status": "publish",
			"meta":   map[string]string{metaKey: metaGenerated},
		}); err != nil {
			log.Printf("✗ Publishing post %d: %v", postID, err)
			result.State = StateDraftOnly
			return result, nil
		}
		result.State = StatePublished
		log.Printf("✓ Published post %d", postID)

		result.State = p.announce(postID, post)
		return result, nil
	}

	if err := p.wp.UpdatePost(postID, map[string]any{
		"meta": map[string]string{metaKey: metaGenerated},
	}); err != nil {
		log.Printf("✗ Marking post %d generated: %v", postID, err)
	}
	result.State = StateDraftOnly
	return result, nil
}

// attachFeaturedImage fetches the article image, uploads it, and sets it
// as the post's featured media, returning the media ID.
func (p *Publisher) attachFeaturedImage(postID int, post *rewrite.Post) (int, error) {
	if post.ImageURL == "" {
		return 0, fmt.Errorf("no image URL")
	}

	data, contentType, err := p.images.Fetch(post.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("fetching image: %w", err)
	}

	mediaID, err := p.wp.UploadMedia("featured"+extensionFor(contentType), data, contentType, postID)
	if err != nil {
		return 0, fmt.Errorf("uploading media: %w", err)
	}
	if mediaID == 0 {
		return 0, fmt.Errorf("media upload returned no ID")
	}

	if err := p.wp.UpdatePost(postID, map[string]any{"featured_media": mediaID}); err != nil {
		return 0, fmt.Errorf("setting featured media: %w", err)
	}

	return mediaID, nil
}

// markFailed writes the failure marker; the post stays a draft until an
// operator intervenes.
func (p *Publisher) markFailed(postID int) {
	if err := p.wp.UpdatePost(postID, map[string]any{
		"meta": map[string]string{metaKey: metaFailed},
	}); err != nil {
		log.Printf("✗ Marking post %d failed: %v", postID, err)
	}
}

// announce posts to the social channel. Failure never rolls back the
// publication.
func (p *Publisher) announce(postID int, post *rewrite.Post) State {
	if p.social == nil {
		return StateSocialSkipped
	}
	if err := p.social.Post(postID, post.Headline, post.MetaDescription); err != nil {
		log.Printf("✗ Social post for %d: %v", postID, err)
		return StateSocialSkipped
	}
	log.Printf("✓ Social post for %d", postID)
	return StateSocialPosted
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
