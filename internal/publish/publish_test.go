package publish

import (
	"errors"
	"fmt"
	"testing"

	"github.com/matthewxmurphy/creatornewsdesk/internal/rewrite"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

// mockPostAPI records every WordPress call the publisher makes.
type mockPostAPI struct {
	nextPostID  int
	nextMediaID int

	createErr error
	uploadErr error
	updateErr func(fields map[string]any) error

	created []wordpress.PostInput
	updates []map[string]any
	uploads int
}

func newMockPostAPI() *mockPostAPI {
	return &mockPostAPI{nextPostID: 42, nextMediaID: 99}
}

func (m *mockPostAPI) CreatePost(input wordpress.PostInput) (int, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.created = append(m.created, input)
	return m.nextPostID, nil
}

func (m *mockPostAPI) UpdatePost(id int, fields map[string]any) error {
	if m.updateErr != nil {
		if err := m.updateErr(fields); err != nil {
			return err
		}
	}
	m.updates = append(m.updates, fields)
	return nil
}

func (m *mockPostAPI) UploadMedia(filename string, data []byte, contentType string, postID int) (int, error) {
	if m.uploadErr != nil {
		return 0, m.uploadErr
	}
	m.uploads++
	return m.nextMediaID, nil
}

// lastMeta returns the cnd_state meta value of the most recent update that
// carried one.
func (m *mockPostAPI) lastMeta() string {
	for i := len(m.updates) - 1; i >= 0; i-- {
		if meta, ok := m.updates[i]["meta"].(map[string]string); ok {
			if state, ok := meta["cnd_state"]; ok {
				return state
			}
		}
	}
	return ""
}

type mockImageSource struct {
	err error
}

func (m *mockImageSource) Fetch(url string) ([]byte, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return []byte("jpegbytes"), "image/jpeg", nil
}

type mockSocial struct {
	err   error
	calls int
}

func (m *mockSocial) Post(postID int, title, excerpt string) error {
	m.calls++
	return m.err
}

func testPost() *rewrite.Post {
	return &rewrite.Post{
		Headline:        "Headline",
		MetaDescription: "Excerpt",
		BodyHTML:        "<p>body</p>",
		Tags:            []string{"a"},
		SourceURL:       "http://example.com/a",
		SourceTerm:      "DJI",
		ImageURL:        "http://example.com/img.jpg",
	}
}

func TestPublishHappyPath(t *testing.T) {
	wp := newMockPostAPI()
	social := &mockSocial{}
	p := New(wp, &mockImageSource{}, social, "publish")

	result, err := p.Publish(testPost(), 7, []int{1, 2})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.State != StateSocialPosted {
		t.Errorf("State = %q, want %q", result.State, StateSocialPosted)
	}
	if result.PostID != 42 || result.MediaID != 99 {
		t.Errorf("IDs = (%d, %d), want (42, 99)", result.PostID, result.MediaID)
	}

	// Draft is created queued with taxonomy attached.
	if len(wp.created) != 1 {
		t.Fatalf("created %d posts, want 1", len(wp.created))
	}
	draft := wp.created[0]
	if draft.Status != "draft" {
		t.Errorf("initial status = %q, want draft", draft.Status)
	}
	if draft.Meta["cnd_state"] != "queued" {
		t.Errorf("initial meta = %q, want queued", draft.Meta["cnd_state"])
	}
	if len(draft.Categories) != 1 || draft.Categories[0] != 7 {
		t.Errorf("categories = %v, want [7]", draft.Categories)
	}

	// featured_media is set before the status flip.
	foundMedia := false
	for _, u := range wp.updates {
		if u["featured_media"] == 99 {
			foundMedia = true
		}
	}
	if !foundMedia {
		t.Error("featured_media was never set")
	}

	if wp.lastMeta() != "generated" {
		t.Errorf("final meta = %q, want generated", wp.lastMeta())
	}
	if social.calls != 1 {
		t.Errorf("social.calls = %d, want 1", social.calls)
	}
}

func TestPublishMediaFailureLeavesDraft(t *testing.T) {
	wp := newMockPostAPI()
	wp.uploadErr = errors.New("upload refused")
	social := &mockSocial{}
	p := New(wp, &mockImageSource{}, social, "publish")

	result, err := p.Publish(testPost(), 7, nil)
	if err != nil {
		t.Fatalf("Publish() error = %v, want nil with failed state", err)
	}

	if result.State != StateMediaFailed {
		t.Errorf("State = %q, want %q", result.State, StateMediaFailed)
	}
	if wp.lastMeta() != "failed" {
		t.Errorf("meta = %q, want failed marker on the draft", wp.lastMeta())
	}

	// No publication without a featured image, and no social post.
	for _, u := range wp.updates {
		if u["status"] == "publish" {
			t.Error("post was published despite media failure")
		}
	}
	if social.calls != 0 {
		t.Errorf("social.calls = %d, want 0", social.calls)
	}
}

func TestPublishImageFetchFailure(t *testing.T) {
	wp := newMockPostAPI()
	p := New(wp, &mockImageSource{err: errors.New("404")}, nil, "publish")

	result, err := p.Publish(testPost(), 0, nil)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.State != StateMediaFailed {
		t.Errorf("State = %q, want %q", result.State, StateMediaFailed)
	}
	if wp.uploads != 0 {
		t.Errorf("uploads = %d, want 0 when image fetch fails", wp.uploads)
	}
}

func TestPublishMissingImageURL(t *testing.T) {
	wp := newMockPostAPI()
	p := New(wp, &mockImageSource{}, nil, "publish")

	post := testPost()
	post.ImageURL = ""

	result, err := p.Publish(post, 0, nil)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.State != StateMediaFailed {
		t.Errorf("State = %q, want %q for missing image URL", result.State, StateMediaFailed)
	}
}

func TestPublishDraftMode(t *testing.T) {
	wp := newMockPostAPI()
	social := &mockSocial{}
	p := New(wp, &mockImageSource{}, social, "draft")

	result, err := p.Publish(testPost(), 7, nil)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.State != StateDraftOnly {
		t.Errorf("State = %q, want %q", result.State, StateDraftOnly)
	}
	for _, u := range wp.updates {
		if u["status"] == "publish" {
			t.Error("draft mode must never flip status to publish")
		}
	}
	if social.calls != 0 {
		t.Errorf("social.calls = %d, want 0 in draft mode", social.calls)
	}
	if wp.lastMeta() != "generated" {
		t.Errorf("meta = %q, want generated", wp.lastMeta())
	}
}

func TestPublishSocialFailureDoesNotRollBack(t *testing.T) {
	wp := newMockPostAPI()
	social := &mockSocial{err: errors.New("webhook down")}
	p := New(wp, &mockImageSource{}, social, "publish")

	result, err := p.Publish(testPost(), 7, nil)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.State != StateSocialSkipped {
		t.Errorf("State = %q, want %q", result.State, StateSocialSkipped)
	}

	published := false
	for _, u := range wp.updates {
		if u["status"] == "publish" {
			published = true
		}
	}
	if !published {
		t.Error("post was not published; social failure must not roll back publication")
	}
}

func TestPublishCreateFailureIsError(t *testing.T) {
	wp := newMockPostAPI()
	wp.createErr = fmt.Errorf("draft rejected")
	p := New(wp, &mockImageSource{}, nil, "publish")

	if _, err := p.Publish(testPost(), 0, nil); err == nil {
		t.Error("Publish() error = nil, want create failure to propagate")
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", ".png"},
		{"image/gif", ".gif"},
		{"image/webp", ".webp"},
		{"", ".jpg"},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}

	// Platform mime tables vary for jpeg; accept any jpeg extension.
	got := extensionFor("image/jpeg; charset=binary")
	if got != ".jfif" && got != ".jpe" && got != ".jpeg" && got != ".jpg" {
		t.Errorf("extensionFor(image/jpeg) = %q, want a jpeg extension", got)
	}
}
