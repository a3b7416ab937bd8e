// Package wordpress is a thin client for the WordPress REST API: posts,
// media uploads, and taxonomy terms under Basic Authentication.
package wordpress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the WordPress API.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wordpress API %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// Term is a category or tag as WordPress reports it.
type Term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PostInput is the request body for creating a post.
type PostInput struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Excerpt    string            `json:"excerpt,omitempty"`
	Status     string            `json:"status"`
	Categories []int             `json:"categories,omitempty"`
	Tags       []int             `json:"tags,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// PostRef is a minimal post reference used by the image worker.
type PostRef struct {
	ID            int    `json:"id"`
	Title         string `json:"-"`
	FeaturedMedia int    `json:"featured_media"`
}

// Client talks to one WordPress site.
type Client struct {
	baseURL     string
	user        string
	appPassword string
	httpClient  *http.Client
}

// NewClient creates a client for the WP REST API rooted at baseURL
// (the /wp-json prefix).
func NewClient(baseURL, user, appPassword string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		user:        user,
		appPassword: appPassword,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreatePost creates a post and returns its ID.
func (c *Client) CreatePost(input PostInput) (int, error) {
	var created struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(http.MethodPost, "/wp/v2/posts", input, &created); err != nil {
		return 0, fmt.Errorf("creating post: %w", err)
	}
	return created.ID, nil
}

// UpdatePost updates arbitrary fields on an existing post; used for status
// flips, meta state markers, and featured_media assignment.
func (c *Client) UpdatePost(id int, fields map[string]any) error {
	path := fmt.Sprintf("/wp/v2/posts/%d", id)
	if err := c.doJSON(http.MethodPost, path, fields, nil); err != nil {
		return fmt.Errorf("updating post %d: %w", id, err)
	}
	return nil
}

// UploadMedia uploads image bytes to the media library and returns the
// attachment ID. postID associates the attachment with a post; pass 0 for
// an unattached upload.
func (c *Client) UploadMedia(filename string, data []byte, contentType string, postID int) (int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, fmt.Errorf("writing upload body: %w", err)
	}
	if postID > 0 {
		w.WriteField("post", fmt.Sprintf("%d", postID))
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("closing upload form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/wp/v2/media", &buf)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.user, c.appPassword)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	var created struct {
		ID int `json:"id"`
	}
	if err := c.do(req, &created); err != nil {
		return 0, fmt.Errorf("uploading media: %w", err)
	}
	return created.ID, nil
}

// Categories fetches all categories, first page of 100.
func (c *Client) Categories() ([]Term, error) {
	return c.terms("categories")
}

// Tags fetches all tags, first page of 100.
func (c *Client) Tags() ([]Term, error) {
	return c.terms("tags")
}

func (c *Client) terms(kind string) ([]Term, error) {
	var terms []Term
	path := "/wp/v2/" + kind + "?per_page=100"
	if err := c.doJSON(http.MethodGet, path, nil, &terms); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", kind, err)
	}
	return terms, nil
}

// CreateCategory creates a category and returns its ID.
func (c *Client) CreateCategory(name, description string) (int, error) {
	return c.createTerm("categories", map[string]string{
		"name":        name,
		"description": description,
	})
}

// CreateTag creates a tag and returns its ID.
func (c *Client) CreateTag(name string) (int, error) {
	return c.createTerm("tags", map[string]string{"name": name})
}

func (c *Client) createTerm(kind string, body map[string]string) (int, error) {
	var created struct {
		ID int `json:"id"`
	}
	if err := c.doJSON(http.MethodPost, "/wp/v2/"+kind, body, &created); err != nil {
		return 0, fmt.Errorf("creating %s: %w", strings.TrimSuffix(kind, "s"), err)
	}
	return created.ID, nil
}

// PostsNeedingImages returns up to limit posts with no featured image.
func (c *Client) PostsNeedingImages(limit int) ([]PostRef, error) {
	path := fmt.Sprintf("/wp/v2/posts?per_page=%d&_fields=%s",
		limit, url.QueryEscape("id,title,featured_media"))

	var raw []struct {
		ID    int `json:"id"`
		Title struct {
			Rendered string `json:"rendered"`
		} `json:"title"`
		FeaturedMedia int `json:"featured_media"`
	}
	if err := c.doJSON(http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetching posts: %w", err)
	}

	var posts []PostRef
	for _, p := range raw {
		if p.FeaturedMedia == 0 {
			posts = append(posts, PostRef{ID: p.ID, Title: p.Title.Rendered})
		}
	}
	return posts, nil
}

// doJSON sends a JSON request to path and decodes the response into out
// when out is non-nil.
func (c *Client) doJSON(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.user, c.appPassword)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(data)
		if len(body) > 200 {
			body = body[:200]
		}
		return &APIError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: body}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response from %s: %w", req.URL.Path, err)
		}
	}
	return nil
}
