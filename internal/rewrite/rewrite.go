// Package rewrite turns a fetched article into publishable post content by
// prompting an LLM for a fixed-shape JSON object and validating the result.
package rewrite

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
	"github.com/matthewxmurphy/creatornewsdesk/internal/search"
)

const systemPrompt = "You are a professional tech news writer for a creator-focused news site."

// Post is a validated rewrite result ready for publishing.
type Post struct {
	Headline        string   `json:"headline"`
	MetaDescription string   `json:"meta_description"`
	BodyHTML        string   `json:"body"`
	FocusKeyword    string   `json:"focus_keyword"`
	Tags            []string `json:"tags"`
	SourceTerm      string   `json:"source_term"`
	SourceURL       string   `json:"source_url"`
	ImageURL        string   `json:"image_url"`
}

// Rewriter prompts a primary provider and falls back once to a secondary
// provider/model on transient failure.
type Rewriter struct {
	primary       provider
	primaryModel  string
	fallback      provider
	fallbackModel string
	minWords      int
	source        *SourceFetcher
}

// New builds a Rewriter from the site LLM configuration.
func New(cfg config.LLMConfig) (*Rewriter, error) {
	primary, err := buildProvider(cfg.Provider, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	r := &Rewriter{
		primary:      primary,
		primaryModel: cfg.Model,
		minWords:     cfg.MinWords,
	}
	if r.minWords == 0 {
		r.minWords = config.DefaultMinWords
	}

	if cfg.FallbackProvider != "" {
		fallback, err := buildProvider(cfg.FallbackProvider, cfg.BaseURL, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		r.fallback = fallback
		r.fallbackModel = cfg.FallbackModel
		if r.fallbackModel == "" {
			r.fallbackModel = cfg.Model
		}
	}

	if cfg.FetchSource {
		r.source = NewSourceFetcher()
	}

	return r, nil
}

func buildProvider(name, baseURL, apiKey string) (provider, error) {
	switch name {
	case "local", "":
		if baseURL == "" {
			baseURL = "http://127.0.0.1:1240"
		}
		return newChatProvider("local", baseURL, apiKey), nil
	case "openai":
		return newChatProvider("openai", "https://api.openai.com", apiKey), nil
	case "xai":
		return newChatProvider("xai", "https://api.x.ai", apiKey), nil
	case "anthropic":
		return &anthropicProvider{apiKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", name)
	}
}

// Rewrite generates a Post from an article. Transient failures get exactly
// one fallback attempt; all other failures propagate classified.
func (r *Rewriter) Rewrite(article search.Article) (*Post, error) {
	prompt := r.buildPrompt(article)

	raw, err := r.primary.Generate(systemPrompt, prompt, r.primaryModel)
	if err != nil && KindOf(err) == Transient && r.fallback != nil {
		log.Printf("→ Rewrite via %s failed, trying %s", r.primary.Name(), r.fallback.Name())
		raw, err = r.fallback.Generate(systemPrompt, prompt, r.fallbackModel)
	}
	if err != nil {
		if KindOf(err) != "" {
			return nil, err
		}
		return nil, &Error{Kind: Transient, Err: err}
	}

	post, err := r.parse(raw)
	if err != nil {
		return nil, err
	}

	post.SourceTerm = article.Term
	post.SourceURL = article.URL
	post.ImageURL = article.ImageURL
	return post, nil
}

// buildPrompt embeds the article fields and, when enabled, the fetched
// source content into one rewrite prompt.
func (r *Rewriter) buildPrompt(article search.Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Rewrite this news article for a tech news website targeting content creators.
Keep it informative, engaging, and suitable for a professional audience.

Title: %s
Source: %s
Description: %s

Respond with ONLY a JSON object in this exact shape:
{
    "headline": "New engaging headline",
    "meta_description": "SEO meta description under 160 characters",
    "body": "Full article content in HTML with <p> tags, at least %d words",
    "focus_keyword": "primary keyword",
    "tags": ["tag1", "tag2", "tag3"]
}`, article.Title, article.Domain, article.Description, r.minWords)

	if r.source != nil {
		if content, err := r.source.Fetch(article.URL); err == nil && content != "" {
			fmt.Fprintf(&b, "\n\nSource content:\n%s", content)
		} else if err != nil {
			log.Printf("→ Source fetch skipped for %s: %v", article.URL, err)
		}
	}

	return b.String()
}

// parse validates the raw model output into a Post.
func (r *Rewriter) parse(raw string) (*Post, error) {
	cleaned := extractJSON(raw)

	var post Post
	if err := json.Unmarshal([]byte(cleaned), &post); err != nil {
		return nil, &Error{Kind: MalformedOutput, Err: err}
	}

	if strings.TrimSpace(post.Headline) == "" || strings.TrimSpace(post.BodyHTML) == "" {
		return nil, &Error{Kind: Incomplete, Err: fmt.Errorf("missing headline or body")}
	}

	if words := wordCount(post.BodyHTML); words < r.minWords {
		return nil, &Error{Kind: QualityReject, Err: fmt.Errorf("body has %d words, minimum %d", words, r.minWords)}
	}

	return &post, nil
}

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// extractJSON strips code fences and any prose around the outermost JSON
// object. Models wrap their output in fences or add commentary; the object
// between the first '{' and last '}' is what we asked for.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = fenceOpenRe.ReplaceAllString(text, "")
	text = fenceCloseRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// wordCount counts words in HTML content, tags excluded.
func wordCount(html string) int {
	plain := htmlTagRe.ReplaceAllString(html, " ")
	return len(strings.Fields(plain))
}
