package imageworker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
)

// Featured images are rendered at the standard OpenGraph card size.
const (
	imageWidth  = 1200
	imageHeight = 630
)

// Provider generates an image for a prompt and returns a URL the worker can
// download it from.
type Provider interface {
	Name() string
	Generate(prompt string) (string, error)
}

// Providers builds the fallback chain from configuration. With nothing
// configured it falls back to a local OpenClaw instance.
func Providers(cfg config.ImageConfig) []Provider {
	var chain []Provider
	if cfg.OpenClawURL != "" {
		chain = append(chain, NewOpenClawProvider(cfg.OpenClawURL))
	}
	if cfg.ComfyUIURL != "" {
		chain = append(chain, NewComfyUIProvider(cfg.ComfyUIURL))
	}
	if len(chain) == 0 {
		chain = append(chain, NewOpenClawProvider("http://localhost:8050"))
	}
	return chain
}

// OpenClawProvider talks to an OpenClaw image generation service.
type OpenClawProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenClawProvider creates a provider for the service at baseURL.
func NewOpenClawProvider(baseURL string) *OpenClawProvider {
	return &OpenClawProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenClawProvider) Name() string { return "openclaw" }

// Generate requests one image and returns its URL.
func (p *OpenClawProvider) Generate(prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":              prompt,
		"width":               imageWidth,
		"height":              imageHeight,
		"num_inference_steps": 20,
	})
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Post(p.baseURL+"/generate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openclaw request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openclaw returned %d", resp.StatusCode)
	}

	var result struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding openclaw response: %w", err)
	}
	if result.ImageURL == "" {
		return "", fmt.Errorf("openclaw returned no image URL")
	}
	return result.ImageURL, nil
}

// ComfyUIProvider queues a prompt on a ComfyUI instance and polls its
// history endpoint until the render finishes.
type ComfyUIProvider struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// NewComfyUIProvider creates a provider for the instance at baseURL.
func NewComfyUIProvider(baseURL string) *ComfyUIProvider {
	return &ComfyUIProvider{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
		maxPolls:     60,
	}
}

func (p *ComfyUIProvider) Name() string { return "comfyui" }

// Generate queues the prompt and returns the /view URL of the first output
// image once the job completes.
func (p *ComfyUIProvider) Generate(prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt": map[string]any{
			"inputs": map[string]any{
				"text":   prompt,
				"width":  imageWidth,
				"height": imageHeight,
			},
		},
	})
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Post(p.baseURL+"/prompt", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("comfyui request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("comfyui returned %d", resp.StatusCode)
	}

	var queued struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", fmt.Errorf("decoding comfyui response: %w", err)
	}
	if queued.PromptID == "" {
		return "", fmt.Errorf("comfyui returned no prompt ID")
	}

	return p.awaitOutput(queued.PromptID)
}

// comfyImage is one output image reference in a history entry.
type comfyImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// awaitOutput polls /history/{id} until the job reports an output image.
func (p *ComfyUIProvider) awaitOutput(promptID string) (string, error) {
	for i := 0; i < p.maxPolls; i++ {
		if i > 0 {
			time.Sleep(p.pollInterval)
		}

		img, done, err := p.checkHistory(promptID)
		if err != nil {
			return "", err
		}
		if !done {
			continue
		}

		q := url.Values{}
		q.Set("filename", img.Filename)
		q.Set("subfolder", img.Subfolder)
		q.Set("type", img.Type)
		return p.baseURL + "/view?" + q.Encode(), nil
	}
	return "", fmt.Errorf("comfyui job %s did not finish", promptID)
}

func (p *ComfyUIProvider) checkHistory(promptID string) (comfyImage, bool, error) {
	resp, err := p.httpClient.Get(p.baseURL + "/history/" + promptID)
	if err != nil {
		return comfyImage{}, false, fmt.Errorf("comfyui history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return comfyImage{}, false, fmt.Errorf("comfyui history returned %d", resp.StatusCode)
	}

	var history map[string]struct {
		Outputs map[string]struct {
			Images []comfyImage `json:"images"`
		} `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return comfyImage{}, false, fmt.Errorf("decoding comfyui history: %w", err)
	}

	entry, ok := history[promptID]
	if !ok {
		return comfyImage{}, false, nil
	}
	for _, node := range entry.Outputs {
		if len(node.Images) > 0 {
			return node.Images[0], true, nil
		}
	}
	return comfyImage{}, false, nil
}
