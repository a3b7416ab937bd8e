package rewrite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// provider generates one completion for a system/user prompt pair.
type provider interface {
	Generate(systemPrompt, userPrompt, model string) (string, error)
	Name() string
}

// chatProvider talks to any OpenAI-compatible chat completions endpoint:
// local llama.cpp, OpenAI, or xAI, selected by base URL and key.
type chatProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newChatProvider(name, baseURL, apiKey string) *chatProvider {
	return &chatProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Generate(systemPrompt, userPrompt, model string) (string, error) {
	reqBody := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": 0.7,
		"max_tokens":  2000,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: Transient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: Transient, Err: fmt.Errorf("%s returned %d", p.name, resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: Transient, Err: err}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &Error{Kind: MalformedOutput, Err: err}
	}
	if len(completion.Choices) == 0 {
		return "", &Error{Kind: MalformedOutput, Err: fmt.Errorf("no choices in %s response", p.name)}
	}

	return completion.Choices[0].Message.Content, nil
}

// anthropicProvider generates completions through the Anthropic API.
type anthropicProvider struct {
	apiKey string
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Generate(systemPrompt, userPrompt, model string) (string, error) {
	settings := types.RequestSettings{
		Model:       model,
		MaxTokens:   2000,
		Temperature: 0.7,
	}

	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", p.apiKey, settings)
	if err != nil {
		return "", &Error{Kind: Transient, Err: err}
	}
	if len(response.Content) == 0 {
		return "", &Error{Kind: MalformedOutput, Err: fmt.Errorf("no content in anthropic response")}
	}

	return response.Content[0].Text, nil
}
