package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompat calls an OpenAI-compatible chat completions endpoint.
type OpenAICompat struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewOpenAICompat(url, model, apiKey string) *OpenAICompat {
	return &OpenAICompat{
		url:    url,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 25 * time.Second,
		},
	}
}

func (p *OpenAICompat) Name() string { return "openai" }

func (p *OpenAICompat) Generate(ctx context.Context, req Request) (string, error) {
	payload := map[string]interface{}{
		"model":       p.model,
		"messages":    withSystem(req),
		"temperature": req.Temperature,
		"private":     true,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", errors.Join(err, ErrUnavailable))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Provider: p.Name(), Code: resp.StatusCode, Body: truncate(body)}
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("openai returned html: %w", ErrUnavailable)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai decode: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai empty choices: %w", ErrEmptyReply)
	}

	return finish(p.Name(), parsed.Choices[0].Message.Content)
}

var _ Provider = (*OpenAICompat)(nil)
