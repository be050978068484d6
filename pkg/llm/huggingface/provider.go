package huggingface

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"thrx-be/internal/constant"
	"thrx-be/pkg/llm"
)

const (
	DefaultRouterURL = "https://router.huggingface.co/v1" // Default Router URL

	sseDataPrefix = "data:"
	sseDone       = "[DONE]"
)

// HuggingFaceProvider streams from an OpenAI compatible chat completions
// endpoint (the Hugging Face router by default).
type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &HuggingFaceProvider{}

// Request Payload Structure (OpenAI Compatible)
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = DefaultRouterURL
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (p *HuggingFaceProvider) Stream(ctx context.Context, history []llm.Message, onPartial llm.PartialFunc, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", llm.ErrEmptyHistory
	}
	opts := llm.ApplyOptions(llm.Options{
		Model:     p.model,
		MaxTokens: 2048,
	}, options...)

	reqBody := chatRequest{
		Model:     opts.Model,
		Messages:  make([]chatMessage, len(history)),
		MaxTokens: opts.MaxTokens,
		Stream:    true,
	}
	for i, m := range history {
		role := m.Role
		if role == constant.ChatMessageRoleModel {
			role = constant.ChatMessageRoleAssistant
		}
		reqBody.Messages[i] = chatMessage{Role: role, Content: m.Content}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("huggingface api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	acc := llm.NewAccumulator(onPartial)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if data == sseDone {
			return acc.String(), nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return acc.String(), fmt.Errorf("failed to decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return acc.String(), fmt.Errorf("huggingface api returned error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				acc.WriteString(choice.Delta.Content)
			}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return acc.String(), ctxErr
	}
	if err := scanner.Err(); err != nil {
		return acc.String(), fmt.Errorf("read stream: %w", err)
	}
	return acc.String(), nil
}
