package cloud

import (
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

// CloudProvider talks to the cloud generation gateway: a JSON request in,
// a chunked text/plain body out.
type CloudProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &CloudProvider{}

func NewCloudProvider(baseURL, modelName string) *CloudProvider {
	if modelName == "" {
		modelName = constant.DefaultCloudModel
	}
	return &CloudProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		// no client timeout: long answers stream for minutes, ctx bounds the call
		Client: &http.Client{},
	}
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Model    string        `json:"model"`
}

type chatMessage struct {
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	Attachments []chatAttachment `json:"attachments,omitempty"`
}

type chatAttachment struct {
	Url  string `json:"url"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (p *CloudProvider) Stream(ctx context.Context, history []llm.Message, onPartial llm.PartialFunc, opts ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", llm.ErrEmptyHistory
	}
	options := llm.ApplyOptions(llm.Options{Model: p.ModelName}, opts...)

	reqPayload := chatRequest{
		Messages: make([]chatMessage, len(history)),
		Model:    options.Model,
	}
	for i, msg := range history {
		cm := chatMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content,
		}
		for _, a := range msg.Attachments {
			cm.Attachments = append(cm.Attachments, chatAttachment{Url: a.Url, Type: a.Type, Name: a.Name})
		}
		reqPayload.Messages[i] = cm
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := p.BaseURL + constant.CloudChatEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloud request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("cloud error: status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("cloud error: status %d, body: %s", resp.StatusCode, string(body))
	}

	acc := llm.NewAccumulator(onPartial)
	if _, err := io.Copy(acc, resp.Body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return acc.String(), ctxErr
		}
		return acc.String(), fmt.Errorf("read stream: %w", err)
	}
	return acc.String(), nil
}

// mapRole converts to the gateway's vocabulary: "user" or "model".
func mapRole(role string) string {
	if role == constant.ChatMessageRoleUser {
		return constant.ChatMessageRoleUser
	}
	return constant.ChatMessageRoleModel
}
