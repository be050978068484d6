package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"thrx-be/internal/constant"
	"thrx-be/pkg/llm"
)

var ErrEngineBusy = errors.New("local engine is busy")

const (
	stateIdle = iota
	stateLoading
	stateGenerating
)

const (
	LoadPhaseStarted  = "started"
	LoadPhaseFinished = "finished"
	LoadPhaseFailed   = "failed"
)

type LoadEvent struct {
	Model    string
	Phase    string
	Duration time.Duration
	Err      error
}

// Engine is the local model runtime. There is one per process: switching
// models reloads the same engine instead of building a new one, and a
// reload is refused while a generation runs.
type Engine struct {
	BaseURL   string
	KeepAlive string
	Client    *http.Client
	OnLoad    func(LoadEvent)

	mu        sync.Mutex
	state     int
	model     string
	interrupt context.CancelFunc
}

// Ensure Engine implements LLMProvider
var _ llm.LLMProvider = &Engine{}

func NewEngine(baseURL string) *Engine {
	if baseURL == "" {
		baseURL = constant.OllamaDefaultBaseURL
	}
	return &Engine{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		KeepAlive: constant.OllamaDefaultKeepAlive,
		Client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model     string          `json:"model"`
	Messages  []ollamaMessage `json:"messages"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive,omitempty"`
	Options   *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatChunk struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type ollamaLoadRequest struct {
	Model     string `json:"model"`
	KeepAlive any    `json:"keep_alive"`
}

// LoadedModel is "" until the first load.
func (e *Engine) LoadedModel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

func (e *Engine) Generating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateGenerating
}

// Load makes model the resident one, unloading the previous model.
func (e *Engine) Load(ctx context.Context, model string) error {
	e.mu.Lock()
	if e.state != stateIdle {
		e.mu.Unlock()
		return ErrEngineBusy
	}
	if model == e.model {
		e.mu.Unlock()
		return nil
	}
	e.state = stateLoading
	previous := e.model
	e.mu.Unlock()

	err := e.reload(ctx, previous, model)

	e.mu.Lock()
	e.state = stateIdle
	if err == nil {
		e.model = model
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) reload(ctx context.Context, previous, model string) error {
	started := time.Now()
	e.notify(LoadEvent{Model: model, Phase: LoadPhaseStarted})

	if previous != "" {
		// best effort; a failed unload only costs memory
		_ = e.postGenerate(ctx, ollamaLoadRequest{Model: previous, KeepAlive: 0})
	}
	err := e.postGenerate(ctx, ollamaLoadRequest{Model: model, KeepAlive: e.KeepAlive})
	if err != nil {
		e.notify(LoadEvent{Model: model, Phase: LoadPhaseFailed, Duration: time.Since(started), Err: err})
		return fmt.Errorf("load %s: %w", model, err)
	}
	e.notify(LoadEvent{Model: model, Phase: LoadPhaseFinished, Duration: time.Since(started)})
	return nil
}

func (e *Engine) notify(ev LoadEvent) {
	if e.OnLoad != nil {
		e.OnLoad(ev)
	}
}

// postGenerate with no prompt loads or unloads a model without generating.
func (e *Engine) postGenerate(ctx context.Context, payload ollamaLoadRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+constant.OllamaGenerateEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Interrupt stops the running generation, if any.
func (e *Engine) Interrupt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interrupt == nil {
		return false
	}
	e.interrupt()
	return true
}

// Stream generates with the requested model, loading it first when another
// one is resident.
func (e *Engine) Stream(ctx context.Context, history []llm.Message, onPartial llm.PartialFunc, opts ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", llm.ErrEmptyHistory
	}
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7}, opts...)
	model := options.Model
	if model == "" {
		model = e.LoadedModel()
	}
	if model == "" {
		model = constant.DefaultLocalModel
	}
	if err := e.Load(ctx, model); err != nil {
		return "", err
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.state != stateIdle {
		e.mu.Unlock()
		return "", ErrEngineBusy
	}
	e.state = stateGenerating
	e.interrupt = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.state = stateIdle
		e.interrupt = nil
		e.mu.Unlock()
	}()

	return e.chat(genCtx, model, history, options, onPartial)
}

func (e *Engine) chat(ctx context.Context, model string, history []llm.Message, options *llm.Options, onPartial llm.PartialFunc) (string, error) {
	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		ollamaMessages[i] = ollamaMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content,
		}
	}

	reqPayload := ollamaChatRequest{
		Model:     model,
		Messages:  ollamaMessages,
		Stream:    true,
		KeepAlive: e.KeepAlive,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}
	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+constant.OllamaChatEndpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(body))
	}

	acc := llm.NewAccumulator(onPartial)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return acc.String(), fmt.Errorf("unmarshal chunk: %w", err)
		}
		if chunk.Error != "" {
			return acc.String(), fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			acc.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			return acc.String(), nil
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

func mapRole(role string) string {
	switch role {
	case constant.ChatMessageRoleUser:
		return constant.OllamaRoleUser
	case constant.ChatMessageRoleSystem:
		return constant.OllamaRoleSystem
	default:
		return constant.OllamaRoleAssistant
	}
}
