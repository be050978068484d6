package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"thrx-be/pkg/llm"
	"thrx-be/pkg/llm/cloud"
	"thrx-be/pkg/llm/huggingface"
	"thrx-be/pkg/llm/ollama"
)

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrNotLocalModel         = errors.New("model is not served locally")
)

// Route is where a turn's generation goes. The two flags carry the only
// behavioural difference between backends.
type Route struct {
	Kind     Kind
	Model    string
	Provider llm.LLMProvider

	// PersistBeforeGenerate saves the user turn before the stream starts.
	PersistBeforeGenerate bool
	// FallbackOnRefusal retries once with web context when the answer
	// reads like a knowledge refusal.
	FallbackOnRefusal bool
}

type Config struct {
	CloudBaseURL  string
	OllamaBaseURL string
	HFApiKey      string
	HFBaseURL     string
	OnLoad        func(ollama.LoadEvent)
}

// Router resolves model ids to providers. The local engine is built on
// first use and then kept for the life of the process.
type Router struct {
	cfg    Config
	cloud  *cloud.CloudProvider
	hosted *huggingface.HuggingFaceProvider

	localOnce sync.Once
	local     atomic.Pointer[ollama.Engine]
}

func NewRouter(cfg Config) *Router {
	r := &Router{cfg: cfg}
	if cfg.CloudBaseURL != "" {
		r.cloud = cloud.NewCloudProvider(cfg.CloudBaseURL, "")
	}
	if cfg.HFApiKey != "" {
		r.hosted = huggingface.NewHuggingFaceProvider(cfg.HFApiKey, cfg.HFBaseURL, "")
	}
	return r
}

func (r *Router) Resolve(model string) (Route, error) {
	switch KindOf(model) {
	case KindCloud:
		if r.cloud == nil {
			return Route{}, fmt.Errorf("%w: cloud", ErrProviderNotConfigured)
		}
		return Route{Kind: KindCloud, Model: model, Provider: r.cloud}, nil
	case KindHosted:
		if r.hosted == nil {
			return Route{}, fmt.Errorf("%w: hosted", ErrProviderNotConfigured)
		}
		return Route{
			Kind:     KindHosted,
			Model:    strings.TrimPrefix(model, HostedModelPrefix),
			Provider: r.hosted,
		}, nil
	default:
		return Route{
			Kind:                  KindLocal,
			Model:                 model,
			Provider:              r.Engine(),
			PersistBeforeGenerate: true,
			FallbackOnRefusal:     true,
		}, nil
	}
}

// Engine returns the process-wide local engine, creating it on first call.
func (r *Router) Engine() *ollama.Engine {
	r.localOnce.Do(func() {
		engine := ollama.NewEngine(r.cfg.OllamaBaseURL)
		engine.OnLoad = r.cfg.OnLoad
		r.local.Store(engine)
	})
	return r.local.Load()
}

// LocalBusy reports a running local generation without building the engine.
func (r *Router) LocalBusy() bool {
	engine := r.local.Load()
	if engine == nil {
		return false
	}
	return engine.Generating()
}

// InterruptLocal stops a running local generation, if there is one.
func (r *Router) InterruptLocal() bool {
	engine := r.local.Load()
	if engine == nil {
		return false
	}
	return engine.Interrupt()
}

// LoadedLocalModel is the resident local model, or "" before the engine exists.
func (r *Router) LoadedLocalModel() string {
	engine := r.local.Load()
	if engine == nil {
		return ""
	}
	return engine.LoadedModel()
}

// LoadLocal preloads a local model on the shared engine.
func (r *Router) LoadLocal(ctx context.Context, model string) error {
	if KindOf(model) != KindLocal {
		return fmt.Errorf("%w: %s", ErrNotLocalModel, model)
	}
	return r.Engine().Load(ctx, model)
}
