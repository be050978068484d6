package ollama

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"thrx-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Ollama server, e.g.
//
//	OLLAMA_INTEGRATION_MODEL=gemma:2b go test ./pkg/llm/ollama -run Integration
func TestEngineIntegration(t *testing.T) {
	model := os.Getenv("OLLAMA_INTEGRATION_MODEL")
	if model == "" {
		t.Skip("Skipping integration test: OLLAMA_INTEGRATION_MODEL not set")
	}

	engine := NewEngine(os.Getenv("OLLAMA_BASE_URL"))
	var phases []string
	engine.OnLoad = func(ev LoadEvent) { phases = append(phases, ev.Phase) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	require.NoError(t, engine.Load(ctx, model))
	assert.Equal(t, model, engine.LoadedModel())
	assert.Equal(t, []string{LoadPhaseStarted, LoadPhaseFinished}, phases)

	partials := 0
	reply, err := engine.Stream(ctx, []llm.Message{
		{Role: "user", Content: "Reply with the single word: pong"},
	}, func(string) { partials++ }, llm.WithModel(model), llm.WithTemperature(0))
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(reply))
	assert.Positive(t, partials)
	assert.False(t, engine.Generating())
}
