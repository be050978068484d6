package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		model string
		want  Kind
	}{
		{"gemini-2.5-flash", KindCloud},
		{"my-gemini-proxy", KindCloud},
		{"phi3.5:latest", KindLocal},
		{"qwen2:7b", KindLocal},
		{"hf:meta-llama/Llama-3.1-8B-Instruct", KindHosted},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.model))
		})
	}
}

func TestCatalogKindsAgree(t *testing.T) {
	for _, m := range Catalog {
		assert.Equal(t, m.Kind, KindOf(m.Id), m.Id)
	}
	_, ok := Lookup("phi3.5:latest")
	assert.True(t, ok)
}

func TestResolveRouteFlags(t *testing.T) {
	r := NewRouter(Config{CloudBaseURL: "http://gateway", OllamaBaseURL: "http://ollama", HFApiKey: "k"})

	cloud, err := r.Resolve("gemini-2.5-flash")
	require.NoError(t, err)
	assert.False(t, cloud.PersistBeforeGenerate)
	assert.False(t, cloud.FallbackOnRefusal)

	local, err := r.Resolve("phi3.5:latest")
	require.NoError(t, err)
	assert.True(t, local.PersistBeforeGenerate)
	assert.True(t, local.FallbackOnRefusal)

	hosted, err := r.Resolve("hf:org/model")
	require.NoError(t, err)
	assert.Equal(t, "org/model", hosted.Model)
	assert.False(t, hosted.FallbackOnRefusal)
}

func TestLocalEngineIsSingleton(t *testing.T) {
	r := NewRouter(Config{})
	assert.False(t, r.LocalBusy())

	a, err := r.Resolve("phi3.5:latest")
	require.NoError(t, err)
	b, err := r.Resolve("qwen2:7b")
	require.NoError(t, err)

	assert.Same(t, a.Provider, b.Provider)
	assert.Same(t, r.Engine(), a.Provider)
}

func TestResolveUnconfigured(t *testing.T) {
	r := NewRouter(Config{})

	_, err := r.Resolve("gemini-2.5-flash")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	_, err = r.Resolve("hf:x")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestLocalHelpersBeforeEngineExists(t *testing.T) {
	r := NewRouter(Config{})
	assert.False(t, r.InterruptLocal())
	assert.Equal(t, "", r.LoadedLocalModel())

	err := r.LoadLocal(context.Background(), "gemini-2.5-flash")
	assert.ErrorIs(t, err, ErrNotLocalModel)
}
