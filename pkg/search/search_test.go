package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"thrx-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Action
	}{
		{"hi", ActionLocal},
		{"Hi!", ActionLocal},
		{"  OK  ", ActionLocal},
		{"ok thanks", ActionLocal},
		{"thank you", ActionLocal},
		{"Good morning.", ActionLocal},
		{"hmm", ActionLocal},
		{"hi !", ActionLocal},
		{"ok , thanks", ActionLocal},
		{"?!", ActionSearch},
		{"good morning , how are you", ActionSearch},
		{"What is the capital of France", ActionSearch},
		{"hi there, what's the weather", ActionSearch},
		{"hi there", ActionSearch},
		{"openclaw means?", ActionSearch},
		{"thanks a lot", ActionSearch},
		{"", ActionSearch},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
			// deterministic
			assert.Equal(t, Classify(tt.query), Classify(tt.query))
		})
	}
}

func TestEffectiveQuery(t *testing.T) {
	trail := []entity.Message{
		{Id: "u1", Role: "user", Content: "Tell me about the Louvre"},
		{Id: "a1", Role: "assistant", Content: "It is a museum in Paris."},
	}

	tests := []struct {
		name    string
		text    string
		replyTo string
		trail   []entity.Message
		want    string
	}{
		{"reply wins", "how tall is it", "the Eiffel Tower", trail, "the Eiffel Tower how tall is it"},
		{"short borrows last user turn", "how old is it", "", trail, "Tell me about the Louvre how old is it"},
		{"long query untouched", "what are the opening hours on sunday", "", trail, "what are the opening hours on sunday"},
		{"short without history", "how tall is it", "", nil, "how tall is it"},
		{"no user turn in trail", "why", "", trail[1:], "why"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveQuery(tt.text, tt.replyTo, tt.trail))
		})
	}
}

const resultsPage = `<html><body>
<div class="result">
  <h2 class="result__title"><a href="/l/?u=1">Eiffel Tower - Wikipedia</a></h2>
  <a class="result__url" href="https://en.wikipedia.org/wiki/Eiffel_Tower"> en.wikipedia.org </a>
  <a class="result__snippet">The tower is 330 metres tall.</a>
</div>
<div class="result">
  <h2 class="result__title">No snippet here</h2>
  <a class="result__url" href="https://example.com">example.com</a>
</div>
%s
</body></html>`

func resultBlock(i int) string {
	return fmt.Sprintf(`<div class="result"><h2 class="result__title">Title %d</h2>
<a class="result__url" href="https://site%d.example">site</a>
<a class="result__snippet">Snippet %d</a></div>`, i, i, i)
}

func TestDuckDuckGoProvider(t *testing.T) {
	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		extra := ""
		for i := 3; i <= 8; i++ {
			extra += resultBlock(i)
		}
		fmt.Fprintf(w, resultsPage, extra)
	}))
	defer srv.Close()

	p := NewDuckDuckGoProvider(srv.URL, 0)
	results, err := p.Search(context.Background(), "eiffel tower height")
	require.NoError(t, err)

	assert.Equal(t, "eiffel tower height", gotQuery)
	assert.Contains(t, gotAgent, "Mozilla")

	// five blocks scanned, the one without a snippet dropped
	require.Len(t, results, 4)
	assert.Equal(t, Result{
		Title:   "Eiffel Tower - Wikipedia",
		Url:     "https://en.wikipedia.org/wiki/Eiffel_Tower",
		Content: "The tower is 330 metres tall.",
	}, results[0])
	assert.Equal(t, "Title 5", results[3].Title)
}

func TestDuckDuckGoProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewDuckDuckGoProvider(srv.URL, 0)
	_, err := p.Search(context.Background(), "anything")
	assert.Error(t, err)

	_, err = p.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRemoteProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "upstream down"})
			return
		}
		var results []Result
		for i := 0; i < 7; i++ {
			results = append(results, Result{Title: fmt.Sprintf("t%d", i), Url: "u", Content: req.Query})
		}
		json.NewEncoder(w).Encode(searchResponse{Results: results})
	}))
	defer srv.Close()

	p := NewRemoteProvider(srv.URL)

	results, err := p.Search(context.Background(), "go generics")
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, "go generics", results[0].Content)

	_, err = p.Search(context.Background(), "fail")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "upstream down"))
}

type countingProvider struct {
	calls   int32
	results []Result
	err     error
}

func (c *countingProvider) Search(ctx context.Context, query string) ([]Result, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.results, c.err
}

func TestCachedProvider(t *testing.T) {
	next := &countingProvider{results: []Result{{Title: "a"}}}
	p := NewCachedProvider(next, time.Minute)

	_, err := p.Search(context.Background(), "Eiffel  Tower")
	require.NoError(t, err)
	results, err := p.Search(context.Background(), "eiffel tower")
	require.NoError(t, err)

	assert.Equal(t, int32(1), next.calls)
	assert.Equal(t, "a", results[0].Title)
}

func TestCachedProviderSkipsFailures(t *testing.T) {
	next := &countingProvider{err: errors.New("boom")}
	p := NewCachedProvider(next, time.Minute)

	_, err := p.Search(context.Background(), "q")
	assert.Error(t, err)
	_, err = p.Search(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, int32(2), next.calls)
}
