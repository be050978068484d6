package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/events"
	"thrx-be/pkg/llm"
	"thrx-be/pkg/llm/factory"
	"thrx-be/pkg/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReply struct {
	chunks []string
	err    error
	// block waits for cancellation after the chunks
	block bool
}

type fakeProvider struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   [][]llm.Message
	models  []string
	onCall  func()
}

func (f *fakeProvider) Stream(ctx context.Context, history []llm.Message, onPartial llm.PartialFunc, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, history)
	f.models = append(f.models, llm.ApplyOptions(llm.Options{}, opts...).Model)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall()
	}
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	reply := f.replies[idx]

	text := ""
	for _, chunk := range reply.chunks {
		text += chunk
		onPartial(text)
	}
	if reply.block {
		<-ctx.Done()
		return text, ctx.Err()
	}
	return text, reply.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.calls[len(f.calls)-1]
	return history[len(history)-1].Content
}

type fakeSearch struct {
	mu      sync.Mutex
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type snapshot struct {
	chat     entity.Chat
	messages []entity.Message
}

type memStore struct {
	mu    sync.Mutex
	saves []snapshot
	err   error
}

func (s *memStore) Save(_ context.Context, chat *entity.Chat, messages []entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, snapshot{chat: *chat, messages: append([]entity.Message(nil), messages...)})
	return s.err
}

func (s *memStore) last() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[len(s.saves)-1]
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

type fakeIndex struct {
	bound   []string
	unbound []string
}

func (f *fakeIndex) Bind(chatId string, _ *conversation.Session) { f.bound = append(f.bound, chatId) }
func (f *fakeIndex) Unbind(chatId string)                         { f.unbound = append(f.unbound, chatId) }

type sinkRecorder struct {
	mu    sync.Mutex
	types []string
}

func (s *sinkRecorder) Emit(_ context.Context, event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, event.EventType())
}

type resolverFunc func(model string) (factory.Route, error)

func (f resolverFunc) Resolve(model string) (factory.Route, error) { return f(model) }

func cloudRoute(p llm.LLMProvider) Resolver {
	return resolverFunc(func(model string) (factory.Route, error) {
		return factory.Route{Kind: factory.KindCloud, Model: model, Provider: p}, nil
	})
}

func localRoute(p llm.LLMProvider) Resolver {
	return resolverFunc(func(model string) (factory.Route, error) {
		return factory.Route{
			Kind:                  factory.KindLocal,
			Model:                 model,
			Provider:              p,
			PersistBeforeGenerate: true,
			FallbackOnRefusal:     true,
		}, nil
	})
}

type harness struct {
	pipeline *Pipeline
	store    *memStore
	search   *fakeSearch
	index    *fakeIndex
	sink     *sinkRecorder
}

func newHarness(resolver Resolver, results []search.Result) *harness {
	h := &harness{
		store:  &memStore{},
		search: &fakeSearch{results: results},
		index:  &fakeIndex{},
		sink:   &sinkRecorder{},
	}
	h.pipeline = NewPipeline(resolver, h.search, h.store, h.index, h.sink, logger.NewNopLogger())
	return h
}

func webResults() []search.Result {
	return []search.Result{
		{Title: "Eiffel Tower", Url: "https://example.org/eiffel", Content: "The tower is 330 metres tall."},
		{Title: "Paris", Url: "https://example.org/paris", Content: "Capital of France."},
	}
}

// existingChat is u1 -> a1 in chat "group".
func existingChat() *conversation.Session {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return conversation.LoadSession(entity.Chat{Id: "group", Title: "Paris", CreatedAt: base}, []entity.Message{
		{Id: "u1", ChatId: "group", Role: "user", Content: "tell me about the Eiffel Tower", CreatedAt: base},
		{Id: "a1", ChatId: "group", ParentId: "u1", Role: "assistant", Content: "It is in Paris.", CreatedAt: base.Add(time.Second)},
	})
}

func TestHelloCreatesGroupWithoutRetrieval(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"Hi", " there!"}}}}
	h := newHarness(cloudRoute(provider), webResults())
	session := conversation.NewSession()

	res, err := h.pipeline.Run(context.Background(), session, Request{Content: "Hello", Model: "gemini-2.5-flash", SearchEnabled: true})
	require.NoError(t, err)

	assert.Empty(t, h.search.queries)
	assert.Equal(t, "Hello", res.Chat.Title)
	assert.True(t, res.Chat.IsGroup())
	assert.Equal(t, "Hi there!", res.Reply.Content)
	assert.Equal(t, res.Reply.Id, session.ActiveLeafId())
	assert.Nil(t, res.Failure)
	assert.Equal(t, []State{StateIdle, StateClassifying, StatePrompting, StateStreaming, StatePersisting, StateIdle}, res.States)

	// created empty, then the completed snapshot
	require.Equal(t, 2, h.store.count())
	last := h.store.last()
	require.Len(t, last.messages, 2)
	assert.Equal(t, "user", last.messages[0].Role)
	assert.Equal(t, "", last.messages[0].ParentId)
	assert.Equal(t, "assistant", last.messages[1].Role)
	assert.Equal(t, last.messages[0].Id, last.messages[1].ParentId)
	assert.Equal(t, "gemini-2.5-flash", last.messages[1].Model)

	assert.Equal(t, []string{res.Chat.Id}, h.index.bound)
	assert.Contains(t, h.sink.types, events.TypeChatCreated)
	assert.Contains(t, h.sink.types, events.TypeTurnCompleted)
}

func TestReplyQuoteDrivesSearchAndPrompt(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"330 metres."}}}}
	h := newHarness(cloudRoute(provider), webResults())
	session := existingChat()

	res, err := h.pipeline.Run(context.Background(), session, Request{
		Content:       "how tall is it",
		ReplyTo:       "the Eiffel Tower",
		Model:         "gemini-2.5-flash",
		SearchEnabled: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"the Eiffel Tower how tall is it"}, h.search.queries)
	assert.Equal(t, "the Eiffel Tower how tall is it", res.SearchQuery)
	assert.Len(t, res.Sources, 2)

	sent := provider.lastPrompt()
	assert.True(t, strings.HasPrefix(sent, "System: You are an intelligent assistant"))
	assert.Less(t, strings.Index(sent, "Web Data:"), strings.Index(sent, "User Query: "))
	assert.True(t, strings.HasSuffix(sent, "User Query: Referring to \"the Eiffel Tower\":\n\nhow tall is it"))

	// the stored message keeps the raw text
	assert.Equal(t, "how tall is it", res.UserMessage.Content)
	assert.Equal(t, "the Eiffel Tower", res.UserMessage.ReplyTo)
	assert.Equal(t, "a1", res.UserMessage.ParentId)
	assert.Equal(t, []State{StateIdle, StateClassifying, StateRetrieving, StatePrompting, StateStreaming, StatePersisting, StateIdle}, res.States)

	// history is the trail above the user message plus the augmented turn
	require.Len(t, provider.calls[0], 3)
	assert.Equal(t, "tell me about the Eiffel Tower", provider.calls[0][0].Content)
}

func TestShortQueryBorrowsPreviousUserTurn(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"330 m"}}}}
	h := newHarness(cloudRoute(provider), webResults())

	_, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "how tall", Model: "gemini-2.5-flash", SearchEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"tell me about the Eiffel Tower how tall"}, h.search.queries)
}

func TestSearchDisabledSkipsClassification(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"I don't have access to live data."}}}}
	h := newHarness(localRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "what is the weather in Paris today", Model: "phi3.5:latest"})
	require.NoError(t, err)

	assert.Empty(t, h.search.queries)
	assert.False(t, res.FellBack)
	assert.Equal(t, 1, provider.callCount())
	assert.NotContains(t, res.States, StateClassifying)
}

func TestRetrievalFailureDegradesToPlainPrompt(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"Answer"}}}}
	h := newHarness(cloudRoute(provider), nil)
	h.search.err = errors.New("search backend down")

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "latest news about the tower", Model: "gemini-2.5-flash", SearchEnabled: true})
	require.NoError(t, err)

	assert.Nil(t, res.Failure)
	assert.Empty(t, res.Sources)
	assert.Equal(t, "latest news about the tower", provider.lastPrompt())
	assert.Equal(t, "Answer", res.Reply.Content)
}

func TestLocalRouteSavesBeforeGenerating(t *testing.T) {
	h := newHarness(nil, nil)
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"ok"}}}}
	var savedBeforeStream snapshot
	provider.onCall = func() { savedBeforeStream = h.store.last() }
	h.pipeline.resolver = localRoute(provider)

	_, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "thanks", Model: "phi3.5:latest", SearchEnabled: true})
	require.NoError(t, err)

	require.Len(t, savedBeforeStream.messages, 4)
	assert.Equal(t, "thanks", savedBeforeStream.messages[2].Content)
	assert.Equal(t, "", savedBeforeStream.messages[3].Content)
}

func TestRefusalFallsBackOnce(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{
		{chunks: []string{"As an AI, I don't have access ", "to current events."}},
		{chunks: []string{"Good morning! ", "Today's headline is..."}},
		{chunks: []string{"never used"}},
	}}
	h := newHarness(localRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "good morning", Model: "phi3.5:latest", SearchEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
	assert.Equal(t, []string{"good morning"}, h.search.queries)
	assert.True(t, res.FellBack)
	assert.Equal(t, "Good morning! Today's headline is...", res.Reply.Content)
	assert.Equal(t, []State{
		StateIdle, StateClassifying, StatePrompting, StateStreaming, StatePersisting,
		StateFallbackRetrieving, StateFallbackStreaming, StatePersisting, StateIdle,
	}, res.States)

	// raw text only, no reply framing
	sent := provider.lastPrompt()
	assert.True(t, strings.HasSuffix(sent, "\n\nUser Query: good morning"))
	assert.Contains(t, h.sink.types, events.TypeTurnFallback)

	// same message id, regenerated in place
	assert.Equal(t, "Good morning! Today's headline is...", h.store.last().messages[3].Content)
	assert.Len(t, h.store.last().messages, 4)
}

func TestSecondRefusalIsNotRetried(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{
		{chunks: []string{"My knowledge cutoff prevents that."}},
	}}
	h := newHarness(localRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "hi", Model: "phi3.5:latest", SearchEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.callCount())
	assert.Len(t, h.search.queries, 1)
	assert.True(t, res.FellBack)
}

func TestFallbackWithoutResultsKeepsMarker(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"I cannot browse the web."}}}}
	h := newHarness(localRoute(provider), nil)

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "hello", Model: "phi3.5:latest", SearchEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount())
	assert.False(t, res.FellBack)
	assert.Equal(t, "I cannot browse the web."+constant.FallbackMarker, res.Reply.Content)
	assert.Equal(t, res.Reply.Content, h.store.last().messages[3].Content)
}

func TestCloudRouteNeverFallsBack(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"As an AI I can't say."}}}}
	h := newHarness(cloudRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "hey", Model: "gemini-2.5-flash", SearchEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount())
	assert.Empty(t, h.search.queries)
	assert.False(t, res.FellBack)
}

func TestSearchedTurnDoesNotFallBack(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"As an AI, I'm not aware of that."}}}}
	h := newHarness(localRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "who designed the tower", Model: "phi3.5:latest", SearchEnabled: true})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.callCount())
	assert.Len(t, h.search.queries, 1)
	assert.False(t, res.FellBack)
}

func TestCancelKeepsPartialContent(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"Partial"}, block: true}}}
	h := newHarness(localRoute(provider), webResults())
	session := existingChat()

	done := make(chan *Result, 1)
	go func() {
		res, err := h.pipeline.Run(context.Background(), session, Request{Content: "hello", Model: "phi3.5:latest", SearchEnabled: true})
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool {
		leaf, ok := session.Message(session.ActiveLeafId())
		return ok && leaf.Content == "Partial"
	}, time.Second, 5*time.Millisecond)
	require.True(t, session.Cancel())

	var res *Result
	select {
	case res = <-done:
	case <-time.After(time.Second):
		t.Fatal("turn did not stop")
	}

	assert.True(t, res.Cancelled)
	assert.Nil(t, res.SystemMessage)
	assert.False(t, res.FellBack)
	assert.Equal(t, "Partial", res.Reply.Content)
	assert.Equal(t, 1, provider.callCount())
	assert.False(t, session.Busy())

	last := h.store.last()
	require.Len(t, last.messages, 4)
	assert.Equal(t, "Partial", last.messages[3].Content)
	assert.Contains(t, h.sink.types, events.TypeTurnCancelled)
}

func TestGenerationErrorAppendsSystemMessage(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"Par"}, err: errors.New("connection reset")}}}
	h := newHarness(cloudRoute(provider), nil)
	session := existingChat()

	res, err := h.pipeline.Run(context.Background(), session, Request{Content: "hello", Model: "gemini-2.5-flash"})
	require.NoError(t, err)

	require.NotNil(t, res.SystemMessage)
	assert.EqualError(t, res.Failure, "connection reset")
	assert.Equal(t, "system", res.SystemMessage.Role)
	assert.Equal(t, res.Reply.Id, res.SystemMessage.ParentId)
	assert.Equal(t, "Error: Failed to get response from AI. connection reset", res.SystemMessage.Content)
	assert.Equal(t, "Par", res.Reply.Content)
	assert.Contains(t, res.States, StateError)

	last := h.store.last()
	require.Len(t, last.messages, 5)
	assert.Equal(t, "system", last.messages[4].Role)
	assert.Contains(t, h.sink.types, events.TypeTurnFailed)
	assert.NotContains(t, h.sink.types, events.TypeTurnCompleted)
}

type errorRecorder struct {
	logger.ILogger
	mu     sync.Mutex
	errors []string
}

func (r *errorRecorder) Error(module, message string, details map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func TestIdCollisionAbortsTurnBeforeGenerating(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"never"}}}}
	h := newHarness(cloudRoute(provider), nil)
	log := &errorRecorder{ILogger: logger.NewNopLogger()}
	h.pipeline.logger = log
	h.pipeline.newId = func() string { return "a1" }
	session := existingChat()

	res, err := h.pipeline.Run(context.Background(), session, Request{Content: "hello", Model: "gemini-2.5-flash"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, conversation.ErrDuplicateMessage)
	assert.Equal(t, []string{"Failed to append turn messages"}, log.errors)
	assert.Equal(t, 0, provider.callCount())
	assert.Len(t, session.Messages(), 2)
	assert.Equal(t, "a1", session.ActiveLeafId())
	assert.False(t, session.Busy())
}

func TestTurnAfterFailureContinuesFromPlaceholder(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{
		{chunks: []string{"Par"}, err: errors.New("connection reset")},
		{chunks: []string{"Recovered"}},
	}}
	h := newHarness(cloudRoute(provider), nil)
	session := existingChat()

	failed, err := h.pipeline.Run(context.Background(), session, Request{Content: "hello", Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	require.NotNil(t, failed.SystemMessage)
	assert.Equal(t, failed.Reply.Id, session.ActiveLeafId())

	next, err := h.pipeline.Run(context.Background(), session, Request{Content: "try again", Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Nil(t, next.SystemMessage)
	assert.Equal(t, failed.Reply.Id, next.UserMessage.ParentId)
	assert.Equal(t, "Recovered", next.Reply.Content)

	// the error note stays in the tree but off the active trail
	_, ok := session.Message(failed.SystemMessage.Id)
	assert.True(t, ok)
	for _, m := range session.ActiveTrail() {
		assert.NotEqual(t, failed.SystemMessage.Id, m.Id)
	}
}

func TestUnresolvedModelIsGenerationFailure(t *testing.T) {
	resolver := resolverFunc(func(string) (factory.Route, error) {
		return factory.Route{}, factory.ErrProviderNotConfigured
	})
	h := newHarness(resolver, nil)

	res, err := h.pipeline.Run(context.Background(), existingChat(), Request{Content: "hello", Model: "hf:meta-llama/Llama-3.1-8B-Instruct"})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Failure, factory.ErrProviderNotConfigured)
	require.NotNil(t, res.SystemMessage)
	assert.Equal(t, "", res.Reply.Content)
}

func TestSendFromBranchPromotesFirst(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"Branch answer"}}}}
	h := newHarness(cloudRoute(provider), nil)
	session := existingChat()
	require.NoError(t, session.OpenBranch("a1", "in Paris"))

	res, err := h.pipeline.Run(context.Background(), session, Request{
		Content:    "and the Louvre?",
		FromBranch: true,
		Model:      "gemini-2.5-flash",
	})
	require.NoError(t, err)

	assert.Equal(t, "group", res.Chat.ParentId)
	assert.Equal(t, "a1", res.Chat.RootMessageId)
	assert.Equal(t, "and the Louvre?", res.Chat.Title)
	assert.Equal(t, "a1", res.UserMessage.ParentId)
	assert.Equal(t, "in Paris", res.UserMessage.ReplyTo)
	assert.Equal(t, res.Chat.Id, res.UserMessage.ChatId)
	assert.Nil(t, session.Draft())

	assert.Equal(t, []string{"group"}, h.index.unbound)
	assert.Equal(t, []string{res.Chat.Id}, h.index.bound)

	// first save is the promoted branch with the copied ancestors
	first := h.store.saves[0]
	assert.Equal(t, res.Chat.Id, first.chat.Id)
	require.Len(t, first.messages, 2)
	assert.Equal(t, "u1", first.messages[0].Id)
	assert.Equal(t, "a1", first.messages[1].Id)

	last := h.store.last()
	assert.Equal(t, res.Chat.Id, last.chat.Id)
	assert.Len(t, last.messages, 4)
}

func TestBranchPersistFailureStillSends(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"ok"}}}}
	h := newHarness(cloudRoute(provider), nil)
	h.store.err = errors.New("disk full")
	session := existingChat()
	require.NoError(t, session.OpenBranch("u1", ""))

	res, err := h.pipeline.Run(context.Background(), session, Request{Content: "again", FromBranch: true, Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "group", res.Chat.ParentId)
	assert.Equal(t, "ok", res.Reply.Content)
}

func TestBusySessionRejectsSecondTurn(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"x"}}}}
	h := newHarness(cloudRoute(provider), nil)
	session := existingChat()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, session.Begin(cancel))

	_, err := h.pipeline.Run(context.Background(), session, Request{Content: "hello", Model: "gemini-2.5-flash"})
	assert.ErrorIs(t, err, conversation.ErrTurnInProgress)
	assert.Equal(t, 0, provider.callCount())
	assert.Len(t, session.Messages(), 2)
}

func TestEmptyInputIsIgnored(t *testing.T) {
	h := newHarness(cloudRoute(&fakeProvider{}), nil)
	session := conversation.NewSession()

	_, err := h.pipeline.Run(context.Background(), session, Request{Content: "   \n", Model: "gemini-2.5-flash"})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, session.Chat())
	assert.Equal(t, 0, h.store.count())
}

func TestAttachmentOnlyTurn(t *testing.T) {
	provider := &fakeProvider{replies: []scriptedReply{{chunks: []string{"A cat."}}}}
	h := newHarness(cloudRoute(provider), webResults())

	res, err := h.pipeline.Run(context.Background(), conversation.NewSession(), Request{
		Attachments:   []entity.Attachment{{Id: "f1", Url: "data:image/png;base64,AA", Type: "image", Name: "cat.png"}},
		Model:         "gemini-2.5-flash",
		SearchEnabled: true,
	})
	require.NoError(t, err)

	assert.Equal(t, constant.DefaultChatTitle, res.Chat.Title)
	assert.Empty(t, h.search.queries)
	require.Len(t, provider.calls[0][0].Attachments, 1)
	assert.Equal(t, "cat.png", provider.calls[0][0].Attachments[0].Name)
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, IsRefusal("As an AI language model..."))
	assert.True(t, IsRefusal("I do not have real-time data"))
	assert.False(t, IsRefusal("The tower is 330 metres tall."))
}
