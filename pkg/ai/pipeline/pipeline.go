package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
	"thrx-be/internal/metrics"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/events"
	"thrx-be/pkg/llm"
	"thrx-be/pkg/llm/factory"
	"thrx-be/pkg/rag/prompt"
	"thrx-be/pkg/search"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyInput = errors.New("empty input")

// Resolver picks the generation route for a model id.
type Resolver interface {
	Resolve(model string) (factory.Route, error)
}

// EventSink receives turn events. Emit must not block on slow consumers.
type EventSink interface {
	Emit(ctx context.Context, event events.Event)
}

// SessionIndex tracks which session serves which chat id.
type SessionIndex interface {
	Bind(chatId string, session *conversation.Session)
	Unbind(chatId string)
}

type Request struct {
	Content     string
	Attachments []entity.Attachment
	ReplyTo     string
	// FromBranch sends from the session's open branch draft.
	FromBranch    bool
	Model         string
	SearchEnabled bool
}

type Result struct {
	Chat        entity.Chat
	UserMessage entity.Message
	Reply       entity.Message
	// SystemMessage is set when generation failed.
	SystemMessage *entity.Message
	States        []State
	SearchQuery   string
	Sources       []search.Result
	FellBack      bool
	Cancelled     bool
	Failure       error
}

type Pipeline struct {
	resolver Resolver
	search   search.Provider
	store    conversation.Store
	sessions SessionIndex
	sink     EventSink
	logger   logger.ILogger
	tracer   trace.Tracer

	now   func() time.Time
	newId func() string
}

// NewPipeline wires a turn runner. searchProvider and sink may be nil.
func NewPipeline(
	resolver Resolver,
	searchProvider search.Provider,
	store conversation.Store,
	sessions SessionIndex,
	sink EventSink,
	log logger.ILogger,
) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		search:   searchProvider,
		store:    store,
		sessions: sessions,
		sink:     sink,
		logger:   log,
		tracer:   otel.Tracer("thrx-be/pipeline"),
		now:      func() time.Time { return time.Now().UTC() },
		newId:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// turn is the per-Run scratch state.
type turn struct {
	p       *Pipeline
	ctx     context.Context // cancelled by Stop
	saveCtx context.Context // survives Stop so the snapshot still lands
	session *conversation.Session
	req     Request
	content string
	replyTo string
	result  *Result
	route   factory.Route
	trail   []entity.Message
	span    trace.Span
}

func (t *turn) enter(state State) {
	t.result.States = append(t.result.States, state)
	t.emit(events.TypeTurnState, map[string]interface{}{"state": string(state)})
}

func (t *turn) emit(eventType string, data map[string]interface{}) {
	if t.p.sink == nil {
		return
	}
	t.p.sink.Emit(t.saveCtx, events.NewChatEvent(eventType, t.session.ChatId(), data))
}

// Run executes one turn on the session: append the user message and a
// placeholder, optionally retrieve web context, stream the answer into the
// placeholder and save the chat. Generation failures end up in the tree as
// a system message and in Result.Failure; the returned error is reserved
// for turns that never started.
func (p *Pipeline) Run(ctx context.Context, session *conversation.Session, req Request) (*Result, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Attachments) == 0 {
		return nil, ErrEmptyInput
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := session.Begin(cancel); err != nil {
		return nil, err
	}
	defer session.End()

	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()

	spanCtx, span := p.tracer.Start(turnCtx, "pipeline.Run", trace.WithAttributes(
		attribute.String("model", req.Model),
		attribute.Bool("search_enabled", req.SearchEnabled),
	))
	defer span.End()

	t := &turn{
		p:       p,
		ctx:     spanCtx,
		saveCtx: context.WithoutCancel(spanCtx),
		session: session,
		req:     req,
		content: content,
		replyTo: req.ReplyTo,
		result:  &Result{States: []State{StateIdle}},
		span:    span,
	}

	if err := t.openChat(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("chat_id", session.ChatId()))

	start := time.Now()
	if err := t.appendTurn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	t.generate()
	t.finish()

	metrics.TurnDuration.WithLabelValues(t.routeLabel()).Observe(time.Since(start).Seconds())
	return t.result, nil
}

// openChat makes sure the session has a chat to write into: a fresh group
// on the first turn, or the promoted branch when sending from a draft.
func (t *turn) openChat() error {
	p := t.p
	session := t.session

	if session.Chat() == nil {
		chat := entity.Chat{
			Id:        p.newId(),
			Title:     conversation.Title(t.content),
			CreatedAt: p.now(),
		}
		session.SetChat(chat)
		if err := p.store.Save(t.saveCtx, &chat, []entity.Message{}); err != nil {
			p.persistFailed(chat.Id, err)
		}
		if p.sessions != nil {
			p.sessions.Bind(chat.Id, session)
		}
		t.emit(events.TypeChatCreated, map[string]interface{}{"title": chat.Title})
		return nil
	}

	if !t.req.FromBranch {
		return nil
	}
	draft := session.Draft()
	if draft == nil {
		return nil
	}
	if t.replyTo == "" {
		t.replyTo = draft.ReplyTo
	}

	parentId := session.ChatId()
	branch, err := session.PromoteBranch(t.saveCtx, p.store, p.newId(), conversation.Title(t.content), p.now())
	if branch == nil {
		return err
	}
	if err != nil {
		p.persistFailed(branch.Id, err)
	}
	if p.sessions != nil {
		p.sessions.Unbind(parentId)
		p.sessions.Bind(branch.Id, session)
	}
	t.emit(events.TypeBranchPromoted, map[string]interface{}{
		"parent_id":       parentId,
		"root_message_id": branch.RootMessageId,
		"title":           branch.Title,
	})
	return nil
}

// appendTurn adds the user message and the empty assistant placeholder
// before any network call.
func (t *turn) appendTurn() error {
	p := t.p
	now := p.now()
	chatId := t.session.ChatId()

	user := entity.Message{
		Id:          p.newId(),
		ChatId:      chatId,
		ParentId:    t.session.ActiveLeafId(),
		Role:        constant.ChatMessageRoleUser,
		Content:     t.content,
		CreatedAt:   now,
		Attachments: t.req.Attachments,
		ReplyTo:     t.replyTo,
	}
	placeholder := entity.Message{
		Id:        p.newId(),
		ChatId:    chatId,
		ParentId:  user.Id,
		Role:      constant.ChatMessageRoleAssistant,
		CreatedAt: now,
		Model:     t.req.Model,
	}
	if err := t.session.Append(user, placeholder); err != nil {
		p.logger.Error("Pipeline", "Failed to append turn messages", map[string]interface{}{
			"chat_id": chatId,
			"error":   err.Error(),
		})
		return fmt.Errorf("append turn: %w", err)
	}

	t.trail = t.session.Trail(user.ParentId)
	t.result.UserMessage = user
	t.result.Reply = placeholder
	t.emit(events.TypeTurnStarted, map[string]interface{}{
		"user_message_id":  user.Id,
		"reply_message_id": placeholder.Id,
		"model":            t.req.Model,
	})
	return nil
}

func (t *turn) generate() {
	p := t.p

	route, err := p.resolver.Resolve(t.req.Model)
	if err != nil {
		t.fail(err)
		return
	}
	t.route = route
	t.span.SetAttributes(attribute.String("route", string(route.Kind)))

	if route.PersistBeforeGenerate {
		p.save(t.saveCtx, t.session)
	}

	searched := t.retrieve()

	t.enter(StatePrompting)
	builder := prompt.NewContextualBuilder(t.content, t.replyTo, t.result.Sources)
	reply, err := t.stream(StateStreaming, builder.Build())
	if t.cancelled() {
		t.cancel()
		return
	}
	if err != nil {
		t.fail(err)
		return
	}

	t.enter(StatePersisting)
	p.save(t.saveCtx, t.session)

	if route.FallbackOnRefusal && t.req.SearchEnabled && !searched && p.search != nil && IsRefusal(reply) {
		t.fallback(reply)
	}
}

// retrieve classifies the raw text and fetches web context for SEARCH
// turns. It reports whether a retrieval was attempted.
func (t *turn) retrieve() bool {
	p := t.p
	if !t.req.SearchEnabled || p.search == nil || t.content == "" {
		return false
	}

	t.enter(StateClassifying)
	if search.Classify(t.content) != search.ActionSearch {
		return false
	}

	query := search.EffectiveQuery(t.content, t.replyTo, t.trail)
	t.result.SearchQuery = query

	t.enter(StateRetrieving)
	results, err := p.search.Search(t.ctx, query)
	switch {
	case err != nil:
		metrics.RetrievalsTotal.WithLabelValues("initial", "error").Inc()
		p.logger.Warn("Pipeline", "Retrieval failed, continuing without web context", map[string]interface{}{
			"chat_id": t.session.ChatId(),
			"query":   query,
			"error":   err.Error(),
		})
	case len(results) == 0:
		metrics.RetrievalsTotal.WithLabelValues("initial", "empty").Inc()
	default:
		metrics.RetrievalsTotal.WithLabelValues("initial", "hit").Inc()
		t.result.Sources = results
	}
	return true
}

// stream sends the trail plus the augmented user message and writes the
// cumulative text into the placeholder as it arrives.
func (t *turn) stream(state State, augmentedContent string) (string, error) {
	t.enter(state)

	augmented := t.result.UserMessage
	augmented.Content = augmentedContent
	history := prompt.History(t.trail, augmented)

	replyId := t.result.Reply.Id
	onPartial := func(text string) {
		if t.session.WriteContent(t.ctx, replyId, text) {
			t.emit(events.TypeTurnPartial, map[string]interface{}{
				"message_id": replyId,
				"content":    text,
			})
		}
	}

	reply, err := t.route.Provider.Stream(t.ctx, history, onPartial, llm.WithModel(t.route.Model))
	if err == nil {
		t.session.WriteContent(t.ctx, replyId, reply)
	}
	return reply, err
}

// fallback regenerates a refusal once with web context for the raw text.
func (t *turn) fallback(refusal string) {
	p := t.p
	replyId := t.result.Reply.Id

	t.enter(StateFallbackRetrieving)
	t.session.WriteContent(t.ctx, replyId, refusal+constant.FallbackMarker)
	t.emit(events.TypeTurnFallback, map[string]interface{}{"message_id": replyId})

	results, err := p.search.Search(t.ctx, t.content)
	if err != nil || len(results) == 0 {
		outcome := "empty"
		if err != nil {
			outcome = "error"
			p.logger.Warn("Pipeline", "Fallback retrieval failed", map[string]interface{}{
				"chat_id": t.session.ChatId(),
				"error":   err.Error(),
			})
		}
		metrics.RetrievalsTotal.WithLabelValues("fallback", outcome).Inc()
		if t.cancelled() {
			t.cancel()
			return
		}
		// the marker stays on the refusal
		t.enter(StatePersisting)
		p.save(t.saveCtx, t.session)
		return
	}
	metrics.RetrievalsTotal.WithLabelValues("fallback", "hit").Inc()
	metrics.FallbacksTotal.Inc()
	t.result.FellBack = true
	t.result.Sources = results

	builder := prompt.NewContextualBuilder(t.content, "", results)
	_, err = t.stream(StateFallbackStreaming, builder.BuildFallback())
	if t.cancelled() {
		t.cancel()
		return
	}
	if err != nil {
		t.fail(err)
		return
	}
	t.enter(StatePersisting)
	p.save(t.saveCtx, t.session)
}

func (t *turn) cancelled() bool {
	return t.ctx.Err() != nil
}

// cancel keeps whatever partial text landed and saves it.
func (t *turn) cancel() {
	t.result.Cancelled = true
	t.enter(StatePersisting)
	t.p.save(t.saveCtx, t.session)
	t.emit(events.TypeTurnCancelled, map[string]interface{}{"message_id": t.result.Reply.Id})
}

// fail records a generation failure as a system message under the
// placeholder. The placeholder keeps its partial content and stays the
// active leaf, so the next turn continues from it.
func (t *turn) fail(cause error) {
	p := t.p
	t.enter(StateError)
	t.result.Failure = cause
	t.span.RecordError(cause)
	t.span.SetStatus(codes.Error, cause.Error())

	system := entity.Message{
		Id:        p.newId(),
		ChatId:    t.session.ChatId(),
		ParentId:  t.result.Reply.Id,
		Role:      constant.ChatMessageRoleSystem,
		Content:   constant.GenerationErrorPrefix + cause.Error(),
		CreatedAt: p.now(),
	}
	if err := t.session.AppendDetached(system); err != nil {
		p.logger.Error("Pipeline", "Failed to append system message", map[string]interface{}{"error": err.Error()})
	} else {
		t.result.SystemMessage = &system
	}
	p.logger.Error("Pipeline", "Generation failed", map[string]interface{}{
		"chat_id": t.session.ChatId(),
		"model":   t.req.Model,
		"error":   cause.Error(),
	})

	p.save(t.saveCtx, t.session)
	t.emit(events.TypeTurnFailed, map[string]interface{}{
		"message_id": t.result.Reply.Id,
		"error":      cause.Error(),
	})
}

func (t *turn) finish() {
	if reply, ok := t.session.Message(t.result.Reply.Id); ok {
		t.result.Reply = reply
	}
	if chat := t.session.Chat(); chat != nil {
		t.result.Chat = *chat
	}
	t.result.States = append(t.result.States, StateIdle)

	outcome := metrics.OutcomeCompleted
	switch {
	case t.result.Cancelled:
		outcome = metrics.OutcomeCancelled
	case t.result.Failure != nil:
		outcome = metrics.OutcomeFailed
	default:
		t.emit(events.TypeTurnCompleted, map[string]interface{}{
			"message_id": t.result.Reply.Id,
			"content":    t.result.Reply.Content,
			"fell_back":  t.result.FellBack,
		})
	}
	metrics.TurnsTotal.WithLabelValues(t.routeLabel(), outcome).Inc()
}

func (t *turn) routeLabel() string {
	if t.route.Kind == "" {
		return "unresolved"
	}
	return string(t.route.Kind)
}

// save writes the whole snapshot. A failure keeps the in-memory state; the
// next save carries it.
func (p *Pipeline) save(ctx context.Context, session *conversation.Session) {
	chat, messages := session.Snapshot()
	if chat == nil {
		return
	}
	if err := p.store.Save(ctx, chat, messages); err != nil {
		p.persistFailed(chat.Id, err)
	}
}

func (p *Pipeline) persistFailed(chatId string, err error) {
	metrics.PersistFailuresTotal.Inc()
	p.logger.Error("Pipeline", "Failed to persist chat", map[string]interface{}{
		"chat_id": chatId,
		"error":   fmt.Sprintf("%v", err),
	})
}

// IsRefusal reports whether an answer reads like a knowledge refusal.
func IsRefusal(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range constant.RefusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
