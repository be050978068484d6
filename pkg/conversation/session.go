package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
)

var (
	ErrNoActiveChat      = errors.New("no active chat")
	ErrNoBranchDraft     = errors.New("no branch draft open")
	ErrBranchPointGone   = errors.New("branch point not loaded")
	ErrTurnInProgress    = errors.New("a turn is already in progress")
	ErrSiblingOutOfRange = errors.New("sibling offset out of range")
)

// Store persists a whole chat snapshot.
type Store interface {
	Save(ctx context.Context, chat *entity.Chat, messages []entity.Message) error
}

// BranchDraft is an ephemeral branch opened at a message. It only lives in
// the session until the first message is sent from it.
type BranchDraft struct {
	PointId string `json:"point_id"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// Session is the handle for one chat: the loaded tree, which leaf is on
// display, an optional branch draft and the in-flight generation.
type Session struct {
	mu           sync.Mutex
	chat         *entity.Chat
	tree         *Tree
	activeLeafId string
	draft        *BranchDraft
	cancel       context.CancelFunc
	busy         bool
	detached     bool
}

func NewSession() *Session {
	return &Session{tree: NewTree(nil)}
}

// LoadSession opens a stored chat with its default leaf on display.
func LoadSession(chat entity.Chat, messages []entity.Message) *Session {
	s := &Session{chat: &chat, tree: NewTree(messages)}
	if leaf, ok := s.tree.DefaultLeaf(); ok {
		s.activeLeafId = leaf.Id
	}
	return s
}

// Chat returns a copy of the current chat, or nil before the first turn.
func (s *Session) Chat() *entity.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil {
		return nil
	}
	c := *s.chat
	return &c
}

func (s *Session) ChatId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil {
		return ""
	}
	return s.chat.Id
}

func (s *Session) SetChat(chat entity.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = &chat
}

func (s *Session) ActiveLeafId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLeafId
}

func (s *Session) SetActiveLeaf(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && !s.tree.Has(id) {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	s.activeLeafId = id
	return nil
}

// Append adds messages in order and moves the active leaf to the last one.
func (s *Session) Append(messages ...entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		if err := s.tree.Append(m); err != nil {
			return err
		}
		s.activeLeafId = m.Id
	}
	return nil
}

// AppendDetached adds a message without touching the active leaf.
func (s *Session) AppendDetached(m entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Append(m)
}

// WriteContent overwrites a message's content unless ctx has been
// cancelled. The check and the write happen under the same lock as Cancel,
// so nothing lands after Cancel returns.
func (s *Session) WriteContent(ctx context.Context, id, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	return s.tree.SetContent(id, content) == nil
}

func (s *Session) Message(id string) (entity.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Get(id)
}

func (s *Session) Trail(id string) []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Trail(id)
}

// ActiveTrail is the thread currently on display.
func (s *Session) ActiveTrail() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Trail(s.activeLeafId)
}

func (s *Session) Messages() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Messages()
}

func (s *Session) Siblings(messageId string) ([]entity.Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Siblings(messageId)
}

func (s *Session) Graph() Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Graph(s.activeLeafId)
}

// Snapshot returns the chat and all messages for a whole-value save. A
// detached session has no chat to save.
func (s *Session) Snapshot() (*entity.Chat, []entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil || s.detached {
		return nil, s.tree.Messages()
	}
	c := *s.chat
	return &c, s.tree.Messages()
}

// SelectSibling moves the display to the sibling offset positions away from
// messageId, then down to the newest leaf under it. The tree is untouched.
func (s *Session) SelectSibling(messageId string, offset int) (entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	siblings, current := s.tree.Siblings(messageId)
	if current < 0 {
		return entity.Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageId)
	}
	target := current + offset
	if target < 0 || target >= len(siblings) {
		return entity.Message{}, fmt.Errorf("%w: %d of %d", ErrSiblingOutOfRange, target, len(siblings))
	}
	leaf, _ := s.tree.LatestLeafUnder(siblings[target].Id)
	s.activeLeafId = leaf.Id
	return siblings[target], nil
}

// OpenBranch records a draft at pointId. Nothing is persisted.
func (s *Session) OpenBranch(pointId, replyTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tree.Has(pointId) {
		return fmt.Errorf("%w: %s", ErrBranchPointGone, pointId)
	}
	s.draft = &BranchDraft{PointId: pointId, ReplyTo: replyTo}
	return nil
}

func (s *Session) CloseBranch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

func (s *Session) Draft() *BranchDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	d := *s.draft
	return &d
}

// PromoteBranch turns the open draft into its own chat. The ancestors of
// the branch point are copied into the new chat and persisted; the source
// chat's stored messages are not touched. The session then holds only the
// ancestors and points at the new chat.
//
// A persistence error is returned after the switch has been applied, so
// the caller can log it and keep going; the next snapshot save retries.
func (s *Session) PromoteBranch(ctx context.Context, store Store, newChatId, title string, now time.Time) (*entity.Chat, error) {
	s.mu.Lock()
	if s.chat == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveChat
	}
	if s.draft == nil {
		s.mu.Unlock()
		return nil, ErrNoBranchDraft
	}
	pointId := s.draft.PointId
	ancestors := s.tree.Trail(pointId)
	if len(ancestors) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBranchPointGone, pointId)
	}
	branch := entity.Chat{
		Id:            newChatId,
		Title:         title,
		CreatedAt:     now,
		ParentId:      s.chat.Id,
		RootMessageId: pointId,
	}
	s.mu.Unlock()

	saveErr := store.Save(ctx, &branch, ancestors)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Reset(ancestors)
	s.chat = &branch
	s.activeLeafId = pointId
	s.draft = nil

	if saveErr != nil {
		return &branch, fmt.Errorf("persist branch %s: %w", newChatId, saveErr)
	}
	return &branch, nil
}

// Begin marks the session busy and installs the cancel handle of the turn.
func (s *Session) Begin(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrTurnInProgress
	}
	s.busy = true
	s.cancel = cancel
	return nil
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.cancel = nil
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Cancel stops the in-flight generation, if any. Partial content stays.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Detach cancels any running turn and stops later snapshots from writing
// the chat back. Used when the chat is deleted.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// Title derives a chat title from the first user message.
func Title(content string) string {
	r := []rune(content)
	if len(r) == 0 {
		return constant.DefaultChatTitle
	}
	if len(r) <= constant.ChatTitleMaxLength {
		return content
	}
	return string(r[:constant.ChatTitleMaxLength]) + constant.ChatTitleEllipsis
}
