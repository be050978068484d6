package service

import (
	"context"
	"fmt"
	"sync"

	"thrx-be/internal/constant"
	"thrx-be/internal/dto"
	"thrx-be/internal/mapper"
	"thrx-be/internal/pkg/logger"
	"thrx-be/internal/repository/contract"
	"thrx-be/internal/repository/specification"
	"thrx-be/pkg/ai/pipeline"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/store"
)

// SessionRegistry holds the open sessions by chat id.
type SessionRegistry interface {
	pipeline.SessionIndex
	Get(chatId string) (*conversation.Session, bool)
	// DetachAll cancels and forgets every open session.
	DetachAll()
	Count() int
}

// TurnRunner runs one turn on a session.
type TurnRunner interface {
	Run(ctx context.Context, session *conversation.Session, req pipeline.Request) (*pipeline.Result, error)
}

type ChatListFilter struct {
	All           bool
	Query         string
	RootMessageId string
}

type IChatService interface {
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	Stop(ctx context.Context, chatId string) (*dto.StopResponse, error)
	GetChat(ctx context.Context, chatId string) (*dto.ChatDetailResponse, error)
	ListChats(ctx context.Context, filter ChatListFilter) ([]dto.ChatResponse, error)
	ListBranches(ctx context.Context, chatId string) ([]dto.ChatResponse, error)
	Graph(ctx context.Context, chatId string) (*dto.GraphResponse, error)
	DeleteChat(ctx context.Context, chatId string) error
	ClearAll(ctx context.Context) error
	OpenBranch(ctx context.Context, chatId string, req *dto.OpenBranchRequest) (*dto.ChatDetailResponse, error)
	CloseBranch(ctx context.Context, chatId string) (*dto.ChatDetailResponse, error)
	SelectSibling(ctx context.Context, chatId string, req *dto.SelectSiblingRequest) (*dto.SiblingResponse, error)
}

type chatService struct {
	repo          contract.ChatRepository
	sessions      SessionRegistry
	runner        TurnRunner
	mapper        *mapper.ChatMapper
	logger        logger.ILogger
	defaultModel  string
	searchDefault bool

	// serialises loading a chat into a session so one chat never gets two
	loadMu sync.Mutex
}

func NewChatService(
	repo contract.ChatRepository,
	sessions SessionRegistry,
	runner TurnRunner,
	log logger.ILogger,
	defaultModel string,
	searchDefault bool,
) IChatService {
	return &chatService{
		repo:          repo,
		sessions:      sessions,
		runner:        runner,
		mapper:        mapper.NewChatMapper(),
		logger:        log,
		defaultModel:  defaultModel,
		searchDefault: searchDefault,
	}
}

// session returns the open session for chatId, loading it from storage on
// first use.
func (s *chatService) session(ctx context.Context, chatId string) (*conversation.Session, error) {
	if sess, ok := s.sessions.Get(chatId); ok {
		return sess, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if sess, ok := s.sessions.Get(chatId); ok {
		return sess, nil
	}

	chat, err := s.repo.FindById(ctx, chatId)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", chatId, store.ErrNotFound)
	}
	messages, err := s.repo.LoadMessages(ctx, chatId)
	if err != nil {
		return nil, err
	}

	sess := conversation.LoadSession(*chat, messages)
	s.sessions.Bind(chatId, sess)
	return sess, nil
}

func (s *chatService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	var sess *conversation.Session
	if req.ChatId == "" {
		sess = conversation.NewSession()
	} else {
		var err error
		if sess, err = s.session(ctx, req.ChatId); err != nil {
			return nil, err
		}
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	searchEnabled := s.searchDefault
	if req.SearchEnabled != nil {
		searchEnabled = *req.SearchEnabled
	}

	result, err := s.runner.Run(ctx, sess, pipeline.Request{
		Content:       req.Content,
		Attachments:   s.mapper.ToAttachments(req.Attachments),
		ReplyTo:       req.ReplyTo,
		FromBranch:    req.FromBranch,
		Model:         model,
		SearchEnabled: searchEnabled,
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToSendMessageResponse(result), nil
}

// Stop cancels the chat's running turn. A local stream is bound to the
// turn context, so other chats sharing the engine keep generating.
func (s *chatService) Stop(ctx context.Context, chatId string) (*dto.StopResponse, error) {
	sess, ok := s.sessions.Get(chatId)
	if !ok || !sess.Busy() {
		return &dto.StopResponse{Stopped: false}, nil
	}

	generating := ""
	if leaf, ok := sess.Message(sess.ActiveLeafId()); ok && leaf.Role == constant.ChatMessageRoleAssistant {
		generating = leaf.Model
	}

	stopped := sess.Cancel()
	s.logger.Info("ChatService", "Generation stopped", map[string]interface{}{
		"chat_id": chatId,
		"model":   generating,
	})
	return &dto.StopResponse{Stopped: stopped}, nil
}

func (s *chatService) GetChat(ctx context.Context, chatId string) (*dto.ChatDetailResponse, error) {
	sess, err := s.session(ctx, chatId)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToChatDetailResponse(sess), nil
}

func (s *chatService) ListChats(ctx context.Context, filter ChatListFilter) ([]dto.ChatResponse, error) {
	var specs []specification.Specification
	if !filter.All && filter.RootMessageId == "" {
		specs = append(specs, specification.GroupsOnly{})
	}
	if filter.Query != "" {
		specs = append(specs, specification.TitleContains{Query: filter.Query})
	}
	if filter.RootMessageId != "" {
		specs = append(specs, specification.ByRootMessageId{MessageId: filter.RootMessageId})
	}

	chats, err := s.repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToChatResponses(chats), nil
}

func (s *chatService) ListBranches(ctx context.Context, chatId string) ([]dto.ChatResponse, error) {
	chats, err := s.repo.FindAll(ctx, specification.ByParentId{ParentId: chatId})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToChatResponses(chats), nil
}

func (s *chatService) Graph(ctx context.Context, chatId string) (*dto.GraphResponse, error) {
	sess, err := s.session(ctx, chatId)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToGraphResponse(chatId, sess.Graph()), nil
}

// DeleteChat removes the chat and, recursively, the branches under it.
func (s *chatService) DeleteChat(ctx context.Context, chatId string) error {
	chat, err := s.repo.FindById(ctx, chatId)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("chat %s: %w", chatId, store.ErrNotFound)
	}
	return s.deleteTree(ctx, chatId)
}

func (s *chatService) deleteTree(ctx context.Context, chatId string) error {
	branches, err := s.repo.FindAll(ctx, specification.ByParentId{ParentId: chatId})
	if err != nil {
		return err
	}
	for _, b := range branches {
		if err := s.deleteTree(ctx, b.Id); err != nil {
			return err
		}
	}

	if sess, ok := s.sessions.Get(chatId); ok {
		sess.Detach()
		s.sessions.Unbind(chatId)
	}
	if err := s.repo.Delete(ctx, chatId); err != nil {
		return fmt.Errorf("delete chat %s: %w", chatId, err)
	}
	s.logger.Info("ChatService", "Chat deleted", map[string]interface{}{"chat_id": chatId})
	return nil
}

func (s *chatService) ClearAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	s.sessions.DetachAll()
	s.logger.Warn("ChatService", "All chats cleared", nil)
	return nil
}

func (s *chatService) OpenBranch(ctx context.Context, chatId string, req *dto.OpenBranchRequest) (*dto.ChatDetailResponse, error) {
	sess, err := s.session(ctx, chatId)
	if err != nil {
		return nil, err
	}
	if err := sess.OpenBranch(req.MessageId, req.ReplyTo); err != nil {
		return nil, err
	}
	return s.mapper.ToChatDetailResponse(sess), nil
}

func (s *chatService) CloseBranch(ctx context.Context, chatId string) (*dto.ChatDetailResponse, error) {
	sess, err := s.session(ctx, chatId)
	if err != nil {
		return nil, err
	}
	sess.CloseBranch()
	return s.mapper.ToChatDetailResponse(sess), nil
}

func (s *chatService) SelectSibling(ctx context.Context, chatId string, req *dto.SelectSiblingRequest) (*dto.SiblingResponse, error) {
	sess, err := s.session(ctx, chatId)
	if err != nil {
		return nil, err
	}
	selected, err := sess.SelectSibling(req.MessageId, req.Offset)
	if err != nil {
		return nil, err
	}
	siblings, index := sess.Siblings(selected.Id)
	return &dto.SiblingResponse{
		Selected:     s.mapper.ToMessageResponse(selected),
		Index:        index,
		Count:        len(siblings),
		ActiveLeafId: sess.ActiveLeafId(),
		Trail:        s.mapper.ToMessageResponses(sess.ActiveTrail()),
	}, nil
}
