package mapper

import (
	"time"

	"thrx-be/internal/dto"
	"thrx-be/internal/entity"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/ai/pipeline"
	"thrx-be/pkg/conversation"
	"thrx-be/pkg/llm/factory"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ToChatResponse(c *entity.Chat) dto.ChatResponse {
	return dto.ChatResponse{
		Id:            c.Id,
		Title:         c.Title,
		CreatedAt:     c.CreatedAt,
		ParentId:      c.ParentId,
		RootMessageId: c.RootMessageId,
		IsBranch:      c.IsBranch(),
	}
}

func (m *ChatMapper) ToChatResponses(chats []*entity.Chat) []dto.ChatResponse {
	res := make([]dto.ChatResponse, 0, len(chats))
	for _, c := range chats {
		res = append(res, m.ToChatResponse(c))
	}
	return res
}

func (m *ChatMapper) ToMessageResponse(msg entity.Message) dto.MessageResponse {
	res := dto.MessageResponse{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		ParentId:  msg.ParentId,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		Model:     msg.Model,
		ReplyTo:   msg.ReplyTo,
	}
	for _, a := range msg.Attachments {
		res.Attachments = append(res.Attachments, dto.AttachmentResponse{
			Id:   a.Id,
			Url:  a.Url,
			Type: a.Type,
			Name: a.Name,
		})
	}
	return res
}

func (m *ChatMapper) ToMessageResponses(msgs []entity.Message) []dto.MessageResponse {
	res := make([]dto.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		res = append(res, m.ToMessageResponse(msg))
	}
	return res
}

// ToAttachments assigns ids to attachments that arrive without one.
func (m *ChatMapper) ToAttachments(reqs []dto.AttachmentRequest) []entity.Attachment {
	if len(reqs) == 0 {
		return nil
	}
	res := make([]entity.Attachment, 0, len(reqs))
	for _, a := range reqs {
		id := a.Id
		if id == "" {
			id = uuid.NewString()
		}
		res = append(res, entity.Attachment{Id: id, Url: a.Url, Type: a.Type, Name: a.Name})
	}
	return res
}

func (m *ChatMapper) ToSendMessageResponse(r *pipeline.Result) *dto.SendMessageResponse {
	res := &dto.SendMessageResponse{
		Chat:        m.ToChatResponse(&r.Chat),
		UserMessage: m.ToMessageResponse(r.UserMessage),
		Reply:       m.ToMessageResponse(r.Reply),
		States:      make([]string, 0, len(r.States)),
		SearchQuery: r.SearchQuery,
		FellBack:    r.FellBack,
		Cancelled:   r.Cancelled,
	}
	for _, s := range r.States {
		res.States = append(res.States, string(s))
	}
	for _, s := range r.Sources {
		res.Sources = append(res.Sources, dto.SourceResponse{Title: s.Title, Url: s.Url, Content: s.Content})
	}
	if r.SystemMessage != nil {
		sys := m.ToMessageResponse(*r.SystemMessage)
		res.SystemMessage = &sys
	}
	if r.Failure != nil {
		res.Error = r.Failure.Error()
	}
	return res
}

func (m *ChatMapper) ToChatDetailResponse(s *conversation.Session) *dto.ChatDetailResponse {
	chat, messages := s.Snapshot()
	res := &dto.ChatDetailResponse{
		Messages:     m.ToMessageResponses(messages),
		Trail:        m.ToMessageResponses(s.ActiveTrail()),
		ActiveLeafId: s.ActiveLeafId(),
		Busy:         s.Busy(),
	}
	if chat != nil {
		res.Chat = m.ToChatResponse(chat)
	}
	if d := s.Draft(); d != nil {
		res.Draft = &dto.BranchDraftResponse{PointId: d.PointId, ReplyTo: d.ReplyTo}
	}
	return res
}

func (m *ChatMapper) ToGraphResponse(chatId string, g conversation.Graph) *dto.GraphResponse {
	res := &dto.GraphResponse{
		ChatId: chatId,
		Nodes:  make([]dto.GraphNodeResponse, 0, len(g.Nodes)),
		Edges:  make([]dto.GraphEdgeResponse, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		res.Nodes = append(res.Nodes, dto.GraphNodeResponse{
			Id:        n.Id,
			Role:      n.Role,
			Preview:   n.Preview,
			Depth:     n.Depth,
			IsLeaf:    n.IsLeaf,
			IsOnTrail: n.IsOnTrail,
		})
	}
	for _, e := range g.Edges {
		res.Edges = append(res.Edges, dto.GraphEdgeResponse{From: e.From, To: e.To})
	}
	return res
}

func (m *ChatMapper) ToModelResponse(info factory.ModelInfo, loaded string) dto.ModelResponse {
	res := dto.ModelResponse{
		Id:          info.Id,
		Name:        info.Name,
		Kind:        string(info.Kind),
		Description: info.Description,
		Provider:    info.Provider,
		Category:    info.Category,
		SizeBytes:   info.SizeBytes,
		VramBytes:   info.VramBytes,
		Loaded:      loaded != "" && loaded == info.Id,
	}
	if info.SizeBytes > 0 {
		res.Size = humanize.Bytes(info.SizeBytes)
	}
	if info.VramBytes > 0 {
		res.Vram = humanize.Bytes(info.VramBytes)
	}
	return res
}

func (m *ChatMapper) ToLogListResponse(e logger.LogEntry) dto.LogListResponse {
	createdAt, _ := time.Parse("2006-01-02T15:04:05.000Z0700", e.Timestamp)
	return dto.LogListResponse{
		Id:        e.Id,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		CreatedAt: createdAt,
	}
}

func (m *ChatMapper) ToLogDetailResponse(e logger.LogEntry) *dto.LogDetailResponse {
	return &dto.LogDetailResponse{
		LogListResponse: m.ToLogListResponse(e),
		Details:         e.Details,
	}
}
