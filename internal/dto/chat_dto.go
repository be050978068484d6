package dto

import (
	"time"
)

type AttachmentRequest struct {
	Id   string `json:"id"`
	Url  string `json:"url" validate:"required"`
	Type string `json:"type" validate:"required,oneof=image file audio"`
	Name string `json:"name" validate:"max=255"`
}

type SendMessageRequest struct {
	// Empty starts a new group.
	ChatId      string              `json:"chat_id"`
	Content     string              `json:"content" validate:"max=20000"`
	Attachments []AttachmentRequest `json:"attachments" validate:"max=10,dive"`
	ReplyTo     string              `json:"reply_to" validate:"max=4000"`
	FromBranch  bool                `json:"from_branch"`
	Model       string              `json:"model"`
	// Nil means the server default.
	SearchEnabled *bool `json:"search_enabled"`
}

type AttachmentResponse struct {
	Id   string `json:"id"`
	Url  string `json:"url"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type MessageResponse struct {
	Id          string               `json:"id"`
	ChatId      string               `json:"chat_id"`
	ParentId    string               `json:"parentId,omitempty"`
	Role        string               `json:"role"`
	Content     string               `json:"content"`
	CreatedAt   time.Time            `json:"created_at"`
	Model       string               `json:"model,omitempty"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
	ReplyTo     string               `json:"replyTo,omitempty"`
}

type ChatResponse struct {
	Id            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	ParentId      string    `json:"parentId,omitempty"`
	RootMessageId string    `json:"rootMessageId,omitempty"`
	IsBranch      bool      `json:"is_branch"`
}

type SourceResponse struct {
	Title   string `json:"title"`
	Url     string `json:"url"`
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Chat          ChatResponse     `json:"chat"`
	UserMessage   MessageResponse  `json:"user_message"`
	Reply         MessageResponse  `json:"reply"`
	SystemMessage *MessageResponse `json:"system_message,omitempty"`
	States        []string         `json:"states"`
	SearchQuery   string           `json:"search_query,omitempty"`
	Sources       []SourceResponse `json:"sources,omitempty"`
	FellBack      bool             `json:"fell_back"`
	Cancelled     bool             `json:"cancelled"`
	Error         string           `json:"error,omitempty"`
}

type BranchDraftResponse struct {
	PointId string `json:"point_id"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type ChatDetailResponse struct {
	Chat         ChatResponse         `json:"chat"`
	Messages     []MessageResponse    `json:"messages"`
	Trail        []MessageResponse    `json:"trail"`
	ActiveLeafId string               `json:"active_leaf_id,omitempty"`
	Draft        *BranchDraftResponse `json:"draft,omitempty"`
	Busy         bool                 `json:"busy"`
}

type OpenBranchRequest struct {
	MessageId string `json:"message_id" validate:"required"`
	ReplyTo   string `json:"reply_to" validate:"max=4000"`
}

type SelectSiblingRequest struct {
	MessageId string `json:"message_id" validate:"required"`
	Offset    int    `json:"offset" validate:"required"`
}

type SiblingResponse struct {
	Selected     MessageResponse   `json:"selected"`
	Index        int               `json:"index"`
	Count        int               `json:"count"`
	ActiveLeafId string            `json:"active_leaf_id"`
	Trail        []MessageResponse `json:"trail"`
}

type GraphNodeResponse struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Preview   string `json:"preview"`
	Depth     int    `json:"depth"`
	IsLeaf    bool   `json:"is_leaf"`
	IsOnTrail bool   `json:"is_on_trail"`
}

type GraphEdgeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GraphResponse struct {
	ChatId string              `json:"chat_id"`
	Nodes  []GraphNodeResponse `json:"nodes"`
	Edges  []GraphEdgeResponse `json:"edges"`
}

type StopResponse struct {
	Stopped bool `json:"stopped"`
}
