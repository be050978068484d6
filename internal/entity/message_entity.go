package entity

import (
	"time"
)

type Attachment struct {
	Id   string `json:"id"`
	Url  string `json:"url"` // data URI
	Type string `json:"type"`
	Name string `json:"name"`
}

// Message is a node of the conversation tree. ParentId is the only edge;
// an empty ParentId marks a root. ReplyTo is quoted text and never affects
// the tree.
type Message struct {
	Id          string       `json:"id"`
	ChatId      string       `json:"chat_id"`
	ParentId    string       `json:"parentId,omitempty"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	Model       string       `json:"model,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     string       `json:"replyTo,omitempty"`
}

func (m *Message) IsRoot() bool {
	return m.ParentId == ""
}
