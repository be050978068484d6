package specification

import (
	"strings"

	"thrx-be/internal/entity"
)

// GroupsOnly keeps top-level chats.
type GroupsOnly struct{}

func (GroupsOnly) IsSatisfiedBy(chat *entity.Chat) bool {
	return chat.IsGroup()
}

// ByParentId keeps the branches directly under a chat.
type ByParentId struct {
	ParentId string
}

func (s ByParentId) IsSatisfiedBy(chat *entity.Chat) bool {
	return chat.ParentId == s.ParentId
}

// ByRootMessageId keeps branches anchored at one message.
type ByRootMessageId struct {
	MessageId string
}

func (s ByRootMessageId) IsSatisfiedBy(chat *entity.Chat) bool {
	return chat.RootMessageId == s.MessageId
}

// TitleContains is a case-insensitive title match.
type TitleContains struct {
	Query string
}

func (s TitleContains) IsSatisfiedBy(chat *entity.Chat) bool {
	return strings.Contains(strings.ToLower(chat.Title), strings.ToLower(s.Query))
}
