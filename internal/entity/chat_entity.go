package entity

import (
	"time"
)

// Chat is a Group when ParentId is empty, otherwise a Branch anchored at
// RootMessageId inside its parent's tree.
type Chat struct {
	Id            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	ParentId      string    `json:"parentId,omitempty"`
	RootMessageId string    `json:"rootMessageId,omitempty"`
}

func (c *Chat) IsGroup() bool {
	return c.ParentId == ""
}

func (c *Chat) IsBranch() bool {
	return c.ParentId != ""
}
