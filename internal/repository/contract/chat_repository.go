package contract

import (
	"context"

	"thrx-be/internal/entity"
	"thrx-be/internal/repository/specification"
)

type ChatRepository interface {
	// Save writes the chat record and its whole message list.
	Save(ctx context.Context, chat *entity.Chat, messages []entity.Message) error
	// FindById returns nil, nil when the chat does not exist.
	FindById(ctx context.Context, id string) (*entity.Chat, error)
	// FindAll returns matching chats, newest first.
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)
	// LoadMessages returns an empty list for unknown chats.
	LoadMessages(ctx context.Context, chatId string) ([]entity.Message, error)
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every chat record and message list and nothing else.
	DeleteAll(ctx context.Context) error
}
