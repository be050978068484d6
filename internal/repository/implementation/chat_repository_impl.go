package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"thrx-be/internal/constant"
	"thrx-be/internal/entity"
	"thrx-be/internal/repository/contract"
	"thrx-be/internal/repository/specification"
	"thrx-be/pkg/store"
)

type ChatRepositoryImpl struct {
	kv store.Store
}

func NewChatRepository(kv store.Store) contract.ChatRepository {
	return &ChatRepositoryImpl{
		kv: kv,
	}
}

func metadataKey(id string) string {
	return constant.ChatMetadataKeyPrefix + id
}

func messagesKey(id string) string {
	return constant.ChatMessagesKeyPrefix + id
}

func (r *ChatRepositoryImpl) Save(ctx context.Context, chat *entity.Chat, messages []entity.Message) error {
	if messages == nil {
		messages = []entity.Message{}
	}
	meta, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	list, err := json.Marshal(messages)
	if err != nil {
		return err
	}

	if err := r.kv.Set(ctx, metadataKey(chat.Id), meta); err != nil {
		return fmt.Errorf("save chat %s: %w", chat.Id, err)
	}
	if err := r.kv.Set(ctx, messagesKey(chat.Id), list); err != nil {
		return fmt.Errorf("save messages of %s: %w", chat.Id, err)
	}
	return nil
}

func (r *ChatRepositoryImpl) FindById(ctx context.Context, id string) (*entity.Chat, error) {
	raw, err := r.kv.Get(ctx, metadataKey(id))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var chat entity.Chat
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", id, err)
	}
	return &chat, nil
}

func (r *ChatRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	keys, err := r.kv.ListKeys(ctx, constant.ChatMetadataKeyPrefix)
	if err != nil {
		return nil, err
	}

	chats := make([]*entity.Chat, 0, len(keys))
	for _, key := range keys {
		chat, err := r.FindById(ctx, strings.TrimPrefix(key, constant.ChatMetadataKeyPrefix))
		if err != nil {
			// one unreadable record must not hide the rest of the catalog
			continue
		}
		if chat == nil || !specification.SatisfiesAll(chat, specs...) {
			continue
		}
		chats = append(chats, chat)
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

func (r *ChatRepositoryImpl) LoadMessages(ctx context.Context, chatId string) ([]entity.Message, error) {
	raw, err := r.kv.Get(ctx, messagesKey(chatId))
	if err != nil {
		if store.IsNotFound(err) {
			return []entity.Message{}, nil
		}
		return nil, err
	}
	var messages []entity.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode messages of %s: %w", chatId, err)
	}
	if messages == nil {
		messages = []entity.Message{}
	}
	return messages, nil
}

func (r *ChatRepositoryImpl) Delete(ctx context.Context, id string) error {
	if err := r.kv.Delete(ctx, metadataKey(id)); err != nil {
		return err
	}
	return r.kv.Delete(ctx, messagesKey(id))
}

func (r *ChatRepositoryImpl) DeleteAll(ctx context.Context) error {
	for _, prefix := range []string{constant.ChatMetadataKeyPrefix, constant.ChatMessagesKeyPrefix} {
		keys, err := r.kv.ListKeys(ctx, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := r.kv.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}
