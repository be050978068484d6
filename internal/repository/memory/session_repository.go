package memory

import (
	"sync"
	"time"

	"thrx-be/pkg/conversation"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps the open conversation sessions by chat id. Idle
// sessions expire and are reloaded from storage on next use.
type SessionRepository struct {
	cache *cache.Cache
	// keys being removed on purpose; eviction must not restore them
	unbinding sync.Map
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	c := cache.New(ttl, 10*time.Minute)
	r := &SessionRepository{cache: c}
	c.OnEvicted(r.onEvicted)
	return r
}

// onEvicted puts back a session that expired mid-turn, unless it has since
// moved to another chat (branch promotion).
func (r *SessionRepository) onEvicted(chatId string, v interface{}) {
	if _, removing := r.unbinding.Load(chatId); removing {
		return
	}
	session, ok := v.(*conversation.Session)
	if !ok || !session.Busy() || session.ChatId() != chatId {
		return
	}
	r.cache.Set(chatId, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Bind(chatId string, session *conversation.Session) {
	r.cache.Set(chatId, session, cache.DefaultExpiration)
}

// Get returns the session and refreshes its expiry.
func (r *SessionRepository) Get(chatId string) (*conversation.Session, bool) {
	x, found := r.cache.Get(chatId)
	if !found {
		return nil, false
	}
	session := x.(*conversation.Session)
	r.cache.Set(chatId, session, cache.DefaultExpiration)
	return session, true
}

func (r *SessionRepository) Unbind(chatId string) {
	r.unbinding.Store(chatId, struct{}{})
	defer r.unbinding.Delete(chatId)
	r.cache.Delete(chatId)
}

// DetachAll cancels and drops every session; used after clearing all chats.
func (r *SessionRepository) DetachAll() {
	for _, item := range r.cache.Items() {
		if session, ok := item.Object.(*conversation.Session); ok {
			session.Detach()
		}
	}
	r.cache.Flush()
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
