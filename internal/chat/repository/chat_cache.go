package repository

import (
	"context"
	"errors"
	"time"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg/database"
)

const chatListPrefix = "chat:list:"

// ChatCache keeps the last fetched chat list per user in redis.
// A nil *ChatCache is valid and caches nothing.
type ChatCache struct {
	repo database.RedisRepository[[]domain.Chat]
	ttl  time.Duration
}

// NewChatCache create ChatCache
func NewChatCache(repo database.RedisRepository[[]domain.Chat], ttl time.Duration) *ChatCache {
	return &ChatCache{repo: repo, ttl: ttl}
}

func chatListKey(userID string) string {
	return chatListPrefix + userID
}

// Load cached chat list of userID, nil when nothing is cached
func (c *ChatCache) Load(ctx context.Context, userID string) ([]domain.Chat, error) {
	if c == nil || userID == "" {
		return nil, nil
	}
	chats, err := c.repo.Get(ctx, chatListKey(userID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// Save only durable chats, refreshing the TTL. Failures are left to the caller.
func (c *ChatCache) Save(ctx context.Context, userID string, chats []domain.Chat) error {
	if c == nil || userID == "" {
		return nil
	}
	durable := make([]domain.Chat, 0, len(chats))
	for _, ch := range chats {
		if ch.ID.IsDurable() {
			durable = append(durable, ch)
		}
	}
	return c.repo.Set(ctx, chatListKey(userID), durable, c.ttl)
}

// Touch extend the TTL without rewriting the list
func (c *ChatCache) Touch(ctx context.Context, userID string) error {
	if c == nil || userID == "" {
		return nil
	}
	return c.repo.ExtendTTL(ctx, chatListKey(userID), c.ttl)
}

// Invalidate drop the cached list
func (c *ChatCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || userID == "" {
		return nil
	}
	return c.repo.Del(ctx, chatListKey(userID))
}
