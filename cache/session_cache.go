package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionPresenceKey = "session:%s:presence" // String: 客户端心跳
	sessionOnlineSet   = "sessions:online"     // Sorted Set: sessionID -> 最近心跳时间
	presenceTTL        = 60 * time.Second
)

// SessionCache 编辑会话在线状态，供多实例部署时查看活跃会话
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache 创建会话缓存
func NewSessionCache() *SessionCache {
	return &SessionCache{client: RedisClient}
}

// Touch 更新会话心跳
func (c *SessionCache) Touch(ctx context.Context, sessionID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	now := time.Now()
	pipe := c.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(sessionPresenceKey, sessionID), now.UnixMilli(), presenceTTL)
	pipe.ZAdd(ctx, sessionOnlineSet, &redis.Z{Score: float64(now.Unix()), Member: sessionID})
	_, err := pipe.Exec(ctx)
	return err
}

// Remove 移除会话在线状态
func (c *SessionCache) Remove(ctx context.Context, sessionID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(sessionPresenceKey, sessionID))
	pipe.ZRem(ctx, sessionOnlineSet, sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveCount 统计最近一个心跳周期内活跃的会话数
func (c *SessionCache) ActiveCount(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	since := fmt.Sprintf("%d", time.Now().Add(-presenceTTL).Unix())
	return c.client.ZCount(ctx, sessionOnlineSet, since, "+inf").Result()
}
