package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"BeatStudio/core/tempo"

	"github.com/go-redis/redis/v8"
)

const (
	tempoKey        = "tempo:%s" // String: audio content hash -> Result JSON
	tempoKeyPattern = "tempo:*"
	defaultTempoTTL = 7 * 24 * time.Hour
)

// TempoCache 节拍检测结果缓存，按音频内容哈希索引
type TempoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTempoCache 创建节拍缓存
func NewTempoCache(ttl time.Duration) *TempoCache {
	if ttl <= 0 {
		ttl = defaultTempoTTL
	}
	return &TempoCache{client: RedisClient, ttl: ttl}
}

// TempoKey 生成节拍缓存键
func TempoKey(hash string) string {
	return fmt.Sprintf(tempoKey, hash)
}

// GetTempo 读取缓存的检测结果
func (c *TempoCache) GetTempo(ctx context.Context, hash string) (tempo.Result, bool, error) {
	if c.client == nil {
		return tempo.Result{}, false, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, TempoKey(hash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return tempo.Result{}, false, nil
		}
		return tempo.Result{}, false, fmt.Errorf("failed to get tempo: %w", err)
	}

	var r tempo.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return tempo.Result{}, false, fmt.Errorf("failed to unmarshal tempo: %w", err)
	}
	return r, true, nil
}

// SetTempo 写入检测结果
func (c *TempoCache) SetTempo(ctx context.Context, hash string, r tempo.Result) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal tempo: %w", err)
	}
	return c.client.Set(ctx, TempoKey(hash), data, c.ttl).Err()
}

// Flush 删除所有节拍缓存，返回删除数量
func (c *TempoCache) Flush(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, tempoKeyPattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan tempo keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete tempo keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
