package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kiwimarket/backend-go/internal/interfaces"
	kblogger "github.com/kiwimarket/backend-go/internal/logger"
)

// QueryCache CachedEmbedder用到的Redis命令子集，*redis.Client满足该接口
type QueryCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedEmbedder 用Redis缓存query模式的向量，passage写入路径不缓存
type CachedEmbedder struct {
	Embedder
	rdb    QueryCache
	model  string
	ttl    time.Duration
	logger interfaces.LoggerInterface
}

// NewCachedEmbedder 创建带缓存的嵌入器
func NewCachedEmbedder(inner Embedder, rdb QueryCache, model string, ttl time.Duration, logger interfaces.LoggerInterface) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = kblogger.NewNop()
	}
	return &CachedEmbedder{
		Embedder: inner,
		rdb:      rdb,
		model:    model,
		ttl:      ttl,
		logger:   logger,
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(raw, &vec); jsonErr == nil && len(vec) == c.Dimensions() {
			return vec, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("Query embedding cache read failed", "error", err)
	}

	vec, err := c.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("Query embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "kb:qemb:" + hex.EncodeToString(sum[:])
}
