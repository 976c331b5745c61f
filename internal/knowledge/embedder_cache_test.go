package knowledge

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kiwimarket/backend-go/internal/logger"
)

type fakeCache struct {
	values  map[string]string
	ttls    map[string]time.Duration
	readErr error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	if c.readErr != nil {
		return redis.NewStringResult("", c.readErr)
	}
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.setErr != nil {
		return redis.NewStatusResult("", c.setErr)
	}
	c.values[key] = string(value.([]byte))
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCachedEmbedder_QueryHitsCache(t *testing.T) {
	provider := &stubProvider{vectors: [][]float32{{0.6, 0.8}}}
	cache := newFakeCache()
	e := NewCachedEmbedder(NewEmbeddingGateway(provider, 2), cache, "e5", time.Minute, logger.NewNop())
	ctx := context.Background()

	first, err := e.EmbedQuery(ctx, "배송")
	require.NoError(t, err)
	second, err := e.EmbedQuery(ctx, "배송")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
	require.Len(t, cache.ttls, 1)
	for key, ttl := range cache.ttls {
		assert.Contains(t, key, "kb:qemb:")
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestCachedEmbedder_KeyDependsOnModel(t *testing.T) {
	a := NewCachedEmbedder(nil, nil, "model-a", 0, nil)
	b := NewCachedEmbedder(nil, nil, "model-b", 0, nil)

	assert.NotEqual(t, a.cacheKey("q"), b.cacheKey("q"))
	assert.Equal(t, a.cacheKey("q"), a.cacheKey("q"))
	assert.Equal(t, 10*time.Minute, a.ttl)
}

func TestCachedEmbedder_PassagesBypassCache(t *testing.T) {
	provider := &stubProvider{vectors: [][]float32{{1, 0}}}
	cache := newFakeCache()
	e := NewCachedEmbedder(NewEmbeddingGateway(provider, 2), cache, "e5", time.Minute, logger.NewNop())

	_, err := e.EmbedPassage(context.Background(), "질문: a\n답변: b")
	require.NoError(t, err)
	_, err = e.EmbedPassage(context.Background(), "질문: a\n답변: b")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.Empty(t, cache.values)
}

func TestCachedEmbedder_CacheFailuresDegrade(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	provider := &stubProvider{vectors: [][]float32{{1, 0}}}
	cache := newFakeCache()
	cache.readErr = stderrors.New("connection refused")
	cache.setErr = stderrors.New("connection refused")
	e := NewCachedEmbedder(NewEmbeddingGateway(provider, 2), cache, "e5", time.Minute, logger.NewLogger(zap.New(core)))

	vec, err := e.EmbedQuery(context.Background(), "환불")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 1, logs.FilterMessage("Query embedding cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Query embedding cache write failed").Len())
}

func TestCachedEmbedder_IgnoresCorruptEntries(t *testing.T) {
	provider := &stubProvider{vectors: [][]float32{{1, 0}}}
	cache := newFakeCache()
	e := NewCachedEmbedder(NewEmbeddingGateway(provider, 2), cache, "e5", time.Minute, logger.NewNop())
	cache.values[e.cacheKey("q")] = "[1,2,3]"

	vec, err := e.EmbedQuery(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 1, provider.calls)
}
