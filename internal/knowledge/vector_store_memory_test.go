package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwimarket/backend-go/internal/errors"
)

func seedMemoryStore(t *testing.T) *MemoryVectorStore {
	t.Helper()
	store := NewMemoryVectorStore(3)
	err := store.Upsert(context.Background(), []VectorEntry{
		{ID: "csv-1-0", Vector: []float32{1, 0, 0}, Metadata: Metadata{MetaQuestion: "배송", MetaAnswer: "2일"}},
		{ID: "csv-1-1", Vector: []float32{0.7, 0.7, 0}, Metadata: Metadata{MetaQuestion: "환불", MetaAnswer: "7일"}},
		{ID: "txt-1-0", Vector: []float32{0, 0, 1}, Metadata: Metadata{MetaContent: "안내"}},
	})
	require.NoError(t, err)
	return store
}

func TestMemoryVectorStore_QueryOrdersByScore(t *testing.T) {
	store := seedMemoryStore(t)

	matches, err := store.Query(context.Background(), QueryRequest{Vector: []float32{1, 0.1, 0}, TopK: 2, IncludeMetadata: true})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "csv-1-0", matches[0].ID)
	assert.Equal(t, "csv-1-1", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.LessOrEqual(t, matches[0].Score, 1.0)
	assert.Equal(t, "배송", matches[0].Metadata.String(MetaQuestion))
}

func TestMemoryVectorStore_QueryWithoutMetadata(t *testing.T) {
	store := seedMemoryStore(t)

	matches, err := store.Query(context.Background(), QueryRequest{Vector: []float32{0, 0, 1}, TopK: 1})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "txt-1-0", matches[0].ID)
	assert.Nil(t, matches[0].Metadata)
}

func TestMemoryVectorStore_UpsertReplacesByID(t *testing.T) {
	store := seedMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "txt-1-0", Vector: []float32{0, 1, 0}, Metadata: Metadata{MetaContent: "새 안내"}}}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, IndexStats{TotalVectors: 3, Dimension: 3}, stats)

	matches, err := store.Query(ctx, QueryRequest{Vector: []float32{0, 1, 0}, TopK: 1, IncludeMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, "새 안내", matches[0].Metadata.String(MetaContent))
}

func TestMemoryVectorStore_Delete(t *testing.T) {
	store := seedMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteOne(ctx, "csv-1-0"))
	require.NoError(t, store.DeleteOne(ctx, "does-not-exist"))
	stats, _ := store.Stats(ctx)
	assert.Equal(t, int64(2), stats.TotalVectors)

	require.NoError(t, store.DeleteAll(ctx))
	matches, err := store.Query(ctx, QueryRequest{Vector: []float32{1, 0, 0}, TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryVectorStore_RejectsWrongDimension(t *testing.T) {
	store := NewMemoryVectorStore(3)

	err := store.Upsert(context.Background(), []VectorEntry{{ID: "x", Vector: []float32{1, 0}}})

	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexFailed))
}

func TestMetadataString(t *testing.T) {
	var nilMeta Metadata
	assert.Equal(t, "", nilMeta.String(MetaQuestion))
	assert.Equal(t, "", Metadata{MetaQuestion: 12}.String(MetaQuestion))
	assert.Equal(t, "q", Metadata{MetaQuestion: "q"}.String(MetaQuestion))
}
