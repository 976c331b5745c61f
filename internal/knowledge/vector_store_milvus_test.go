package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwimarket/backend-go/internal/errors"
)

type milvusRow struct {
	meta   string
	vector []float32
}

// fakeMilvus 只实现向量存储用到的client.Client方法
type fakeMilvus struct {
	client.Client

	mu          sync.Mutex
	collections map[string]map[string]milvusRow
	calls       map[string]int
	exprs       []string
	searchErr   error
}

func newFakeMilvus() *fakeMilvus {
	return &fakeMilvus{
		collections: make(map[string]map[string]milvusRow),
		calls:       make(map[string]int),
	}
}

func (f *fakeMilvus) record(name string) {
	f.calls[name]++
}

func (f *fakeMilvus) HasCollection(ctx context.Context, collName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HasCollection")
	_, ok := f.collections[collName]
	return ok, nil
}

func (f *fakeMilvus) CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCollection")
	f.collections[schema.CollectionName] = make(map[string]milvusRow)
	return nil
}

func (f *fakeMilvus) CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateIndex")
	return nil
}

func (f *fakeMilvus) LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LoadCollection")
	return nil
}

func (f *fakeMilvus) DropCollection(ctx context.Context, collName string, opts ...client.DropCollectionOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DropCollection")
	delete(f.collections, collName)
	return nil
}

func (f *fakeMilvus) Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error {
	return nil
}

func (f *fakeMilvus) Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Upsert")

	rows, ok := f.collections[collName]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collName)
	}
	ids := columns[0].(*entity.ColumnVarChar).Data()
	metas := columns[1].(*entity.ColumnVarChar).Data()
	vectors := columns[2].(*entity.ColumnFloatVector).Data()
	for i, id := range ids {
		rows[id] = milvusRow{meta: metas[i], vector: vectors[i]}
	}
	return columns[0], nil
}

func (f *fakeMilvus) Delete(ctx context.Context, collName string, partitionName string, expr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exprs = append(f.exprs, expr)

	start, end := strings.Index(expr, "["), strings.LastIndex(expr, "]")
	id, err := strconv.Unquote(expr[start+1 : end])
	if err != nil {
		return err
	}
	delete(f.collections[collName], id)
	return nil
}

func (f *fakeMilvus) Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
	vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	query := []float32(vectors[0].(entity.FloatVector))
	norm := vectorNorm(query)
	type scored struct {
		id    string
		meta  string
		score float32
	}
	var hits []scored
	for id, row := range f.collections[collName] {
		hits = append(hits, scored{id: id, meta: row.meta, score: float32(cosineSimilarity(query, row.vector, norm))})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	ids := make([]string, 0, len(hits))
	metas := make([]string, 0, len(hits))
	scores := make([]float32, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
		metas = append(metas, h.meta)
		scores = append(scores, h.score)
	}

	result := client.SearchResult{
		ResultCount: len(hits),
		IDs:         entity.NewColumnVarChar(milvusIDField, ids),
		Scores:      scores,
	}
	for _, field := range outputFields {
		if field == milvusMetadataField {
			result.Fields = client.ResultSet{entity.NewColumnVarChar(milvusMetadataField, metas)}
		}
	}
	return []client.SearchResult{result}, nil
}

func (f *fakeMilvus) GetCollectionStatistics(ctx context.Context, collName string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]string{"row_count": strconv.Itoa(len(f.collections[collName]))}, nil
}

func (f *fakeMilvus) ListCollections(ctx context.Context, opts ...client.ListCollectionOption) ([]*entity.Collection, error) {
	return nil, nil
}

func (f *fakeMilvus) Close() error {
	return nil
}

func TestMilvusVectorStore_UpsertAndQuery(t *testing.T) {
	fake := newFakeMilvus()
	store := newMilvusVectorStore(fake, "kiwi-rag-faq", 2)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{
		{ID: "csv-1-0", Vector: []float32{1, 0}, Metadata: Metadata{MetaQuestion: "배송 기간은?", MetaAnswer: "2-3일", MetaSource: "csv"}},
		{ID: "txt-1-0", Vector: []float32{0, 1}, Metadata: Metadata{MetaContent: "환불 안내", MetaSource: "txt"}},
	}))
	require.NoError(t, store.Upsert(ctx, []VectorEntry{
		{ID: "manual-1", Vector: []float32{0.6, 0.8}, Metadata: Metadata{MetaQuestion: "q", MetaAnswer: "a"}},
	}))

	// 集合只创建一次
	assert.Equal(t, 1, fake.calls["CreateCollection"])
	assert.Equal(t, 1, fake.calls["CreateIndex"])
	assert.Equal(t, 1, fake.calls["LoadCollection"])
	assert.Contains(t, fake.collections, "kiwi_rag_faq")

	matches, err := store.Query(ctx, QueryRequest{Vector: []float32{1, 0}, TopK: 2, IncludeMetadata: true})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "csv-1-0", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "배송 기간은?", matches[0].Metadata.String(MetaQuestion))
	assert.Equal(t, "2-3일", matches[0].Metadata.String(MetaAnswer))
	assert.Equal(t, "manual-1", matches[1].ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, IndexStats{TotalVectors: 3, Dimension: 2}, stats)
}

func TestMilvusVectorStore_QueryEmptyCollection(t *testing.T) {
	fake := newFakeMilvus()
	store := newMilvusVectorStore(fake, "kiwi", 2)

	matches, err := store.Query(context.Background(), QueryRequest{Vector: []float32{1, 0}, TopK: 5, IncludeMetadata: true})

	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestMilvusVectorStore_DeleteAllRecreates(t *testing.T) {
	fake := newFakeMilvus()
	store := newMilvusVectorStore(fake, "kiwi", 2)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float32{1, 0}}}))
	require.NoError(t, store.DeleteAll(ctx))

	assert.Equal(t, 1, fake.calls["DropCollection"])
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, IndexStats{TotalVectors: 0, Dimension: 2}, stats)

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "b", Vector: []float32{0, 1}}}))
	assert.Equal(t, 2, fake.calls["CreateCollection"])

	matches, err := store.Query(ctx, QueryRequest{Vector: []float32{0, 1}, TopK: 5})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)

	// 集合不存在时清空也成功
	require.NoError(t, store.DeleteAll(ctx))
	require.NoError(t, store.DeleteAll(ctx))
	assert.Equal(t, 2, fake.calls["DropCollection"])
}

func TestMilvusVectorStore_DeleteOne(t *testing.T) {
	fake := newFakeMilvus()
	store := newMilvusVectorStore(fake, "kiwi", 2)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []VectorEntry{{ID: "manual-1", Vector: []float32{1, 0}}}))
	require.NoError(t, store.DeleteOne(ctx, "manual-1"))
	require.NoError(t, store.DeleteOne(ctx, "missing"))

	assert.Equal(t, `id in ["manual-1"]`, fake.exprs[0])
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalVectors)
}

func TestMilvusVectorStore_Errors(t *testing.T) {
	fake := newFakeMilvus()
	store := newMilvusVectorStore(fake, "kiwi", 1024)
	ctx := context.Background()

	err := store.Upsert(ctx, []VectorEntry{{ID: "a", Vector: []float32{1, 2}}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexFailed))
	assert.Zero(t, fake.calls["Upsert"])

	fake.searchErr = fmt.Errorf("node offline")
	_, err = store.Query(ctx, QueryRequest{Vector: make([]float32, 1024), TopK: 3})
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexFailed))
}

func TestMilvusCollectionName(t *testing.T) {
	assert.Equal(t, "kiwi_rag_faq", milvusCollectionName("kiwi-rag-faq"))
	assert.Equal(t, "kb_v2", milvusCollectionName("kb.v2"))
}
