package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	VectorSize int
	Database   string
	UseTLS     bool
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int

	mu      sync.Mutex
	ensured bool
}

const (
	milvusIDField       = "id"
	milvusMetadataField = "metadata"
	milvusVectorField   = "vector"
)

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(ctx context.Context, opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("milvus collection is not configured")
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = DefaultEmbeddingDimension
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return newMilvusVectorStore(milvusClient, opts.Collection, opts.VectorSize), nil
}

func newMilvusVectorStore(milvusClient client.Client, collection string, vectorSize int) *milvusVectorStore {
	return &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   milvusCollectionName(collection),
		vectorSize:   vectorSize,
	}
}

// milvusCollectionName Milvus集合名只允许字母数字和下划线
func milvusCollectionName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			out = append(out, r)
			continue
		}
		out = append(out, '_')
	}
	return string(out)
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !hasCollection {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Knowledge base entries",
			Fields: []*entity.Field{
				{
					Name:       milvusIDField,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{"max_length": "256"},
				},
				{
					Name:       milvusMetadataField,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "65535"},
				},
				{
					Name:       milvusVectorField,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": strconv.Itoa(s.vectorSize)},
				},
			},
		}
		if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		index, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		if err := s.milvusClient.CreateIndex(ctx, s.collection, milvusVectorField, index, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	s.ensured = true
	return nil
}

func (s *milvusVectorStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.vectorSize); err != nil {
		return err
	}
	if err := s.ensureCollection(ctx); err != nil {
		return indexError("upsert", err)
	}

	ids := make([]string, 0, len(entries))
	metas := make([]string, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return indexError("upsert", err)
		}
		ids = append(ids, e.ID)
		metas = append(metas, string(raw))
		vectors = append(vectors, e.Vector)
	}

	_, err := s.milvusClient.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(milvusMetadataField, metas),
		entity.NewColumnFloatVector(milvusVectorField, s.vectorSize, vectors),
	)
	if err != nil {
		return indexError("upsert", err)
	}

	return indexError("upsert", s.milvusClient.Flush(ctx, s.collection, false))
}

func (s *milvusVectorStore) DeleteOne(ctx context.Context, id string) error {
	if err := s.ensureCollection(ctx); err != nil {
		return indexError("delete", err)
	}

	expr := fmt.Sprintf("%s in [%s]", milvusIDField, strconv.Quote(id))
	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return indexError("delete", err)
	}
	return nil
}

// DeleteAll 删除集合，下次写入时重建
func (s *milvusVectorStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	has, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return indexError("delete all", err)
	}
	if has {
		if err := s.milvusClient.DropCollection(ctx, s.collection); err != nil {
			return indexError("delete all", err)
		}
	}
	s.ensured = false
	return nil
}

func (s *milvusVectorStore) Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, indexError("query", err)
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	outputFields := []string{milvusIDField}
	if req.IncludeMetadata {
		outputFields = append(outputFields, milvusMetadataField)
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(req.Vector)},
		milvusVectorField,
		entity.COSINE,
		req.TopK,
		sp,
	)
	if err != nil {
		return nil, indexError("query", err)
	}
	if len(searchResults) == 0 {
		return []SearchMatch{}, nil
	}

	result := searchResults[0]
	if result.Err != nil {
		return nil, indexError("query", result.Err)
	}

	var ids, metas []string
	if idCol, ok := result.IDs.(*entity.ColumnVarChar); ok {
		ids = idCol.Data()
	}
	for _, field := range result.Fields {
		if field.Name() != milvusMetadataField {
			continue
		}
		if col, ok := field.(*entity.ColumnVarChar); ok {
			metas = col.Data()
		}
	}

	matches := make([]SearchMatch, 0, result.ResultCount)
	for i := 0; i < result.ResultCount && i < len(ids); i++ {
		m := SearchMatch{ID: ids[i]}
		if i < len(result.Scores) {
			m.Score = float64(result.Scores[i])
		}
		if i < len(metas) {
			var meta Metadata
			if err := json.Unmarshal([]byte(metas[i]), &meta); err == nil {
				m.Metadata = meta
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *milvusVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	has, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return IndexStats{}, indexError("stats", err)
	}
	if !has {
		return IndexStats{Dimension: s.vectorSize}, nil
	}

	stats, err := s.milvusClient.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return IndexStats{}, indexError("stats", err)
	}
	total, _ := strconv.ParseInt(stats["row_count"], 10, 64)
	return IndexStats{TotalVectors: total, Dimension: s.vectorSize}, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}

// Close 关闭Milvus连接
func (s *milvusVectorStore) Close() error {
	return s.milvusClient.Close()
}
