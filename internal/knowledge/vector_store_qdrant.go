package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint   string
	APIKey     string
	Collection string
	VectorSize int
	Distance   string
	Timeout    time.Duration
}

type qdrantVectorStore struct {
	rest       *restClient
	collection string
	vectorSize int
	distance   string

	mu      sync.Mutex
	ensured bool
}

// qdrantEntryIDKey 原始条目ID保存在payload中，Qdrant的点ID只能是UUID或整数
const qdrantEntryIDKey = "entry_id"

// NewQdrantVectorStore 创建Qdrant向量存储
func NewQdrantVectorStore(opts QdrantOptions) (VectorStore, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = "http://localhost:6333"
	}
	if !strings.HasPrefix(opts.Endpoint, "http") {
		opts.Endpoint = "http://" + opts.Endpoint
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is not configured")
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = DefaultEmbeddingDimension
	}

	return &qdrantVectorStore{
		rest:       newRESTClient(opts.Endpoint, opts.Timeout, map[string]string{"api-key": opts.APIKey}),
		collection: opts.Collection,
		vectorSize: opts.VectorSize,
		distance:   formatDistance(opts.Distance),
	}, nil
}

func formatDistance(value string) string {
	switch strings.ToLower(value) {
	case "dot", "dotproduct":
		return "Dot"
	case "euclid", "l2":
		return "Euclid"
	default:
		return "Cosine"
	}
}

// QdrantPointID 条目ID到Qdrant点ID的确定性映射
func QdrantPointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entryID)).String()
}

func (s *qdrantVectorStore) collectionPath(suffix string) string {
	return fmt.Sprintf("/collections/%s%s", s.collection, suffix)
}

func (s *qdrantVectorStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	err := s.rest.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, nil)
	if err == nil {
		s.ensured = true
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.vectorSize,
			"distance": s.distance,
		},
	}
	if err := s.rest.doJSON(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return fmt.Errorf("create collection %s failed: %w", s.collection, err)
	}
	s.ensured = true
	return nil
}

func (s *qdrantVectorStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateEntries(entries, s.vectorSize); err != nil {
		return err
	}
	if err := s.ensureCollection(ctx); err != nil {
		return indexError("upsert", err)
	}

	points := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		payload := make(map[string]interface{}, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			payload[k] = v
		}
		payload[qdrantEntryIDKey] = e.ID

		points = append(points, map[string]interface{}{
			"id":      QdrantPointID(e.ID),
			"vector":  e.Vector,
			"payload": payload,
		})
	}

	err := s.rest.doJSON(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]interface{}{"points": points}, nil)
	return indexError("upsert", err)
}

func (s *qdrantVectorStore) DeleteOne(ctx context.Context, id string) error {
	body := map[string]interface{}{
		"points": []string{QdrantPointID(id)},
	}
	err := s.rest.doJSON(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil)
	if isNotFound(err) {
		return nil
	}
	return indexError("delete", err)
}

// DeleteAll 删除整个collection，下次写入时重建
func (s *qdrantVectorStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.rest.doJSON(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if err != nil && !isNotFound(err) {
		return indexError("delete all", err)
	}
	s.ensured = false
	return nil
}

func (s *qdrantVectorStore) Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	body := map[string]interface{}{
		"vector":       req.Vector,
		"limit":        req.TopK,
		"with_payload": req.IncludeMetadata,
		"with_vector":  false,
	}

	var resp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	err := s.rest.doJSON(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &resp)
	if isNotFound(err) {
		return []SearchMatch{}, nil
	}
	if err != nil {
		return nil, indexError("query", err)
	}

	matches := make([]SearchMatch, 0, len(resp.Result))
	for _, item := range resp.Result {
		payload := Metadata(item.Payload)
		id := payload.String(qdrantEntryIDKey)
		if id == "" {
			id = fmt.Sprint(item.ID)
		}
		delete(payload, qdrantEntryIDKey)

		matches = append(matches, SearchMatch{ID: id, Score: item.Score, Metadata: payload})
	}
	return matches, nil
}

func (s *qdrantVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.rest.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, &resp)
	if isNotFound(err) {
		return IndexStats{Dimension: s.vectorSize}, nil
	}
	if err != nil {
		return IndexStats{}, indexError("stats", err)
	}
	return IndexStats{
		TotalVectors: resp.Result.PointsCount,
		Dimension:    resp.Result.Config.Params.Vectors.Size,
	}, nil
}

func (s *qdrantVectorStore) Ready() bool {
	return s.rest != nil
}
