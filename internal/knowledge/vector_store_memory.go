package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryVectorStore 进程内向量存储，用于本地开发和测试
type MemoryVectorStore struct {
	mu        sync.RWMutex
	entries   map[string]VectorEntry
	dimension int
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{
		entries:   make(map[string]VectorEntry),
		dimension: dimension,
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if err := validateEntries(entries, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		meta := make(Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		s.entries[e.ID] = VectorEntry{ID: e.ID, Vector: vec, Metadata: meta}
	}
	return nil
}

func (s *MemoryVectorStore) DeleteOne(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryVectorStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]VectorEntry)
	return nil
}

func (s *MemoryVectorStore) Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error) {
	if len(req.Vector) == 0 {
		return nil, nil
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	queryNorm := vectorNorm(req.Vector)
	if queryNorm == 0 {
		return []SearchMatch{}, nil
	}

	s.mu.RLock()
	matches := make([]SearchMatch, 0, len(s.entries))
	for _, e := range s.entries {
		m := SearchMatch{ID: e.ID, Score: cosineSimilarity(req.Vector, e.Vector, queryNorm)}
		if req.IncludeMetadata {
			m.Metadata = e.Metadata
		}
		matches = append(matches, m)
	}
	s.mu.RUnlock()

	sortMatchesByScore(matches)
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

func (s *MemoryVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IndexStats{TotalVectors: int64(len(s.entries)), Dimension: s.dimension}, nil
}

func (s *MemoryVectorStore) Ready() bool {
	return true
}

// sortMatchesByScore 按分数降序，分数相同按ID排序保证结果稳定
func sortMatchesByScore(matches []SearchMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(a) != len(b) || normA == 0 {
		return 0
	}

	var dot, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normB == 0 {
		return 0
	}
	return dot / (normA * math.Sqrt(normB))
}
