package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/knowledge"
)

// MockEmbedder 模拟嵌入网关
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if v := args.Get(0); v != nil {
		return v.([][]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	return knowledge.DefaultEmbeddingDimension
}

func (m *MockEmbedder) Ready() bool {
	return true
}

// MockVectorStore 模拟向量索引
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Upsert(ctx context.Context, entries []knowledge.VectorEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockVectorStore) DeleteOne(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVectorStore) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) Query(ctx context.Context, req knowledge.QueryRequest) ([]knowledge.SearchMatch, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.([]knowledge.SearchMatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVectorStore) Stats(ctx context.Context) (knowledge.IndexStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(knowledge.IndexStats), args.Error(1)
}

func (m *MockVectorStore) Ready() bool {
	return true
}

// MockGenerator 模拟答案生成
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req knowledge.GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) GenerateStream(ctx context.Context, req knowledge.GenerateRequest, onDelta func(string) error) error {
	args := m.Called(ctx, req, onDelta)
	return args.Error(0)
}

func (m *MockGenerator) Name() string {
	return "mock"
}

func (m *MockGenerator) Ready() bool {
	return true
}

// MockPublisher 模拟事件发布
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event interfaces.KnowledgeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockArchiver 模拟文件归档
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, size, contentType)
	return args.Error(0)
}

func vectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i + 1), 0, 0}
	}
	return out
}
