package knowledge

import (
	"context"
	"fmt"

	"github.com/kiwimarket/backend-go/internal/errors"
)

// 元数据字段
const (
	MetaQuestion  = "question"
	MetaAnswer    = "answer"
	MetaContent   = "content"
	MetaSource    = "source"
	MetaCreatedAt = "createdAt"
)

// Source 条目来源
type Source string

const (
	SourceCSV    Source = "csv"
	SourceTXT    Source = "txt"
	SourceManual Source = "manual"
)

// Metadata 条目元数据
type Metadata map[string]interface{}

// String 读取字符串字段，不存在或类型不符时返回空串
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// VectorEntry 写入向量索引的条目
type VectorEntry struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// SearchMatch 相似度检索结果，按Score降序
type SearchMatch struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// QueryRequest 相似度检索请求
type QueryRequest struct {
	Vector          []float32
	TopK            int
	IncludeMetadata bool
}

// IndexStats 索引统计
type IndexStats struct {
	TotalVectors int64 `json:"totalVectors"`
	Dimension    int   `json:"dimension"`
}

// VectorStore 向量索引抽象，所有错误以IndexError返回
type VectorStore interface {
	// Upsert 按ID覆盖写入
	Upsert(ctx context.Context, entries []VectorEntry) error
	// DeleteOne ID不存在时不报错
	DeleteOne(ctx context.Context, id string) error
	// DeleteAll 清空整个命名空间，不可恢复
	DeleteAll(ctx context.Context) error
	Query(ctx context.Context, req QueryRequest) ([]SearchMatch, error)
	Stats(ctx context.Context) (IndexStats, error)
	Ready() bool
}

func indexError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.NewIndexError(fmt.Sprintf("vector index %s failed", op)).WithCause(err)
}

func validateEntries(entries []VectorEntry, dimension int) error {
	for _, e := range entries {
		if e.ID == "" {
			return errors.NewIndexError("vector entry id is empty")
		}
		if len(e.Vector) == 0 {
			return errors.NewIndexError(fmt.Sprintf("vector entry %s has no vector", e.ID))
		}
		if dimension > 0 && len(e.Vector) != dimension {
			return errors.NewIndexError(fmt.Sprintf("vector entry %s has dimension %d, index expects %d", e.ID, len(e.Vector), dimension))
		}
	}
	return nil
}
