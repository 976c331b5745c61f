package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiwimarket/backend-go/internal/errors"
)

// DefaultEmbeddingModel 默认嵌入模型
const (
	DefaultEmbeddingModel     = "multilingual-e5-large"
	DefaultEmbeddingDimension = 1024
)

// InputType 嵌入模式，存储内容与检索问题使用不同编码
type InputType string

const (
	InputTypePassage InputType = "passage"
	InputTypeQuery   InputType = "query"
)

// Embedder 定义文本向量化接口
type Embedder interface {
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	// EmbedPassages 单次批量请求，输出顺序与输入一致
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Ready() bool
}

// EmbeddingProvider 具体嵌入服务商
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error)
	Name() string
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.NewEmbeddingError("embedding provider not configured")
}

func (n *NoopEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.NewEmbeddingError("embedding provider not configured")
}

func (n *NoopEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.NewEmbeddingError("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// EmbeddingGateway 校验服务商返回的向量数量与维度
type EmbeddingGateway struct {
	provider  EmbeddingProvider
	dimension int
}

// NewEmbeddingGateway 创建嵌入网关
func NewEmbeddingGateway(provider EmbeddingProvider, dimension int) *EmbeddingGateway {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &EmbeddingGateway{provider: provider, dimension: dimension}
}

func (g *EmbeddingGateway) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embed(ctx, []string{text}, InputTypePassage)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *EmbeddingGateway) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, texts, InputTypePassage)
}

func (g *EmbeddingGateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embed(ctx, []string{text}, InputTypeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *EmbeddingGateway) Dimensions() int {
	return g.dimension
}

func (g *EmbeddingGateway) Ready() bool {
	return g.provider != nil
}

func (g *EmbeddingGateway) embed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	if g.provider == nil {
		return nil, errors.NewEmbeddingError("embedding provider not configured")
	}
	if len(texts) == 0 {
		return nil, errors.NewEmbeddingError("no texts to embed")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errors.NewEmbeddingError(fmt.Sprintf("text %d is empty", i))
		}
	}

	vectors, err := g.provider.Embed(ctx, texts, inputType)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.NewEmbeddingError(fmt.Sprintf("%s embedding request failed", g.provider.Name())).WithCause(err)
	}

	if len(vectors) == 0 {
		return nil, errors.NewEmbeddingError(fmt.Sprintf("%s returned no embeddings", g.provider.Name()))
	}
	if len(vectors) != len(texts) {
		return nil, errors.NewEmbeddingError(fmt.Sprintf("%s returned %d embeddings for %d inputs", g.provider.Name(), len(vectors), len(texts)))
	}
	for i, v := range vectors {
		if len(v) != g.dimension {
			return nil, errors.NewEmbeddingError(fmt.Sprintf("%s embedding %d has dimension %d, expected %d", g.provider.Name(), i, len(v), g.dimension))
		}
	}

	return vectors, nil
}
