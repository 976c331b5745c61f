package knowledge

import (
	"context"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI默认嵌入模型，text-embedding-3支持指定输出维度
const defaultOpenAIEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedder 使用OpenAI Embedding API
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder 创建OpenAI嵌入服务商。OpenAI模型不区分passage/query模式。
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimension int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" || model == DefaultEmbeddingModel {
		model = defaultOpenAIEmbeddingModel
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string, _ InputType) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimension
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, 0, len(data))
	for _, d := range data {
		embedding := make([]float32, len(d.Embedding))
		copy(embedding, d.Embedding)
		vectors = append(vectors, embedding)
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Name() string {
	return "openai"
}
