package knowledge

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"
)

const defaultGoogleEmbeddingModel = "text-embedding-004"

// GoogleEmbedder 使用Gemini embedding，passage/query分别映射为RetrievalDocument/RetrievalQuery
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

// NewGoogleEmbedder 创建Google嵌入服务商
func NewGoogleEmbedder(ctx context.Context, apiKey, model string, opts ...genaiopt.ClientOption) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, append([]genaiopt.ClientOption{genaiopt.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)...)
	if err != nil {
		return nil, err
	}
	if model == "" || model == DefaultEmbeddingModel {
		model = defaultGoogleEmbeddingModel
	}
	return &GoogleEmbedder{client: client, model: model}, nil
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument
	if inputType == InputTypeQuery {
		em.TaskType = genai.TaskTypeRetrievalQuery
	}

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			vectors = append(vectors, nil)
			continue
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func (e *GoogleEmbedder) Name() string {
	return "google"
}

// Close 关闭底层客户端
func (e *GoogleEmbedder) Close() error {
	return e.client.Close()
}
