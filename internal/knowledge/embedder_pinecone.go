package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
)

// PineconeEmbedderOptions Pinecone Inference配置
type PineconeEmbedderOptions struct {
	APIKey string
	// Host 控制面地址，为空时使用SDK默认值
	Host    string
	Model   string
	Timeout time.Duration
}

// PineconeEmbedder 通过Pinecone Inference生成向量
type PineconeEmbedder struct {
	inference *pinecone.InferenceService
	model     string
}

// NewPineconeEmbedder 创建Pinecone嵌入服务商
func NewPineconeEmbedder(opts PineconeEmbedderOptions) (*PineconeEmbedder, error) {
	if opts.Model == "" {
		opts.Model = DefaultEmbeddingModel
	}
	params := pinecone.NewClientParams{
		ApiKey: strings.TrimSpace(opts.APIKey),
		Host:   opts.Host,
	}
	if opts.Timeout > 0 {
		params.RestClient = &http.Client{Timeout: opts.Timeout}
	}

	pc, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return &PineconeEmbedder{inference: pc.Inference, model: opts.Model}, nil
}

func (e *PineconeEmbedder) Embed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	resp, err := e.inference.Embed(ctx, &pinecone.EmbedRequest{
		Model:      e.model,
		TextInputs: texts,
		Parameters: pinecone.EmbedParameters{
			InputType: string(inputType),
			Truncate:  "END",
		},
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.Values == nil {
			vectors = append(vectors, nil)
			continue
		}
		vectors = append(vectors, *d.Values)
	}
	return vectors, nil
}

func (e *PineconeEmbedder) Name() string {
	return "pinecone"
}
