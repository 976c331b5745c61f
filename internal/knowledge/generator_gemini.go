package knowledge

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	genaiopt "google.golang.org/api/option"
)

// GeminiGenerator 使用Gemini生成答案
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator 创建Gemini生成器
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...genaiopt.ClientOption) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, append([]genaiopt.ClientOption{genaiopt.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)...)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultGenerationModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) generativeModel(req GenerateRequest) *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.model)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	model.SetTemperature(req.Temperature)
	return model
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	rsp, err := g.generativeModel(req).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", generationError(g.Name(), err)
	}
	return responseText(rsp), nil
}

func (g *GeminiGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error {
	iter := g.generativeModel(req).GenerateContentStream(ctx, genai.Text(req.Prompt))
	for {
		rsp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return generationError(g.Name(), err)
		}
		if text := responseText(rsp); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

func (g *GeminiGenerator) Name() string {
	return "gemini"
}

func (g *GeminiGenerator) Ready() bool {
	return g.client != nil
}

// Close 关闭底层客户端
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func responseText(rsp *genai.GenerateContentResponse) string {
	if rsp == nil || len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
