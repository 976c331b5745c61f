package knowledge

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator 使用OpenAI Chat Completions生成答案
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator 创建OpenAI生成器
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" || model == DefaultGenerationModel {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAIGenerator) request(req GenerateRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.request(req))
	if err != nil {
		return "", generationError(g.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error {
	chatReq := g.request(req)
	chatReq.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return generationError(g.Name(), err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return generationError(g.Name(), err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

func (g *OpenAIGenerator) Name() string {
	return "openai"
}

func (g *OpenAIGenerator) Ready() bool {
	return g.client != nil
}
