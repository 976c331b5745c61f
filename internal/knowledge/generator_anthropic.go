package knowledge

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicGenerator 使用Anthropic Messages API生成答案
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator 创建Anthropic生成器，opts追加在API Key之后
func NewAnthropicGenerator(apiKey, model string, opts ...anthropicopt.RequestOption) *AnthropicGenerator {
	client := anthropic.NewClient(
		append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(strings.TrimSpace(apiKey))}, opts...)...,
	)
	if model == "" || model == DefaultGenerationModel {
		model = defaultAnthropicModel
	}
	return &AnthropicGenerator{client: &client, model: model}
}

func (g *AnthropicGenerator) params(req GenerateRequest) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	rsp, err := g.client.Messages.New(ctx, g.params(req))
	if err != nil {
		return "", generationError(g.Name(), err)
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String(), nil
}

func (g *AnthropicGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error {
	stream := g.client.Messages.NewStreaming(ctx, g.params(req))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
		if !ok || text.Text == "" {
			continue
		}
		if err := onDelta(text.Text); err != nil {
			return err
		}
	}
	return generationError(g.Name(), stream.Err())
}

func (g *AnthropicGenerator) Name() string {
	return "anthropic"
}

func (g *AnthropicGenerator) Ready() bool {
	return g.client != nil
}
