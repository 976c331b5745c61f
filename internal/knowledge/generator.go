package knowledge

import (
	"context"
	"fmt"

	"github.com/kiwimarket/backend-go/internal/errors"
)

// 默认生成参数
const (
	DefaultGenerationModel = "gemini-flash-latest"
	DefaultMaxOutputTokens = 500
	DefaultTemperature     = 0.3
)

// GenerateRequest 生成请求，Prompt由调用方完整组装
type GenerateRequest struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float32
}

// Generator 答案生成接口
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// GenerateStream 逐段回调生成内容，onDelta返回错误时终止
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error
	Name() string
	Ready() bool
}

// NoopGenerator 默认占位实现
type NoopGenerator struct{}

func (n *NoopGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return "", errors.NewGenerationError("generation provider not configured")
}

func (n *NoopGenerator) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error {
	return errors.NewGenerationError("generation provider not configured")
}

func (n *NoopGenerator) Name() string {
	return "noop"
}

func (n *NoopGenerator) Ready() bool {
	return false
}

func generationError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.NewGenerationError(fmt.Sprintf("%s generation failed", provider)).WithCause(err)
}
