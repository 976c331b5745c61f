package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/errors"
	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/knowledge"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/metrics"
)

const (
	// MaxQuestionLength 问题最大字符数
	MaxQuestionLength = 500
	// DefaultAnswerTopK 生成答案时的检索条数
	DefaultAnswerTopK = 5
	// DefaultSearchTopK 仅检索时的条数
	DefaultSearchTopK = 10
)

// SupportConfig 客服问答服务依赖
type SupportConfig struct {
	Embedder        knowledge.Embedder
	Store           knowledge.VectorStore
	Generator       knowledge.Generator
	Logger          interfaces.LoggerInterface
	Locale          string
	AssistantName   string
	AnswerTopK      int
	SearchTopK      int
	MaxOutputTokens int
	Temperature     float32
	Timeouts        config.TimeoutConfig
}

// Answer 生成结果
type Answer struct {
	Text     string
	Sources  []SearchResult
	Fallback bool
}

// AnswerStream 流式答案的接收端，先收到来源再收到增量文本
type AnswerStream interface {
	Sources(sources []SearchResult) error
	Delta(text string) error
}

// SupportService 检索增强的客服问答服务，请求之间不保存状态
type SupportService struct {
	embedder        knowledge.Embedder
	store           knowledge.VectorStore
	generator       knowledge.Generator
	assembler       *ContextAssembler
	errHandler      *errors.ErrorHandler
	logger          interfaces.LoggerInterface
	answerTopK      int
	searchTopK      int
	maxOutputTokens int
	temperature     float32
	timeouts        config.TimeoutConfig
}

// NewSupportService 创建客服问答服务
func NewSupportService(cfg SupportConfig) *SupportService {
	if cfg.AnswerTopK <= 0 {
		cfg.AnswerTopK = DefaultAnswerTopK
	}
	if cfg.SearchTopK <= 0 {
		cfg.SearchTopK = DefaultSearchTopK
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = knowledge.DefaultMaxOutputTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	return &SupportService{
		embedder:        cfg.Embedder,
		store:           cfg.Store,
		generator:       cfg.Generator,
		assembler:       NewContextAssembler(cfg.AssistantName),
		errHandler:      errors.NewErrorHandler(cfg.Logger, cfg.Locale),
		logger:          cfg.Logger,
		answerTopK:      cfg.AnswerTopK,
		searchTopK:      cfg.SearchTopK,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     cfg.Temperature,
		timeouts:        cfg.Timeouts,
	}
}

// Answer 校验 → 嵌入 → 检索 → 拼接上下文 → 生成。
// 检索为空时直接返回固定文案，不调用生成模型。
func (s *SupportService) Answer(ctx context.Context, question string, topK int) (*Answer, error) {
	question, err := s.validate(question, errors.MsgEmptyQuestion)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.answerTopK
	}

	matches, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		metrics.IncFallback()
		return &Answer{Text: s.errHandler.Message(errors.MsgNoMatch), Sources: []SearchResult{}, Fallback: true}, nil
	}

	sources := toSearchResults(matches)
	req := s.generateRequest(question, sources)

	var text string
	err = external(ctx, s.timeouts.Generation, depGeneration, "generate", func(ctx context.Context) error {
		var err error
		text, err = s.generator.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = s.errHandler.Message(errors.MsgEmptyGeneration)
	}
	return &Answer{Text: text, Sources: sources}, nil
}

// AskQuestion 问答入口，错误转换为结果
func (s *SupportService) AskQuestion(ctx context.Context, question string, topK int) SupportResponse {
	start := time.Now()
	answer, err := s.Answer(ctx, question, topK)
	metrics.ObserveRequest("ask_question", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("ask_question", err, errors.MsgAnswerFailed)
		return SupportResponse{Success: false, Sources: []SearchResult{}, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return SupportResponse{Success: true, Answer: answer.Text, Sources: answer.Sources}
}

// Search 仅检索，不拼接上下文也不调用生成模型
func (s *SupportService) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	query, err := s.validate(query, errors.MsgEmptySearch)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = s.searchTopK
	}

	matches, err := s.retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return toSearchResults(matches), nil
}

// SearchKnowledgeBase 检索入口，错误转换为结果
func (s *SupportService) SearchKnowledgeBase(ctx context.Context, query string, topK int) SearchResponse {
	start := time.Now()
	results, err := s.Search(ctx, query, topK)
	metrics.ObserveRequest("search", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("search", err, errors.MsgSearchFailed)
		return SearchResponse{Success: false, Results: []SearchResult{}, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return SearchResponse{Success: true, Results: results}
}

// AskStream 流式问答。返回的错误已转换为可展示文案。
// 无匹配时以单个增量输出固定文案，来源为空。
func (s *SupportService) AskStream(ctx context.Context, question string, topK int, stream AnswerStream) *errors.AppError {
	start := time.Now()
	err := s.askStream(ctx, question, topK, stream)
	metrics.ObserveRequest("ask_stream", err, start)
	if err != nil {
		return s.errHandler.Resolve("ask_stream", err, errors.MsgAnswerFailed)
	}
	return nil
}

func (s *SupportService) askStream(ctx context.Context, question string, topK int, stream AnswerStream) error {
	question, err := s.validate(question, errors.MsgEmptyQuestion)
	if err != nil {
		return err
	}
	if topK <= 0 {
		topK = s.answerTopK
	}

	matches, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		metrics.IncFallback()
		if err := stream.Sources([]SearchResult{}); err != nil {
			return err
		}
		return stream.Delta(s.errHandler.Message(errors.MsgNoMatch))
	}

	sources := toSearchResults(matches)
	if err := stream.Sources(sources); err != nil {
		return err
	}

	req := s.generateRequest(question, sources)
	emitted := false
	err = external(ctx, s.timeouts.Generation, depGeneration, "generate_stream", func(ctx context.Context) error {
		return s.generator.GenerateStream(ctx, req, func(delta string) error {
			if delta == "" {
				return nil
			}
			if !emitted && strings.TrimSpace(delta) == "" {
				return nil
			}
			emitted = true
			return stream.Delta(delta)
		})
	})
	if err != nil {
		return err
	}
	if !emitted {
		return stream.Delta(s.errHandler.Message(errors.MsgEmptyGeneration))
	}
	return nil
}

// validate 去除首尾空白后不能为空且不超过MaxQuestionLength个字符
func (s *SupportService) validate(text string, emptyKey errors.MessageKey) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError(s.errHandler.Message(emptyKey))
	}
	if utf8.RuneCountInString(text) > MaxQuestionLength {
		return "", errors.NewValidationError(s.errHandler.Message(errors.MsgQuestionTooLong)).
			WithDetails(map[string]int{"max_length": MaxQuestionLength})
	}
	return text, nil
}

func (s *SupportService) retrieve(ctx context.Context, query string, topK int) ([]knowledge.SearchMatch, error) {
	var vector []float32
	err := external(ctx, s.timeouts.Embedding, depEmbedding, "embed_query", func(ctx context.Context) error {
		var err error
		vector, err = s.embedder.EmbedQuery(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	var matches []knowledge.SearchMatch
	err = external(ctx, s.timeouts.Index, depIndex, "query", func(ctx context.Context) error {
		var err error
		matches, err = s.store.Query(ctx, knowledge.QueryRequest{Vector: vector, TopK: topK, IncludeMetadata: true})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Knowledge retrieved", "top_k", topK, "matches", len(matches))
	return matches, nil
}

func (s *SupportService) generateRequest(question string, sources []SearchResult) knowledge.GenerateRequest {
	return knowledge.GenerateRequest{
		Prompt:          s.assembler.BuildPrompt(question, s.assembler.BuildContext(sources)),
		MaxOutputTokens: s.maxOutputTokens,
		Temperature:     s.temperature,
	}
}
