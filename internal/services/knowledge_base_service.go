package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/errors"
	"github.com/kiwimarket/backend-go/internal/interfaces"
	"github.com/kiwimarket/backend-go/internal/knowledge"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/metrics"
)

// DefaultListTopK 列表检索默认条数
const DefaultListTopK = 100

// FileUpload 上传的文件，Name仅用于按扩展名分派
type FileUpload struct {
	Name        string
	Content     []byte
	ContentType string
}

// KnowledgeBaseConfig 知识库服务依赖
type KnowledgeBaseConfig struct {
	Embedder  knowledge.Embedder
	Store     knowledge.VectorStore
	Publisher interfaces.EventPublisher
	Archiver  interfaces.FileArchiver
	Logger    interfaces.LoggerInterface
	Locale    string
	ChunkSize int
	ListTopK  int
	Timeouts  config.TimeoutConfig
	Now       func() time.Time
}

// KnowledgeBaseService 知识库入库与管理服务
type KnowledgeBaseService struct {
	embedder   knowledge.Embedder
	store      knowledge.VectorStore
	chunker    *knowledge.Chunker
	publisher  interfaces.EventPublisher
	archiver   interfaces.FileArchiver
	errHandler *errors.ErrorHandler
	logger     interfaces.LoggerInterface
	ids        *IDGenerator
	timeouts   config.TimeoutConfig
	listTopK   int
	now        func() time.Time
}

// NewKnowledgeBaseService 创建知识库服务
func NewKnowledgeBaseService(cfg KnowledgeBaseConfig) *KnowledgeBaseService {
	if cfg.Publisher == nil {
		cfg.Publisher = interfaces.NoopPublisher{}
	}
	if cfg.Archiver == nil {
		cfg.Archiver = interfaces.NoopArchiver{}
	}
	if cfg.ListTopK <= 0 {
		cfg.ListTopK = DefaultListTopK
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	return &KnowledgeBaseService{
		embedder:   cfg.Embedder,
		store:      cfg.Store,
		chunker:    knowledge.NewChunker(cfg.ChunkSize),
		publisher:  cfg.Publisher,
		archiver:   cfg.Archiver,
		errHandler: errors.NewErrorHandler(cfg.Logger, cfg.Locale),
		logger:     cfg.Logger,
		ids:        NewIDGenerator(cfg.Now),
		timeouts:   cfg.Timeouts,
		listTopK:   cfg.ListTopK,
		now:        cfg.Now,
	}
}

// IngestFile 解析上传文件并写入向量索引，返回写入条数。
// .csv按问答对入库，.txt按分块入库，其它扩展名在调用嵌入服务之前拒绝。
func (s *KnowledgeBaseService) IngestFile(ctx context.Context, file *FileUpload) (int, error) {
	if file == nil || strings.TrimSpace(file.Name) == "" {
		return 0, errors.NewValidationError(s.errHandler.Message(errors.MsgNoFile))
	}

	var source knowledge.Source
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".csv":
		source = knowledge.SourceCSV
	case ".txt":
		source = knowledge.SourceTXT
	default:
		return 0, errors.NewUnsupportedFormatError(s.errHandler.Message(errors.MsgUnsupportedFormat)).
			WithDetails(map[string]string{"filename": file.Name})
	}

	s.archive(ctx, source, file)

	content := strings.TrimPrefix(string(file.Content), "\ufeff")

	var (
		texts []string
		metas []knowledge.Metadata
	)
	switch source {
	case knowledge.SourceCSV:
		pairs := knowledge.ParseQACSV(content)
		if len(pairs) == 0 {
			return 0, errors.NewEmptyContentError(s.errHandler.Message(errors.MsgEmptyCSV))
		}
		for _, p := range pairs {
			texts = append(texts, knowledge.ComposeQAText(p.Question, p.Answer))
			metas = append(metas, knowledge.Metadata{
				knowledge.MetaQuestion: p.Question,
				knowledge.MetaAnswer:   p.Answer,
			})
		}
	case knowledge.SourceTXT:
		chunks := s.chunker.Split(strings.ReplaceAll(content, "\r\n", "\n"))
		if len(chunks) == 0 {
			return 0, errors.NewEmptyContentError(s.errHandler.Message(errors.MsgEmptyTXT))
		}
		for _, c := range chunks {
			texts = append(texts, c.Text)
			metas = append(metas, knowledge.Metadata{knowledge.MetaContent: c.Text})
		}
	}

	var vectors [][]float32
	err := external(ctx, s.timeouts.Embedding, depEmbedding, "embed_passages", func(ctx context.Context) error {
		var err error
		vectors, err = s.embedder.EmbedPassages(ctx, texts)
		return err
	})
	if err != nil {
		return 0, err
	}

	timestamp := s.ids.Next()
	createdAt := formatCreatedAt(s.now())
	entries := make([]knowledge.VectorEntry, len(texts))
	ids := make([]string, len(texts))
	for i := range texts {
		meta := metas[i]
		meta[knowledge.MetaSource] = string(source)
		meta[knowledge.MetaCreatedAt] = createdAt
		ids[i] = BatchID(source, timestamp, i)
		entries[i] = knowledge.VectorEntry{ID: ids[i], Vector: vectors[i], Metadata: meta}
	}

	if err := s.upsert(ctx, entries); err != nil {
		return 0, err
	}

	metrics.AddIngested(string(source), len(entries))
	s.publish(ctx, interfaces.KnowledgeEvent{
		Type:   interfaces.EventEntriesUpserted,
		Source: string(source),
		IDs:    ids,
		Count:  len(ids),
	})
	s.logger.Info("Knowledge file ingested", "filename", file.Name, "source", source, "count", len(entries))

	return len(entries), nil
}

// IngestManual 手动添加一条问答，返回生成的ID
func (s *KnowledgeBaseService) IngestManual(ctx context.Context, question, answer string) (string, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return "", errors.NewValidationError(s.errHandler.Message(errors.MsgManualRequired))
	}

	var vector []float32
	err := external(ctx, s.timeouts.Embedding, depEmbedding, "embed_passage", func(ctx context.Context) error {
		var err error
		vector, err = s.embedder.EmbedPassage(ctx, knowledge.ComposeQAText(question, answer))
		return err
	})
	if err != nil {
		return "", err
	}

	id := ManualID(s.ids.Next())
	entry := knowledge.VectorEntry{
		ID:     id,
		Vector: vector,
		Metadata: knowledge.Metadata{
			knowledge.MetaQuestion:  question,
			knowledge.MetaAnswer:    answer,
			knowledge.MetaSource:    string(knowledge.SourceManual),
			knowledge.MetaCreatedAt: formatCreatedAt(s.now()),
		},
	}
	if err := s.upsert(ctx, []knowledge.VectorEntry{entry}); err != nil {
		return "", err
	}

	metrics.AddIngested(string(knowledge.SourceManual), 1)
	s.publish(ctx, interfaces.KnowledgeEvent{
		Type:   interfaces.EventEntriesUpserted,
		Source: string(knowledge.SourceManual),
		IDs:    []string{id},
		Count:  1,
	})

	return id, nil
}

// UploadFile 上传入口，错误转换为结果
func (s *KnowledgeBaseService) UploadFile(ctx context.Context, file *FileUpload) UploadResult {
	start := time.Now()
	count, err := s.IngestFile(ctx, file)
	metrics.ObserveRequest("upload_file", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("upload_file", err, errors.MsgUploadFailed)
		return UploadResult{Success: false, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return UploadResult{Success: true, Count: count}
}

// AddEntry 手动添加入口
func (s *KnowledgeBaseService) AddEntry(ctx context.Context, question, answer string) AddResult {
	start := time.Now()
	id, err := s.IngestManual(ctx, question, answer)
	metrics.ObserveRequest("add_entry", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("add_entry", err, errors.MsgAddFailed)
		return AddResult{Success: false, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return AddResult{Success: true, ID: id}
}

// DeleteEntry 按ID删除，ID不存在也视为成功
func (s *KnowledgeBaseService) DeleteEntry(ctx context.Context, id string) DeleteResult {
	start := time.Now()
	err := s.deleteEntry(ctx, strings.TrimSpace(id))
	metrics.ObserveRequest("delete_entry", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("delete_entry", err, errors.MsgDeleteFailed)
		return DeleteResult{Success: false, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return DeleteResult{Success: true}
}

func (s *KnowledgeBaseService) deleteEntry(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewValidationError(s.errHandler.Message(errors.MsgMissingID))
	}
	err := external(ctx, s.timeouts.Index, depIndex, "delete_one", func(ctx context.Context) error {
		return s.store.DeleteOne(ctx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, interfaces.KnowledgeEvent{Type: interfaces.EventEntriesDeleted, IDs: []string{id}, Count: 1})
	return nil
}

// DeleteAllEntries 清空整个索引命名空间，不可恢复
func (s *KnowledgeBaseService) DeleteAllEntries(ctx context.Context) DeleteResult {
	start := time.Now()
	err := external(ctx, s.timeouts.Index, depIndex, "delete_all", func(ctx context.Context) error {
		return s.store.DeleteAll(ctx)
	})
	metrics.ObserveRequest("delete_all_entries", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("delete_all_entries", err, errors.MsgDeleteFailed)
		return DeleteResult{Success: false, Error: appErr.Message, Code: string(appErr.Code)}
	}

	s.logger.Warn("Knowledge base cleared")
	s.publish(ctx, interfaces.KnowledgeEvent{Type: interfaces.EventEntriesCleared})
	return DeleteResult{Success: true}
}

// ListEntries 按查询做相似度检索并平铺为列表。
// 查询为空时返回空列表，不是"列出全部"。
func (s *KnowledgeBaseService) ListEntries(ctx context.Context, query string, topK int) ListResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return ListResult{Success: true, Data: []ListEntry{}}
	}
	if topK <= 0 {
		topK = s.listTopK
	}

	start := time.Now()
	entries, err := s.listEntries(ctx, query, topK)
	metrics.ObserveRequest("list_entries", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("list_entries", err, errors.MsgListFailed)
		return ListResult{Success: false, Data: []ListEntry{}, Error: appErr.Message, Code: string(appErr.Code)}
	}
	return ListResult{Success: true, Data: entries}
}

func (s *KnowledgeBaseService) listEntries(ctx context.Context, query string, topK int) ([]ListEntry, error) {
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

	entries := make([]ListEntry, 0, len(matches))
	for _, m := range matches {
		meta := m.Metadata
		if meta == nil {
			meta = knowledge.Metadata{}
		}
		entries = append(entries, ListEntry{
			ID:        m.ID,
			Question:  meta.String(knowledge.MetaQuestion),
			Answer:    meta.String(knowledge.MetaAnswer),
			CreatedAt: meta.String(knowledge.MetaCreatedAt),
			Metadata:  meta,
		})
	}
	return entries, nil
}

// GetStats 索引统计，服务端未返回维度时取默认维度
func (s *KnowledgeBaseService) GetStats(ctx context.Context) StatsResult {
	start := time.Now()
	var stats knowledge.IndexStats
	err := external(ctx, s.timeouts.Index, depIndex, "stats", func(ctx context.Context) error {
		var err error
		stats, err = s.store.Stats(ctx)
		return err
	})
	metrics.ObserveRequest("get_stats", err, start)
	if err != nil {
		appErr := s.errHandler.Resolve("get_stats", err, errors.MsgStatsFailed)
		return StatsResult{Success: false, Error: appErr.Message, Code: string(appErr.Code)}
	}
	if stats.Dimension <= 0 {
		stats.Dimension = knowledge.DefaultEmbeddingDimension
	}
	return StatsResult{Success: true, Stats: &stats}
}

func (s *KnowledgeBaseService) upsert(ctx context.Context, entries []knowledge.VectorEntry) error {
	return external(ctx, s.timeouts.Index, depIndex, "upsert", func(ctx context.Context) error {
		return s.store.Upsert(ctx, entries)
	})
}

// archive 归档原始文件，失败只记录日志
func (s *KnowledgeBaseService) archive(ctx context.Context, source knowledge.Source, file *FileUpload) {
	now := s.now().UTC()
	objectName := fmt.Sprintf("%s/%04d/%02d/%d-%s", source, now.Year(), int(now.Month()), now.UnixMilli(), filepath.Base(file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
		if source == knowledge.SourceCSV {
			contentType = "text/csv; charset=utf-8"
		}
	}

	err := s.archiver.Archive(ctx, objectName, bytes.NewReader(file.Content), int64(len(file.Content)), contentType)
	if err != nil {
		s.logger.Warn("Failed to archive upload", "object", objectName, "error", err)
	}
}

// publish 发布变更事件，失败只记录日志
func (s *KnowledgeBaseService) publish(ctx context.Context, event interfaces.KnowledgeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish knowledge event", "type", event.Type, "error", err)
	}
}
