package interfaces

import (
	"context"
	"io"
	"time"
)

// LoggerInterface 日志接口 (匹配zap.SugaredLogger键值风格)
type LoggerInterface interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	With(fields ...interface{}) LoggerInterface
	WithError(err error) LoggerInterface
	Fatal(msg string, fields ...interface{})
}

// KnowledgeEvent 知识库变更事件
type KnowledgeEvent struct {
	Type       string    `json:"type"`
	Source     string    `json:"source,omitempty"`
	IDs        []string  `json:"ids,omitempty"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurredAt"`
}

// 事件类型
const (
	EventEntriesUpserted = "knowledge.entries.upserted"
	EventEntriesDeleted  = "knowledge.entries.deleted"
	EventEntriesCleared  = "knowledge.entries.cleared"
)

// EventPublisher 知识库事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event KnowledgeEvent) error
	Close() error
}

// FileArchiver 原始上传文件归档接口
type FileArchiver interface {
	Archive(ctx context.Context, objectName string, body io.Reader, size int64, contentType string) error
}

// NoopPublisher 不发布任何事件
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, KnowledgeEvent) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

// NoopArchiver 不归档
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, string, io.Reader, int64, string) error { return nil }
