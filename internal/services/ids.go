package services

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kiwimarket/backend-go/internal/knowledge"
)

// IDGenerator 基于毫秒时间戳生成条目ID，同一进程内严格递增
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

// NewIDGenerator 创建ID生成器
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next 返回下一个毫秒时间戳，时钟回拨或同一毫秒内重复调用时顺延
func (g *IDGenerator) Next() int64 {
	for {
		ms := g.now().UnixMilli()
		last := g.last.Load()
		if ms <= last {
			ms = last + 1
		}
		if g.last.CompareAndSwap(last, ms) {
			return ms
		}
	}
}

// BatchID 批量入库条目ID: {source}-{timestamp}-{index}
func BatchID(source knowledge.Source, timestamp int64, index int) string {
	return fmt.Sprintf("%s-%d-%d", source, timestamp, index)
}

// ManualID 手动添加条目ID: manual-{timestamp}
func ManualID(timestamp int64) string {
	return fmt.Sprintf("%s-%d", knowledge.SourceManual, timestamp)
}

// formatCreatedAt ISO-8601，毫秒精度，UTC
func formatCreatedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
