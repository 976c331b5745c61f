package knowledge

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize 默认分块字符数
const DefaultChunkSize = 500

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 按行累积的文本分块器，不会在行中间切断
type Chunker struct {
	chunkSize int
}

// NewChunker 创建分块器
func NewChunker(chunkSize int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chunker{chunkSize: chunkSize}
}

// Size 分块上限(字符数)
func (c *Chunker) Size() int {
	return c.chunkSize
}

// Split 将文本切分为多个chunk
func (c *Chunker) Split(text string) []Chunk {
	texts := ChunkText(text, c.chunkSize)
	chunks := make([]Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, Chunk{Index: i, Text: t})
	}
	return chunks
}

// ChunkText 逐行累积缓冲区，追加下一行会超过maxChunkSize且缓冲区非空时输出当前块。
// 单行超过上限时整行成为一个块。
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		size = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineSize := utf8.RuneCountInString(line)
		if size+lineSize > maxChunkSize && current.Len() > 0 {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
		size += lineSize + 1
	}
	flush()

	return chunks
}
