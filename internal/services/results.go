package services

import "github.com/kiwimarket/backend-go/internal/knowledge"

// 以下结果结构不抛出错误，失败时Success=false并携带可展示的Error文案

// UploadResult 文件上传结果
type UploadResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AddResult 手动添加结果
type AddResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// DeleteResult 删除结果
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ListEntry 列表中的条目，缺失字段为空串
type ListEntry struct {
	ID        string             `json:"id"`
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	CreatedAt string             `json:"createdAt"`
	Metadata  knowledge.Metadata `json:"metadata"`
}

// ListResult 条目列表结果
type ListResult struct {
	Success bool        `json:"success"`
	Data    []ListEntry `json:"data"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// StatsResult 索引统计结果
type StatsResult struct {
	Success bool                  `json:"success"`
	Stats   *knowledge.IndexStats `json:"stats,omitempty"`
	Error   string                `json:"error,omitempty"`
	Code    string                `json:"code,omitempty"`
}

// SearchResult 单条检索结果，不持久化
type SearchResult struct {
	ID       string  `json:"id"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Content  string  `json:"content,omitempty"`
	Score    float64 `json:"score"`
}

// SupportResponse 客服问答结果
type SupportResponse struct {
	Success bool           `json:"success"`
	Answer  string         `json:"answer,omitempty"`
	Sources []SearchResult `json:"sources"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// SearchResponse 仅检索结果
type SearchResponse struct {
	Success bool           `json:"success"`
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// toSearchResult 把索引匹配映射为检索结果
func toSearchResult(match knowledge.SearchMatch) SearchResult {
	return SearchResult{
		ID:       match.ID,
		Question: match.Metadata.String(knowledge.MetaQuestion),
		Answer:   match.Metadata.String(knowledge.MetaAnswer),
		Content:  match.Metadata.String(knowledge.MetaContent),
		Score:    match.Score,
	}
}

func toSearchResults(matches []knowledge.SearchMatch) []SearchResult {
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, toSearchResult(m))
	}
	return results
}
