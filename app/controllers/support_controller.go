package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kiwimarket/backend-go/internal/errors"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/services"
	"go.uber.org/zap"
)

// SupportController 客服问答接口，无需认证
type SupportController struct {
	BaseController
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Ask POST /api/support/ask
func (c *SupportController) Ask() {
	var req askRequest
	c.bindJSON(&req)

	result := c.app.Support.AskQuestion(c.Ctx.Request.Context(), req.Question, req.TopK)
	c.JSONResult(result.Success, result.Code, result)
}

// AskStream POST /api/support/ask/stream，以SSE输出sources、delta、done或error事件
func (c *SupportController) AskStream() {
	var req askRequest
	c.bindJSON(&req)

	stream := newSSEStream(c.Ctx.ResponseWriter)
	appErr := c.app.Support.AskStream(c.Ctx.Request.Context(), req.Question, req.TopK, stream)
	if appErr != nil {
		// 尚未输出任何事件时按普通JSON错误返回
		if !stream.started {
			c.JSONAppError(appErr)
			return
		}
		logger.Warn("Answer stream aborted",
			zap.String("code", string(appErr.Code)),
			zap.String("ip", c.getClientIP()))
		_ = stream.event("error", map[string]string{"error": appErr.Message, "code": string(appErr.Code)})
		return
	}
	_ = stream.event("done", map[string]bool{"success": true})
}

// Search GET /api/support/search?query=&top_k=
func (c *SupportController) Search() {
	topK, _ := c.GetInt("top_k", 0)

	result := c.app.Support.SearchKnowledgeBase(c.Ctx.Request.Context(), c.GetString("query"), topK)
	c.JSONResult(result.Success, result.Code, result)
}

// sseStream 把答案流写成Server-Sent Events
type sseStream struct {
	w       http.ResponseWriter
	started bool
}

func newSSEStream(w http.ResponseWriter) *sseStream {
	return &sseStream{w: w}
}

func (s *sseStream) Sources(sources []services.SearchResult) error {
	if sources == nil {
		sources = []services.SearchResult{}
	}
	return s.event("sources", sources)
}

func (s *sseStream) Delta(text string) error {
	return s.event("delta", map[string]string{"text": text})
}

func (s *sseStream) event(name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.NewSystemError(errors.ErrCodeInternalServer, "failed to encode stream event").WithCause(err)
	}

	if !s.started {
		header := s.w.Header()
		header.Set("Content-Type", "text/event-stream; charset=utf-8")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
