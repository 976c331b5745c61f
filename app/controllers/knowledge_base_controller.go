package controllers

import (
	"io"
	"net/http"

	"github.com/kiwimarket/backend-go/internal/services"
)

// KnowledgeBaseController 知识库管理接口
type KnowledgeBaseController struct {
	BaseController
}

type addEntryRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Upload POST /api/knowledge-base/upload (multipart字段file)
func (c *KnowledgeBaseController) Upload() {
	var upload *services.FileUpload

	file, header, err := c.GetFile("file")
	if err == nil {
		defer file.Close()
		content, readErr := io.ReadAll(file)
		if readErr != nil {
			c.JSONError(http.StatusBadRequest, readErr.Error())
			return
		}
		upload = &services.FileUpload{
			Name:        header.Filename,
			Content:     content,
			ContentType: header.Header.Get("Content-Type"),
		}
	}

	result := c.app.KnowledgeBase.UploadFile(c.Ctx.Request.Context(), upload)
	c.JSONResult(result.Success, result.Code, result)
}

// Add POST /api/knowledge-base/entries
func (c *KnowledgeBaseController) Add() {
	var req addEntryRequest
	c.bindJSON(&req)

	result := c.app.KnowledgeBase.AddEntry(c.Ctx.Request.Context(), req.Question, req.Answer)
	c.JSONResult(result.Success, result.Code, result)
}

// List GET /api/knowledge-base/entries?query=&top_k=
func (c *KnowledgeBaseController) List() {
	topK, _ := c.GetInt("top_k", 0)

	result := c.app.KnowledgeBase.ListEntries(c.Ctx.Request.Context(), c.GetString("query"), topK)
	c.JSONResult(result.Success, result.Code, result)
}

// Delete DELETE /api/knowledge-base/entries/:id
func (c *KnowledgeBaseController) Delete() {
	result := c.app.KnowledgeBase.DeleteEntry(c.Ctx.Request.Context(), c.Ctx.Input.Param(":id"))
	c.JSONResult(result.Success, result.Code, result)
}

// DeleteAll DELETE /api/knowledge-base/entries
func (c *KnowledgeBaseController) DeleteAll() {
	result := c.app.KnowledgeBase.DeleteAllEntries(c.Ctx.Request.Context())
	c.JSONResult(result.Success, result.Code, result)
}

// Stats GET /api/knowledge-base/stats
func (c *KnowledgeBaseController) Stats() {
	result := c.app.KnowledgeBase.GetStats(c.Ctx.Request.Context())
	if !result.Success {
		c.JSONResult(false, result.Code, result)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"totalVectors": result.Stats.TotalVectors,
		"dimension":    result.Stats.Dimension,
	})
}
