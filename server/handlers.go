package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/policyscan/policyscan/internal/models"
)

type createPolicyRequest struct {
	Title     string `json:"title" binding:"required,max=500"`
	SourceURL string `json:"source_url" binding:"required,url"`
	Content   string `json:"content" binding:"required"`
	Category  string `json:"category" binding:"required"`
	Method    string `json:"method" binding:"omitempty,oneof=http browser"`
}

type updatePolicyRequest struct {
	Title     *string `json:"title" binding:"omitempty,min=1,max=500"`
	SourceURL *string `json:"source_url" binding:"omitempty,url"`
	Content   *string `json:"content" binding:"omitempty,min=1"`
	Category  *string `json:"category" binding:"omitempty,min=1"`
	Method    *string `json:"method" binding:"omitempty,oneof=http browser"`
}

func policyID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "id must be a valid UUID", id)
		return "", false
	}
	return id, true
}

// handleList serves both the plain listing and term/page searches: query
// parameters switch to the paginated search response.
func (s *Server) handleList(c *gin.Context) {
	term := c.Query("term")
	pageStr := c.Query("page")
	pageSizeStr := c.Query("page_size")

	if term == "" && pageStr == "" && pageSizeStr == "" {
		list, err := s.service.List(c.Request.Context())
		if err != nil {
			s.fail(c, err)
			return
		}
		respondData(c, http.StatusOK, list)
		return
	}

	page, ok := parsePositiveInt(c, "page", pageStr, 1)
	if !ok {
		return
	}
	pageSize, ok := parsePositiveInt(c, "page_size", pageSizeStr, 10)
	if !ok {
		return
	}

	result, err := s.service.Search(c.Request.Context(), term, page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Policies,
		"pagination": gin.H{
			"total":       result.Total,
			"page":        result.Page,
			"page_size":   result.PageSize,
			"total_pages": result.TotalPages,
		},
	})
}

func parsePositiveInt(c *gin.Context, name, value string, fallback int) (int, bool) {
	if value == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%s must be a positive integer", name), value)
		return 0, false
	}
	return n, true
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := policyID(c)
	if !ok {
		return
	}

	policy, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	respondData(c, http.StatusOK, policy)
}

func (s *Server) handleDownload(c *gin.Context) {
	id, ok := policyID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" {
		respondError(c, http.StatusBadRequest, "unsupported download format", format)
		return
	}

	policy, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	payload, err := json.MarshalIndent(policy, "", "  ")
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=policy-%s.json", id))
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) handleRelated(c *gin.Context) {
	id, ok := policyID(c)
	if !ok {
		return
	}

	limit, ok := parsePositiveInt(c, "limit", c.Query("limit"), 5)
	if !ok {
		return
	}

	related, err := s.service.Related(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	respondData(c, http.StatusOK, related)
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid policy payload", err.Error())
		return
	}

	saved, err := s.service.Create(c.Request.Context(), models.Policy{
		Title:     req.Title,
		SourceURL: req.SourceURL,
		Content:   req.Content,
		Category:  req.Category,
		Method:    models.CaptureMethod(req.Method),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	respondData(c, http.StatusCreated, saved)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := policyID(c)
	if !ok {
		return
	}

	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid policy payload", err.Error())
		return
	}

	update := models.PolicyUpdate{
		Title:     req.Title,
		SourceURL: req.SourceURL,
		Content:   req.Content,
		Category:  req.Category,
	}
	if req.Method != nil {
		method := models.CaptureMethod(*req.Method)
		update.Method = &method
	}

	updated, err := s.service.Update(c.Request.Context(), id, update)
	if err != nil {
		s.fail(c, err)
		return
	}

	respondData(c, http.StatusOK, updated)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := policyID(c)
	if !ok {
		return
	}

	if err := s.service.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	respondData(c, http.StatusOK, nil)
}
