package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webcalc/internal/middleware"
	"webcalc/internal/reports"
	"webcalc/internal/storage"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultPageSize = 50
	maxExportRows   = 5000
)

// leadFilter reads status, projectType, since (RFC 3339 or YYYY-MM-DD),
// limit and offset from the query string.
func leadFilter(c *gin.Context, defaultLimit int) (storage.LeadFilter, error) {
	f := storage.LeadFilter{
		Status:      storage.Status(c.Query("status")),
		ProjectType: c.Query("projectType"),
		Limit:       defaultLimit,
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			if t, err = time.Parse(time.DateOnly, since); err != nil {
				return f, fmt.Errorf("invalid since %q", since)
			}
		}
		f.Since = t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = min(n, defaultLimit)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = n
	}
	return f, nil
}

func (s *Server) listLeads(c *gin.Context) {
	filter, err := leadFilter(c, defaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	leads, err := s.Store.ListLeads(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("Failed to list leads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (s *Server) getLead(c *gin.Context) {
	lead, err := s.Store.GetLeadByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrLeadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		s.Logger.Error("Failed to get lead", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get lead"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (s *Server) updateLeadStatus(c *gin.Context) {
	var req struct {
		Status storage.Status `json:"status"`
		Note   string         `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := c.Param("id")
	err := s.Store.UpdateLeadStatus(c.Request.Context(), id, req.Status, req.Note)
	switch {
	case errors.Is(err, storage.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, storage.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	case err != nil:
		s.Logger.Error("Failed to update lead status", zap.String("lead_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update lead"})
		return
	}

	subject, _ := c.Get(middleware.ContextUserID)
	s.Logger.Info("Lead status updated",
		zap.String("lead_id", id),
		zap.String("status", string(req.Status)),
		zap.Any("by", subject))
	s.getLead(c)
}

func (s *Server) leadsWorkbook(c *gin.Context) ([]byte, string, bool) {
	filter, err := leadFilter(c, maxExportRows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	leads, err := s.Store.ListLeads(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("Failed to list leads for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export leads"})
		return nil, "", false
	}
	data, err := reports.LeadsWorkbook(leads)
	if err != nil {
		s.Logger.Error("Failed to render leads workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export leads"})
		return nil, "", false
	}
	return data, reports.LeadsFileName(time.Now()), true
}

func (s *Server) exportLeads(c *gin.Context) {
	data, name, ok := s.leadsWorkbook(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (s *Server) archiveLeads(c *gin.Context) {
	if s.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive storage is not configured"})
		return
	}
	data, name, ok := s.leadsWorkbook(c)
	if !ok {
		return
	}
	url, err := s.Archive.Upload(c.Request.Context(), name, data)
	if err != nil {
		s.Logger.Error("Failed to archive leads", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload report"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "name": name})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.Store.GetLeadStatistics(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to get lead statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
