package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/dto"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/middleware"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

type summaryService interface {
	GetStudentSummary(ctx context.Context, studentID string) (*dto.StudentSummaryResponse, error)
}

type summaryExporter interface {
	ExportStudentSummary(ctx context.Context, studentID, format string) (*dto.SummaryExport, error)
}

// SummaryHandler serves per-course hours and payment totals.
type SummaryHandler struct {
	summaries summaryService
	exports   summaryExporter
}

// NewSummaryHandler constructs the handler.
func NewSummaryHandler(summaries summaryService, exports summaryExporter) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, exports: exports}
}

// Get godoc
// @Summary Student summary
// @Description Hours taken, pending hours and total paid per enrolled course as of today.
// @Tags Summary
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /summary [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	resp, err := h.summaries.GetStudentSummary(c.Request.Context(), strings.TrimSpace(c.Query("studentId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the student summary
// @Tags Summary
// @Produce text/csv
// @Produce application/pdf
// @Param studentId query string true "Student ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /summary/export [get]
func (h *SummaryHandler) Export(c *gin.Context) {
	doc, err := h.exports.ExportStudentSummary(c.Request.Context(), strings.TrimSpace(c.Query("studentId")), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
