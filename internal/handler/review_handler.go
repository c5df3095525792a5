package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seacliff-digital/reportpilot/internal/dto"
	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/internal/service"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
	"github.com/seacliff-digital/reportpilot/pkg/response"
)

// ReviewHandler exposes the approval ledger to reviewers: listing entries,
// inspecting rendered notifications, applying decisions, and exports.
type ReviewHandler struct {
	approvals *service.ApprovalService
	exports   *service.ExportService
}

// NewReviewHandler creates a new handler.
func NewReviewHandler(approvals *service.ApprovalService, exports *service.ExportService) *ReviewHandler {
	return &ReviewHandler{approvals: approvals, exports: exports}
}

// List returns ledger entries, optionally filtered with ?status=.
func (h *ReviewHandler) List(c *gin.Context) {
	var status models.ApprovalStatus
	if raw := c.Query("status"); raw != "" {
		parsed, ok := models.ParseStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("unknown status %q", raw)))
			return
		}
		status = parsed
	}

	entries, err := h.approvals.List(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}

	summaries := make([]dto.EntrySummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, dto.NewEntrySummary(e))
	}
	response.JSON(c, http.StatusOK, summaries, map[string]interface{}{"total": len(summaries)})
}

// Get returns one full ledger entry including the rendered bodies.
func (h *ReviewHandler) Get(c *gin.Context) {
	entry, err := h.approvals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Transition applies a reviewer decision to an entry.
func (h *ReviewHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}
	status, ok := models.ParseStatus(req.Status)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unknown status %q", req.Status)))
		return
	}

	entry, err := h.approvals.Transition(c.Request.Context(), c.Param("id"), status, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Summary returns ledger totals per status.
func (h *ReviewHandler) Summary(c *gin.Context) {
	counts, err := h.approvals.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counts)
}

// ExportCSV streams the ledger as a CSV download.
func (h *ReviewHandler) ExportCSV(c *gin.Context) {
	var status models.ApprovalStatus
	if raw := c.Query("status"); raw != "" {
		parsed, ok := models.ParseStatus(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("unknown status %q", raw)))
			return
		}
		status = parsed
	}

	out, err := h.exports.LedgerCSV(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("ledger-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", out)
}

// ExportReviewPage serves the standalone HTML review page.
func (h *ReviewHandler) ExportReviewPage(c *gin.Context) {
	out, err := h.exports.ReviewPageHTML(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", out)
}

// ExportSummaryPDF streams the batch summary PDF.
func (h *ReviewHandler) ExportSummaryPDF(c *gin.Context) {
	out, err := h.exports.BatchSummaryPDF(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("summary-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", out)
}
