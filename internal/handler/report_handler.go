package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/response"
)

// ReportHandler exposes transcripts and department statistics.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Transcript godoc
// @Summary Student transcript
// @Tags Reports
// @Produce json
// @Param code path string true "Student code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{code}/transcript [get]
func (h *ReportHandler) Transcript(c *gin.Context) {
	transcript, err := h.reports.Transcript(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// ExportTranscript godoc
// @Summary Download a transcript
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param code path string true "Student code"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{code}/transcript/export [get]
func (h *ReportHandler) ExportTranscript(c *gin.Context) {
	file, err := h.reports.ExportTranscript(c.Request.Context(), c.Param("code"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// DepartmentStats godoc
// @Summary Department statistics
// @Description Unknown departments answer 200 with outcome "not_found".
// @Tags Reports
// @Produce json
// @Param code path string true "Department code"
// @Success 200 {object} response.Envelope
// @Router /departments/{code}/stats [get]
func (h *ReportHandler) DepartmentStats(c *gin.Context) {
	stats, err := h.reports.DepartmentStats(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
