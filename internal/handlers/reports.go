package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"smart-health-server/internal/booking"
	"smart-health-server/internal/middleware"
	"smart-health-server/internal/models"
	"smart-health-server/internal/reports"
	"smart-health-server/internal/storage"
)

// JobPublisher enqueues report jobs.
type JobPublisher interface {
	Publish(ctx context.Context, job reports.Job) error
}

// ReportHandler serves the admin report endpoints. Responses use a flat
// {detail, report_id, report_status} shape rather than the envelope.
type ReportHandler struct {
	DB        *gorm.DB
	Reports   reports.ReportStore
	Publisher JobPublisher
	Storage   storage.Store
	Logger    zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *gorm.DB, publisher JobPublisher, store storage.Store, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		DB:        db,
		Reports:   reports.GormReportStore{DB: db},
		Publisher: publisher,
		Storage:   store,
		Logger:    logger,
	}
}

// GenerateReportRequest is the body of POST /reports/generate.
type GenerateReportRequest struct {
	ReportType string `json:"report_type"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// GenerateReport records a pending report and enqueues its job. It never
// waits for the job to run.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	if strings.TrimSpace(req.DateFrom) == "" || strings.TrimSpace(req.DateTo) == "" {
		detail(c, http.StatusBadRequest, "date_from and date_to are required")
		return
	}
	reportType := models.ReportType(req.ReportType)
	if !reportType.Valid() {
		detail(c, http.StatusBadRequest, "Invalid report_type")
		return
	}
	from, errFrom := time.Parse(booking.DateLayout, strings.TrimSpace(req.DateFrom))
	to, errTo := time.Parse(booking.DateLayout, strings.TrimSpace(req.DateTo))
	if errFrom != nil || errTo != nil {
		detail(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	var requester models.User
	if err := h.DB.WithContext(ctx).First(&requester, "id = ?", userID).Error; err != nil {
		detail(c, http.StatusUnauthorized, "User not found.")
		return
	}

	report := models.Report{
		GeneratedByID: requester.ID,
		ReportType:    reportType,
		DateFrom:      from.Format(booking.DateLayout),
		DateTo:        to.Format(booking.DateLayout),
	}
	if err := h.DB.WithContext(ctx).Omit("GeneratedBy").Create(&report).Error; err != nil {
		detail(c, http.StatusInternalServerError, "Failed to create report: "+err.Error())
		return
	}

	err := h.Publisher.Publish(ctx, reports.Job{
		ReportID:   report.ID,
		ReportType: report.ReportType,
		DateFrom:   report.DateFrom,
		DateTo:     report.DateTo,
		Email:      requester.Email,
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("report_id", report.ID).Msg("failed to queue report generation task")
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail":        "Report generation failed",
			"report_id":     report.ID,
			"report_status": reports.StatusError,
		})
		return
	}

	h.Logger.Info().Str("report_id", report.ID).Str("report_type", string(report.ReportType)).Msg("report generation queued")
	c.JSON(http.StatusAccepted, gin.H{
		"detail":        "Report generation started",
		"report_id":     report.ID,
		"report_status": reports.StatusPending,
	})
}

func (h *ReportHandler) loadReport(c *gin.Context) (*models.Report, bool) {
	report, err := h.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, reports.ErrReportNotFound) {
			detail(c, http.StatusNotFound, "Not found.")
		} else {
			detail(c, http.StatusInternalServerError, "Database error: "+err.Error())
		}
		return nil, false
	}
	return report, true
}

// ReportStatus reports the derived status without sending the document.
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report_id":     report.ID,
		"report_type":   report.ReportType,
		"report_status": reports.StatusOf(report),
		"generated_by":  report.GeneratedBy.Username,
		"created_at":    report.CreatedAt,
	})
}

// DownloadReport streams the rendered PDF once the report is ready.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	report, ok := h.loadReport(c)
	if !ok {
		return
	}

	switch reports.StatusOf(report) {
	case reports.StatusPending:
		c.JSON(http.StatusAccepted, gin.H{
			"detail":        "Report is not ready yet.",
			"report_id":     report.ID,
			"report_status": reports.StatusPending,
		})
		return
	case reports.StatusError:
		h.Logger.Warn().Str("report_id", report.ID).Msg("report is ready but file is missing")
		h.missingFile(c, report)
		return
	}

	data, err := h.Storage.Get(c.Request.Context(), report.FileKey)
	if err != nil {
		h.Logger.Error().Err(err).Str("report_id", report.ID).Str("file_key", report.FileKey).Msg("failed to read report file")
		h.missingFile(c, report)
		return
	}

	name := report.FileName
	if name == "" {
		name = reports.FileName(report.ReportType)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *ReportHandler) missingFile(c *gin.Context, report *models.Report) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"detail":        "Report file is missing or failed to generate.",
		"report_id":     report.ID,
		"report_status": reports.StatusError,
	})
}
