package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"smart-health-server/internal/models"
	"smart-health-server/internal/reports"
	"smart-health-server/internal/storage"
	"smart-health-server/internal/testutil"
)

type fakePublisher struct {
	jobs []reports.Job
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, job reports.Job) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type reportFixture struct {
	*testEnv
	publisher *fakePublisher
	store     *storage.LocalStore
	admin     *models.User
}

func newReportFixture(t *testing.T) *reportFixture {
	e := newTestEnv(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	pub := &fakePublisher{}

	h := NewReportHandler(e.db, pub, store, zerolog.Nop())
	e.private.POST("/reports/generate", h.GenerateReport)
	e.private.GET("/reports/:id/status", h.ReportStatus)
	e.private.GET("/reports/:id/download", h.DownloadReport)

	return &reportFixture{
		testEnv:   e,
		publisher: pub,
		store:     store,
		admin:     testutil.CreateUser(t, e.db, "admin", models.RoleAdmin),
	}
}

func (f *reportFixture) report(ready bool, fileKey string) models.Report {
	f.t.Helper()
	r := models.Report{
		GeneratedByID: f.admin.ID,
		ReportType:    models.ReportAppointments,
		DateFrom:      "2025-01-01",
		DateTo:        "2025-01-31",
		FileKey:       fileKey,
	}
	require.NoError(f.t, f.db.Omit(clause.Associations).Create(&r).Error)
	if ready {
		require.NoError(f.t, f.db.Model(&r).Update("is_ready", true).Error)
	}
	return r
}

func TestGenerateReportQueuesJob(t *testing.T) {
	f := newReportFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/reports/generate", f.admin, map[string]string{
		"report_type": "finance",
		"date_from":   "2025-01-01",
		"date_to":     "2025-03-31",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "Report generation started", body["detail"])
	assert.Equal(t, "pending", body["report_status"])

	reportID, _ := body["report_id"].(string)
	require.NotEmpty(t, reportID)

	var stored models.Report
	require.NoError(t, f.db.First(&stored, "id = ?", reportID).Error)
	assert.False(t, stored.IsReady)
	assert.Equal(t, models.ReportFinance, stored.ReportType)

	require.Len(t, f.publisher.jobs, 1)
	job := f.publisher.jobs[0]
	assert.Equal(t, reportID, job.ReportID)
	assert.Equal(t, "2025-01-01", job.DateFrom)
	assert.Equal(t, "2025-03-31", job.DateTo)
	assert.Equal(t, "admin@example.com", job.Email)
}

func TestGenerateReportValidation(t *testing.T) {
	f := newReportFixture(t)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing dates", map[string]string{"report_type": "finance", "date_from": "2025-01-01"}, "date_from and date_to are required"},
		{"missing dates wins over type", map[string]string{"report_type": "weekly"}, "date_from and date_to are required"},
		{"unknown type", map[string]string{"report_type": "weekly", "date_from": "2025-01-01", "date_to": "2025-01-31"}, "Invalid report_type"},
		{"bad date", map[string]string{"report_type": "activity", "date_from": "2025-13-01", "date_to": "2025-01-31"}, "Invalid date format. Use YYYY-MM-DD."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/reports/generate", f.admin, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeJSON(t, rec)["detail"])
		})
	}

	var count int64
	f.db.Model(&models.Report{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, f.publisher.jobs)
}

func TestGenerateReportPublishFailure(t *testing.T) {
	f := newReportFixture(t)
	f.publisher.err = errors.New("queue unavailable")

	rec := f.do(http.MethodPost, "/api/v1/reports/generate", f.admin, map[string]string{
		"report_type": "appointments",
		"date_from":   "2025-01-01",
		"date_to":     "2025-01-31",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "Report generation failed", body["detail"])
	assert.Equal(t, "error", body["report_status"])
	assert.NotEmpty(t, body["report_id"])
}

func TestReportStatus(t *testing.T) {
	f := newReportFixture(t)
	pending := f.report(false, "")
	broken := f.report(true, "")

	rec := f.do(http.MethodGet, "/api/v1/reports/"+pending.ID+"/status", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "pending", body["report_status"])
	assert.Equal(t, "appointments", body["report_type"])
	assert.Equal(t, "admin", body["generated_by"])

	rec = f.do(http.MethodGet, "/api/v1/reports/"+broken.ID+"/status", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", decodeJSON(t, rec)["report_status"])

	rec = f.do(http.MethodGet, "/api/v1/reports/nope/status", f.admin, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, rec.Body.String())
}

func TestDownloadReport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	pending := f.report(false, "")
	rec := f.do(http.MethodGet, "/api/v1/reports/"+pending.ID+"/download", f.admin, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Report is not ready yet.", decodeJSON(t, rec)["detail"])

	noFile := f.report(true, "")
	rec = f.do(http.MethodGet, "/api/v1/reports/"+noFile.ID+"/download", f.admin, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Report file is missing or failed to generate.", decodeJSON(t, rec)["detail"])

	lost := f.report(true, "lost/appointments_report.pdf")
	rec = f.do(http.MethodGet, "/api/v1/reports/"+lost.ID+"/download", f.admin, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decodeJSON(t, rec)["report_status"])

	ready := f.report(true, "")
	key := reports.FileKey(ready.ID, ready.ReportType)
	require.NoError(t, f.store.Put(ctx, key, []byte("%PDF-1.4 test"), "application/pdf"))
	require.NoError(t, f.db.Model(&ready).Update("file_key", key).Error)

	rec = f.do(http.MethodGet, "/api/v1/reports/"+ready.ID+"/download", f.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="appointments_report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
}
