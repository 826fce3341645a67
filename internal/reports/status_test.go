package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smart-health-server/internal/models"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		report models.Report
		want   Status
	}{
		{"not ready", models.Report{}, StatusPending},
		{"not ready with stale file", models.Report{FileKey: "r/finance_report.pdf"}, StatusPending},
		{"ready with file", models.Report{IsReady: true, FileKey: "r/finance_report.pdf"}, StatusReady},
		{"ready without file", models.Report{IsReady: true}, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(&tt.report))
		})
	}
}

func TestPermanentWrapping(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	err := Permanent(ErrUnknownReportType)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, ErrUnknownReportType)
	assert.False(t, IsPermanent(ErrUnknownReportType))
}
