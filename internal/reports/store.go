package reports

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"smart-health-server/internal/models"
)

// ReportStore loads and settles report records.
type ReportStore interface {
	Get(ctx context.Context, id string) (*models.Report, error)
	MarkReady(ctx context.Context, id, fileKey, fileName string) error
}

// GormReportStore is the database-backed ReportStore.
type GormReportStore struct {
	DB *gorm.DB
}

func (s GormReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.DB.WithContext(ctx).Preload("GeneratedBy").First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// MarkReady attaches the stored document and flips is_ready in one update.
func (s GormReportStore) MarkReady(ctx context.Context, id, fileKey, fileName string) error {
	res := s.DB.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"file_key":  fileKey,
			"file_name": fileName,
			"is_ready":  true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}
