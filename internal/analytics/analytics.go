// Package analytics computes the read-only statistics behind admin reports.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"smart-health-server/internal/models"
)

// Figure is one labelled value printed on a report.
type Figure struct {
	Label string
	Value string
}

// AppointmentStats counts appointments created in a range. Approved
// appointments are part of Total but have no bucket of their own.
type AppointmentStats struct {
	Total     int64 `json:"total_appointments"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Pending   int64 `json:"pending"`
}

func (s AppointmentStats) Figures() []Figure {
	return []Figure{
		{"Total Appointments", fmt.Sprint(s.Total)},
		{"Completed", fmt.Sprint(s.Completed)},
		{"Cancelled", fmt.Sprint(s.Cancelled)},
		{"Pending", fmt.Sprint(s.Pending)},
	}
}

// FinancialStats sums payments received in a range.
type FinancialStats struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

func (s FinancialStats) Figures() []Figure {
	return []Figure{{"Total Revenue", s.TotalRevenue.StringFixed(2)}}
}

// UserActivityStats counts sign-ups and logins in a range.
type UserActivityStats struct {
	NewUsers    int64 `json:"new_users"`
	ActiveUsers int64 `json:"active_users"`
}

func (s UserActivityStats) Figures() []Figure {
	return []Figure{
		{"New Users", fmt.Sprint(s.NewUsers)},
		{"Active Users", fmt.Sprint(s.ActiveUsers)},
	}
}

// Service runs the aggregate queries. Date ranges are calendar days in
// Location and are inclusive on both ends.
type Service struct {
	DB       *gorm.DB
	Location *time.Location
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{DB: db, Location: loc}
}

// bounds turns [start, end] calendar days into a half-open UTC instant range.
func (s *Service) bounds(start, end time.Time) (time.Time, time.Time) {
	y, m, d := start.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	y, m, d = end.Date()
	to := time.Date(y, m, d+1, 0, 0, 0, 0, s.Location)
	return from.UTC(), to.UTC()
}

func (s *Service) AppointmentStats(ctx context.Context, start, end time.Time) (AppointmentStats, error) {
	from, to := s.bounds(start, end)

	var rows []struct {
		Status models.AppointmentStatus
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Appointment{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return AppointmentStats{}, fmt.Errorf("appointment stats: %w", err)
	}

	var stats AppointmentStats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case models.StatusCompleted:
			stats.Completed = r.Count
		case models.StatusCancelled:
			stats.Cancelled = r.Count
		case models.StatusPending:
			stats.Pending = r.Count
		}
	}
	return stats, nil
}

func (s *Service) FinancialStats(ctx context.Context, start, end time.Time) (FinancialStats, error) {
	from, to := s.bounds(start, end)

	var row struct {
		Total decimal.NullDecimal
	}
	err := s.DB.WithContext(ctx).Model(&models.Payment{}).
		Select("SUM(amount) AS total").
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return FinancialStats{}, fmt.Errorf("financial stats: %w", err)
	}

	if !row.Total.Valid {
		return FinancialStats{TotalRevenue: decimal.Zero}, nil
	}
	return FinancialStats{TotalRevenue: row.Total.Decimal}, nil
}

func (s *Service) UserActivityStats(ctx context.Context, start, end time.Time) (UserActivityStats, error) {
	from, to := s.bounds(start, end)
	db := s.DB.WithContext(ctx)

	var stats UserActivityStats
	if err := db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&stats.NewUsers).Error; err != nil {
		return UserActivityStats{}, fmt.Errorf("user activity stats: %w", err)
	}
	if err := db.Model(&models.User{}).
		Where("last_login >= ? AND last_login < ?", from, to).
		Count(&stats.ActiveUsers).Error; err != nil {
		return UserActivityStats{}, fmt.Errorf("user activity stats: %w", err)
	}
	return stats, nil
}
