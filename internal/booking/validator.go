package booking

import (
	"context"
	"time"

	"gorm.io/gorm"

	"smart-health-server/internal/models"
)

// AvailabilitySource lists a doctor's availability windows for one weekday.
type AvailabilitySource interface {
	ListByDoctorAndDay(ctx context.Context, doctorID, dayOfWeek string) ([]models.Availability, error)
}

// GormAvailabilitySource reads availability windows from the database.
type GormAvailabilitySource struct {
	DB *gorm.DB
}

func (s GormAvailabilitySource) ListByDoctorAndDay(ctx context.Context, doctorID, dayOfWeek string) ([]models.Availability, error) {
	var windows []models.Availability
	err := s.DB.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ?", doctorID, dayOfWeek).
		Find(&windows).Error
	return windows, err
}

// Request is a booking attempt for one doctor at a date and time of day.
type Request struct {
	DoctorID     string
	Date         time.Time
	Time         Clock
	Availability *models.Availability
}

// Validator decides whether a Request can be booked. It has no side effects.
type Validator struct {
	Source   AvailabilitySource
	Location *time.Location
	Now      func() time.Time
}

// NewValidator builds a Validator comparing times in loc.
func NewValidator(source AvailabilitySource, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{Source: source, Location: loc, Now: time.Now}
}

// Validate returns nil when the slot is bookable, a *RejectionError when a
// booking rule is violated, and any other error when availability could not
// be read.
func (v *Validator) Validate(ctx context.Context, req Request) error {
	slot := req.Time.On(req.Date, v.Location)
	if !slot.After(v.Now().In(v.Location)) {
		return reject("Cannot book an appointment in the past.")
	}

	weekday := WeekdayName(req.Date)

	if a := req.Availability; a != nil {
		if a.DoctorID != req.DoctorID {
			return reject("Selected availability does not belong to this doctor.")
		}
		if a.DayOfWeek != weekday {
			return reject("Availability does not match appointment date.")
		}
		ok, err := covers(*a, req.Time)
		if err != nil {
			return err
		}
		if !ok {
			return reject("Appointment time is outside availability range.")
		}
		return nil
	}

	windows, err := v.Source.ListByDoctorAndDay(ctx, req.DoctorID, weekday)
	if err != nil {
		return err
	}
	for _, w := range windows {
		ok, err := covers(w, req.Time)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return reject("Doctor is not available at this time.")
}

func covers(a models.Availability, at Clock) (bool, error) {
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return false, err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return false, err
	}
	return at.Within(start, end), nil
}
