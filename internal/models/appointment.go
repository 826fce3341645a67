package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusApproved  AppointmentStatus = "approved"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment represents a booked consultation. Date is "2006-01-02" and
// Time is "15:04:05", both in the clinic's canonical time zone.
type Appointment struct {
	BaseModel
	PatientID      string            `gorm:"size:36;index;not null" json:"patient"`
	DoctorID       string            `gorm:"size:36;index;not null" json:"doctor"`
	AvailabilityID *string           `gorm:"size:36" json:"availability"`
	Date           string            `gorm:"size:10;index;not null" json:"date"`
	Time           string            `gorm:"size:8;not null" json:"time"`
	ReasonForVisit string            `gorm:"type:text" json:"reason_for_visit"`
	Status         AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`

	Patient      PatientProfile `gorm:"foreignKey:PatientID" json:"-"`
	Doctor       DoctorProfile  `gorm:"foreignKey:DoctorID" json:"-"`
	Availability *Availability  `gorm:"foreignKey:AvailabilityID;constraint:OnDelete:SET NULL" json:"-"`
}

// AppointmentView is the serialized form returned by the API.
type AppointmentView struct {
	ID             string            `json:"id"`
	Patient        string            `json:"patient"`
	PatientName    string            `json:"patient_name"`
	Doctor         string            `json:"doctor"`
	DoctorName     string            `json:"doctor_name"`
	Availability   *string           `json:"availability"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	ReasonForVisit string            `json:"reason_for_visit"`
	Status         AppointmentStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// View expects Patient.User and Doctor.User to be preloaded for the names.
func (a *Appointment) View() AppointmentView {
	return AppointmentView{
		ID:             a.ID,
		Patient:        a.PatientID,
		PatientName:    a.Patient.User.Username,
		Doctor:         a.DoctorID,
		DoctorName:     a.Doctor.User.Username,
		Availability:   a.AvailabilityID,
		Date:           a.Date,
		Time:           a.Time,
		ReasonForVisit: a.ReasonForVisit,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
