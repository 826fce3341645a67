package models

// Availability is a weekly recurring window during which a doctor accepts
// bookings. Times are stored as zero-padded "15:04:05" strings.
type Availability struct {
	BaseModel
	DoctorID  string `gorm:"size:36;index;not null" json:"doctor"`
	DayOfWeek string `gorm:"size:9;index;not null" json:"day_of_week"`
	StartTime string `gorm:"size:8;not null" json:"start_time"`
	EndTime   string `gorm:"size:8;not null" json:"end_time"`

	Doctor DoctorProfile `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName specifies the table name for Availability model
func (Availability) TableName() string {
	return "availabilities"
}
