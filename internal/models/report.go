package models

// ReportType selects the aggregation and template used for a report.
type ReportType string

const (
	ReportAppointments ReportType = "appointments"
	ReportFinance      ReportType = "finance"
	ReportActivity     ReportType = "activity"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportAppointments, ReportFinance, ReportActivity:
		return true
	}
	return false
}

// Report is an admin-requested analytics document produced asynchronously.
// FileKey is empty until the rendered PDF has been stored.
type Report struct {
	BaseModel
	GeneratedByID string     `gorm:"size:36;index;not null" json:"-"`
	ReportType    ReportType `gorm:"size:20;not null" json:"report_type"`
	DateFrom      string     `gorm:"size:10;not null" json:"date_from"`
	DateTo        string     `gorm:"size:10;not null" json:"date_to"`
	FileKey       string     `gorm:"size:255" json:"file,omitempty"`
	FileName      string     `gorm:"size:255" json:"file_name,omitempty"`
	IsReady       bool       `gorm:"default:false" json:"is_ready"`

	GeneratedBy User `gorm:"foreignKey:GeneratedByID" json:"-"`
}

// HasFile reports whether a rendered document is attached.
func (r *Report) HasFile() bool {
	return r.FileKey != ""
}
