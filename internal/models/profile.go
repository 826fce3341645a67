package models

// PatientProfile holds patient-specific data for a user with RolePatient.
type PatientProfile struct {
	BaseModel
	UserID         string `gorm:"size:36;uniqueIndex;not null" json:"-"`
	Phone          string `gorm:"size:32" json:"phone"`
	DateOfBirth    string `gorm:"size:10" json:"date_of_birth,omitempty"`
	Gender         string `gorm:"size:16" json:"gender,omitempty"`
	Address        string `gorm:"size:255" json:"address,omitempty"`
	MedicalHistory string `gorm:"type:text" json:"medical_history,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// DoctorProfile holds doctor-specific data for a user with RoleDoctor.
type DoctorProfile struct {
	BaseModel
	UserID            string `gorm:"size:36;uniqueIndex;not null" json:"-"`
	Specialization    string `gorm:"size:100;index" json:"specialization"`
	Location          string `gorm:"size:200;index" json:"location"`
	YearsOfExperience int    `gorm:"default:0" json:"years_of_experience"`

	User           User           `gorm:"foreignKey:UserID" json:"-"`
	Availabilities []Availability `gorm:"foreignKey:DoctorID" json:"-"`
}

// DoctorView is the public representation of a doctor.
type DoctorView struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	Specialization    string `json:"specialization"`
	Location          string `json:"location"`
	YearsOfExperience int    `json:"years_of_experience"`
}

// View expects User to be loaded.
func (d *DoctorProfile) View() DoctorView {
	return DoctorView{
		ID:                d.ID,
		Username:          d.User.Username,
		Email:             d.User.Email,
		FullName:          d.User.FullName(),
		Specialization:    d.Specialization,
		Location:          d.Location,
		YearsOfExperience: d.YearsOfExperience,
	}
}
