package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Capability names an action guarded by role.
type Capability string

const (
	CapBookAppointments Capability = "book_appointments"
	CapManageSchedule   Capability = "manage_schedule"
	CapViewAllBookings  Capability = "view_all_bookings"
	CapGenerateReports  Capability = "generate_reports"
	CapManageUsers      Capability = "manage_users"
	CapUseAIAssistant   Capability = "use_ai_assistant"
)

var roleCapabilities = map[Role][]Capability{
	RolePatient: {CapBookAppointments, CapUseAIAssistant},
	RoleDoctor:  {CapManageSchedule, CapUseAIAssistant},
	RoleAdmin:   {CapViewAllBookings, CapGenerateReports, CapManageUsers, CapUseAIAssistant},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// User represents an account in the system
type User struct {
	BaseModel
	Username  string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string     `gorm:"index;size:255" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName string     `gorm:"size:100" json:"first_name"`
	LastName  string     `gorm:"size:100" json:"last_name"`
	Role      Role       `gorm:"size:20;default:'patient'" json:"role"`
	IsStaff   bool       `gorm:"default:false" json:"is_staff"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       Role       `json:"role"`
	IsActive   bool       `json:"is_active"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	DateJoined time.Time  `json:"date_joined"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EffectiveRole folds staff accounts into the admin role.
func (u *User) EffectiveRole() Role {
	if u.IsStaff {
		return RoleAdmin
	}
	return u.Role
}

// FullName returns "First Last", falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.EffectiveRole(),
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		DateJoined: u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
