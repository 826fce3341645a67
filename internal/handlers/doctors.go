package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smart-health-server/internal/booking"
	"smart-health-server/internal/config"
	"smart-health-server/internal/models"
	"smart-health-server/internal/utils"
)

var errWindowOrder = errors.New("End time must be after start time.")

// DoctorHandler serves doctor profiles and weekly availability.
type DoctorHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, cfg *config.Config) *DoctorHandler {
	return &DoctorHandler{DB: db, Cfg: cfg}
}

// GetProfile returns the authenticated doctor's profile.
func (h *DoctorHandler) GetProfile(c *gin.Context) {
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	utils.Success(c, "Doctor profile fetched successfully", doctor.View())
}

// UpdateDoctorProfileRequest carries the editable doctor fields.
type UpdateDoctorProfileRequest struct {
	Specialization    *string `json:"specialization" binding:"omitempty,max=100"`
	Location          *string `json:"location" binding:"omitempty,max=200"`
	YearsOfExperience *int    `json:"years_of_experience" binding:"omitempty,min=0,max=80"`
}

// UpdateProfile edits the authenticated doctor's profile.
func (h *DoctorHandler) UpdateProfile(c *gin.Context) {
	var req UpdateDoctorProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Specialization != nil {
		doctor.Specialization = strings.TrimSpace(*req.Specialization)
		updates["specialization"] = doctor.Specialization
	}
	if req.Location != nil {
		doctor.Location = strings.TrimSpace(*req.Location)
		updates["location"] = doctor.Location
	}
	if req.YearsOfExperience != nil {
		doctor.YearsOfExperience = *req.YearsOfExperience
		updates["years_of_experience"] = doctor.YearsOfExperience
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&models.DoctorProfile{}).Where("id = ?", doctor.ID).Updates(updates).Error; err != nil {
			utils.InternalServerError(c, "Failed to update doctor profile: "+err.Error())
			return
		}
	}

	utils.Success(c, "Doctor profile updated successfully", doctor.View())
}

// ListDoctors returns every doctor, optionally filtered by specialization or
// location (case-insensitive substring).
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context()).Preload("User").Order("created_at asc")
	if s := strings.TrimSpace(c.Query("specialization")); s != "" {
		query = query.Where("LOWER(specialization) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if l := strings.TrimSpace(c.Query("location")); l != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(l)+"%")
	}

	var doctors []models.DoctorProfile
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	views := make([]models.DoctorView, len(doctors))
	for i := range doctors {
		views[i] = doctors[i].View()
	}
	utils.Success(c, "Doctors fetched successfully", views)
}

// AvailabilityRequest is the body for creating or replacing a window.
type AvailabilityRequest struct {
	DayOfWeek string `json:"day_of_week" binding:"required,weekday"`
	StartTime string `json:"start_time" binding:"required,clock"`
	EndTime   string `json:"end_time" binding:"required,clock"`
}

// normalize canonicalises the weekday and times and checks start < end.
func (r AvailabilityRequest) normalize() (day, start, end string, err error) {
	if day, err = booking.ParseWeekday(r.DayOfWeek); err != nil {
		return "", "", "", err
	}
	startClock, err := booking.ParseClock(r.StartTime)
	if err != nil {
		return "", "", "", err
	}
	endClock, err := booking.ParseClock(r.EndTime)
	if err != nil {
		return "", "", "", err
	}
	if startClock >= endClock {
		return "", "", "", errWindowOrder
	}
	return day, startClock.String(), endClock.String(), nil
}

// ListAvailability returns the authenticated doctor's windows.
func (h *DoctorHandler) ListAvailability(c *gin.Context) {
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}

	var windows []models.Availability
	if err := h.DB.Where("doctor_id = ?", doctor.ID).Order("created_at asc").Find(&windows).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability fetched successfully", windows)
}

// CreateAvailability adds a window for the authenticated doctor.
func (h *DoctorHandler) CreateAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	day, start, end, err := req.normalize()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}

	window := models.Availability{DoctorID: doctor.ID, DayOfWeek: day, StartTime: start, EndTime: end}
	if err := h.DB.Create(&window).Error; err != nil {
		utils.InternalServerError(c, "Failed to create availability: "+err.Error())
		return
	}
	utils.Created(c, "Availability created successfully", window)
}

// ownedAvailability loads window :id if it belongs to doctor.
func (h *DoctorHandler) ownedAvailability(c *gin.Context, doctor *models.DoctorProfile) (*models.Availability, bool) {
	var window models.Availability
	err := h.DB.Where("id = ? AND doctor_id = ?", c.Param("id"), doctor.ID).First(&window).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Availability not found.")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &window, true
}

// GetAvailability returns one of the authenticated doctor's windows.
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	window, ok := h.ownedAvailability(c, doctor)
	if !ok {
		return
	}
	utils.Success(c, "Availability fetched successfully", window)
}

// UpdateAvailability replaces one of the authenticated doctor's windows.
// Existing appointments are left untouched.
func (h *DoctorHandler) UpdateAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	day, start, end, err := req.normalize()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	window, ok := h.ownedAvailability(c, doctor)
	if !ok {
		return
	}

	window.DayOfWeek, window.StartTime, window.EndTime = day, start, end
	if err := h.DB.Model(window).Updates(map[string]any{
		"day_of_week": day,
		"start_time":  start,
		"end_time":    end,
	}).Error; err != nil {
		utils.InternalServerError(c, "Failed to update availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability updated successfully", window)
}

// DeleteAvailability removes one of the authenticated doctor's windows.
func (h *DoctorHandler) DeleteAvailability(c *gin.Context) {
	doctor, ok := currentDoctor(c, h.DB)
	if !ok {
		return
	}
	window, ok := h.ownedAvailability(c, doctor)
	if !ok {
		return
	}

	if err := h.DB.Delete(window).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete availability: "+err.Error())
		return
	}
	utils.NoContent(c)
}
