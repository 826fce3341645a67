package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smart-health-server/internal/middleware"
	"smart-health-server/internal/models"
	"smart-health-server/internal/utils"
)

// currentDoctor loads the caller's doctor profile. On failure it writes the
// response and returns false.
func currentDoctor(c *gin.Context, db *gorm.DB) (*models.DoctorProfile, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}
	var doctor models.DoctorProfile
	if err := db.WithContext(c.Request.Context()).Preload("User").Where("user_id = ?", userID).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor profile not found.")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &doctor, true
}

// currentPatient loads the caller's patient profile. On failure it writes the
// response and returns false.
func currentPatient(c *gin.Context, db *gorm.DB) (*models.PatientProfile, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}
	var patient models.PatientProfile
	if err := db.WithContext(c.Request.Context()).Preload("User").Where("user_id = ?", userID).First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Patient profile not found.")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &patient, true
}
