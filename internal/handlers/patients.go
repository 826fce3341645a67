package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"smart-health-server/internal/models"
	"smart-health-server/internal/utils"
)

// PatientHandler serves the patient's own profile.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// PatientProfileResponse is the patient profile with account names.
type PatientProfileResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Address        string `json:"address,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

func patientResponse(p *models.PatientProfile) PatientProfileResponse {
	return PatientProfileResponse{
		ID:             p.ID,
		Username:       p.User.Username,
		Email:          p.User.Email,
		FullName:       p.User.FullName(),
		Phone:          p.Phone,
		DateOfBirth:    p.DateOfBirth,
		Gender:         p.Gender,
		Address:        p.Address,
		MedicalHistory: p.MedicalHistory,
	}
}

// GetProfile returns the authenticated patient's profile.
func (h *PatientHandler) GetProfile(c *gin.Context) {
	patient, ok := currentPatient(c, h.DB)
	if !ok {
		return
	}
	utils.Success(c, "Patient profile fetched successfully", patientResponse(patient))
}

// UpdatePatientProfileRequest carries the editable patient fields.
type UpdatePatientProfileRequest struct {
	Phone          *string `json:"phone" binding:"omitempty,max=32"`
	DateOfBirth    *string `json:"date_of_birth" binding:"omitempty,date"`
	Gender         *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Address        *string `json:"address" binding:"omitempty,max=255"`
	MedicalHistory *string `json:"medical_history" binding:"omitempty,max=5000"`
}

// UpdateProfile edits the authenticated patient's profile.
func (h *PatientHandler) UpdateProfile(c *gin.Context) {
	var req UpdatePatientProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	patient, ok := currentPatient(c, h.DB)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Phone != nil {
		patient.Phone = *req.Phone
		updates["phone"] = patient.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = *req.DateOfBirth
		updates["date_of_birth"] = patient.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
		updates["gender"] = patient.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
		updates["address"] = patient.Address
	}
	if req.MedicalHistory != nil {
		patient.MedicalHistory = *req.MedicalHistory
		updates["medical_history"] = patient.MedicalHistory
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&models.PatientProfile{}).Where("id = ?", patient.ID).Updates(updates).Error; err != nil {
			utils.InternalServerError(c, "Failed to update patient profile: "+err.Error())
			return
		}
	}

	utils.Success(c, "Patient profile updated successfully", patientResponse(patient))
}
