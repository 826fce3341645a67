package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"smart-health-server/internal/middleware"
	"smart-health-server/internal/models"
)

const (
	maxSymptomsLen = 1000
	maxHistoryLen  = 5000
	maxLocationLen = 200
)

// Assistant produces the generated text behind the AI endpoints.
type Assistant interface {
	AnalyzeSymptoms(ctx context.Context, symptoms string) string
	SummarizeHistory(ctx context.Context, history string) string
	RecommendDoctor(ctx context.Context, symptoms, location string, doctors []string) string
}

// AIHandler serves the assistant endpoints. Responses are
// {status, message, data}.
type AIHandler struct {
	DB        *gorm.DB
	Assistant Assistant
	Logger    zerolog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(db *gorm.DB, assistant Assistant, logger zerolog.Logger) *AIHandler {
	return &AIHandler{DB: db, Assistant: assistant, Logger: logger}
}

func aiResponse(c *gin.Context, httpStatus int, status, message string, data any) {
	c.JSON(httpStatus, gin.H{"status": status, "message": message, "data": data})
}

func aiError(c *gin.Context, httpStatus int, message string) {
	aiResponse(c, httpStatus, "error", message, nil)
}

// textField trims value and checks it is non-empty and at most limit runes.
func textField(value, label string, limit int) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", label + " cannot be empty."
	}
	if utf8.RuneCountInString(value) > limit {
		return "", fmt.Sprintf("%s must be at most %d characters.", label, limit)
	}
	return value, ""
}

// SymptomCheckerRequest is the body of the symptom checker.
type SymptomCheckerRequest struct {
	Symptoms string `json:"symptoms"`
}

// SymptomChecker analyses free-text symptoms.
func (h *AIHandler) SymptomChecker(c *gin.Context) {
	var req SymptomCheckerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		aiError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	symptoms, problem := textField(req.Symptoms, "Symptoms", maxSymptomsLen)
	if problem != "" {
		aiError(c, http.StatusBadRequest, problem)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	h.Logger.Info().Str("user_id", userID).Msg("symptom checker called")

	analysis := h.Assistant.AnalyzeSymptoms(c.Request.Context(), symptoms)
	aiResponse(c, http.StatusOK, "success", "Symptom analysis completed.", gin.H{"analysis": analysis})
}

// MedicalSummaryRequest is the body of the medical summary endpoint.
type MedicalSummaryRequest struct {
	MedicalHistory string `json:"medical_history"`
}

// MedicalSummary condenses a free-text medical history.
func (h *AIHandler) MedicalSummary(c *gin.Context) {
	var req MedicalSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		aiError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	history, problem := textField(req.MedicalHistory, "Medical history", maxHistoryLen)
	if problem != "" {
		aiError(c, http.StatusBadRequest, problem)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	h.Logger.Info().Str("user_id", userID).Msg("medical summary called")

	summary := h.Assistant.SummarizeHistory(c.Request.Context(), history)
	aiResponse(c, http.StatusOK, "success", "Medical summary generated.", gin.H{"summary": summary})
}

// DoctorRecommendationRequest is the body of the doctor recommendation endpoint.
type DoctorRecommendationRequest struct {
	Symptoms string `json:"symptoms"`
	Location string `json:"location"`
}

// DoctorRecommendation asks the model to choose among doctors whose location
// contains the requested one.
func (h *AIHandler) DoctorRecommendation(c *gin.Context) {
	var req DoctorRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		aiError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	symptoms, problem := textField(req.Symptoms, "Symptoms", maxSymptomsLen)
	if problem != "" {
		aiError(c, http.StatusBadRequest, problem)
		return
	}
	location, problem := textField(req.Location, "Location", maxLocationLen)
	if problem != "" {
		aiError(c, http.StatusBadRequest, problem)
		return
	}

	var doctors []models.DoctorProfile
	err := h.DB.WithContext(c.Request.Context()).
		Preload("User").
		Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%").
		Order("created_at asc").
		Find(&doctors).Error
	if err != nil {
		aiError(c, http.StatusInternalServerError, "Failed to fetch doctors: "+err.Error())
		return
	}
	if len(doctors) == 0 {
		aiResponse(c, http.StatusNotFound, "error", "No doctors available in this location.", []any{})
		return
	}

	names := make([]string, len(doctors))
	for i := range doctors {
		names[i] = doctors[i].User.Username
	}
	recommendation := h.Assistant.RecommendDoctor(c.Request.Context(), symptoms, location, names)
	aiResponse(c, http.StatusOK, "success", "Doctor recommendation generated.", gin.H{"recommendation": recommendation})
}
