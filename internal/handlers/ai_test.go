package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-health-server/internal/models"
	"smart-health-server/internal/testutil"
)

type fakeAssistant struct {
	symptoms string
	location string
	doctors  []string
}

func (a *fakeAssistant) AnalyzeSymptoms(_ context.Context, symptoms string) string {
	a.symptoms = symptoms
	return "Possibly a cold."
}

func (a *fakeAssistant) SummarizeHistory(_ context.Context, history string) string {
	return "Summary of " + history
}

func (a *fakeAssistant) RecommendDoctor(_ context.Context, symptoms, location string, doctors []string) string {
	a.symptoms, a.location, a.doctors = symptoms, location, doctors
	return "See " + strings.Join(doctors, ", ")
}

func newAIEnv(t *testing.T) (*testEnv, *fakeAssistant, *models.User) {
	e := newTestEnv(t)
	assistant := &fakeAssistant{}
	h := NewAIHandler(e.db, assistant, zerolog.Nop())
	e.private.POST("/ai/symptom-checker", h.SymptomChecker)
	e.private.POST("/ai/medical-summary", h.MedicalSummary)
	e.private.POST("/ai/doctor-recommendation", h.DoctorRecommendation)
	return e, assistant, testutil.CreateUser(t, e.db, "uma", models.RolePatient)
}

func TestSymptomChecker(t *testing.T) {
	e, assistant, user := newAIEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/ai/symptom-checker", user, map[string]string{"symptoms": "  headache and fever "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"success","message":"Symptom analysis completed.","data":{"analysis":"Possibly a cold."}}`, rec.Body.String())
	assert.Equal(t, "headache and fever", assistant.symptoms)
}

func TestAITextLimits(t *testing.T) {
	e, _, user := newAIEnv(t)

	tests := []struct {
		name string
		path string
		body map[string]string
		want string
	}{
		{"blank symptoms", "/api/v1/ai/symptom-checker", map[string]string{"symptoms": "   "}, "Symptoms cannot be empty."},
		{"long symptoms", "/api/v1/ai/symptom-checker", map[string]string{"symptoms": strings.Repeat("a", 1001)}, "Symptoms must be at most 1000 characters."},
		{"missing history", "/api/v1/ai/medical-summary", map[string]string{}, "Medical history cannot be empty."},
		{"long history", "/api/v1/ai/medical-summary", map[string]string{"medical_history": strings.Repeat("é", 5001)}, "Medical history must be at most 5000 characters."},
		{"missing location", "/api/v1/ai/doctor-recommendation", map[string]string{"symptoms": "cough"}, "Location cannot be empty."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, tt.path, user, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeJSON(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.want, body["message"])
		})
	}

	rec := e.do(http.MethodPost, "/api/v1/ai/symptom-checker", user, map[string]string{"symptoms": strings.Repeat("a", 1000)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMedicalSummary(t *testing.T) {
	e, _, user := newAIEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/ai/medical-summary", user, map[string]string{"medical_history": "asthma since 2010"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "Medical summary generated.", body["message"])
	assert.Equal(t, map[string]any{"summary": "Summary of asthma since 2010"}, body["data"])
}

func TestDoctorRecommendation(t *testing.T) {
	e, assistant, user := newAIEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/ai/doctor-recommendation", user, map[string]string{"symptoms": "chest pain", "location": "Huye"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"No doctors available in this location.","data":[]}`, rec.Body.String())

	testutil.CreateDoctor(t, e.db, "drvera")
	testutil.CreateDoctor(t, e.db, "drwalt")

	rec = e.do(http.MethodPost, "/api/v1/ai/doctor-recommendation", user, map[string]string{"symptoms": "chest pain", "location": "kig"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"recommendation": "See drvera, drwalt"}, decodeJSON(t, rec)["data"])
	assert.Equal(t, "kig", assistant.location)
	assert.Equal(t, []string{"drvera", "drwalt"}, assistant.doctors)
}
