package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-health-server/internal/models"
	"smart-health-server/internal/testutil"
)

func newAuthEnv(t *testing.T) *testEnv {
	e := newTestEnv(t)
	h := NewAuthHandler(e.db, e.cfg)
	e.public.POST("/auth/register", h.Register)
	e.public.POST("/auth/login", h.Login)
	e.public.POST("/auth/refresh-token", h.RefreshToken)
	e.private.POST("/auth/logout", h.Logout)
	e.private.GET("/auth/profile", h.GetProfile)
	e.private.PUT("/auth/profile", h.UpdateProfile)
	return e
}

func login(t *testing.T, e *testEnv, username, password string) LoginResponse {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	decodeData(t, rec, &resp)
	return resp
}

func TestRegisterCreatesRoleProfile(t *testing.T) {
	e := newAuthEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"username":   "alice",
		"email":      "alice@example.com",
		"password":   "password123",
		"role":       "patient",
		"first_name": "Alice",
		"phone":      "+250788111222",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user models.UserSanitized
	decodeData(t, rec, &user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RolePatient, user.Role)

	var patient models.PatientProfile
	require.NoError(t, e.db.Where("user_id = ?", user.ID).First(&patient).Error)
	assert.Equal(t, "+250788111222", patient.Phone)

	rec = e.do(http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"username": "drbob",
		"email":    "bob@example.com",
		"password": "password123",
		"role":     "doctor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeData(t, rec, &user)

	var doctor models.DoctorProfile
	require.NoError(t, e.db.Where("user_id = ?", user.ID).First(&doctor).Error)
}

func TestRegisterRejects(t *testing.T) {
	e := newAuthEnv(t)
	testutil.CreateUser(t, e.db, "taken", models.RolePatient)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{
			name: "duplicate username",
			body: map[string]string{"username": "taken", "email": "t@example.com", "password": "password123", "role": "patient"},
			want: "A user with that username already exists.",
		},
		{
			name: "admin is not self-service",
			body: map[string]string{"username": "root", "email": "r@example.com", "password": "password123", "role": "admin"},
			want: "Validation failed: role must be one of: patient doctor",
		},
		{
			name: "short password",
			body: map[string]string{"username": "shorty", "email": "s@example.com", "password": "abc", "role": "patient"},
			want: "Validation failed: password must be at least 8 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(http.MethodPost, "/api/v1/auth/register", nil, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeEnvelope(t, rec).Error)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	e := newAuthEnv(t)
	user := testutil.CreateUser(t, e.db, "carol", models.RoleDoctor)

	rec := e.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"username": "carol", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decodeEnvelope(t, rec).Error)

	rec = e.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"username": "nobody", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, e.db.Model(user).Update("is_active", false).Error)
	rec = e.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"username": "carol", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User account is disabled", decodeEnvelope(t, rec).Error)
}

func TestLoginAndRefreshRotation(t *testing.T) {
	e := newAuthEnv(t)
	testutil.CreateUser(t, e.db, "dave", models.RoleDoctor)

	tokens := login(t, e, "dave", "password123")
	assert.NotEmpty(t, tokens.Access)
	assert.Equal(t, "dave", tokens.Username)
	assert.Equal(t, models.RoleDoctor, tokens.Role)

	var user models.User
	require.NoError(t, e.db.First(&user, "username = ?", "dave").Error)
	assert.NotNil(t, user.LastLogin)

	rec := e.do(http.MethodPost, "/api/v1/auth/refresh-token", nil, map[string]string{"refresh": tokens.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed RefreshTokenResponse
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Access)
	assert.NotEqual(t, tokens.Refresh, refreshed.Refresh)

	rec = e.do(http.MethodPost, "/api/v1/auth/refresh-token", nil, map[string]string{"refresh": tokens.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated token must not be reusable")

	rec = e.do(http.MethodPost, "/api/v1/auth/refresh-token", nil, map[string]string{"refresh": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	e := newAuthEnv(t)
	user := testutil.CreateUser(t, e.db, "erin", models.RolePatient)
	tokens := login(t, e, "erin", "password123")

	rec := e.do(http.MethodPost, "/api/v1/auth/logout", nil, map[string]string{"refresh": tokens.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout requires authentication")

	rec = e.do(http.MethodPost, "/api/v1/auth/logout", user, map[string]string{"refresh": tokens.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/v1/auth/refresh-token", nil, map[string]string{"refresh": tokens.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileReadAndUpdate(t *testing.T) {
	e := newAuthEnv(t)
	user := testutil.CreateUser(t, e.db, "frank", models.RolePatient)

	rec := e.do(http.MethodPut, "/api/v1/auth/profile", user, map[string]string{"first_name": "Frank", "email": "frank@clinic.test"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/v1/auth/profile", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.UserSanitized
	decodeData(t, rec, &got)
	assert.Equal(t, "Frank", got.FirstName)
	assert.Equal(t, "frank@clinic.test", got.Email)

	rec = e.do(http.MethodPut, "/api/v1/auth/profile", user, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
