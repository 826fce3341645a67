package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smart-health-server/internal/config"
	"smart-health-server/internal/middleware"
	"smart-health-server/internal/models"
	"smart-health-server/internal/testutil"
	"smart-health-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.RegisterValidators()
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:               "development",
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
		PageSize:                  10,
	}
}

// testEnv is a router over an in-memory database. Routes registered on
// private require a bearer token.
type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	cfg     *config.Config
	router  *gin.Engine
	public  *gin.RouterGroup
	private *gin.RouterGroup
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	db := testutil.NewDB(t)
	r := gin.New()
	private := r.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg, db))
	return &testEnv{
		t:       t,
		db:      db,
		cfg:     cfg,
		router:  r,
		public:  r.Group("/api/v1"),
		private: private,
	}
}

// do sends body as JSON, authenticated as user when user is not nil.
func (e *testEnv) do(method, path string, user *models.User, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		access, _, err := utils.GenerateTokens(user, e.cfg)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+access)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// decodeData unmarshals the envelope's data into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
