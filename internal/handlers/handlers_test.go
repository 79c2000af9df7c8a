package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ambulance-service-server/internal/config"
	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/routes"
	"ambulance-service-server/internal/utils"
	"ambulance-service-server/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Each test gets its own named in-memory database; shared cache keeps every
// pooled connection on the same store.
var dbCounter int64

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	hub    *ws.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared",
		atomic.AddInt64(&dbCounter, 1))
	db, err := models.InitDB(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
	hub := ws.NewHub()

	router := gin.New()
	routes.SetupRoutes(router, db, cfg, hub)

	return &testEnv{t: t, router: router, db: db, cfg: cfg, hub: hub}
}

// createUser inserts a user with password "password123" and returns it along
// with a valid access token.
func (e *testEnv) createUser(username string, role models.Role) (*models.User, string) {
	e.t.Helper()

	user := models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		Enabled:   true,
	}
	if err := user.SetPassword("password123"); err != nil {
		e.t.Fatalf("failed to hash password: %v", err)
	}
	if err := e.db.Create(&user).Error; err != nil {
		e.t.Fatalf("failed to create user %s: %v", username, err)
	}

	token, _, err := utils.GenerateTokens(&user, e.cfg)
	if err != nil {
		e.t.Fatalf("failed to generate token for %s: %v", username, err)
	}
	return &user, token
}

func (e *testEnv) createAmbulance(plate string, status models.AmbulanceStatus) *models.Ambulance {
	e.t.Helper()

	ambulance := models.Ambulance{
		LicensePlate:    plate,
		DriverName:      "Driver " + plate,
		CurrentLocation: "Central Station",
		Status:          status,
	}
	if err := e.db.Create(&ambulance).Error; err != nil {
		e.t.Fatalf("failed to create ambulance %s: %v", plate, err)
	}
	return &ambulance
}

func (e *testEnv) createRequest(patientName string) *models.EmergencyRequest {
	e.t.Helper()

	request := models.EmergencyRequest{
		UserName:             "Caller",
		UserContact:          "555-0100",
		PatientName:          patientName,
		Location:             "12 Main St",
		EmergencyDescription: "Chest pain",
		Status:               models.RequestPending,
	}
	if err := e.db.Create(&request).Error; err != nil {
		e.t.Fatalf("failed to create request: %v", err)
	}
	return &request
}

// do performs one request against the router. A non-empty token is sent as a
// bearer token; a non-nil body is JSON-encoded.
func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the data field of a response envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var env struct {
		Status  int             `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response envelope: %v (body: %s)", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("failed to decode response data: %v (data: %s)", err, env.Data)
		}
	}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (body: %s)", want, rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	requireStatus(t, rec, http.StatusOK)
}

func TestAuthRequiredForPrivateRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/users/me", "", nil)
	requireStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(http.MethodGet, "/api/ambulances", "garbage-token", nil)
	requireStatus(t, rec, http.StatusUnauthorized)
}
