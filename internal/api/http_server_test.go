package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"consultdesk/internal/auth"
	"consultdesk/internal/config"
	"consultdesk/internal/database"
	"consultdesk/internal/events"
	"consultdesk/internal/export"
	"consultdesk/internal/models"
	"consultdesk/internal/repository"
	"consultdesk/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type testEnv struct {
	t  *testing.T
	db *database.DB
	ts *httptest.Server
}

type envOption func(*config.APIConfig, *Options)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.APIConfig{}
	o := Options{
		Verifier: auth.NewHS256Verifier(testSecret),
		Ready:    db.Ping,
		Now:      func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&cfg, &o)
	}

	services := Services{
		Users: service.NewUserService(db, &logger),
		Consultations: service.NewConsultationService(
			service.ConsultationStores{Users: db, Consultations: db, Availability: db},
			events.NewEventBus(), nil, &logger,
		),
		Availability: service.NewAvailabilityService(db, db, &logger),
		Stotras:      service.NewStotraService(db),
	}

	srv := NewHTTPServer(cfg, services, o, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, db: db, ts: ts}
}

func (e *testEnv) token(id string) string {
	e.t.Helper()
	tok, err := auth.SignToken(testSecret, models.Identity{ID: id, Email: id + "@example.com"}, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// login syncs the user through the API and optionally promotes it.
func (e *testEnv) login(id string, admin bool) string {
	e.t.Helper()
	tok := e.token(id)
	resp, _ := e.do(http.MethodGet, "/api/auth", tok, nil)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	if admin {
		require.NoError(e.t, e.db.SetUserAdmin(context.Background(), id, true))
	}
	return tok
}

func (e *testEnv) do(method, path, token string, body any) (*http.Response, []byte) {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, raw
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func booking(userID string) map[string]any {
	return map[string]any{
		"user_id":           userID,
		"fullname":          "Asha Rao",
		"email":             "asha@example.com",
		"consultation_type": "astrology",
		"date":              "2024-06-10",
		"time":              "10:00 AM",
		"contact":           "+91 98450 00000",
	}
}

func createBooking(t *testing.T, e *testEnv, token, userID string) string {
	t.Helper()
	resp, raw := e.do(http.MethodPost, "/api/consultations", token, booking(userID))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var body struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.True(t, body.Success)
	return body.ID
}

func listIDs(t *testing.T, e *testEnv, token string) []string {
	t.Helper()
	resp, raw := e.do(http.MethodGet, "/api/consultations", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var list []models.Consultation
	require.NoError(t, json.Unmarshal(raw, &list))
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	resp, raw := e.do(http.MethodGet, "/api/consultations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized: No token provided", errorMessage(t, raw))

	resp, raw = e.do(http.MethodGet, "/api/dashboard", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized or invalid user", errorMessage(t, raw))

	expired, err := auth.SignToken(testSecret, models.Identity{ID: "u-1"}, -time.Hour)
	require.NoError(t, err)
	resp, _ = e.do(http.MethodGet, "/api/auth", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestAuthSyncNeverDuplicates(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("u-1")

	for i := 0; i < 3; i++ {
		resp, raw := e.do(http.MethodGet, "/api/auth", tok, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var user models.User
		require.NoError(t, json.Unmarshal(raw, &user))
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "u-1@example.com", user.Email)
		assert.False(t, user.IsAdmin)
	}

	resp, _ := e.do(http.MethodPost, "/api/auth", tok, map[string]string{"phone": "555"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	users, err := e.db.GetAllUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthRegister(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token("u-2")

	resp, raw := e.do(http.MethodPost, "/api/auth", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Phone number is required", errorMessage(t, raw))

	resp, raw = e.do(http.MethodPost, "/api/auth", tok, "{broken")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON body", errorMessage(t, raw))

	resp, raw = e.do(http.MethodPost, "/api/auth", tok, map[string]string{"phone": "+1 555 0100"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"User inserted or already exists"}`, string(raw))

	user, err := e.db.GetUserByID(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0100", user.Phone)
}

func TestConsultationLifecycle(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login("alice", false)
	bob := e.login("bob", false)
	admin := e.login("admin", true)

	t.Run("OwnerMismatch", func(t *testing.T) {
		resp, raw := e.do(http.MethodPost, "/api/consultations", alice, booking("bob"))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Forbidden: user mismatch", errorMessage(t, raw))
	})

	t.Run("MissingFields", func(t *testing.T) {
		body := booking("alice")
		delete(body, "date")
		resp, raw := e.do(http.MethodPost, "/api/consultations", alice, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields", errorMessage(t, raw))
	})

	t.Run("LegacyKeys", func(t *testing.T) {
		resp, raw := e.do(http.MethodPost, "/api/consultations", bob, map[string]any{
			"user_id":           "bob",
			"name":              "Bob",
			"consultation_type": "vastu",
			"preferred_date":    "2024-07-01",
			"preferred_time":    "5 PM",
			"phone":             "999",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	})

	first := createBooking(t, e, alice, "alice")
	second := createBooking(t, e, alice, "alice")

	t.Run("Visibility", func(t *testing.T) {
		bobIDs := listIDs(t, e, bob)
		assert.NotContains(t, bobIDs, first)
		assert.NotContains(t, bobIDs, second)
		assert.Len(t, bobIDs, 1)

		aliceIDs := listIDs(t, e, alice)
		assert.ElementsMatch(t, []string{first, second}, aliceIDs)

		adminIDs := listIDs(t, e, admin)
		assert.Subset(t, adminIDs, aliceIDs)
		assert.Subset(t, adminIDs, bobIDs)
	})

	t.Run("CancelForeign", func(t *testing.T) {
		resp, _ := e.do(http.MethodDelete, "/api/dashboard/consultations/"+first, bob, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		resp, _ = e.do(http.MethodDelete, "/api/dashboard/consultations/"+first, admin, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("AdminUpdate", func(t *testing.T) {
		resp, _ := e.do(http.MethodPatch, "/api/admin/consultations/"+first, alice, map[string]any{"status": "confirmed"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, _ = e.do(http.MethodPatch, "/api/admin/consultations/"+first, admin, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = e.do(http.MethodPatch, "/api/admin/consultations/missing", admin, map[string]any{"status": "confirmed"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, raw := e.do(http.MethodPatch, "/api/admin/consultations/"+first, admin, map[string]any{"status": "confirmed", "has_paid": true})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		var c models.Consultation
		require.NoError(t, json.Unmarshal(raw, &c))
		assert.Equal(t, models.StatusConfirmed, c.Status)
		assert.True(t, c.HasPaid)
	})

	t.Run("CancelOnlyPending", func(t *testing.T) {
		resp, raw := e.do(http.MethodDelete, "/api/dashboard/consultations/"+first, alice, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "Only pending consultations can be cancelled", errorMessage(t, raw))

		resp, _ = e.do(http.MethodDelete, "/api/dashboard/consultations/"+second, alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, listIDs(t, e, alice), second)
		assert.NotContains(t, listIDs(t, e, admin), second)

		resp, _ = e.do(http.MethodDelete, "/api/dashboard/consultations/"+second, alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login("alice", false)
	admin := e.login("admin", true)
	createBooking(t, e, alice, "alice")

	resp, raw := e.do(http.MethodGet, "/api/dashboard", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var userDash map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &userDash))
	assert.JSONEq(t, "false", string(userDash["isAdmin"]))
	_, hasAvailability := userDash["availability"]
	assert.False(t, hasAvailability)

	resp, raw = e.do(http.MethodGet, "/api/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var adminDash models.Dashboard
	require.NoError(t, json.Unmarshal(raw, &adminDash))
	assert.True(t, adminDash.IsAdmin)
	assert.Len(t, adminDash.Consultations, 1)

	resp, raw = e.do(http.MethodGet, "/api/dashboard", e.token("ghost"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User profile not found", errorMessage(t, raw))
}

func TestAvailabilityEndpoints(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login("alice", false)
	admin := e.login("admin", true)

	resp, raw := e.do(http.MethodGet, "/api/availability", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(raw))

	resp, _ = e.do(http.MethodPost, "/api/availability", "", map[string]string{"date": "2024-06-01", "time": "10 AM"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/availability", alice, map[string]string{"date": "2024-06-01", "time": "10 AM"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = e.do(http.MethodPost, "/api/availability", admin, map[string]string{"date": "2024-06-01"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Date and time are required", errorMessage(t, raw))

	resp, raw = e.do(http.MethodPost, "/api/availability", admin, map[string]string{"date": "2024-06-01", "time": "10 AM"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.True(t, created.Success)

	// Book the slot, then it can no longer be removed.
	body := booking("alice")
	body["slot_id"] = created.ID
	resp, raw = e.do(http.MethodPost, "/api/consultations", alice, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = e.do(http.MethodGet, "/api/availability", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slots []models.AvailabilitySlot
	require.NoError(t, json.Unmarshal(raw, &slots))
	require.Len(t, slots, 1)
	assert.True(t, slots[0].IsBooked)

	resp, _ = e.do(http.MethodPost, "/api/consultations", alice, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(http.MethodDelete, "/api/availability", admin, map[string]string{"id": created.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(http.MethodDelete, "/api/availability", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = e.do(http.MethodPost, "/api/availability", admin, map[string]string{"date": "2024-06-02", "time": "11 AM"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &created))
	resp, raw = e.do(http.MethodDelete, "/api/availability", admin, map[string]string{"id": created.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(raw))
}

func TestAdminExport(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login("alice", false)
	admin := e.login("admin", true)
	createBooking(t, e, alice, "alice")

	resp, _ := e.do(http.MethodGet, "/api/admin/consultations/export", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := e.do(http.MethodGet, "/api/admin/consultations/export", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "consultations_2024-06-01.xlsx")
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip archive")
}

func TestStotraCatalog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.db.UpsertStotra(ctx, &models.Stotra{
		ID: "hanuman", Title: "Hanuman Chalisa", Category: "Strength & Protection", Symptoms: []string{"Fear"},
	}))
	require.NoError(t, e.db.UpsertStotra(ctx, &models.Stotra{
		ID: "lakshmi", Title: "Lakshmi Ashtakam", Category: "Wealth & Prosperity", Symptoms: []string{"Debt"},
	}))

	resp, raw := e.do(http.MethodGet, "/api/stotras?symptom=Fear", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var catalog models.StotraCatalog
	require.NoError(t, json.Unmarshal(raw, &catalog))
	require.Len(t, catalog.Stotras, 1)
	assert.Equal(t, "hanuman", catalog.Stotras[0].ID)
	assert.Equal(t, []string{"Debt", "Fear"}, catalog.Symptoms)
	assert.Equal(t, models.AllCategories, catalog.Categories[0])

	resp, raw = e.do(http.MethodGet, "/api/stotras?q=ashtakam&category=Strength+%26+Protection", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &catalog))
	assert.Empty(t, catalog.Stotras)
}

func TestRateLimit(t *testing.T) {
	t.Run("TokenBucket", func(t *testing.T) {
		e := newTestEnv(t, func(cfg *config.APIConfig, _ *Options) {
			cfg.RateLimit.RPS = 0.001
			cfg.RateLimit.Burst = 2
		})
		for i := 0; i < 2; i++ {
			resp, _ := e.do(http.MethodGet, "/api/availability", "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
		resp, raw := e.do(http.MethodGet, "/api/availability", "", nil)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "Too many requests", errorMessage(t, raw))

		resp, _ = e.do(http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("SpoofedForwardedFor", func(t *testing.T) {
		e := newTestEnv(t, func(cfg *config.APIConfig, _ *Options) {
			cfg.RateLimit.RPS = 0.001
			cfg.RateLimit.Burst = 1
		})
		for i := 0; i < 5; i++ {
			req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/availability", nil)
			require.NoError(t, err)
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
			resp, err := e.ts.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			if i == 0 {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				continue
			}
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "request %d", i)
		}
	})

	t.Run("TrustedProxyForwardedFor", func(t *testing.T) {
		e := newTestEnv(t, func(cfg *config.APIConfig, _ *Options) {
			cfg.RateLimit.RPS = 0.001
			cfg.RateLimit.Burst = 1
			cfg.RateLimit.TrustedProxies = []string{"127.0.0.1", "::1"}
		})
		get := func(xff string) int {
			req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/availability", nil)
			require.NoError(t, err)
			req.Header.Set("X-Forwarded-For", xff)
			resp, err := e.ts.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			return resp.StatusCode
		}
		assert.Equal(t, http.StatusOK, get("198.51.100.1"))
		assert.Equal(t, http.StatusOK, get("198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, get("198.51.100.1"))
	})

	t.Run("SharedWindow", func(t *testing.T) {
		e := newTestEnv(t, func(cfg *config.APIConfig, o *Options) {
			cfg.RateLimit.Requests = 1
			cfg.RateLimit.WindowSeconds = 60
			o.RateLimits = repository.NewMemoryRepository()
		})
		resp, _ := e.do(http.MethodGet, "/api/stotras", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = e.do(http.MethodGet, "/api/stotras", "", nil)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.APIConfig, _ *Options) {
		cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	})

	req, err := http.NewRequest(http.MethodOptions, e.ts.URL+"/api/consultations", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, e.ts.URL+"/api/availability", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = e.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthAndReadiness(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestEnv(t, func(_ *config.APIConfig, o *Options) {
		o.Ready = func(context.Context) error { return errors.New("connection refused") }
	})
	resp, _ = down.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = down.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.APIConfig, _ *Options) {
		cfg.HTTP.MaxBodyBytes = 32
	})
	tok := e.login("alice", false)

	resp, _ := e.do(http.MethodPost, "/api/consultations", tok, booking("alice"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	srv := NewHTTPServer(config.APIConfig{}, Services{}, Options{}, &logger)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stotras", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	requestID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)

	var panicked, logged bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		switch entry["message"] {
		case "panic in handler":
			panicked = true
			assert.Equal(t, requestID, entry["request_id"])
		case "http request":
			logged = true
			assert.EqualValues(t, http.StatusInternalServerError, entry["status"])
			assert.Equal(t, requestID, entry["request_id"])
			assert.Equal(t, "/api/stotras", entry["path"])
		}
	}
	assert.True(t, panicked, "panic not logged")
	assert.True(t, logged, "panicking request missing from access log")
}

func TestMissingVerifier(t *testing.T) {
	e := newTestEnv(t, func(_ *config.APIConfig, o *Options) { o.Verifier = nil })
	resp, _ := e.do(http.MethodGet, "/api/auth", "token", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		assert.Equal(t, tt.want, bearerToken(req), tt.header)
	}
}
