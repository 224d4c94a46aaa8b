package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"appointly/internal/booking"
	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/events"
	"appointly/internal/export"
	"appointly/internal/models"
	"appointly/internal/repository"
	"appointly/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.ImportDirectory(context.Background(), models.DirectorySnapshot{
		Employees: []models.Employee{
			{ID: "E1", Name: "Анна", IsActive: true},
			{ID: "E2", Name: "Борис", IsActive: true},
		},
		Clients:  []models.Client{{ID: "C1", Name: "ООО Ромашка", IsActive: true}},
		Services: []models.Service{{ID: "S1", Name: "Консультация", DurationMinutes: 60, IsActive: true}},
	}))
	return db
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "key-anna", Extra: "extra", ActorID: "E1", Name: "Анна", Permissions: []string{"write:scheduling"}},
				{Key: "key-boris", ActorID: "E2", Permissions: []string{"write:scheduling"}},
				{Key: "key-office", ActorID: "OFFICE", Permissions: []string{"write_all:scheduling"}},
				{Key: "key-guest", ActorID: "GUEST"},
			},
		},
	}
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	db := newTestDB(t)
	bus := events.NewEventBus(&logger)

	bookings := service.NewBookingService(nil, db, nil, bus, &logger)
	directory := service.NewDirectoryService(db, time.Minute, &logger)
	drafts := service.NewDraftService(repository.NewMemoryDraftRepository(time.Hour), bookings, 100, time.Minute, &logger)

	srv := NewHTTPServer(cfg, Services{
		Bookings:   bookings,
		Attendance: service.NewAttendanceService(db, bus, &logger),
		Directory:  directory,
		Drafts:     drafts,
		Exporter:   export.NewExporter(directory, t.TempDir(), &logger),
		Health:     db,
	}, &logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, key string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-Api-Key", key)
		req.Header.Set("X-Api-Extra", "extra")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func seriesBody() map[string]any {
	return map[string]any{
		"variant":          "series",
		"employee_ids":     []string{"E1"},
		"client_ids":       []string{"C1"},
		"service_id":       "S1",
		"start_date":       "2024-06-03",
		"start_hour":       9,
		"start_minute":     0,
		"duration_minutes": 60,
		"recurrence":       map[string]any{"frequency": "weekly", "count": 4},
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	resp = do(t, ts, http.MethodGet, "/readyz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected readyz status: %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	t.Run("MissingKey", func(t *testing.T) {
		resp := do(t, ts, http.MethodGet, "/api/v1/variants", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		resp := do(t, ts, http.MethodGet, "/api/v1/variants", "nope", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("InvalidExtra", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/variants", nil)
		req.Header.Set("X-Api-Key", "key-anna")
		req.Header.Set("X-Api-Extra", "wrong")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ReaderRequired", func(t *testing.T) {
		resp := do(t, ts, http.MethodGet, "/api/v1/bookings", "key-guest", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestAuthDisabledUsesGatewayHeaders(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth.Enabled = false
	ts := newTestHTTPServer(t, cfg)

	resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "", seriesBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	raw, _ := json.Marshal(seriesBody())
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/bookings", bytes.NewReader(raw))
	req.Header.Set("X-Actor-ID", "E1")
	req.Header.Set("X-Actor-Permissions", "write:scheduling")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)
}

func TestVariants(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodGet, "/api/v1/variants", "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Variants []struct {
			Variant string               `json:"variant"`
			Policy  booking.VariantPolicy `json:"policy"`
		} `json:"variants"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Variants, 4)
	assert.Equal(t, "meeting", body.Variants[2].Variant)
	assert.True(t, body.Variants[2].Policy.EmployeeMultiple)
	assert.False(t, body.Variants[2].Policy.NeedsService)
}

func TestCreateAndFetchBooking(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", seriesBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.StoredBooking
	decode(t, resp, &created)
	assert.Equal(t, "2024-06-03T09:00:00", created.Timestamp)
	assert.Equal(t, "E1", created.CreatedBy)
	count, ok := created.Recurrence.Count()
	assert.True(t, ok)
	assert.Equal(t, 4, count)

	resp = do(t, ts, http.MethodGet, "/api/v1/bookings/"+strconv.FormatInt(created.ID, 10), "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/bookings?from=2024-06-01&to=2024-06-30", "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Bookings []models.StoredBooking `json:"bookings"`
	}
	decode(t, resp, &list)
	assert.Len(t, list.Bookings, 1)

	resp = do(t, ts, http.MethodGet, "/api/v1/bookings/999", "key-anna", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateBookingErrors(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	t.Run("Validation", func(t *testing.T) {
		body := seriesBody()
		body["start_hour"] = 22
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var e errorBody
		decode(t, resp, &e)
		assert.Equal(t, "out_of_business_window", e.Code)
		assert.Equal(t, "start_hour", e.Field)
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		body := seriesBody()
		body["variant"] = "weekly_sync"
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var e errorBody
		decode(t, resp, &e)
		assert.Equal(t, "unknown_variant", e.Code)
	})

	t.Run("ConflictingTermination", func(t *testing.T) {
		body := seriesBody()
		body["recurrence"] = map[string]any{"frequency": "weekly", "count": 4, "until": "2024-07-01"}
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var e errorBody
		decode(t, resp, &e)
		assert.Equal(t, "invalid_termination", e.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		body := seriesBody()
		body["employee_ids"] = []string{"E2"}
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		body := seriesBody()
		body["colour"] = "red"
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BadDate", func(t *testing.T) {
		body := seriesBody()
		body["start_date"] = "03.06.2024"
		resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestValidateBookingDoesNotStore(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodPost, "/api/v1/bookings/validate", "key-anna", seriesBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/bookings?from=2024-06-01&to=2024-06-30", "key-anna", nil)
	var list struct {
		Bookings []models.StoredBooking `json:"bookings"`
	}
	decode(t, resp, &list)
	assert.Empty(t, list.Bookings)
}

func TestMeetingResponses(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	meeting := map[string]any{
		"variant":          "meeting",
		"employee_ids":     []string{"E1", "E2"},
		"start_date":       "2024-06-04",
		"start_hour":       14,
		"start_minute":     30,
		"duration_minutes": 45,
	}
	resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-office", meeting)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.StoredBooking
	decode(t, resp, &created)
	require.Len(t, created.Attendees, 2)

	path := "/api/v1/bookings/" + strconv.FormatInt(created.ID, 10) + "/respond"

	resp = do(t, ts, http.MethodPost, path, "key-boris", map[string]string{"decision": "accepted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var attendee models.Attendee
	decode(t, resp, &attendee)
	assert.Equal(t, models.AttendeeAccepted, attendee.Status)

	resp = do(t, ts, http.MethodPost, path, "key-boris", map[string]string{"decision": "declined"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, path, "key-guest", map[string]string{"decision": "accepted"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, path, "key-anna", map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDraftLifecycle(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodGet, "/api/v1/drafts", "key-anna", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/drafts", "key-anna", map[string]string{"variant": "series"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{
		"employee_ids":     []string{"E1"},
		"client_ids":       []string{"C1"},
		"service_id":       "S1",
		"start_date":       "2024-06-03",
		"start_hour":       9,
		"start_minute":     15,
		"duration_minutes": 30,
		"frequency":        "weekly",
		"until":            "2024-07-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{"count": 3, "until": "2024-07-01"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{"count": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft models.Draft
	decode(t, resp, &draft)
	_, hasUntil := draft.Request.Recurrence.Until()
	assert.False(t, hasUntil)

	resp = do(t, ts, http.MethodPost, "/api/v1/drafts/submit", "key-anna", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stored models.StoredBooking
	decode(t, resp, &stored)
	assert.Equal(t, "2024-06-03T09:15:00", stored.Timestamp)

	resp = do(t, ts, http.MethodGet, "/api/v1/drafts", "key-anna", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/api/v1/drafts", "key-anna", map[string]string{"variant": "task"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, ts, http.MethodDelete, "/api/v1/drafts", "key-anna", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDraftPatchRejectedLeavesDraftUnchanged(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodPost, "/api/v1/drafts", "key-anna", map[string]string{"variant": "series"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{"notes": "original", "duration_minutes": 30})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{
		"notes":            "changed",
		"duration_minutes": 45,
		"until":            "not-a-date",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodPatch, "/api/v1/drafts", "key-anna", map[string]any{
		"notes": "changed",
		"count": 3,
		"until": "2024-07-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/drafts", "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft models.Draft
	decode(t, resp, &draft)
	assert.Equal(t, "original", draft.Request.Notes)
	assert.Equal(t, 30, draft.Request.DurationMinutes)
	assert.Nil(t, draft.Request.Recurrence)
}

func TestDirectory(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodGet, "/api/v1/directory/employees", "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Items []models.Employee `json:"items"`
	}
	decode(t, resp, &body)
	assert.Len(t, body.Items, 2)

	resp = do(t, ts, http.MethodGet, "/api/v1/directory/rooms", "key-anna", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportBookings(t *testing.T) {
	ts := newTestHTTPServer(t, testAPIConfig())

	resp := do(t, ts, http.MethodPost, "/api/v1/bookings", "key-anna", seriesBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/api/v1/bookings/export?from=2024-06-01&to=2024-06-30", "key-anna", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2024-06-01_to_2024-06-30.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Бронирования")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Анна", rows[2][5])
	assert.Equal(t, "ООО Ромашка", rows[2][6])
}

func TestRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 2}
	ts := newTestHTTPServer(t, cfg)

	for i := 0; i < 2; i++ {
		resp := do(t, ts, http.MethodGet, "/api/v1/variants", "key-anna", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := do(t, ts, http.MethodGet, "/api/v1/variants", "key-anna", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// other keys have their own bucket
	resp = do(t, ts, http.MethodGet, "/api/v1/variants", "key-boris", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
