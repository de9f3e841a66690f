package adapthttp_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	adapthttp "fitflow/internal/adapter/http"
	"fitflow/internal/adapter/memory"
	"fitflow/internal/app"
	"fitflow/internal/clock"
	"fitflow/internal/undo"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	ts      *httptest.Server
	clock   *clock.Fake
	db      *memory.DB
	objects *memory.Objects
}

func newEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 3, 11, 9, 0, 0, 0, time.Local))
	db := memory.New()
	objects := memory.NewObjects("/files")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := undo.NewQueue(clk, 5*time.Second)
	notices := undo.NewNotices(clk)

	deps := app.Deps{
		Queue:         queue,
		Notices:       notices,
		Outbox:        memory.NewOutbox(),
		Clock:         clk,
		RemoteTimeout: time.Second,
		Logger:        logger,
	}
	weights := app.NewWeightService(db, deps)
	calories := app.NewCalorieService(db, deps)
	wellness := app.NewWellnessService(db, deps)
	moods := app.NewMoodService(db, deps)
	profiles := app.NewProfileService(db, db, clk)

	svc := adapthttp.Services{
		Auth:      app.NewAuthService(db, db.NewSessionRepo()).WithProfiles(db).WithClock(clk),
		Weight:    weights,
		Calorie:   calories,
		Wellness:  wellness,
		Mood:      moods,
		Profile:   profiles,
		Photo:     app.NewPhotoService(db, objects, clk, logger),
		Charts:    app.NewChartsService(weights, calories, wellness, clk),
		Dashboard: app.NewDashboardService(profiles, weights, calories, wellness, moods, clk),
		QuickLog: app.NewQuickLogService(weights, calories, wellness, profiles, app.QuickLogOptions{
			Delay:   3 * time.Second,
			Enabled: true,
			Clock:   clk,
			Logger:  logger,
		}),
		Export:  app.NewExportService(weights, calories, wellness, moods),
		Undo:    queue,
		Notices: notices,
	}

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := adapthttp.New(svc, webDir, logger).WithFiles(adapthttp.ObjectServer(objects.Get))
	if !withAuth {
		srv = srv.WithoutAuth(1)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, clock: clk, db: db, objects: objects}
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d; body: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, b)
	}
}

func items(t *testing.T, body map[string]any) []any {
	t.Helper()
	arr, ok := body["items"].([]any)
	if !ok {
		t.Fatalf("response missing 'items' array: %v", body)
	}
	return arr
}

func (e *testEnv) logWeight(t *testing.T, lb float64) (id int64, undoID string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/weight", map[string]any{"value": lb, "unit": "lb"})
	expectStatus(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	entry, ok := body["entry"].(map[string]any)
	if !ok {
		t.Fatalf("response missing 'entry': %v", body)
	}
	return int64(entry["id"].(float64)), body["undoId"].(string)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/health", nil)
	expectStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
}

func TestWeightLogAndList(t *testing.T) {
	env := newEnv(t, false)

	id, undoID := env.logWeight(t, 185.5)
	if id == 0 || undoID == "" {
		t.Fatalf("expected id and undo id, got %d %q", id, undoID)
	}

	resp := env.do(t, http.MethodGet, "/api/weight", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if _, ok := body["today"]; !ok {
		t.Fatal("response missing 'today' field")
	}
	if n := len(items(t, body)); n != 1 {
		t.Fatalf("expected 1 item, got %d", n)
	}
}

func TestWeightLogValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"value zero", map[string]any{"value": 0, "unit": "kg"}},
		{"value negative", map[string]any{"value": -5.0, "unit": "kg"}},
		{"out of range", map[string]any{"value": 700.0, "unit": "lb"}},
		{"invalid unit", map[string]any{"value": 80.0, "unit": "stone"}},
		{"bad day", map[string]any{"value": 180.0, "unit": "lb", "day": "yesterday"}},
		{"unknown field", map[string]any{"value": 180.0, "unit": "lb", "bodyFat": 20}},
	}

	env := newEnv(t, false)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/weight", tc.payload)
			expectStatus(t, resp, http.StatusBadRequest)
			if _, ok := decodeBody(t, resp)["error"]; !ok {
				t.Fatal("response missing 'error' field")
			}
		})
	}

	resp := env.do(t, http.MethodGet, "/api/weight", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 0 {
		t.Fatalf("rejected input must not be stored, got %d items", n)
	}
}

func TestDeleteThenUndo(t *testing.T) {
	env := newEnv(t, false)
	id, _ := env.logWeight(t, 182)

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/weight/%d", id), nil)
	expectStatus(t, resp, http.StatusOK)
	undoID, _ := decodeBody(t, resp)["undoId"].(string)
	if undoID == "" {
		t.Fatal("response missing 'undoId'")
	}

	resp = env.do(t, http.MethodGet, "/api/weight", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 0 {
		t.Fatalf("deleted entry must be hidden immediately, got %d items", n)
	}

	resp = env.do(t, http.MethodGet, "/api/undo", nil)
	expectStatus(t, resp, http.StatusOK)
	found := false
	for _, it := range items(t, decodeBody(t, resp)) {
		if it.(map[string]any)["id"] == undoID {
			found = true
		}
	}
	if !found {
		t.Fatalf("undo item %s not listed", undoID)
	}

	resp = env.do(t, http.MethodPost, "/api/undo/"+undoID, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/weight", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 1 {
		t.Fatalf("undone entry must be back, got %d items", n)
	}

	// The window passing after an undo must not delete the row.
	env.clock.Advance(10 * time.Second)
	resp = env.do(t, http.MethodGet, "/api/weight/trash", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 0 {
		t.Fatalf("expected empty trash, got %d", n)
	}

	resp = env.do(t, http.MethodGet, "/api/undo", nil)
	notices, _ := decodeBody(t, resp)["notices"].([]any)
	if len(notices) != 1 || !strings.Contains(notices[0].(map[string]any)["message"].(string), "restored") {
		t.Fatalf("expected a restored notice, got %v", notices)
	}
}

func TestDeleteFinalizedAfterWindow(t *testing.T) {
	env := newEnv(t, false)
	id, _ := env.logWeight(t, 182)

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/weight/%d", id), nil)
	expectStatus(t, resp, http.StatusOK)

	env.clock.Advance(5 * time.Second)

	resp = env.do(t, http.MethodGet, "/api/weight/trash", nil)
	expectStatus(t, resp, http.StatusOK)
	if n := len(items(t, decodeBody(t, resp))); n != 1 {
		t.Fatalf("expected 1 entry in trash, got %d", n)
	}

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/weight/%d/restore", id), nil)
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/weight", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 1 {
		t.Fatalf("restored entry must be listed, got %d items", n)
	}
}

func TestDeleteErrors(t *testing.T) {
	env := newEnv(t, false)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/weight/999", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/weight/abc", nil), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, "/api/calories/999/restore", nil), http.StatusNotFound)
}

func TestUndoUnknown(t *testing.T) {
	env := newEnv(t, false)

	expectStatus(t, env.do(t, http.MethodPost, "/api/undo/nope", nil), http.StatusNotFound)

	resp := env.do(t, http.MethodPost, "/api/undo/nope/dismiss", nil)
	expectStatus(t, resp, http.StatusOK)
	if decodeBody(t, resp)["dismissed"] != false {
		t.Fatal("expected dismissed=false")
	}
}

func TestOtherMetrics(t *testing.T) {
	env := newEnv(t, false)

	tests := []struct {
		path    string
		payload map[string]any
	}{
		{"/api/calories", map[string]any{"calories": 650, "mealType": "lunch"}},
		{"/api/wellness", map[string]any{"sleepHours": 7.5, "waterGlasses": 6}},
		{"/api/mood", map[string]any{"mood": "good", "energyLevel": 7}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, tc.path, tc.payload)
			expectStatus(t, resp, http.StatusCreated)

			resp = env.do(t, http.MethodGet, tc.path, nil)
			if n := len(items(t, decodeBody(t, resp))); n != 1 {
				t.Fatalf("expected 1 item, got %d", n)
			}
		})
	}
}

func TestMoodReaction(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodPost, "/api/mood", map[string]any{"mood": "great", "energyLevel": 9})
	expectStatus(t, resp, http.StatusCreated)
	id := decodeBody(t, resp)["entry"].(map[string]any)["id"].(float64)

	path := fmt.Sprintf("/api/mood/%d/reactions", int64(id))
	resp = env.do(t, http.MethodPost, path, map[string]any{"reaction": "heart"})
	expectStatus(t, resp, http.StatusOK)
	reactions := decodeBody(t, resp)["entry"].(map[string]any)["reactions"].(map[string]any)
	if reactions["heart"] != 1.0 {
		t.Fatalf("expected heart=1, got %v", reactions)
	}

	expectStatus(t, env.do(t, http.MethodPost, path, map[string]any{"reaction": "boo"}), http.StatusBadRequest)
}

func TestQuickLogAutoCommit(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodPut, "/api/quicklog/weight", map[string]any{"value": 180})
	expectStatus(t, resp, http.StatusOK)
	input := decodeBody(t, resp)["input"].(map[string]any)
	if input["state"] != "counting-down" {
		t.Fatalf("expected counting-down, got %v", input["state"])
	}

	env.clock.Advance(3 * time.Second)

	resp = env.do(t, http.MethodGet, "/api/weight", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 1 {
		t.Fatalf("expected the countdown to log the weight, got %d items", n)
	}
}

func TestQuickLogCancelAndCommit(t *testing.T) {
	env := newEnv(t, false)

	expectStatus(t, env.do(t, http.MethodPut, "/api/quicklog/calories", map[string]any{"value": 400}), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/api/quicklog/calories/cancel", nil)
	expectStatus(t, resp, http.StatusOK)
	if state := decodeBody(t, resp)["input"].(map[string]any)["state"]; state != "dirty" {
		t.Fatalf("expected dirty after cancel, got %v", state)
	}

	env.clock.Advance(10 * time.Second)
	resp = env.do(t, http.MethodGet, "/api/calories", nil)
	if n := len(items(t, decodeBody(t, resp))); n != 0 {
		t.Fatalf("cancelled input must not commit, got %d items", n)
	}

	resp = env.do(t, http.MethodPost, "/api/quicklog/calories/commit", nil)
	expectStatus(t, resp, http.StatusOK)
	if state := decodeBody(t, resp)["input"].(map[string]any)["state"]; state != "clean" {
		t.Fatalf("expected clean after commit, got %v", state)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/quicklog/water/commit", nil), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPut, "/api/quicklog/steps", map[string]any{"value": 1}), http.StatusBadRequest)
}

func TestQuickLogDisableAutoCommit(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodPut, "/api/quicklog/autocommit", map[string]any{"enabled": false})
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodPut, "/api/quicklog/sleep", map[string]any{"value": 8})
	if state := decodeBody(t, resp)["input"].(map[string]any)["state"]; state != "dirty" {
		t.Fatalf("expected dirty without auto-commit, got %v", state)
	}
}

func TestProfile(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/profile", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodPatch, "/api/profile", map[string]any{"targetWeight": 170, "dailyCalorieGoal": 1800})
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["targetWeight"] != 170.0 || body["dailyCalorieGoal"] != 1800.0 {
		t.Fatalf("update not applied: %v", body)
	}

	expectStatus(t, env.do(t, http.MethodPatch, "/api/profile", map[string]any{"targetWeight": 10}), http.StatusBadRequest)
}

func TestDashboardAndCharts(t *testing.T) {
	env := newEnv(t, false)
	env.logWeight(t, 182)

	resp := env.do(t, http.MethodGet, "/api/dashboard", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["currentWeight"] != 182.0 {
		t.Fatalf("expected currentWeight=182, got %v", body["currentWeight"])
	}

	resp = env.do(t, http.MethodGet, "/api/charts/daily?days=7&unit=lb", nil)
	expectStatus(t, resp, http.StatusOK)
	if n := len(items(t, decodeBody(t, resp))); n != 7 {
		t.Fatalf("expected 7 days, got %d", n)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/charts/daily?unit=stone", nil), http.StatusBadRequest)
}

func TestExportCSV(t *testing.T) {
	env := newEnv(t, false)
	env.logWeight(t, 182)

	resp := env.do(t, http.MethodGet, "/api/export/weight", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(b), "id,date,weight,unit,notes\n") {
		t.Fatalf("unexpected csv: %q", b)
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/export/steps", nil), http.StatusBadRequest)
}

func TestPhotoUploadListDelete(t *testing.T) {
	env := newEnv(t, false)
	png := []byte("\x89PNG\r\n\x1a\n0000")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(png)
	_ = mw.WriteField("notes", "week 2")
	_ = mw.Close()

	resp, err := http.Post(env.ts.URL+"/api/photos", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	expectStatus(t, resp, http.StatusCreated)
	photo := decodeBody(t, resp)["photo"].(map[string]any)

	fileResp := env.do(t, http.MethodGet, photo["url"].(string), nil)
	expectStatus(t, fileResp, http.StatusOK)
	got, _ := io.ReadAll(fileResp.Body)
	if !bytes.Equal(got, png) {
		t.Fatal("stored object differs from upload")
	}

	resp2 := env.do(t, http.MethodGet, "/api/photos", nil)
	if n := len(items(t, decodeBody(t, resp2))); n != 1 {
		t.Fatalf("expected 1 photo, got %d", n)
	}

	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("/api/photos/%d", int64(photo["id"].(float64))), nil), http.StatusOK)
	resp2 = env.do(t, http.MethodGet, "/api/photos", nil)
	if n := len(items(t, decodeBody(t, resp2))); n != 0 {
		t.Fatalf("expected no photos after delete, got %d", n)
	}
}

func TestPhotoUploadRejectsText(t *testing.T) {
	env := newEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("photo", "notes.txt")
	_, _ = part.Write([]byte("hello"))
	_ = mw.Close()

	resp, err := http.Post(env.ts.URL+"/api/photos", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	expectStatus(t, resp, http.StatusBadRequest)
	if env.objects.Len() != 0 {
		t.Fatal("rejected upload must not be stored")
	}
}

func TestAuthFlow(t *testing.T) {
	env := newEnv(t, true)

	expectStatus(t, env.do(t, http.MethodGet, "/api/weight", nil), http.StatusUnauthorized)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Jar: jar}
	post := func(path string, payload any) *http.Response {
		t.Helper()
		b, _ := json.Marshal(payload)
		resp, err := client.Post(env.ts.URL+path, "application/json", bytes.NewReader(b))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	expectStatus(t, post("/api/auth/signup", map[string]any{"email": "not-an-email", "password": "secret1"}), http.StatusBadRequest)
	expectStatus(t, post("/api/auth/signup", map[string]any{"email": "Sam@Example.com", "password": "secret1"}), http.StatusCreated)
	expectStatus(t, post("/api/auth/signup", map[string]any{"email": "sam@example.com", "password": "secret1"}), http.StatusConflict)

	resp, err := client.Get(env.ts.URL + "/api/auth/me")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	expectStatus(t, resp, http.StatusOK)
	if email := decodeBody(t, resp)["email"]; email != "sam@example.com" {
		t.Fatalf("expected normalized email, got %v", email)
	}

	expectStatus(t, post("/api/weight", map[string]any{"value": 180, "unit": "lb"}), http.StatusCreated)
	expectStatus(t, post("/api/auth/logout", nil), http.StatusOK)

	resp2, err := client.Get(env.ts.URL + "/api/weight")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close() //nolint:errcheck
	expectStatus(t, resp2, http.StatusUnauthorized)

	expectStatus(t, post("/api/auth/login", map[string]any{"email": "sam@example.com", "password": "wrong!"}), http.StatusUnauthorized)
	expectStatus(t, post("/api/auth/login", map[string]any{"email": "sam@example.com", "password": "secret1"}), http.StatusOK)
}

func TestForwardAuthHeader(t *testing.T) {
	env := newEnv(t, true)

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/me", nil)
	req.Header.Set("Remote-User", "proxy@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	expectStatus(t, resp, http.StatusOK)
	if email := decodeBody(t, resp)["email"]; email != "proxy@example.com" {
		t.Fatalf("expected proxy user, got %v", email)
	}
}

func TestSPAFallback(t *testing.T) {
	env := newEnv(t, false)

	resp := env.do(t, http.MethodGet, "/trash", nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "<html></html>" {
		t.Fatalf("expected index.html, got %q", b)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("expected no-store, got %q", cc)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newEnv(t, false)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"DELETE weight", http.MethodDelete, "/api/weight"},
		{"PUT weight trash", http.MethodPut, "/api/weight/trash"},
		{"GET quicklog commit", http.MethodGet, "/api/quicklog/weight/commit"},
		{"POST dashboard", http.MethodPost, "/api/dashboard"},
		{"GET undo execute", http.MethodGet, "/api/undo/abc/dismiss"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, nil)
			expectStatus(t, resp, http.StatusMethodNotAllowed)
		})
	}
}
