package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/talgya/zoneforge/internal/catalog"
	"github.com/talgya/zoneforge/internal/persistence"
)

const testKey = "secret"

const pairJSON = `{"name": "pair", "roads": 100,
	"zones": [{"id": 0, "type": "start", "size": 10}, {"id": 1, "type": "start", "size": 10}],
	"connections": [{"from": 0, "to": 1}]}`

func newTestServer(t *testing.T, withDB bool) (*Server, *httptest.Server) {
	t.Helper()
	s := &Server{Templates: "../../templates", AdminKey: testKey}
	var archive Archive
	if withDB {
		db, err := persistence.Open(":memory:")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		s.DB = db
		archive = db
	}
	s.Jobs = NewJobManager(catalog.Default(), archive, 2)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Jobs.Wait()
		ts.Close()
		s.Close()
	})
	return s, ts
}

func post(t *testing.T, ts *httptest.Server, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/maps", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// submitUntilDone posts the inline pair template with increasing seeds until
// a job succeeds.
func submitUntilDone(t *testing.T, s *Server, ts *httptest.Server) JobView {
	t.Helper()
	for seed := 1; seed <= 12; seed++ {
		body := `{"size": 48, "seed": ` + jsonInt(seed) + `, "template": ` + pairJSON + `}`
		resp := post(t, ts, testKey, body)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var view JobView
		decode(t, resp, &view)
		if resp.Header.Get("Location") != "/api/v1/maps/"+view.ID {
			t.Errorf("Location = %q", resp.Header.Get("Location"))
		}
		s.Jobs.Wait()
		if got, _ := s.Jobs.Get(view.ID); got.Status == JobDone {
			return got
		}
	}
	t.Fatal("no seed generated the pair template")
	return JobView{}
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSubmitRequiresAdmin(t *testing.T) {
	s, ts := newTestServer(t, false)
	if resp := post(t, ts, "wrong", `{}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status %d", resp.StatusCode)
	}
	s.AdminKey = ""
	if resp := post(t, ts, testKey, `{}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("disabled admin: status %d", resp.StatusCode)
	}
}

func TestSubmitValidation(t *testing.T) {
	_, ts := newTestServer(t, false)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"size": `},
		{"missing template", `{"size": 48}`},
		{"both templates", `{"size": 48, "template_name": "duel", "template": ` + pairJSON + `}`},
		{"path escape", `{"size": 48, "template_name": "../go"}`},
		{"unknown name", `{"size": 48, "template_name": "nowhere"}`},
		{"schema violation", `{"size": 48, "template": {"name": "x", "roads": 100, "zones": []}}`},
		{"unsupported size", `{"size": 16, "template_name": "duel"}`},
		{"unfillable guard", `{"size": 48, "template": {"name": "weak", "roads": 100,
			"zones": [{"id": 0, "type": "start", "size": 10}, {"id": 1, "type": "start", "size": 10}],
			"connections": [{"from": 0, "to": 1, "guard": {"min": 1, "max": 30}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, testKey, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestSubmitNamedTemplate(t *testing.T) {
	s, ts := newTestServer(t, false)
	resp := post(t, ts, testKey, `{"size": 48, "seed": 7, "template_name": "duel"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view JobView
	decode(t, resp, &view)
	if view.Template != "Duel" || view.Seed != 7 || view.Size != 48 {
		t.Errorf("unexpected view %+v", view)
	}
	s.Jobs.Wait()
}

func TestMapLifecycle(t *testing.T) {
	s, ts := newTestServer(t, true)
	view := submitUntilDone(t, s, ts)

	resp, err := http.Get(ts.URL + "/api/v1/maps/" + view.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got struct {
		Job   *JobView `json:"job"`
		Zones []struct {
			ID int `json:"id"`
		} `json:"zones"`
		Roads int `json:"roads"`
	}
	decode(t, resp, &got)
	if got.Job == nil || got.Job.Status != JobDone || len(got.Zones) != 2 || got.Roads == 0 {
		t.Fatalf("unexpected map response %+v", got)
	}

	preview, err := http.Get(ts.URL + "/api/v1/maps/" + view.ID + "/preview")
	if err != nil {
		t.Fatal(err)
	}
	defer preview.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(preview.Body)
	if lines := strings.Count(buf.String(), "\n"); lines != 48 {
		t.Errorf("preview has %d lines", lines)
	}

	archive, err := http.Get(ts.URL + "/api/v1/archive?template=pair")
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Body.Close()
	var listed []persistence.MapSummary
	decode(t, archive, &listed)
	found := false
	for _, m := range listed {
		found = found || m.ID == view.ID
	}
	if !found {
		t.Errorf("job %s missing from archive listing %+v", view.ID, listed)
	}

	// The archive answers for maps the job manager no longer holds.
	s.Jobs = NewJobManager(catalog.Default(), s.DB, 1)
	resp2, err := http.Get(ts.URL + "/api/v1/maps/" + view.ID + "/preview")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var buf2 bytes.Buffer
	buf2.ReadFrom(resp2.Body)
	if resp2.StatusCode != http.StatusOK || buf2.String() != buf.String() {
		t.Errorf("archived preview differs (status %d)", resp2.StatusCode)
	}
}

func TestDeleteArchivedMap(t *testing.T) {
	s, ts := newTestServer(t, true)
	view := submitUntilDone(t, s, ts)

	del := func(key string) int {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/maps/"+view.ID, nil)
		req.Header.Set("Authorization", "Bearer "+key)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := del("wrong"); code != http.StatusUnauthorized {
		t.Errorf("unauthorized delete: status %d", code)
	}
	if code := del(testKey); code != http.StatusNoContent {
		t.Fatalf("delete: status %d", code)
	}
	if code := del(testKey); code != http.StatusNotFound {
		t.Errorf("second delete: status %d", code)
	}
	if n, _ := s.DB.CountMaps(); n != 0 {
		t.Errorf("%d maps left in the archive", n)
	}
}

func TestMapNotFound(t *testing.T) {
	_, ts := newTestServer(t, true)
	for _, path := range []string{"/api/v1/maps/missing", "/api/v1/maps/missing/preview", "/api/v1/maps/missing/events"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestArchiveDisabled(t *testing.T) {
	_, ts := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/api/v1/archive")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status map[string]any
	decode(t, resp, &status)
	if status["name"] != "zoneforge" || status["jobs"] == nil {
		t.Errorf("status = %v", status)
	}
	if n, ok := status["archived_maps"].(float64); !ok || n != 0 {
		t.Errorf("archived_maps = %v", status["archived_maps"])
	}
}

func TestEventsWebsocket(t *testing.T) {
	s, ts := newTestServer(t, false)
	view := submitUntilDone(t, s, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/maps/" + view.ID + "/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var events []JobEvent
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				t.Fatalf("stream ended with %v", err)
			}
			break
		}
		var e JobEvent
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		t.Fatal("no events replayed")
	}
	last := events[len(events)-1]
	if last.Status != JobDone || last.Phase != "done" {
		t.Errorf("last event %+v", last)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	now = now.Add(15 * time.Second)
	ok, wait := rl.Allow("a")
	if ok {
		t.Fatal("third request should be limited")
	}
	if wait != 45*time.Second {
		t.Errorf("wait = %v, want 45s", wait)
	}
	if ok, _ := rl.Allow("b"); !ok {
		t.Error("limits are per client")
	}

	now = now.Add(45 * time.Second)
	if ok, _ := rl.Allow("a"); !ok {
		t.Error("window should have reset")
	}

	now = now.Add(3 * time.Minute)
	rl.sweep()
	if len(rl.windows) != 0 {
		t.Errorf("%d idle clients kept", len(rl.windows))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	defer rl.Close()
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/maps", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status %d, want %d", i, rec.Code, want)
		}
	}
	// The second request above was rejected within the same instant.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/maps", nil)
	req.RemoteAddr = "10.0.0.1:6666"
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Errorf("Retry-After = %q", got)
	}
}
