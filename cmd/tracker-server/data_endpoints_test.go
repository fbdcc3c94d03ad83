package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/blob"
	"openfront-tracker/internal/stats"
	"openfront-tracker/internal/upstream"
	"openfront-tracker/internal/ws"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, blobs blob.Store, upstreamURL string) *chi.Mux {
	t.Helper()
	client := upstream.NewClient(upstream.Config{
		BaseURL:     upstreamURL,
		APIBaseURL:  upstreamURL,
		FallbackURL: upstreamURL + "/fallback",
		MaxShards:   3,
	})
	query := archive.NewQuery(blobs, "2025-07-20", 4)
	wsSrv := ws.NewServer(stats.NewService(query, client))
	return newRouter(query, client, wsSrv)
}

func seedArchive(t *testing.T, blobs blob.Store) {
	t.Helper()
	writer := archive.NewWriter(blobs)
	finished := []archive.FinishedGame{
		{GameID: "g1", End: "2025-07-21T10:00:00Z", MapType: "World"},
		{GameID: "g2", End: "2025-07-21T11:30:00Z", MapType: "Europe"},
		{GameID: "g3", End: "2025-07-22T08:00:00Z", MapType: "World"},
	}
	if err := writer.Archive(t.Context(), finished); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, blob.NewMemory(), "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGameIDsEndpoints(t *testing.T) {
	blobs := blob.NewMemory()
	seedArchive(t, blobs)
	router := newTestRouter(t, blobs, "http://127.0.0.1:0")

	get := func(path string) (int, []archive.Entry) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var entries []archive.Entry
		if w.Code == http.StatusOK {
			if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return w.Code, entries
	}

	code, entries := get("/data/gameIds/2025-07-21")
	if code != http.StatusOK {
		t.Fatalf("single date expected 200, got %d", code)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for 2025-07-21, got %d", len(entries))
	}

	code, entries = get("/data/gameIds/2025-07-21-2025-07-22")
	if code != http.StatusOK {
		t.Fatalf("range expected 200, got %d", code)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for range, got %d", len(entries))
	}

	code, entries = get("/data/gameIds/all")
	if code != http.StatusOK {
		t.Fatalf("all expected 200, got %d", code)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for all, got %d", len(entries))
	}

	code, entries = get("/data/gameIds/2025-07-25")
	if code != http.StatusOK {
		t.Fatalf("empty date expected 200, got %d", code)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestGameIDsRejectsMalformedSpan(t *testing.T) {
	router := newTestRouter(t, blob.NewMemory(), "http://127.0.0.1:0")

	for _, span := range []string{"garbage", "2025-13-40", "2025-07-21x2025-07-22", "2025-07-21-2025-13-40"} {
		req := httptest.NewRequest(http.MethodGet, "/data/gameIds/"+span, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("span %q expected 400, got %d", span, w.Code)
		}
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if errResp.Error != "invalid_date_span" {
			t.Fatalf("span %q error = %q", span, errResp.Error)
		}
	}
}

func TestPlayerProxy(t *testing.T) {
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/player/p1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"alice"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer fake.Close()

	router := newTestRouter(t, blob.NewMemory(), fake.URL)

	req := httptest.NewRequest(http.MethodGet, "/player?id=p1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("CORS header = %q", got)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Name != "alice" {
		t.Fatalf("name = %q", body.Name)
	}

	req = httptest.NewRequest(http.MethodGet, "/player?id=ghost", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing player expected upstream 404, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/player", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing id expected 400, got %d", w.Code)
	}
}
