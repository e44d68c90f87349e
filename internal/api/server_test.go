package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/kiln/internal/run"
)

func newTestServer(t *testing.T) (*echo.Echo, *run.Store) {
	t.Helper()
	store, err := run.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	e := echo.New()
	NewServer(store).Register(e)
	return e, store
}

func doGet(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t)

	rec := doGet(t, e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestGetRun(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t)

	m, err := store.Create(run.Manifest{
		BaseModel: "/models/llama-7b",
		DataFile:  "alpaca.jsonl",
		OutputDir: "out",
		Epochs:    3,
		Seed:      42,
		LoRA:      &run.LoRAManifest{Rank: 16},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := doGet(t, e, "/v1/runs/"+m.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view RunView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != m.ID || view.BaseModel != "/models/llama-7b" || view.LoRARank != 16 {
		t.Fatalf("view = %+v", view)
	}
	if view.Status != string(run.StatusPreparing) {
		t.Fatalf("status = %q", view.Status)
	}
	if view.CreatedAt == "" {
		t.Fatal("created_at missing")
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t)

	rec := doGet(t, e, "/v1/runs/does-not-exist")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Error errorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Type != "not_found_error" {
		t.Fatalf("error = %+v", body.Error)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t)

	for _, model := range []string{"a", "b"} {
		if _, err := store.Create(run.Manifest{BaseModel: model}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rec := doGet(t, e, "/v1/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body listRunsResp
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(body.Runs))
	}
}
