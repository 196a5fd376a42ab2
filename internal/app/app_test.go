package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/students-e2e/internal/config"
	"github.com/samvad-hq/students-e2e/internal/logger"
	"github.com/samvad-hq/students-e2e/internal/storage"
	"github.com/samvad-hq/students-e2e/pkg/publishers"
)

type studentsAPI struct {
	mu      sync.Mutex
	next    int
	records map[string]map[string]any
	auth    []string
	status  map[string]int // per-id DELETE status override
}

func newStudentsAPI() *studentsAPI {
	return &studentsAPI{next: 1, records: map[string]map[string]any{}, status: map[string]int{}}
}

func (a *studentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/students"), "/")
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch {
	case r.Method == http.MethodPost:
		key := strconv.Itoa(a.next)
		a.next++
		a.records[key] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":` + key + `}`))
	case id == "":
		_ = json.NewEncoder(w).Encode(a.records)
	case r.Method == http.MethodDelete:
		if code, ok := a.status[id]; ok {
			w.WriteHeader(code)
			return
		}
		delete(a.records, id)
		w.WriteHeader(http.StatusOK)
	default:
		if _, ok := a.records[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(a.records[id])
	}
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	fixturesFile := filepath.Join(dir, "fixtures.yaml")
	content := `
fixtures:
  - id: alice
    student: {name: "Alice {{run}}", email: "alice@example.com", age: 20}
  - id: bob
    student: {name: Bob, email: bob@example.com, age: 30}
`
	if err := os.WriteFile(fixturesFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	t.Setenv("STUDENTS_E2E_TOKEN", "secret")
	return &config.Config{
		AppName:                "students-e2e",
		BaseURL:                baseURL,
		Resource:               "students",
		TokenEnv:               "STUDENTS_E2E_TOKEN",
		RequestTimeout:         2 * time.Second,
		FixturesFile:           fixturesFile,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "ledger.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestRunnerSingleShotPasses(t *testing.T) {
	api := newStudentsAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	runner, err := NewRunner(context.Background(), testConfig(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(api.records) != 0 {
		t.Fatalf("all fixtures should be deleted, left %v", api.records)
	}
	// two fixtures x six requests
	if len(api.auth) != 12 {
		t.Fatalf("expected 12 requests, got %d", len(api.auth))
	}
	for _, a := range api.auth {
		if a != "Bearer secret" {
			t.Fatalf("unexpected authorization %q", a)
		}
	}
}

func TestRunnerSingleShotReportsFailure(t *testing.T) {
	api := newStudentsAPI()
	api.status["1"] = http.StatusInternalServerError
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	runner, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if err := runner.Run(context.Background()); !errors.Is(err, ErrRunFailed) {
		t.Fatalf("Run err = %v, want ErrRunFailed", err)
	}

	ledger, err := storage.NewLedger(cfg.StorageType, cfg.StoragePath(), storage.Options{})
	if err != nil {
		t.Fatalf("reopen ledger: %v", err)
	}
	defer ledger.Close()
	pending, err := ledger.Pending()
	if err != nil || len(pending) != 1 || pending[0] != "1" {
		t.Fatalf("undeleted student should stay in the ledger, got %v %v", pending, err)
	}
}

func TestSweeperReleasesDeletedAndMissing(t *testing.T) {
	api := newStudentsAPI()
	api.status["404"] = http.StatusNotFound
	api.status["500"] = http.StatusInternalServerError
	api.records["ok"] = map[string]any{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	sweeper, err := NewSweeper(cfg, nil)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	defer sweeper.Close()

	for _, id := range []string{"ok", "404", "500"} {
		if err := sweeper.ledger.Track(id); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}

	res, err := sweeper.Sweep(context.Background())
	if err == nil {
		t.Fatalf("expected error for the 500 delete")
	}
	if res.Pending != 3 || res.Released != 2 || res.Failed != 1 {
		t.Fatalf("unexpected sweep result %#v", res)
	}
	pending, _ := sweeper.ledger.Pending()
	if len(pending) != 1 || pending[0] != "500" {
		t.Fatalf("pending after sweep = %v", pending)
	}
}

func TestNewRunnerRejectsMissingFixtures(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.FixturesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewRunner(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing fixtures file")
	}
}

type closingPublisher struct{ closed bool }

func (p *closingPublisher) ID() string                                      { return "hook" }
func (p *closingPublisher) Type() string                                    { return publishers.TypeHTTP }
func (p *closingPublisher) Publish(context.Context, publishers.Event) error { return nil }
func (p *closingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestNewRunnerClosesPublishersWhenStorageFails(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.StorageType = "cassandra"
	cfg.PublishersFile = filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    http: {url: "http://127.0.0.1:1/hook"}
`
	if err := os.WriteFile(cfg.PublishersFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}

	pub := &closingPublisher{}
	builders := publishers.Builders{
		publishers.TypeHTTP: func(context.Context, publishers.PublisherConfig, logger.Logger) (publishers.Publisher, error) {
			return pub, nil
		},
	}
	if _, err := newRunner(context.Background(), cfg, builders, nil); err == nil {
		t.Fatalf("expected storage error")
	}
	if !pub.closed {
		t.Fatalf("publishers must be closed when runner construction fails")
	}
}
