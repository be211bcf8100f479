package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/checker"
	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
)

func newBatchServer(t *testing.T) (*Server, *stubEvaluator) {
	t.Helper()
	repo, err := jsonstore.NewResultRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultRepository: %v", err)
	}
	eval := &stubEvaluator{}
	srv := newTestServer(t, Config{
		Evaluator:    eval,
		Runs:         repo,
		Batch:        checker.Runner{Concurrency: 2},
		MaxBatchURLs: 3,
	})
	return srv, eval
}

func waitForBatch(t *testing.T, srv *Server, id string) Batch {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rr := doRequest(srv, http.MethodGet, "/api/v1/batches/"+id, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("get batch: expected 200, got %d", rr.Code)
		}
		var b Batch
		if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
			t.Fatalf("decode batch: %v", err)
		}
		if b.Status == BatchDone || b.Status == BatchError {
			return b
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("batch %s did not finish", id)
	return Batch{}
}

func TestBatchLifecycle(t *testing.T) {
	srv, eval := newBatchServer(t)

	rr := doRequest(srv, http.MethodPost, "/api/v1/batches",
		`{"urls":["https://example.com"," ","https://phish.example.net"],"operator":"analyst"}`, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var created Batch
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TotalURLs != 2 {
		t.Errorf("expected blank URLs dropped, total = %d", created.TotalURLs)
	}

	done := waitForBatch(t, srv, created.ID)
	if done.Status != BatchDone {
		t.Fatalf("batch status = %s (%s)", done.Status, done.Error)
	}
	if done.FlaggedURLs != 1 || done.RunID == "" {
		t.Errorf("unexpected batch: %+v", done)
	}
	if eval.calls.Load() != 2 {
		t.Errorf("evaluator called %d times, want 2", eval.calls.Load())
	}

	rr = doRequest(srv, http.MethodGet, "/api/v1/runs/"+done.RunID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get run: expected 200, got %d", rr.Code)
	}
	var run struct {
		ID       string `json:"id"`
		Operator string `json:"operator"`
		Status   string `json:"status"`
		Results  []struct {
			URL   string `json:"url"`
			Score int    `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Operator != "analyst" || run.Status != "completed" || len(run.Results) != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Results[0].URL != "https://example.com" || run.Results[1].Score != 1 {
		t.Errorf("results out of order: %+v", run.Results)
	}

	rr = doRequest(srv, http.MethodGet, "/api/v1/runs", "", nil)
	if !strings.Contains(rr.Body.String(), done.RunID) {
		t.Errorf("run list missing %s: %s", done.RunID, rr.Body.String())
	}

	rr = doRequest(srv, http.MethodGet, "/api/v1/batches", "", nil)
	if !strings.Contains(rr.Body.String(), created.ID) {
		t.Errorf("batch list missing %s: %s", created.ID, rr.Body.String())
	}
}

func TestBatchValidation(t *testing.T) {
	srv, _ := newBatchServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"no urls", `{"urls":[]}`},
		{"only blanks", `{"urls":["", "  "]}`},
		{"too many", `{"urls":["https://a","https://b","https://c","https://d"]}`},
		{"bad json", `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(srv, http.MethodPost, "/api/v1/batches", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRunLookupErrors(t *testing.T) {
	srv, _ := newBatchServer(t)

	if rr := doRequest(srv, http.MethodGet, "/api/v1/runs/run-unknown", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", rr.Code)
	}
	if rr := doRequest(srv, http.MethodGet, "/api/v1/runs/..bad", "", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid run ID, got %d", rr.Code)
	}
	if rr := doRequest(srv, http.MethodGet, "/api/v1/batches/batch_missing", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown batch, got %d", rr.Code)
	}
}

func TestBatchRoutesDisabledWithoutStore(t *testing.T) {
	srv := newTestServer(t, Config{Evaluator: &stubEvaluator{}})
	if rr := doRequest(srv, http.MethodPost, "/api/v1/batches", `{"urls":["https://a"]}`, nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestBatchManagerEviction(t *testing.T) {
	m := NewBatchManager()
	m.SetMaxBatches(2)

	first := m.Create(1)
	m.Update(first.ID, func(b *Batch) { b.Status = BatchDone })
	running := m.Create(1)
	m.Update(running.ID, func(b *Batch) { b.Status = BatchRunning })
	third := m.Create(1)

	if m.Get(first.ID) != nil {
		t.Error("expected oldest finished batch to be evicted")
	}
	if m.Get(running.ID) == nil || m.Get(third.ID) == nil {
		t.Error("running and newest batches must be retained")
	}
	if m.Update("batch_missing", func(*Batch) {}) != nil {
		t.Error("Update on unknown batch should return nil")
	}
}

func TestBatchManagerListNewestFirst(t *testing.T) {
	m := NewBatchManager()
	a := m.Create(1)
	m.Update(a.ID, func(b *Batch) { b.CreatedAt = time.Now().Add(-time.Hour) })
	b := m.Create(1)

	list := m.List(10)
	if len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if got := m.List(1); len(got) != 1 {
		t.Errorf("limit ignored: %d", len(got))
	}
}

func TestGenerateID(t *testing.T) {
	id := generateID("batch")
	if !strings.HasPrefix(id, "batch_") || len(id) != len("batch_")+32 {
		t.Errorf("unexpected id %q", id)
	}
	if id == generateID("batch") {
		t.Error("expected unique IDs")
	}
}

// gateEvaluator answers fast.example at once and holds every other URL
// until the context ends.
type gateEvaluator struct {
	started chan string
}

func (g *gateEvaluator) Evaluate(ctx context.Context, rawURL string) evaluation.Result {
	if strings.Contains(rawURL, "fast") {
		return evaluation.Result{URL: rawURL, Score: 1, Findings: []evaluation.Finding{
			{Severity: evaluation.SeverityWarning, Message: "The website has no title or a suspiciously short one."},
		}}
	}
	g.started <- rawURL
	<-ctx.Done()
	return evaluation.Result{URL: rawURL, Findings: []evaluation.Finding{
		{Severity: evaluation.SeverityWarning, Message: "Unable to access the website."},
	}}
}

func TestBatchStoredWhenServerCloses(t *testing.T) {
	repo, err := jsonstore.NewResultRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultRepository: %v", err)
	}
	eval := &gateEvaluator{started: make(chan string, 4)}
	srv := newTestServer(t, Config{
		Evaluator: eval,
		Runs:      repo,
		Batch:     checker.Runner{Concurrency: 3},
	})

	rr := doRequest(srv, http.MethodPost, "/api/v1/batches",
		`{"urls":["https://fast.example","https://slow-1.example","https://slow-2.example"]}`, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	var created Batch
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-eval.started:
		case <-time.After(5 * time.Second):
			t.Fatal("slow URLs never started")
		}
	}
	// Let the fast evaluation settle before shutting down.
	time.Sleep(50 * time.Millisecond)
	srv.Close()

	done := waitForBatch(t, srv, created.ID)
	if done.Status != BatchError || done.Error != "interrupted by server shutdown" {
		t.Fatalf("unexpected batch status %s (%s)", done.Status, done.Error)
	}
	if done.RunID == "" {
		t.Fatal("interrupted batch should still reference its stored run")
	}
	if done.CancelledURLs != 2 {
		t.Errorf("CancelledURLs = %d, want 2", done.CancelledURLs)
	}

	run, err := repo.FindByID(context.Background(), done.RunID)
	if err != nil {
		t.Fatalf("stored run missing: %v", err)
	}
	if run.Status() != evaluation.RunStatusFailed {
		t.Errorf("run status = %s, want failed", run.Status())
	}
	results := run.Results()
	if len(results) != 1 || !strings.Contains(results[0].URL, "fast") {
		t.Fatalf("stored results = %+v, want only the finished URL", results)
	}
	if results[0].Score != 1 {
		t.Errorf("stored score = %d, want 1", results[0].Score)
	}
}

func TestServerMaxBatchesConfig(t *testing.T) {
	srv := newTestServer(t, Config{MaxBatches: 1})

	first := srv.batches.Create(1)
	srv.batches.Update(first.ID, func(b *Batch) { b.Status = BatchDone })
	srv.batches.Create(1)

	if srv.batches.Get(first.ID) != nil {
		t.Error("expected finished batch evicted with MaxBatches=1")
	}
}
