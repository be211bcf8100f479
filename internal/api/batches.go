package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	"github.com/khanhnv2901/phishcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
)

// Batch statuses.
const (
	BatchPending = "pending"
	BatchRunning = "running"
	BatchDone    = "done"
	BatchError   = "error"
)

const (
	defaultMaxBatchURLs = 100
	batchSaveTimeout    = 10 * time.Second
)

// Batch tracks an asynchronous multi-URL evaluation.
type Batch struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	TotalURLs     int        `json:"total_urls"`
	FlaggedURLs   int        `json:"flagged_urls"`
	CancelledURLs int        `json:"cancelled_urls,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	RunID         string     `json:"run_id,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// BatchRequest is the body accepted by POST /api/v1/batches.
type BatchRequest struct {
	URLs     []string `json:"urls"`
	Operator string   `json:"operator,omitempty"`
}

// BatchManager keeps the most recent batches in memory.
type BatchManager struct {
	mu         sync.RWMutex
	batches    map[string]*Batch
	maxBatches int
}

func NewBatchManager() *BatchManager {
	return &BatchManager{
		batches:    make(map[string]*Batch),
		maxBatches: 1000,
	}
}

func (m *BatchManager) Create(totalURLs int) *Batch {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &Batch{
		ID:        generateID("batch"),
		Status:    BatchPending,
		TotalURLs: totalURLs,
		CreatedAt: time.Now().UTC(),
	}
	m.batches[b.ID] = b
	m.evictLocked()

	out := *b
	return &out
}

// Update applies fn to the stored batch and returns a copy, or nil if the
// batch is unknown.
func (m *BatchManager) Update(id string, fn func(*Batch)) *Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil
	}
	fn(b)
	out := *b
	return &out
}

func (m *BatchManager) Get(id string) *Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.batches[id]; ok {
		out := *b
		return &out
	}
	return nil
}

// List returns up to limit batches, newest first.
func (m *BatchManager) List(limit int) []Batch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// SetMaxBatches configures the maximum number of batches to retain in memory
func (m *BatchManager) SetMaxBatches(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxBatches = max
		m.evictLocked()
	}
}

// evictLocked drops the oldest finished batches once over capacity.
// Pending and running batches are never evicted.
func (m *BatchManager) evictLocked() {
	excess := len(m.batches) - m.maxBatches
	if excess <= 0 {
		return
	}

	finished := make([]*Batch, 0, len(m.batches))
	for _, b := range m.batches {
		if b.Status == BatchDone || b.Status == BatchError {
			finished = append(finished, b)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})
	for i := 0; i < excess && i < len(finished); i++ {
		delete(m.batches, finished[i].ID)
	}
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("urls is required"))
		return
	}
	maxURLs := s.cfg.MaxBatchURLs
	if maxURLs <= 0 {
		maxURLs = defaultMaxBatchURLs
	}
	if len(urls) > maxURLs {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("at most %d urls per batch", maxURLs))
		return
	}
	if s.cfg.Evaluator == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("evaluator not configured"))
		return
	}

	batch := s.batches.Create(len(urls))
	go s.runBatch(batch.ID, req.Operator, urls)

	writeJSON(w, http.StatusAccepted, batch)
}

// runBatch evaluates urls with the configured Runner and stores the run.
// When the server closes mid-batch the evaluated part is still stored as a
// failed run; URLs that never finished are left out and counted.
func (s *Server) runBatch(batchID, operator string, urls []string) {
	logger := s.cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("batch_id", batchID))

	started := time.Now().UTC()
	s.batches.Update(batchID, func(b *Batch) {
		b.Status = BatchRunning
		b.StartedAt = &started
	})

	run := evaluation.NewRun(operator, started)
	runner := s.cfg.Batch
	results := runner.Run(s.ctx, urls, s.cfg.Evaluator, nil)

	cancelled := 0
	for _, res := range results {
		if res.Cancelled {
			cancelled++
			continue
		}
		_ = run.AddResult(res)
	}

	interrupted := s.ctx.Err() != nil || cancelled > 0
	if interrupted {
		_ = run.Fail(time.Now())
	} else {
		_ = run.Complete(time.Now())
	}

	// The server context may already be cancelled; storing what was
	// evaluated must not depend on it.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), batchSaveTimeout)
	defer cancel()
	saveErr := s.cfg.Runs.Save(saveCtx, run)

	finished := time.Now().UTC()
	s.batches.Update(batchID, func(b *Batch) {
		b.FinishedAt = &finished
		b.FlaggedURLs = run.Metadata().FlaggedURLs
		b.CancelledURLs = cancelled
		switch {
		case saveErr != nil:
			b.Status = BatchError
			b.Error = "failed to store results"
		case interrupted:
			b.Status = BatchError
			b.Error = "interrupted by server shutdown"
			b.RunID = run.ID()
		default:
			b.Status = BatchDone
			b.RunID = run.ID()
		}
	})

	if saveErr != nil {
		logger.Error("failed to store batch run", zap.Error(saveErr))
		return
	}
	logger.Info("batch finished",
		zap.String("run_id", run.ID()),
		zap.String("status", string(run.Status())),
		zap.Int("urls", len(urls)),
		zap.Int("cancelled", cancelled),
		zap.Int("flagged", run.Metadata().FlaggedURLs),
	)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.batches.List(25))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	b := s.batches.Get(chi.URLParam(r, "id"))
	if b == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("batch not found"))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.cfg.Runs.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// runResponse is the wire form of a stored run.
type runResponse struct {
	ID          string                 `json:"id"`
	Operator    string                 `json:"operator,omitempty"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at,omitzero"`
	Metadata    evaluation.RunMetadata `json:"metadata"`
	Results     []evaluation.Result    `json:"results"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.cfg.Runs.FindByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, sharedErrors.ErrInvalidRunID):
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrInvalidRunID)
		return
	case errors.Is(err, sharedErrors.ErrRunNotFound):
		s.writeError(w, r, http.StatusNotFound, sharedErrors.ErrRunNotFound)
		return
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		ID:          run.ID(),
		Operator:    run.Operator(),
		Status:      string(run.Status()),
		StartedAt:   run.StartedAt(),
		CompletedAt: run.CompletedAt(),
		Metadata:    run.Metadata(),
		Results:     run.Results(),
	})
}
