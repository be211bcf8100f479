package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	"github.com/khanhnv2901/phishcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/phishcheck/internal/shared/errors"
	"github.com/khanhnv2901/phishcheck/internal/shared/security"
)

// runDTO is the data transfer object for JSON serialization
type runDTO struct {
	ID          string                 `json:"id"`
	Operator    string                 `json:"operator,omitempty"`
	StartedAt   string                 `json:"started_at"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Status      string                 `json:"status"`
	Metadata    evaluation.RunMetadata `json:"metadata"`
	Results     []evaluation.Result    `json:"results"`
}

// ResultRepository implements evaluation.Repository using one JSON document
// per run at <resultsDir>/<run-id>/results.json.
type ResultRepository struct {
	resultsDir string
	mu         sync.RWMutex
}

var _ evaluation.Repository = (*ResultRepository)(nil)

// NewResultRepository creates the results directory if needed.
func NewResultRepository(resultsDir string) (*ResultRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &ResultRepository{resultsDir: resultsDir}, nil
}

// Save persists a run with all its results. The document is written to a
// temporary file first so readers never observe a partial file.
func (r *ResultRepository) Save(ctx context.Context, run *evaluation.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runDir, err := security.RunDir(r.resultsDir, run.ID())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runDir, constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(toDTO(run), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	return writeFileAtomic(filepath.Join(runDir, constants.ResultsFilename), data)
}

// FindByID retrieves a run by its ID
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*evaluation.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	runDir, err := security.RunDir(r.resultsDir, id)
	if err != nil {
		return nil, err
	}

	run, err := loadFromFile(filepath.Join(runDir, constants.ResultsFilename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrRunNotFound, id)
	}
	return run, err
}

// List returns the IDs of stored runs. Run IDs embed their start time, so
// lexical order is chronological.
func (r *ResultRepository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || security.ValidateRunID(entry.Name()) != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.resultsDir, entry.Name(), constants.ResultsFilename)); err != nil {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Chmod(constants.DefaultFilePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set results permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close results: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

func loadFromFile(path string) (*evaluation.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dto runDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	return fromDTO(dto)
}

func toDTO(run *evaluation.Run) runDTO {
	dto := runDTO{
		ID:        run.ID(),
		Operator:  run.Operator(),
		StartedAt: run.StartedAt().Format(time.RFC3339Nano),
		Status:    string(run.Status()),
		Metadata:  run.Metadata(),
		Results:   run.Results(),
	}
	if !run.CompletedAt().IsZero() {
		dto.CompletedAt = run.CompletedAt().Format(time.RFC3339Nano)
	}
	return dto
}

func fromDTO(dto runDTO) (*evaluation.Run, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, dto.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: started_at: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	var completedAt time.Time
	if dto.CompletedAt != "" {
		completedAt, err = time.Parse(time.RFC3339Nano, dto.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: completed_at: %v", sharedErrors.ErrDeserializationFailed, err)
		}
	}

	results := dto.Results
	if results == nil {
		results = []evaluation.Result{}
	}

	return evaluation.ReconstructRun(
		dto.ID,
		dto.Operator,
		startedAt,
		completedAt,
		evaluation.RunStatus(dto.Status),
		results,
		dto.Metadata,
	), nil
}
