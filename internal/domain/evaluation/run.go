package evaluation

import (
	"errors"
	"fmt"
	"time"
)

// RunStatus tracks the lifecycle of a batch evaluation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunMetadata summarises a run for listings and reports.
type RunMetadata struct {
	TotalURLs     int    `json:"total_urls"`
	FlaggedURLs   int    `json:"flagged_urls"`
	HighestScore  int    `json:"highest_score"`
	GroupMode     string `json:"group_mode,omitempty"`
	ReferenceYear int    `json:"reference_year,omitempty"`
	Version       string `json:"version,omitempty"`
}

// Run is a batch of evaluations saved together. It owns its results.
type Run struct {
	id          string
	operator    string
	startedAt   time.Time
	completedAt time.Time
	status      RunStatus
	results     []Result
	metadata    RunMetadata
}

// NewRun starts a run identified by a timestamp-based ID.
func NewRun(operator string, startedAt time.Time) *Run {
	return &Run{
		id:        GenerateRunID(startedAt),
		operator:  operator,
		startedAt: startedAt.UTC(),
		status:    RunStatusRunning,
	}
}

// ReconstructRun rebuilds a run from persisted data.
func ReconstructRun(id, operator string, startedAt, completedAt time.Time, status RunStatus, results []Result, metadata RunMetadata) *Run {
	return &Run{
		id:          id,
		operator:    operator,
		startedAt:   startedAt,
		completedAt: completedAt,
		status:      status,
		results:     results,
		metadata:    metadata,
	}
}

// GenerateRunID formats t as a run identifier safe to use as a directory name.
func GenerateRunID(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("run-%s-%06d", t.Format("20060102T150405Z"), t.Nanosecond()/1000)
}

// AddResult appends a result and refreshes the summary counters.
func (r *Run) AddResult(res Result) error {
	if r.status != RunStatusRunning {
		return errors.New("cannot add results to a finished run")
	}
	r.results = append(r.results, res)
	r.metadata.TotalURLs = len(r.results)
	if res.Score > 0 {
		r.metadata.FlaggedURLs++
	}
	if res.Score > r.metadata.HighestScore {
		r.metadata.HighestScore = res.Score
	}
	return nil
}

// Complete marks the run as finished.
func (r *Run) Complete(at time.Time) error {
	if r.status != RunStatusRunning {
		return errors.New("run can only be completed from running status")
	}
	r.status = RunStatusCompleted
	r.completedAt = at.UTC()
	return nil
}

// Fail marks the run as aborted.
func (r *Run) Fail(at time.Time) error {
	if r.status == RunStatusCompleted {
		return errors.New("cannot fail a completed run")
	}
	r.status = RunStatusFailed
	r.completedAt = at.UTC()
	return nil
}

// SetConfiguration records the settings the run was evaluated with.
func (r *Run) SetConfiguration(groupMode string, referenceYear int, version string) {
	r.metadata.GroupMode = groupMode
	r.metadata.ReferenceYear = referenceYear
	r.metadata.Version = version
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Operator() string       { return r.operator }
func (r *Run) StartedAt() time.Time   { return r.startedAt }
func (r *Run) CompletedAt() time.Time { return r.completedAt }
func (r *Run) Status() RunStatus      { return r.status }
func (r *Run) Metadata() RunMetadata  { return r.metadata }

// Results returns a copy of the run's results in evaluation order.
func (r *Run) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}
