package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/checker"
	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	consts "github.com/khanhnv2901/phishcheck/internal/shared/constants"
	"github.com/khanhnv2901/phishcheck/internal/shared/security"
)

type telemetryRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	Command           string    `json:"command"`
	RunID             string    `json:"run_id,omitempty"`
	URLCount          int       `json:"url_count"`
	FlaggedCount      int       `json:"flagged_count"`
	UnreachableCount  int       `json:"unreachable_count"`
	FlagRate          float64   `json:"flag_rate"`
	DurationSeconds   float64   `json:"duration_seconds"`
	AvgDurationPerURL float64   `json:"avg_duration_per_url"`
}

// recordTelemetry appends one JSON line summarising a batch to
// <results_dir>/telemetry.jsonl.
func recordTelemetry(resultsDir, runID, command string, results []evaluation.Result, duration time.Duration) error {
	flagged, unreachable := summarizeResults(results)
	total := len(results)

	flagRate := 0.0
	avgDuration := 0.0
	if total > 0 {
		flagRate = (float64(flagged) / float64(total)) * 100
		avgDuration = duration.Seconds() / float64(total)
	}

	record := telemetryRecord{
		Timestamp:         time.Now().UTC(),
		Command:           command,
		RunID:             runID,
		URLCount:          total,
		FlaggedCount:      flagged,
		UnreachableCount:  unreachable,
		FlagRate:          flagRate,
		DurationSeconds:   duration.Seconds(),
		AvgDurationPerURL: avgDuration,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath, err := security.ResolveWithin(resultsDir, consts.TelemetryFilename)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

// summarizeResults counts flagged URLs (score above zero) and URLs whose
// page could not be fetched.
func summarizeResults(results []evaluation.Result) (flagged, unreachable int) {
	for _, r := range results {
		if r.Score > 0 {
			flagged++
		}
		for _, f := range r.Findings {
			if f.Message == checker.MsgUnreachable {
				unreachable++
				break
			}
		}
	}
	return flagged, unreachable
}
