package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
)

func saveTestRun(t *testing.T, appCtx *AppContext) string {
	t.Helper()
	if err := ensureResultsRoot(appCtx); err != nil {
		t.Fatalf("ensureResultsRoot: %v", err)
	}
	repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
	if err != nil {
		t.Fatalf("NewResultRepository: %v", err)
	}

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := evaluation.NewRun("tester", started)
	bad := flaggedResult("bad.example")
	bad.URL = "https://bad.example"
	if err := run.AddResult(bad); err != nil {
		t.Fatalf("AddResult: %v", err)
	}
	if err := run.Complete(started.Add(time.Second)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := repo.Save(context.Background(), run); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return run.ID()
}

func TestRunsList(t *testing.T) {
	disableColor(t)
	appCtx := newTestAppContext(t)

	var out bytes.Buffer
	runsListCmd.SetOut(&out)
	t.Cleanup(func() { runsListCmd.SetOut(nil) })
	storeAppContext(runsListCmd, appCtx)

	if err := runsListCmd.RunE(runsListCmd, nil); err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out.String(), "No saved runs") {
		t.Fatalf("expected empty notice, got %q", out.String())
	}

	id := saveTestRun(t, appCtx)
	out.Reset()
	if err := runsListCmd.RunE(runsListCmd, nil); err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if strings.TrimSpace(out.String()) != id {
		t.Fatalf("expected %s, got %q", id, out.String())
	}
}

func TestRunsShow(t *testing.T) {
	disableColor(t)
	appCtx := newTestAppContext(t)
	id := saveTestRun(t, appCtx)

	var out bytes.Buffer
	runsShowCmd.SetOut(&out)
	t.Cleanup(func() { runsShowCmd.SetOut(nil) })
	storeAppContext(runsShowCmd, appCtx)

	if err := runsShowCmd.RunE(runsShowCmd, []string{id}); err != nil {
		t.Fatalf("runs show: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Run: " + id + " (completed)",
		"Operator: tester",
		"1 URLs, 1 flagged, highest score 2",
		"https://bad.example (bad.example)  score 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunsShowJSON(t *testing.T) {
	appCtx := newTestAppContext(t)
	id := saveTestRun(t, appCtx)

	if err := runsShowCmd.Flags().Set("json", "true"); err != nil {
		t.Fatalf("set json flag: %v", err)
	}
	t.Cleanup(func() { _ = runsShowCmd.Flags().Set("json", "false") })

	var out bytes.Buffer
	runsShowCmd.SetOut(&out)
	t.Cleanup(func() { runsShowCmd.SetOut(nil) })
	storeAppContext(runsShowCmd, appCtx)

	if err := runsShowCmd.RunE(runsShowCmd, []string{id}); err != nil {
		t.Fatalf("runs show: %v", err)
	}
	var results []map[string]any
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if len(results) != 1 || results[0]["url"] != "https://bad.example" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestRunsShowRejectsBadID(t *testing.T) {
	appCtx := newTestAppContext(t)
	storeAppContext(runsShowCmd, appCtx)

	if err := runsShowCmd.RunE(runsShowCmd, []string{"../escape"}); err == nil {
		t.Fatal("expected error for traversal run id")
	}
}
