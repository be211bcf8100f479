package cmd

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
)

// newTestAppContext returns an AppContext rooted in a temp results directory.
// The shared cliConfig is restored when the test ends.
func newTestAppContext(t *testing.T) *AppContext {
	t.Helper()

	originalCfg := *cliConfig
	originalCtx := globalAppContext
	t.Cleanup(func() {
		*cliConfig = originalCfg
		globalAppContext = originalCtx
	})

	logger := zaptest.NewLogger(t)
	cfg := newCLIConfig()
	cfg.Check.ProgressEnabled = false
	return &AppContext{
		Logger:     logger.Sugar(),
		ZapLogger:  logger,
		Operator:   "tester",
		ResultsDir: filepath.Join(t.TempDir(), "results"),
		Config:     cfg,
	}
}

// scriptedChecker returns canned results keyed by URL.
type scriptedChecker struct {
	mu      sync.Mutex
	results map[string]evaluation.Result
	calls   []string
}

func (s *scriptedChecker) Evaluate(ctx context.Context, rawURL string) evaluation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rawURL)
	if res, ok := s.results[rawURL]; ok {
		res.URL = rawURL
		return res
	}
	acc := evaluation.NewAccumulator()
	acc.Note("Unable to access the website.")
	res := acc.Result()
	res.URL = rawURL
	return res
}

func cleanResult(domain string) evaluation.Result {
	acc := evaluation.NewAccumulator()
	acc.OK("The website title seems appropriate for its content.")
	res := acc.Result()
	res.Domain = domain
	return res
}

func flaggedResult(domain string) evaluation.Result {
	acc := evaluation.NewAccumulator()
	acc.Warn("The website redirects to an unrelated or suspicious external site.")
	acc.Warn("The website has no title or a suspiciously short one.")
	res := acc.Result()
	res.Domain = domain
	return res
}
