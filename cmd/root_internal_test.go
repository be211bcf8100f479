package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func TestStoreAndGetAppContext(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	cmd := &cobra.Command{Use: "root"}
	appCtx := &AppContext{Operator: "tester"}

	storeAppContext(cmd, appCtx)

	got := getAppContext(cmd)
	if got != appCtx {
		t.Fatalf("expected stored app context to be returned")
	}
}

func TestGetAppContextFallsBackToGlobal(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	globalAppContext = &AppContext{Operator: "global"}
	if got := getAppContext(&cobra.Command{Use: "child"}); got != globalAppContext {
		t.Fatalf("expected global app context fallback")
	}
}

func TestInitConfigMissingExplicitFile(t *testing.T) {
	original := cfgFile
	t.Cleanup(func() {
		cfgFile = original
		viper.Reset()
	})

	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := initConfig(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestInitConfigReadsFileAndEnv(t *testing.T) {
	original := cfgFile
	t.Cleanup(func() {
		cfgFile = original
		viper.Reset()
	})

	path := filepath.Join(t.TempDir(), "phishcheck.yaml")
	content := "evaluation:\n  group_mode: registrable\nresults_dir: /tmp/phish-results\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PHISHCHECK_CHECK_CONCURRENCY", "8")

	cfgFile = path
	if err := initConfig(); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if got := viper.GetString("evaluation.group_mode"); got != "registrable" {
		t.Fatalf("expected group mode from file, got %q", got)
	}
	if got := viper.GetInt("check.concurrency"); got != 8 {
		t.Fatalf("expected concurrency from env, got %d", got)
	}
}

func TestNewLogger(t *testing.T) {
	quiet, err := newLogger(false)
	if err != nil {
		t.Fatalf("newLogger(false): %v", err)
	}
	if quiet.Core().Enabled(zap.InfoLevel) {
		t.Fatal("default logger should suppress info logs")
	}

	loud, err := newLogger(true)
	if err != nil {
		t.Fatalf("newLogger(true): %v", err)
	}
	if !loud.Core().Enabled(zap.DebugLevel) {
		t.Fatal("verbose logger should enable debug logs")
	}
}
