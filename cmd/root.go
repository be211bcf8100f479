package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/phishcheck/internal/shared/constants"
)

const envPrefix = "PHISHCHECK"

// AppContext carries the state every subcommand needs.
type AppContext struct {
	Logger     *zap.SugaredLogger
	ZapLogger  *zap.Logger
	Operator   string
	ResultsDir string
	Config     *CLIConfig
}

type appContextKey struct{}

var (
	cfgFile          string
	verbose          bool
	globalAppContext *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "phishcheck",
	Short: "Heuristic phishing-risk evaluation for URLs",
	Long: `phishcheck fetches a web page, inspects redirects, download links, the page
title and the age of the domain's TLS certificate, and reports a risk score
with a human-readable finding for every signal.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.ZapLogger != nil {
			_ = appCtx.ZapLogger.Sync()
		}
	},
}

// rootPersistentPreRunE is assigned in init to avoid an initialization cycle
// through applyConfigDefaults, which refers to rootCmd.
func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	applyConfigDefaults(cmd)

	resultsDir := viper.GetString("results_dir")
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	if abs, err := filepath.Abs(resultsDir); err == nil {
		resultsDir = abs
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appCtx := &AppContext{
		Logger:     logger.Sugar(),
		ZapLogger:  logger,
		Operator:   cliConfig.Defaults.Operator,
		ResultsDir: resultsDir,
		Config:     cliConfig,
	}
	storeAppContext(cmd, appCtx)

	appCtx.Logger.Debugw("configuration loaded",
		"config_file", viper.ConfigFileUsed(),
		"results_dir", resultsDir,
		"group_mode", cliConfig.Evaluation.GroupMode,
	)
	return nil
}

// initConfig loads the config file (if any) and binds PHISHCHECK_* variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".phishcheck")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine; a broken or missing explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// newLogger returns a production logger, or a development one in verbose mode.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
				return appCtx
			}
		}
	}
	return globalAppContext
}

func ensureResultsRoot(appCtx *AppContext) error {
	if err := os.MkdirAll(appCtx.ResultsDir, consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = rootPersistentPreRunE

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.phishcheck.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging and detailed output")
	flags.StringVarP(&cliConfig.Defaults.Operator, "operator", "o", cliConfig.Defaults.Operator, "operator name recorded in saved runs (or set via USER env)")
	flags.StringVar(&cliConfig.Evaluation.GroupMode, "group-mode", cliConfig.Evaluation.GroupMode, "domain relation: suffix or registrable")
	flags.IntVar(&cliConfig.Evaluation.ReferenceYear, "reference-year", 0, "year certificate ages are measured from (0 = current year)")
	flags.BoolVar(&cliConfig.Evaluation.ProbeOnFetchFailure, "probe-on-fetch-failure", false, "still probe the certificate when the page cannot be fetched")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}
