package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishcheck/internal/checker"
	consts "github.com/khanhnv2901/phishcheck/internal/shared/constants"
)

const (
	defaultTimeoutSeconds     = 10
	defaultCertTimeoutSeconds = 10
	defaultResultsDir         = "./results"
	defaultServeAddr          = "127.0.0.1:8080"
	defaultServeRateLimit     = 10
	defaultServeRateBurst     = 20
	defaultServeMaxBatches    = 1000
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults   DefaultValues
	Evaluation EvaluationConfig
	Check      CheckRuntimeConfig
	Serve      ServeRuntimeConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs     int
	CertTimeoutSecs int
	UserAgent       string
	Operator        string
}

// EvaluationConfig tunes the heuristic pipeline.
type EvaluationConfig struct {
	GroupMode           string
	ReferenceYear       int
	ProbeOnFetchFailure bool
	InvalidURLFinding   bool
	MaxBodyBytes        int64
	MaxRedirects        int
}

// CheckRuntimeConfig consolidates flag-driven settings for the check command.
type CheckRuntimeConfig struct {
	Concurrency     int
	RateLimit       int
	TimeoutSecs     int
	JSON            bool
	Save            bool
	ProgressEnabled bool
}

// ServeRuntimeConfig holds API server settings.
type ServeRuntimeConfig struct {
	Addr       string
	RateLimit  int
	RateBurst  int
	MaxBatches int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs:     defaultTimeoutSeconds,
			CertTimeoutSecs: defaultCertTimeoutSeconds,
			UserAgent:       "phishcheck/" + Version,
			Operator:        detectOperatorFromEnv(),
		},
		Evaluation: EvaluationConfig{
			GroupMode:    string(checker.GroupModeSuffix),
			MaxBodyBytes: consts.DefaultMaxBodyBytes,
			MaxRedirects: consts.DefaultMaxRedirects,
		},
		Check: CheckRuntimeConfig{
			Concurrency: 1,
			RateLimit:   1,
			TimeoutSecs: defaultTimeoutSeconds,
		},
		Serve: ServeRuntimeConfig{
			Addr:       defaultServeAddr,
			RateLimit:  defaultServeRateLimit,
			RateBurst:  defaultServeRateBurst,
			MaxBatches: defaultServeMaxBatches,
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

// applyConfigDefaults merges config file and PHISHCHECK_* values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	if viper.IsSet("defaults.operator") {
		if op := viper.GetString("defaults.operator"); op != "" {
			cliConfig.Defaults.Operator = op
			setStringFlagIfUnset(cmd.Flags(), "operator", op)
		}
	}

	if viper.IsSet("defaults.timeout_secs") {
		v := viper.GetInt("defaults.timeout_secs")
		cliConfig.Defaults.TimeoutSecs = v
		applyIntDefault(checkCmd.Flags(), "timeout", v, func(v int) {
			cliConfig.Check.TimeoutSecs = v
		})
	}
	if viper.IsSet("defaults.cert_timeout_secs") {
		cliConfig.Defaults.CertTimeoutSecs = viper.GetInt("defaults.cert_timeout_secs")
	}
	if viper.IsSet("defaults.user_agent") {
		cliConfig.Defaults.UserAgent = viper.GetString("defaults.user_agent")
	}

	if viper.IsSet("evaluation.group_mode") {
		setStringFlagIfUnset(rootCmd.PersistentFlags(), "group-mode", viper.GetString("evaluation.group_mode"))
	}
	if viper.IsSet("evaluation.reference_year") {
		applyIntDefault(rootCmd.PersistentFlags(), "reference-year", viper.GetInt("evaluation.reference_year"), func(v int) {
			cliConfig.Evaluation.ReferenceYear = v
		})
	}
	if viper.IsSet("evaluation.probe_on_fetch_failure") {
		applyBoolDefault(rootCmd.PersistentFlags(), "probe-on-fetch-failure", viper.GetBool("evaluation.probe_on_fetch_failure"), func(v bool) {
			cliConfig.Evaluation.ProbeOnFetchFailure = v
		})
	}
	if viper.IsSet("evaluation.invalid_url_finding") {
		cliConfig.Evaluation.InvalidURLFinding = viper.GetBool("evaluation.invalid_url_finding")
	}
	if viper.IsSet("evaluation.max_body_bytes") {
		cliConfig.Evaluation.MaxBodyBytes = viper.GetInt64("evaluation.max_body_bytes")
	}
	if viper.IsSet("evaluation.max_redirects") {
		cliConfig.Evaluation.MaxRedirects = viper.GetInt("evaluation.max_redirects")
	}

	if viper.IsSet("check.concurrency") {
		applyIntDefault(checkCmd.Flags(), "concurrency", viper.GetInt("check.concurrency"), func(v int) {
			cliConfig.Check.Concurrency = v
		})
	}
	if viper.IsSet("check.rate_limit") {
		applyIntDefault(checkCmd.Flags(), "rate-limit", viper.GetInt("check.rate_limit"), func(v int) {
			cliConfig.Check.RateLimit = v
		})
	}

	if viper.IsSet("serve.addr") {
		setStringFlagIfUnset(serveCmd.Flags(), "addr", viper.GetString("serve.addr"))
	}
	if viper.IsSet("serve.rate_limit") {
		applyIntDefault(serveCmd.Flags(), "rate-limit", viper.GetInt("serve.rate_limit"), func(v int) {
			cliConfig.Serve.RateLimit = v
		})
	}
	if viper.IsSet("serve.rate_burst") {
		applyIntDefault(serveCmd.Flags(), "rate-burst", viper.GetInt("serve.rate_burst"), func(v int) {
			cliConfig.Serve.RateBurst = v
		})
	}
	if viper.IsSet("serve.max_batches") {
		applyIntDefault(serveCmd.Flags(), "max-batches", viper.GetInt("serve.max_batches"), func(v int) {
			cliConfig.Serve.MaxBatches = v
		})
	}
}

// evaluatorConfig translates the runtime config for checker.NewEvaluator.
func (c *CLIConfig) evaluatorConfig(logger *zap.Logger) (checker.Config, error) {
	mode, err := checker.ParseGroupMode(c.Evaluation.GroupMode)
	if err != nil {
		return checker.Config{}, err
	}
	if c.Evaluation.ReferenceYear < 0 {
		return checker.Config{}, fmt.Errorf("reference year must not be negative, got %d", c.Evaluation.ReferenceYear)
	}

	return checker.Config{
		FetchTimeout:        secondsOrDefault(c.Defaults.TimeoutSecs, consts.DefaultFetchTimeout),
		CertTimeout:         secondsOrDefault(c.Defaults.CertTimeoutSecs, consts.DefaultCertTimeout),
		MaxBodyBytes:        c.Evaluation.MaxBodyBytes,
		MaxRedirects:        c.Evaluation.MaxRedirects,
		UserAgent:           c.Defaults.UserAgent,
		GroupMode:           mode,
		ReferenceYear:       c.Evaluation.ReferenceYear,
		ProbeOnFetchFailure: c.Evaluation.ProbeOnFetchFailure,
		InvalidURLFinding:   c.Evaluation.InvalidURLFinding,
		Logger:              logger,
	}, nil
}

func secondsOrDefault(secs int, fallback time.Duration) time.Duration {
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
