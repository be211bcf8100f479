package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/phishcheck/internal/checker"
	"github.com/khanhnv2901/phishcheck/internal/domain/evaluation"
	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
	consts "github.com/khanhnv2901/phishcheck/internal/shared/constants"
)

var checkURLFile string

var checkCmd = &cobra.Command{
	Use:   "check [url...]",
	Short: "Evaluate URLs for phishing risk",
	Long: `Evaluate one or more URLs. Each URL is fetched, its redirect target, download
links and title are inspected, and the age of the domain's TLS certificate is
estimated. Every signal produces a finding; warnings raise the risk score.

The exit status reflects usage and I/O errors only, never the risk score.`,
	Example: `  phishcheck check https://example.com
  phishcheck check --file urls.txt --concurrency 4 --save
  cat urls.txt | phishcheck check --file - --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		urls, err := collectURLs(args, checkURLFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return errNoURLs
		}

		cfg := *appCtx.Config
		cfg.Defaults.TimeoutSecs = cfg.Check.TimeoutSecs
		evalCfg, err := cfg.evaluatorConfig(appCtx.ZapLogger)
		if err != nil {
			return err
		}

		return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), appCtx, checker.NewEvaluator(evalCfg), urls)
	},
}

func init() {
	flags := checkCmd.Flags()
	flags.StringVarP(&checkURLFile, "file", "f", "", "read URLs from a file, one per line ('-' for stdin)")
	flags.BoolVar(&cliConfig.Check.JSON, "json", false, "print results as JSON")
	flags.BoolVar(&cliConfig.Check.Save, "save", false, "save results and telemetry under the results directory")
	flags.IntVar(&cliConfig.Check.Concurrency, "concurrency", cliConfig.Check.Concurrency, "maximum concurrent evaluations")
	flags.IntVar(&cliConfig.Check.RateLimit, "rate-limit", cliConfig.Check.RateLimit, "evaluations started per second (0 = unlimited)")
	flags.IntVar(&cliConfig.Check.TimeoutSecs, "timeout", cliConfig.Check.TimeoutSecs, "page fetch timeout in seconds")
	flags.BoolVar(&cliConfig.Check.ProgressEnabled, "progress", true, "show progress on stderr for multi-URL runs")
}

// collectURLs merges positional URLs with those read from file.
func collectURLs(args []string, file string, stdin io.Reader) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		if u := strings.TrimSpace(arg); u != "" {
			urls = append(urls, u)
		}
	}

	if file == "" {
		return urls, nil
	}

	if file == "-" {
		fromFile, err := readURLList(stdin, "<stdin>")
		if err != nil {
			return nil, err
		}
		return append(urls, fromFile...), nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, &URLFileError{Path: file, Err: err}
	}
	defer f.Close()

	fromFile, err := readURLList(f, file)
	if err != nil {
		return nil, err
	}
	return append(urls, fromFile...), nil
}

// readURLList reads one URL per line, skipping blank lines and # comments.
func readURLList(r io.Reader, name string) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		urls = append(urls, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, &URLFileError{Path: name, Line: line + 1, Err: err}
	}
	return urls, nil
}

func runCheck(ctx context.Context, out, errOut io.Writer, appCtx *AppContext, chk checker.Checker, urls []string) error {
	cfg := appCtx.Config.Check
	logger := appCtx.Logger

	runner := &checker.Runner{
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		Timeout: secondsOrDefault(cfg.TimeoutSecs, consts.DefaultFetchTimeout) +
			secondsOrDefault(appCtx.Config.Defaults.CertTimeoutSecs, consts.DefaultCertTimeout),
	}

	var progress *progressPrinter
	if cfg.ProgressEnabled && !cfg.JSON && len(urls) > 1 {
		progress = newProgressPrinter(errOut, len(urls))
		progress.Start()
	}

	auditFn := func(rawURL string, result evaluation.Result, duration float64) error {
		if progress != nil {
			progress.Increment(result.Score > 0, duration)
		}
		if logger != nil {
			logger.Debugw("url evaluated", "url", rawURL, "score", result.Score, "duration_s", duration)
		}
		return nil
	}

	start := time.Now()
	results := runner.Run(ctx, urls, chk, auditFn)
	elapsed := time.Since(start)

	if progress != nil {
		progress.Stop()
	}

	if cfg.JSON {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			printResult(out, res)
		}
	}

	if !cfg.Save {
		return nil
	}

	resultsPath, err := saveRun(ctx, appCtx, results, start, elapsed)
	if err != nil {
		return err
	}
	notice := out
	if cfg.JSON {
		notice = errOut
	}
	fmt.Fprintf(notice, "%s %s\n", colorInfo("Results:"), resultsPath)
	return nil
}

func printJSON(out io.Writer, results []evaluation.Result) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var payload interface{} = results
	if len(results) == 1 {
		payload = results[0]
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

func printResult(out io.Writer, res evaluation.Result) {
	header := res.URL
	if res.Domain != "" {
		header = fmt.Sprintf("%s (%s)", res.URL, res.Domain)
	}
	if res.Cancelled {
		fmt.Fprintf(out, "%s %s  %s\n", colorInfo("→"), header, colorWarn("not evaluated (cancelled)"))
		return
	}
	fmt.Fprintf(out, "%s %s  %s\n", colorInfo("→"), header, formatScore(res.Score))
	for _, f := range res.Findings {
		fmt.Fprintf(out, "  %s\n", formatFinding(f))
	}
}

// saveRun persists the batch as a run and appends a telemetry record.
func saveRun(ctx context.Context, appCtx *AppContext, results []evaluation.Result, started time.Time, elapsed time.Duration) (string, error) {
	if err := ensureResultsRoot(appCtx); err != nil {
		return "", err
	}

	repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
	if err != nil {
		return "", err
	}

	run := evaluation.NewRun(appCtx.Operator, started)
	run.SetConfiguration(appCtx.Config.Evaluation.GroupMode, appCtx.Config.Evaluation.ReferenceYear, Version)
	cancelled := false
	for _, res := range results {
		if res.Cancelled {
			cancelled = true
			continue
		}
		if err := run.AddResult(res); err != nil {
			return "", err
		}
	}
	finish := run.Complete
	if cancelled {
		finish = run.Fail
	}
	if err := finish(started.Add(elapsed)); err != nil {
		return "", err
	}

	if err := repo.Save(ctx, run); err != nil {
		return "", &SaveError{RunID: run.ID(), Err: err}
	}

	if err := recordTelemetry(appCtx.ResultsDir, run.ID(), "check", results, elapsed); err != nil && appCtx.Logger != nil {
		appCtx.Logger.Warnw("failed to record telemetry", "error", err)
	}

	return resolveResultsPath(appCtx.ResultsDir, run.ID(), consts.ResultsFilename)
}
