package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishcheck/internal/api"
	"github.com/khanhnv2901/phishcheck/internal/checker"
	jsonstore "github.com/khanhnv2901/phishcheck/internal/infrastructure/persistence/json"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run phishcheck as a REST API service",
	Long: `Serve the evaluator over HTTP.

  POST /api/v1/check_url   {"url": "..."}  evaluate one URL
  POST /check_url                          same, unversioned
  POST /api/v1/batches     {"urls": [...]} evaluate many URLs in the background
  GET  /api/v1/runs/{id}                   fetch a stored batch run
  GET  /api/v1/health                      liveness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")

		// The server always logs requests, even when the CLI logger is quiet.
		logger := appCtx.ZapLogger
		if !verbose {
			l, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			logger = l
			defer func() { _ = logger.Sync() }()
		}

		evalCfg, err := appCtx.Config.evaluatorConfig(logger)
		if err != nil {
			return err
		}

		if err := ensureResultsRoot(appCtx); err != nil {
			return err
		}
		repo, err := jsonstore.NewResultRepository(appCtx.ResultsDir)
		if err != nil {
			return err
		}

		server := api.NewServer(api.Config{
			Evaluator: checker.NewEvaluator(evalCfg),
			Runs:      repo,
			Batch: checker.Runner{
				Concurrency: appCtx.Config.Check.Concurrency,
				RateLimit:   appCtx.Config.Check.RateLimit,
			},
			AuthToken:   authToken,
			Logger:      logger,
			CORSOrigins: corsOrigins,
			RateLimit:   appCtx.Config.Serve.RateLimit,
			RateBurst:   appCtx.Config.Serve.RateBurst,
			MaxBatches:  appCtx.Config.Serve.MaxBatches,
		})
		defer server.Close()

		addr := appCtx.Config.Serve.Addr
		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		out := cmd.OutOrStdout()
		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s (results dir: %s)\n", colorInfo("→"), addr, appCtx.ResultsDir)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Serve.Addr, "addr", cliConfig.Serve.Addr, "Address for the API server")
	flags.String("auth-token", "", "Optional shared secret required in the X-Auth-Token header")
	flags.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	flags.StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	flags.IntVar(&cliConfig.Serve.RateLimit, "rate-limit", cliConfig.Serve.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&cliConfig.Serve.RateBurst, "rate-burst", cliConfig.Serve.RateBurst, "Rate limit burst size")
	flags.IntVar(&cliConfig.Serve.MaxBatches, "max-batches", cliConfig.Serve.MaxBatches, "Batch statuses kept in memory before finished ones are evicted")
}
