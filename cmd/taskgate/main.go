// Command taskgate is the CLI front door for the task admission and
// priority dispatch core: it loads a pool configuration document, builds
// the executor hierarchy and matcher, and either validates the document or
// serves it behind the optional HTTP front door.
//
// Grounded on the teacher's cobra root-command shape
// (ollama-distributed/cmd/node/main.go) and its logrus-based startup/
// shutdown banner (ollama-distributed/cmd/distributed/main.go).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/khryptorgraphics/taskgate/internal/config"
	"github.com/khryptorgraphics/taskgate/internal/demo"
	"github.com/khryptorgraphics/taskgate/internal/httpapi"
	"github.com/khryptorgraphics/taskgate/internal/logging"
	"github.com/khryptorgraphics/taskgate/internal/observability"
	"github.com/khryptorgraphics/taskgate/pkg/dispatch"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskgate",
		Short:   "Policy-driven task admission and priority dispatch",
		Version: version,
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("taskgate: %v", err)
	}
}

func validateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and compile a pool configuration document without serving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(configPath)
			if err != nil {
				return err
			}
			hierarchy, _, err := config.Build(doc)
			if err != nil {
				return err
			}
			fmt.Printf("ok: pool %q (%s), root executor %q, %d leaf executor(s)\n",
				doc.Pool.Name, doc.Pool.SyntaxUsed, hierarchy.RootID(), len(hierarchy.LeafIDs()))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "taskgate.yaml", "path to the pool configuration document")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		configPath    string
		listen        string
		concurrency   int
		logLevel      string
		logFormat     string
		jwtSigningKey string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a pool configuration document behind the HTTP front door",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveOptions{
				configPath:    configPath,
				listen:        listen,
				concurrency:   concurrency,
				logLevel:      logLevel,
				logFormat:     logFormat,
				jwtSigningKey: jwtSigningKey,
			})
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "taskgate.yaml", "path to the pool configuration document")
	cmd.Flags().StringVar(&listen, "listen", "0.0.0.0:8080", "HTTP listen address")
	cmd.Flags().IntVar(&concurrency, "concurrency", 16, "max concurrently executing demo tasks")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	cmd.Flags().StringVar(&jwtSigningKey, "jwt-signing-key", "", "HS256 signing key required on /submit bearer tokens (disabled if empty)")
	return cmd
}

type serveOptions struct {
	configPath    string
	listen        string
	concurrency   int
	logLevel      string
	logFormat     string
	jwtSigningKey string
}

func runServe(opts serveOptions) error {
	startupLog := logrus.New()
	startupLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	startupLog.Infof("taskgate %s starting", version)

	doc, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hierarchy, matcher, err := config.Build(doc)
	if err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	startupLog.Infof("compiled pool %q: root executor %q, %d leaf executor(s)",
		doc.Pool.Name, hierarchy.RootID(), len(hierarchy.LeafIDs()))

	format := logging.FormatConsole
	if opts.logFormat == "json" {
		format = logging.FormatJSON
	}
	taskLog := logging.New(logging.Config{
		Level:          opts.logLevel,
		Format:         format,
		ServiceName:    "taskgate",
		ServiceVersion: version,
	})

	substrate := demo.NewWorkerPool(opts.concurrency, taskLog)
	defer substrate.Stop()

	pool := dispatch.NewPool(dispatch.Options{
		Hierarchy:  hierarchy,
		Matcher:    matcher,
		Dispatcher: substrate,
		Logger:     taskLog,
	})
	pool.Start()

	registry := prometheus.NewRegistry()
	registry.MustRegister(observability.NewCollector("taskgate", pool, hierarchy))

	server := httpapi.NewServer(httpapi.Config{
		Pool:            pool,
		Log:             taskLog,
		JWTSigningKey:   opts.jwtSigningKey,
		MetricsRegistry: registry,
	})

	httpServer := &http.Server{Addr: opts.listen, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		startupLog.Infof("http front door listening on %s", opts.listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigCh:
		startupLog.Info("shutdown signal received, draining")
	}

	pool.Shutdown()
	if !pool.AwaitTermination(30 * time.Second) {
		startupLog.Warn("timed out waiting for backlog to drain, discarding remainder")
		pool.ShutdownNow()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		startupLog.Errorf("http server shutdown error: %v", err)
	}

	startupLog.Info("taskgate stopped")
	return nil
}
