package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/schema"
	"github.com/c360studio/codebook/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var embedded bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer codebook validation requests over NATS",
		Long: `Serve subscribes to the configured NATS subject and replies to each request
with a JSON validation report. Prometheus metrics are exposed on /metrics at
metrics.addr unless it is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return a.runServe(ctx, embedded)
		},
	}

	cmd.Flags().BoolVar(&embedded, "embedded", false, "Run an in-process NATS server instead of connecting to nats.url")

	return cmd
}

func (a *app) runServe(ctx context.Context, embedded bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	v, err := schema.Codebook()
	if err != nil {
		return fmt.Errorf("load codebook schema: %w", err)
	}

	svc, err := service.New(a.cfg, v, metrics, a.logger)
	if err != nil {
		return err
	}

	url := a.cfg.NATS.URL
	if embedded {
		ns, err := startEmbeddedNATS()
		if err != nil {
			return err
		}
		defer func() {
			ns.Shutdown()
			ns.WaitForShutdown()
		}()
		url = ns.ClientURL()
		a.logger.Info("Started embedded NATS server", "url", url)
	}

	a.logger.Info("Connecting to NATS", "url", url)
	nc, err := nats.Connect(url,
		nats.Name(appName),
		nats.Timeout(a.cfg.NATS.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return wrapNATSError(err, url)
	}
	defer nc.Close()

	if err := svc.Start(ctx, nc); err != nil {
		return err
	}

	var srv *http.Server
	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", "addr", addr, "error", err)
			}
		}()
		a.logger.Info("Serving metrics", "addr", addr)
	}

	a.logger.Info("Codebook service ready", "version", Version, "subject", a.cfg.NATS.Subject)

	// Block until shutdown signal
	<-ctx.Done()
	a.logger.Info("Received shutdown signal")

	if err := svc.Stop(); err != nil {
		a.logger.Warn("Failed to drain subscription", "error", err)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Failed to stop metrics server", "error", err)
		}
	}
	if err := nc.Drain(); err != nil {
		a.logger.Warn("Failed to drain NATS connection", "error", err)
	}

	a.logger.Info("Codebook service shutdown complete")
	return nil
}

func startEmbeddedNATS() (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start")
	}
	return ns, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server, run "codebook serve --embedded", or set NATS_URL
to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
