// Package serve runs the report endpoint and the monitoring endpoint until the context is canceled.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/fields"
	"gitlab.com/gitlab-org/labkit/monitoring"
	"gitlab.com/gitlab-org/labkit/v2/log"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
	"gitlab.com/gitlab-org/httpwatch/internal/report"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Command serves reports on Config.ReportListen. Requests to /probe probe every client; the entries
// they record are collected under the "/probe" label.
type Command struct {
	Config    *config.Config
	Set       *client.Set
	ProbePath string
	Version   string
	BuildTime string

	// Listener overrides Config.ReportListen.
	Listener net.Listener
}

// Handler returns the routes of the report endpoint.
func (c *Command) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return correlation.InjectCorrelationID(next, correlation.WithPropagation(), correlation.WithSetResponseHeader())
	})

	r.Mount("/report", report.NewHandler(c.Set.Collector()))
	r.With(c.Set.Collector().Middleware).Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		results := c.Set.Probe(r.Context(), c.ProbePath)

		status := http.StatusOK
		for _, result := range results {
			if !result.Healthy() {
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	return r
}

// Execute blocks until ctx is canceled or the server fails.
func (c *Command) Execute(ctx context.Context) error {
	logger := log.New()

	if c.Config.MonitoringListen != "" {
		c.startMonitoring()
	}

	listener := c.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", c.Config.ReportListen)
		if err != nil {
			return err
		}
	}

	server := &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	logger.InfoContext(ctx, "serving reports", slog.String("address", listener.Addr().String()))

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (c *Command) startMonitoring() {
	go func() {
		err := monitoring.Start(
			monitoring.WithListenerAddress(c.Config.MonitoringListen),
			monitoring.WithBuildInformation(c.Version, c.BuildTime),
		)
		log.New().Error("monitoring service raised an error", slog.String(
			fields.ErrorMessage, err.Error(),
		))
	}()
}
