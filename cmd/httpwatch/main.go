// Package main implements the httpwatch binary: it assembles the configured clients, probes them and
// reports what their pipelines recorded.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"gitlab.com/gitlab-org/labkit/fields"
	"gitlab.com/gitlab-org/labkit/v2/log"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/command"
	"gitlab.com/gitlab-org/httpwatch/internal/command/commandargs"
	"gitlab.com/gitlab-org/httpwatch/internal/command/readwriter"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
	processlog "gitlab.com/gitlab-org/httpwatch/internal/logger"
)

var (
	configDir = flag.String("config-dir", ".", "The directory the config is in")

	// Version is the current version of httpwatch
	Version = "(unknown version)" // Set at build time in the Makefile
	// BuildTime signifies the time the binary was build
	BuildTime = "19700101.000000" // Set at build time in the Makefile
)

func main() {
	command.CheckForVersionFlag(os.Args, Version, BuildTime)
	flag.Parse()

	os.Exit(run())
}

func run() int {
	readWriter := readwriter.Std()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(readWriter.ErrOut, "configuration error: %v\n", err)
		return 1
	}

	logCloser := processlog.ConfigureLogger(cfg)
	defer func() { _ = logCloser.Close() }()

	ctx, finished := command.Setup("httpwatch", cfg)
	defer finished()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New()

	args, err := commandargs.Parse(flag.Args())
	if err != nil {
		logger.ErrorContext(ctx, "invalid arguments", slog.String(fields.ErrorMessage, err.Error()))
		return 1
	}

	set, err := client.NewSet(cfg,
		client.WithCollector(collector.New(cfg.SlowResponseThreshold())),
		client.WithTracer(opentracing.GlobalTracer()),
	)
	if err != nil {
		logger.ErrorContext(ctx, "failed to assemble clients", slog.String(fields.ErrorMessage, err.Error()))
		return 1
	}

	cmd, err := command.New(args, cfg, set, command.BuildInfo{Version: Version, BuildTime: BuildTime}, readWriter)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create command", slog.String(fields.ErrorMessage, err.Error()))
		return 1
	}

	ctx = log.WithFields(ctx, slog.String("command", string(args.CommandType)))
	if err := cmd.Execute(ctx); err != nil {
		logger.ErrorContext(ctx, "command failed", slog.String(fields.ErrorMessage, err.Error()))
		fmt.Fprintf(readWriter.ErrOut, "%v\n", err)
		return 1
	}

	return 0
}

func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.NewFromDir(dir)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.OverrideFromEnvironment(); err != nil {
		return nil, err
	}

	if err := cfg.IsSane(); err != nil {
		return nil, err
	}

	return cfg, nil
}

