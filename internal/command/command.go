// Package command holds the process setup shared by the httpwatch commands and the commands
// themselves.
package command

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/tracing"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/internal/command/collect"
	"gitlab.com/gitlab-org/httpwatch/internal/command/commandargs"
	"gitlab.com/gitlab-org/httpwatch/internal/command/probe"
	"gitlab.com/gitlab-org/httpwatch/internal/command/readwriter"
	"gitlab.com/gitlab-org/httpwatch/internal/command/serve"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
	"gitlab.com/gitlab-org/httpwatch/internal/report"
)

const (
	defaultProbePath   = "/"
	defaultReportLabel = "httpwatch"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	BuildTime string
}

// Command is a single action run by the httpwatch binary.
type Command interface {
	Execute(ctx context.Context) error
}

// New returns the command selected by args.
func New(args *commandargs.Args, cfg *config.Config, set *client.Set, build BuildInfo, readWriter *readwriter.ReadWriter) (Command, error) {
	switch args.CommandType {
	case commandargs.Probe:
		return &probe.Command{Set: set, Path: args.Argument(0, defaultProbePath), ReadWriter: readWriter}, nil
	case commandargs.Report:
		cmd := &collect.Command{
			Collector:  set.Collector(),
			Label:      args.Argument(0, defaultReportLabel),
			ReadWriter: readWriter,
		}
		if cfg.ReportURL != "" {
			cmd.Publisher = report.NewPublisher(cfg.ReportURL)
		}
		return cmd, nil
	case commandargs.Serve:
		return &serve.Command{
			Config:    cfg,
			Set:       set,
			ProbePath: args.Argument(0, defaultProbePath),
			Version:   build.Version,
			BuildTime: build.BuildTime,
		}, nil
	}

	return nil, fmt.Errorf("%q: %w", args.CommandType, commandargs.ErrUnknownCommand)
}

// Setup initializes tracing from the configuration file and returns the context every other context
// of the process derives from. It carries the service name and a correlation id, taken from the
// CORRELATION_ID environment variable when set.
func Setup(serviceName string, cfg *config.Config) (context.Context, func()) {
	closer := tracing.Initialize(
		tracing.WithServiceName(serviceName),
		tracing.WithConnectionString(cfg.Tracing),
	)

	ctx, finished := tracing.ExtractFromEnv(context.Background())
	ctx = correlation.ContextWithClientName(ctx, serviceName)

	correlationID := os.Getenv("CORRELATION_ID")
	if correlationID == "" {
		correlationID = correlation.SafeRandomID()
	}
	ctx = correlation.ContextWithCorrelation(ctx, correlationID)

	return ctx, func() {
		finished()
		_ = closer.Close()
	}
}

// CheckForVersionFlag prints the version and exits when the only argument is -version or --version.
func CheckForVersionFlag(osArgs []string, version, buildTime string) {
	if len(osArgs) == 2 && (osArgs[1] == "-version" || osArgs[1] == "--version") {
		fmt.Printf("%s %s-%s\n", osArgs[0], version, buildTime)
		os.Exit(0)
	}
}
