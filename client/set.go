package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/opentracing/opentracing-go"
	"golang.org/x/sync/errgroup"

	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
	"gitlab.com/gitlab-org/httpwatch/internal/events"
	"gitlab.com/gitlab-org/httpwatch/internal/formatter"
	"gitlab.com/gitlab-org/httpwatch/internal/middleware"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
	"gitlab.com/gitlab-org/httpwatch/internal/registry"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// Stage names of the structural middleware.
const (
	ProfileStage     = "profile"
	LogStage         = "log"
	RequestTimeStage = "request_time"
	FallbackLogStage = "fallback_log"
	EventsStage      = "events"
)

// Priorities of the built-in plugins. Higher priorities run first.
const (
	forwardedForPriority   = 40
	userAgentPriority      = 30
	defaultHeadersPriority = 20
	authPriority           = 10
)

const builtinSource = "httpwatch"

var (
	// ErrUnknownClient is returned when asking a Set for a client it does not hold.
	ErrUnknownClient = errors.New("unknown client")
	// ErrNoDefaultClient is returned when no client is the default one.
	ErrNoDefaultClient = errors.New("no default client configured")
)

type setOptions struct {
	registry       *registry.Registry
	collector      *collector.Collector
	dispatcher     events.Dispatcher
	tracer         opentracing.Tracer
	logFormatter   *formatter.Formatter
	fallbackFormat *formatter.Formatter
	httpOpts       []HTTPClientOpt
}

// SetOpt configures a Set.
type SetOpt func(*setOptions)

// WithRegistry adds the middleware registered in r to every client, subject to each client's filter.
func WithRegistry(r *registry.Registry) SetOpt {
	return func(o *setOptions) { o.registry = r }
}

// WithCollector collects the entries of every logging client into c.
func WithCollector(c *collector.Collector) SetOpt {
	return func(o *setOptions) { o.collector = c }
}

// WithDispatcher dispatches the transaction events of every client to d.
func WithDispatcher(d events.Dispatcher) SetOpt {
	return func(o *setOptions) { o.dispatcher = d }
}

// WithTracer sets the tracer used by the profile stage.
func WithTracer(tracer opentracing.Tracer) SetOpt {
	return func(o *setOptions) { o.tracer = tracer }
}

// WithFormatters sets the templates used for entry messages and for the fallback log.
func WithFormatters(logTemplate, fallbackTemplate string) SetOpt {
	return func(o *setOptions) {
		o.logFormatter = formatter.New(logTemplate)
		o.fallbackFormat = formatter.New(fallbackTemplate)
	}
}

// WithHTTPClientOpts applies opts to every client, after the configured settings.
func WithHTTPClientOpts(opts ...HTTPClientOpt) SetOpt {
	return func(o *setOptions) { o.httpOpts = append(o.httpOpts, opts...) }
}

type entry struct {
	once   sync.Once
	build  func() (*Client, error)
	client *Client
	err    error
}

func (e *entry) get() (*Client, error) {
	e.once.Do(func() { e.client, e.err = e.build() })
	return e.client, e.err
}

// Set holds every configured client.
type Set struct {
	clients     map[string]*entry
	names       []string
	defaultName string
	collector   *collector.Collector
	dispatcher  events.Dispatcher
}

// NewSet assembles the clients described by cfg. Configuration errors, unsupported base URLs
// included, are returned here. Lazy clients defer the construction of their transport, so a missing
// CA or client certificate file of a lazy client is only reported by its first Client call.
func NewSet(cfg *config.Config, opts ...SetOpt) (*Set, error) {
	o := &setOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.collector == nil {
		o.collector = collector.New(cfg.SlowResponseThreshold())
	}
	if o.dispatcher == nil {
		o.dispatcher = events.NewBus()
	}
	if o.logFormatter == nil {
		o.logFormatter = formatter.New(formatter.CLF)
	}
	if o.fallbackFormat == nil {
		o.fallbackFormat = formatter.New(formatter.Debug)
	}

	if len(cfg.Clients) == 0 {
		return nil, config.ErrNoClients
	}

	tags := registry.NewClientTags()
	s := &Set{
		clients:     make(map[string]*entry, len(cfg.Clients)),
		names:       cfg.ClientNames(),
		defaultName: cfg.DefaultClientName(),
		collector:   o.collector,
		dispatcher:  o.dispatcher,
	}

	for _, name := range s.names {
		clientCfg := cfg.Clients[name]

		if err := checkBaseURL(clientCfg.BaseURL); err != nil {
			return nil, fmt.Errorf("client %q: %w", name, err)
		}

		spec, err := registry.ParseFilterSpec(clientCfg.Middleware...)
		if err != nil {
			return nil, fmt.Errorf("client %q: %w", name, err)
		}
		if err := tags.Tag(name, spec); err != nil {
			return nil, err
		}

		plugins, err := clientPlugins(name, clientCfg, o.registry, tags)
		if err != nil {
			return nil, err
		}

		mode := cfg.LoggingMode(name)
		var logger telemetry.EntryLogger = telemetry.Discard
		if mode > telemetry.DetailNone {
			l := telemetry.NewLogger(mode)
			o.collector.Register(l)
			logger = l
		}

		a := &assembly{
			name:      name,
			cfg:       clientCfg,
			profiling: cfg.Profiling,
			logger:    logger,
			plugins:   plugins,
			opts:      o,
		}

		e := &entry{build: a.build}
		s.clients[name] = e

		if !clientCfg.Lazy {
			if _, err := e.get(); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

func clientPlugins(name string, cfg *config.ClientConfig, global *registry.Registry, tags *registry.ClientTags) ([]registry.Descriptor, error) {
	r := registry.New()

	builtins := []struct {
		enabled bool
		alias   string
		m       pipeline.Middleware
		prio    int
	}{
		{true, middleware.ForwardedForAlias, middleware.ForwardedFor(), forwardedForPriority},
		{true, middleware.UserAgentAlias, middleware.UserAgent(cfg.UserAgent), userAgentPriority},
		{len(cfg.Headers) > 0, middleware.DefaultHeadersAlias, middleware.DefaultHeaders(cfg.Headers), defaultHeadersPriority},
		{cfg.User != "" && cfg.Password != "", middleware.BasicAuthAlias, middleware.BasicAuth(cfg.User, cfg.Password), authPriority},
		{cfg.Secret != "", middleware.JWTAuthAlias, middleware.JWTAuth(cfg.Secret), authPriority},
	}

	for _, b := range builtins {
		if !b.enabled {
			continue
		}
		if err := r.Register(builtinSource+"."+b.alias, b.m, registry.Tag{Alias: b.alias, Priority: b.prio}); err != nil {
			return nil, fmt.Errorf("client %q: %w", name, err)
		}
	}

	for _, d := range global.Descriptors() {
		if err := r.Register(d.SourceID, d.Middleware, registry.Tag{Alias: d.Name, Priority: d.Priority}); err != nil {
			return nil, fmt.Errorf("client %q: %w", name, err)
		}
	}

	ordered, err := r.Ordered()
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", name, err)
	}

	return tags.Resolve(name, ordered)
}

type assembly struct {
	name      string
	cfg       *config.ClientConfig
	profiling bool
	logger    telemetry.EntryLogger
	plugins   []registry.Descriptor
	opts      *setOptions
}

func (a *assembly) build() (*Client, error) {
	var stages []string

	buildStack := func(terminal pipeline.Handler) (pipeline.Handler, error) {
		stack := pipeline.NewStack(terminal)
		if err := a.install(stack); err != nil {
			return nil, fmt.Errorf("client %q: %w", a.name, err)
		}

		stages = stack.Names()
		return stack.Resolve(), nil
	}

	httpOpts := []HTTPClientOpt{
		WithCA(a.cfg.CAFile, a.cfg.CAPath),
		WithHTTPErrors(a.cfg.HTTPErrors),
	}
	if a.cfg.Retry.Max != nil {
		httpOpts = append(httpOpts, WithHTTPRetryOpts(a.cfg.Retry.WaitMin, a.cfg.Retry.WaitMax, *a.cfg.Retry.Max))
	}
	httpOpts = append(httpOpts, a.opts.httpOpts...)

	httpClient, err := NewHTTPClient(a.cfg.BaseURL, a.cfg.ReadTimeoutSeconds, buildStack, httpOpts)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", a.name, err)
	}

	return &Client{
		name:       a.name,
		httpClient: httpClient,
		stages:     stages,
		logger:     a.logger,
	}, nil
}

// install adds the structural stages and the plugins to stack, from the innermost outwards:
// profile, log, request time and fallback log first, then the plugins, and the event stage in front.
func (a *assembly) install(stack *pipeline.Stack) error {
	if a.profiling {
		if err := stack.Push(middleware.NewProfile(a.opts.tracer, a.name), ProfileStage); err != nil {
			return err
		}
	}

	if a.logger != telemetry.Discard {
		if err := stack.Push(middleware.NewLog(a.logger, a.opts.logFormatter), LogStage); err != nil {
			return err
		}
		if err := stack.After(LogStage, middleware.NewRequestTime(a.name, a.logger, a.opts.collector), RequestTimeStage); err != nil {
			return err
		}
		if err := stack.Push(middleware.NewFallbackLog(a.opts.fallbackFormat), FallbackLogStage); err != nil {
			return err
		}
	}

	for _, d := range a.plugins {
		if err := stack.Push(d.Middleware, d.Name); err != nil {
			return err
		}
	}

	return stack.Unshift(middleware.NewEventDispatch(a.opts.dispatcher, a.name), EventsStage)
}

// Client returns the named client, building it first if it is lazy.
func (s *Set) Client(name string) (*Client, error) {
	e, ok := s.clients[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownClient)
	}

	return e.get()
}

// Default returns the default client.
func (s *Set) Default() (*Client, error) {
	if s.defaultName == "" {
		return nil, ErrNoDefaultClient
	}

	return s.Client(s.defaultName)
}

// Names returns the client names, sorted.
func (s *Set) Names() []string {
	return s.names
}

// Collector returns the collector the clients report to.
func (s *Set) Collector() *collector.Collector {
	return s.collector
}

// Dispatcher returns the dispatcher receiving the transaction events.
func (s *Set) Dispatcher() events.Dispatcher {
	return s.dispatcher
}

// Warmup builds every lazy client concurrently. Clients not started before ctx is done are left
// unbuilt and ctx's error is returned.
func (s *Set) Warmup(ctx context.Context) error {
	var g errgroup.Group

	for _, name := range s.names {
		e := s.clients[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			_, err := e.get()
			return err
		})
	}

	return g.Wait()
}
