// Package config loads and validates the httpwatch configuration file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

const (
	configFile = "config.yml"

	defaultLogFormat        = "text"
	defaultLogLevel         = "info"
	defaultRetryWaitMinimum = time.Second
	defaultRetryWaitMaximum = 15 * time.Second
	defaultRetryMax         = 2
)

var (
	// ErrNoClients is returned when the configuration declares no client.
	ErrNoClients = errors.New("at least one client must be configured")
	// ErrUnknownLogMode is returned for a logging value that is neither a boolean nor a mode name.
	ErrUnknownLogMode = telemetry.ErrUnknownDetailMode
	// ErrMultipleDefaultClients is returned when more than one client is marked as default.
	ErrMultipleDefaultClients = errors.New("only one client can be the default client")
)

// RetryConfig configures the retries of a client.
type RetryConfig struct {
	Max     *int          `yaml:"max" validate:"omitempty,gte=0"`
	WaitMin time.Duration `yaml:"wait_min" validate:"gte=0"`
	WaitMax time.Duration `yaml:"wait_max" validate:"gte=0"`
}

// ClientConfig configures a single named client.
type ClientConfig struct {
	BaseURL            string            `yaml:"base_url" validate:"required"`
	DefaultClient      bool              `yaml:"default_client"`
	Lazy               bool              `yaml:"lazy"`
	Logging            *LogMode          `yaml:"logging"`
	Middleware         MiddlewareList    `yaml:"middleware"`
	ReadTimeoutSeconds uint64            `yaml:"read_timeout"`
	CAFile             string            `yaml:"ca_file"`
	CAPath             string            `yaml:"ca_path"`
	HTTPErrors         bool              `yaml:"http_errors"`
	Headers            map[string]string `yaml:"headers"`
	UserAgent          string            `yaml:"user_agent"`
	User               string            `yaml:"user"`
	Password           string            `yaml:"password"`
	// SecretFilePath is only for parsing. Application code should always use Secret.
	SecretFilePath string      `yaml:"secret_file"`
	Secret         string      `yaml:"secret"`
	Retry          RetryConfig `yaml:"retry"`
}

// Config is the root of the configuration file.
type Config struct {
	RootDir          string                   `yaml:"-"`
	LogFile          string                   `yaml:"log_file"`
	LogFormat        string                   `yaml:"log_format" validate:"omitempty,oneof=json text"`
	LogLevel         string                   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Logging          *bool                    `yaml:"logging"`
	Profiling        bool                     `yaml:"profiling"`
	Tracing          string                   `yaml:"tracing"`
	SlowResponseTime int                      `yaml:"slow_response_time" validate:"gte=0"`
	MonitoringListen string                   `yaml:"monitoring_listen"`
	ReportListen     string                   `yaml:"report_listen"`
	ReportURL        string                   `yaml:"report_url" validate:"omitempty,url"`
	Clients          map[string]*ClientConfig `yaml:"clients" validate:"dive"`
}

// NewFromDir returns a new config given a root directory. It looks for the config file name in the
// given directory and reads the config from it. It doesn't apply any defaults.
func NewFromDir(dir string) (*Config, error) {
	return NewFromFile(filepath.Join(dir, configFile))
}

// NewFromFile reads a new Config instance from the given file path. It doesn't apply any defaults.
func NewFromFile(path string) (*Config, error) {
	configBytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	cfg := &Config{RootDir: filepath.Dir(path)}
	if err := parseConfig(configBytes, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

func parseConfig(configBytes []byte, cfg *Config) error {
	if err := yaml.Unmarshal(configBytes, cfg); err != nil {
		return err
	}

	for name, client := range cfg.Clients {
		if client == nil {
			return fmt.Errorf("client %q: empty configuration", name)
		}

		if client.BaseURL != "" {
			unescapedURL, err := url.PathUnescape(client.BaseURL)
			if err != nil {
				return fmt.Errorf("client %q: %w", name, err)
			}
			client.BaseURL = unescapedURL
		}

		if err := parseSecret(cfg.RootDir, client); err != nil {
			return fmt.Errorf("client %q: %w", name, err)
		}
	}

	return nil
}

func parseSecret(rootDir string, client *ClientConfig) error {
	// The secret was parsed from yaml no need to read another file
	if client.Secret != "" || client.SecretFilePath == "" {
		return nil
	}

	if !filepath.IsAbs(client.SecretFilePath) {
		client.SecretFilePath = filepath.Join(rootDir, client.SecretFilePath)
	}

	secretFileContent, err := os.ReadFile(filepath.Clean(client.SecretFilePath))
	if err != nil {
		return err
	}
	client.Secret = strings.TrimSpace(string(secretFileContent))

	return nil
}

// ApplyDefaults fills in every setting left empty.
func (cfg *Config) ApplyDefaults() {
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Logging == nil {
		enabled := true
		cfg.Logging = &enabled
	}
	if len(cfg.LogFile) > 0 && !filepath.IsAbs(cfg.LogFile) && cfg.RootDir != "" {
		cfg.LogFile = filepath.Join(cfg.RootDir, cfg.LogFile)
	}

	for _, client := range cfg.Clients {
		if client.Retry.Max == nil {
			retryMax := defaultRetryMax
			client.Retry.Max = &retryMax
		}
		if client.Retry.WaitMin == 0 {
			client.Retry.WaitMin = defaultRetryWaitMinimum
		}
		if client.Retry.WaitMax == 0 {
			client.Retry.WaitMax = defaultRetryWaitMaximum
		}
	}
}

// OverrideFromEnvironment applies the HTTPWATCH_* environment variables.
func (cfg *Config) OverrideFromEnvironment() error {
	if logFormat := os.Getenv("HTTPWATCH_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if logLevel := os.Getenv("HTTPWATCH_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if slowResponseTime := os.Getenv("HTTPWATCH_SLOW_RESPONSE_TIME"); slowResponseTime != "" {
		value, err := strconv.Atoi(slowResponseTime)
		if err != nil {
			return fmt.Errorf("HTTPWATCH_SLOW_RESPONSE_TIME: %w", err)
		}
		cfg.SlowResponseTime = value
	}

	return nil
}

// IsSane checks if the given config fulfills the minimum requirements to be able to run.
// Any error returned by this function should be a startup error. On the other hand
// if this function returns nil, this doesn't guarantee the config will work, but it's
// at least worth a try.
func (cfg *Config) IsSane() error {
	if len(cfg.Clients) == 0 {
		return ErrNoClients
	}

	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	defaults := 0
	for _, name := range cfg.ClientNames() {
		client := cfg.Clients[name]

		baseURL, err := url.Parse(client.BaseURL)
		if err != nil {
			return fmt.Errorf("client %q: invalid base_url: %w", name, err)
		}
		if !slices.Contains([]string{"http", "https", "http+unix"}, baseURL.Scheme) {
			return fmt.Errorf("client %q: unsupported base_url scheme %q", name, baseURL.Scheme)
		}

		if client.Retry.WaitMax < client.Retry.WaitMin {
			return fmt.Errorf("client %q: retry wait_max is lower than wait_min", name)
		}

		if client.DefaultClient {
			defaults++
		}
	}

	if defaults > 1 {
		return ErrMultipleDefaultClients
	}

	return nil
}

// ClientNames returns the configured client names, sorted.
func (cfg *Config) ClientNames() []string {
	names := make([]string, 0, len(cfg.Clients))
	for name := range cfg.Clients {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// DefaultClientName returns the client marked as default. A single configured client is the default
// one even when not marked.
func (cfg *Config) DefaultClientName() string {
	for _, name := range cfg.ClientNames() {
		if cfg.Clients[name].DefaultClient {
			return name
		}
	}

	if len(cfg.Clients) == 1 {
		return cfg.ClientNames()[0]
	}

	return ""
}

// LoggingMode returns how much the named client records. Clients without their own setting follow
// the global logging switch.
func (cfg *Config) LoggingMode(name string) telemetry.DetailMode {
	if cfg.Logging != nil && !*cfg.Logging {
		return telemetry.DetailNone
	}

	if client, ok := cfg.Clients[name]; ok && client.Logging != nil {
		return client.Logging.Mode()
	}

	return telemetry.DetailRequestAndResponse
}

// SlowResponseThreshold returns the slow response threshold in seconds.
func (cfg *Config) SlowResponseThreshold() float64 {
	return float64(cfg.SlowResponseTime) / 1000
}
