package config

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/location"
)

const (
	// ConfigName is the base name of the configuration file. The
	// extension selects the format: .json, .yaml or .yml.
	ConfigName = "deskroute"

	// EnvPrefix prefixes environment overrides, e.g. DESKROUTE_SERVER_PORT.
	EnvPrefix = "DESKROUTE"

	// DefaultPort is the default server port.
	DefaultPort = 8000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultBootSource is the default boot document path.
	DefaultBootSource = "boot.json"
)

// configExtensions are probed in order by Load.
var configExtensions = []string{".json", ".yaml", ".yml"}

// Config represents the complete deskroute configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `mapstructure:"server"`

	// Router contains per-session router configuration.
	Router RouterConfig `mapstructure:"router"`

	// Boot contains boot document configuration.
	Boot BootConfig `mapstructure:"boot"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `mapstructure:"tracing"`

	// Log contains logging configuration.
	Log LogConfig `mapstructure:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RouterConfig contains router settings.
type RouterConfig struct {
	// Mode is "path" (/app/...) or "hash" (#...).
	Mode string `mapstructure:"mode"`

	// SettleDelay is how long a navigation waits before signalling.
	SettleDelay time.Duration `mapstructure:"settleDelay"`
}

// BootConfig contains boot document settings.
type BootConfig struct {
	// Source is a file path or an s3://bucket/key URL.
	Source string `mapstructure:"source"`

	// Watch reloads a file source when it changes.
	Watch bool `mapstructure:"watch"`

	// S3Region is the AWS region for s3:// sources.
	S3Region string `mapstructure:"s3Region"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TracerName string `mapstructure:"tracerName"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`

	// Format is text or json.
	Format string `mapstructure:"format"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Router: RouterConfig{
			Mode:        location.ModePath.String(),
			SettleDelay: 100 * time.Millisecond,
		},
		Boot: BootConfig{
			Source: DefaultBootSource,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "deskroute",
		},
		Tracing: TracingConfig{
			Enabled:    true,
			TracerName: "deskroute",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// deskroute.json, deskroute.yaml or deskroute.yml; when none exists the
// defaults are used. Environment overrides apply either way.
func Load(dir string) (*Config, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(dir, ConfigName+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return load(newViper(), "")
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) || stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.New(errors.CodeConfigUnreadable).
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return nil, errors.New(errors.CodeConfigUnreadable).
			WithDetail("Failed to parse " + filepath.Base(path)).
			WithSuggestion("Check that the file is valid " + strings.TrimPrefix(filepath.Ext(path), ".")).
			Wrap(err)
	}
	return load(v, path)
}

// newViper returns a viper instance seeded with the defaults and the
// environment overrides.
func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range New().settings() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper, path string) (*Config, error) {
	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.CodeConfigUnreadable).Wrap(err)
	}
	cfg.configPath = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// settings flattens the configuration into viper keys.
func (c *Config) settings() map[string]any {
	return map[string]any{
		"server.host":        c.Server.Host,
		"server.port":        c.Server.Port,
		"router.mode":        c.Router.Mode,
		"router.settleDelay": c.Router.SettleDelay.String(),
		"boot.source":        c.Boot.Source,
		"boot.watch":         c.Boot.Watch,
		"boot.s3Region":      c.Boot.S3Region,
		"metrics.enabled":    c.Metrics.Enabled,
		"metrics.namespace":  c.Metrics.Namespace,
		"tracing.enabled":    c.Tracing.Enabled,
		"tracing.tracerName": c.Tracing.TracerName,
		"log.level":          c.Log.Level,
		"log.format":         c.Log.Format,
	}
}

// SaveTo writes the configuration to path; the extension selects the format.
func (c *Config) SaveTo(path string) error {
	v := viper.New()
	for key, value := range c.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.New(errors.CodeConfigUnreadable).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return c.invalid("server.port", "Port must be between 0 and 65535")
	}
	if _, err := location.ParseMode(c.Router.Mode); err != nil {
		return c.invalid("router.mode", `Routing mode must be "path" or "hash"`).Wrap(err)
	}
	if c.Router.SettleDelay < 0 {
		return c.invalid("router.settleDelay", "Settle delay must not be negative")
	}
	if strings.TrimSpace(c.Boot.Source) == "" {
		return c.invalid("boot.source", "A boot source is required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return c.invalid("log.level", "Log level must be debug, info, warn or error").Wrap(err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return c.invalid("log.format", `Log format must be "text" or "json"`)
	}
	return nil
}

func (c *Config) invalid(key, detail string) *errors.Error {
	err := errors.New(errors.CodeConfigInvalid).
		WithDetail(detail).
		WithSuggestion("Check " + key + " or the " + EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")) + " variable")
	if c.configPath != "" {
		err.Location = &errors.Location{File: c.configPath}
	}
	return err
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Mode returns the parsed routing mode.
func (c *Config) Mode() location.Mode {
	mode, _ := location.ParseMode(c.Router.Mode)
	return mode
}

// NewLogger builds a logger writing to w from the log settings.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, ext := range configExtensions {
		if _, err := os.Stat(filepath.Join(dir, ConfigName+ext)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find one holding a config file.
// It returns startDir itself when no ancestor has one.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Abs(startDir)
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration for the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
