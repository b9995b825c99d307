package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Labels  LabelsConfig  `yaml:"labels" mapstructure:"labels"`
	Blob    BlobConfig    `yaml:"blob" mapstructure:"blob"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Image   ImageConfig   `yaml:"image" mapstructure:"image"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the web interface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// CatalogConfig points at the image catalog file.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LabelsConfig selects the label store backend.
type LabelsConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// BlobConfig selects where images are read from and exports are written to.
type BlobConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"`
	Dir             string `yaml:"dir" mapstructure:"dir"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	// CredentialsJSON is an inline service account key, for deployments that
	// pass secrets through the environment rather than files
	CredentialsJSON string `yaml:"credentials_json" mapstructure:"credentials_json"`
}

// DefaultExportDir is the export destination used by the dir backend when
// none is configured
const DefaultExportDir = "exports"

// ExportConfig configures the derived table sync.
type ExportConfig struct {
	Destination string `yaml:"destination" mapstructure:"destination"`
	Format      string `yaml:"format" mapstructure:"format"`
	IncludeRaw  bool   `yaml:"include_raw" mapstructure:"include_raw"`
}

// AuthConfig holds the shared rater credential.
type AuthConfig struct {
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
	// LoginBurst attempts are allowed at once, refilling one per LoginIntervalSecs
	LoginBurst        int `yaml:"login_burst" mapstructure:"login_burst"`
	LoginIntervalSecs int `yaml:"login_interval_secs" mapstructure:"login_interval_secs"`
}

// SessionConfig configures rater sessions.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ImageConfig configures the image byte cache.
type ImageConfig struct {
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// TTL returns the session lifetime
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// CacheTTL returns how long fetched images stay in memory
func (c ImageConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// LoginInterval returns the refill interval of the login limiter
func (c AuthConfig) LoginInterval() time.Duration {
	return time.Duration(c.LoginIntervalSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WOUNDLABEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can see it on Unmarshal.
	v.SetDefault("server.port", 8888)
	v.SetDefault("catalog.path", "images.csv")
	v.SetDefault("labels.driver", "csv")
	v.SetDefault("labels.path", "labels.csv")
	v.SetDefault("blob.backend", "dir")
	v.SetDefault("blob.dir", "data")
	v.SetDefault("blob.credentials_file", "")
	v.SetDefault("blob.credentials_json", "")
	v.SetDefault("export.destination", "")
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.include_raw", false)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("auth.login_interval_secs", 2)
	v.SetDefault("session.ttl_minutes", 480)
	v.SetDefault("image.cache_ttl_minutes", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that depend on each other. An unset export
// destination falls back to DefaultExportDir for the dir backend; Drive has
// no sensible default folder, so it must be set explicitly.
func (c *Config) Validate() error {
	switch c.Blob.Backend {
	case "", "dir":
		if c.Export.Destination == "" {
			c.Export.Destination = DefaultExportDir
		}
	case "drive":
		if c.Export.Destination == "" {
			return errors.New("export.destination must be set to a Drive folder id when blob.backend is drive")
		}
	default:
		return fmt.Errorf("unsupported blob backend: %s (supported: dir, drive)", c.Blob.Backend)
	}
	return nil
}

// NewLogger builds a slog logger for cfg. Output goes to stderr and, when
// cfg.File is set, to a size-rotated file as well.
func NewLogger(cfg LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	return newLogger(out, cfg.Format, level)
}

func newLogger(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (supported: text, json)", format)
	}
}

// InitLogger installs the configured logger as the slog default.
func InitLogger(cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
