package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"nodedesk/pkg/settings"
)

// Storage backends.
const (
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
)

// Backends lists the accepted storage.backend values.
var Backends = []string{BackendFile, BackendSQLite, BackendLevelDB}

// Config holds the application configuration.
type Config struct {
	DataDir string        `yaml:"data_dir"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Node    NodeConfig    `yaml:"node"`
	App     AppConfig     `yaml:"app"`
}

// StorageConfig selects where the settings record lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Record  string `yaml:"record"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific log file.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	// UIDir serves a built renderer bundle from disk when set.
	UIDir string `yaml:"ui_dir,omitempty"`
	// AllowedOrigins lists browser origins, besides loopback ones, that may
	// call the API.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// NodeConfig describes the node the client connects to by default.
type NodeConfig struct {
	DefaultURL   string   `yaml:"default_url"`
	InternalPort int      `yaml:"internal_port"`
	Locales      []string `yaml:"locales"`
	HealthMethod string   `yaml:"health_method"`
	Timeout      Duration `yaml:"timeout"`
	Retries      int      `yaml:"retries"`
	WatchEvery   Duration `yaml:"watch_every"`

	// Set from the environment only.
	E2E     bool   `yaml:"-"`
	MockURL string `yaml:"-"`
}

// AppConfig overrides build-time metadata.
type AppConfig struct {
	Version string `yaml:"version"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Storage: StorageConfig{
			Backend: BackendFile,
			Record:  settings.RecordName,
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/nodedesk.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address: "localhost:1750",
		},
		Node: NodeConfig{
			DefaultURL:   settings.DefaultURL,
			InternalPort: settings.DefaultInternalPort,
			Locales:      slices.Clone(settings.Locales),
			HealthMethod: "dna_epoch",
			Timeout:      Duration(10 * time.Second),
			Retries:      3,
			WatchEvery:   Duration(30 * time.Second),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var recordName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q: must be one of %v", c.Storage.Backend, Backends))
	}
	if !recordName.MatchString(c.Storage.Record) {
		errs = append(errs, fmt.Errorf("storage.record %q: must match %s", c.Storage.Record, recordName))
	}
	if c.Node.InternalPort < 1 || c.Node.InternalPort > 65535 {
		errs = append(errs, fmt.Errorf("node.internal_port %d: out of range", c.Node.InternalPort))
	}
	if len(c.Node.Locales) == 0 {
		errs = append(errs, errors.New("node.locales: at least one locale required"))
	}
	for _, o := range c.Server.AllowedOrigins {
		if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins %q: must be scheme://host[:port]", o))
		}
	}
	if c.App.Version != "" && !settings.ValidVersion(c.App.Version) {
		errs = append(errs, fmt.Errorf("app.version %q: not a semantic version", c.App.Version))
	}
	return errors.Join(errs...)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# nodedesk Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Environment overrides: NODEDESK_DATA_DIR, NODEDESK_LOG_LEVEL, NODE_ENV, NODE_MOCK

`)
	data = append(header, data...)

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: file, sqlite, leveldb\n${1}backend:"))

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: TRACE, DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
