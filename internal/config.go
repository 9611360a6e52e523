package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the backend base URL including the /api prefix.
	DefaultAPIURL = "http://localhost:8000/api"

	// DefaultTimeout applies to every API call.
	DefaultTimeout = 30 * time.Second

	// DefaultHistoryLimit is the number of turns fetched by the flat history view.
	DefaultHistoryLimit = 50

	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds the client configuration
type Config struct {
	APIURL          string        `yaml:"api_url"`
	Timeout         time.Duration `yaml:"timeout"`
	StateDir        string        `yaml:"state_dir"`
	CredentialStore string        `yaml:"credential_store"` // "file" or "sqlite"
	HistoryLimit    int           `yaml:"history_limit"`
	RenderMarkdown  bool          `yaml:"render_markdown"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	stateDir := ".dietchat"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".dietchat")
	}
	return &Config{
		APIURL:          DefaultAPIURL,
		Timeout:         DefaultTimeout,
		StateDir:        stateDir,
		CredentialStore: StoreFile,
		HistoryLimit:    DefaultHistoryLimit,
		RenderMarkdown:  true,
	}
}

// DefaultConfigPath returns ~/.dietchat/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfig().StateDir, "config.yaml")
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (or the default location when path is empty), a .env file in the working
// directory and DIETCHAT_* environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			LogDebug("No config file at %s, using defaults", path)
		} else {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		LogWarn("Failed to load .env file: %v", err)
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &ConfigError{Field: path, Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	LogDebug("Loaded config from %s", path)
	return nil
}

// ApplyEnvOverrides applies DIETCHAT_* environment variables
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("DIETCHAT_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("DIETCHAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Field: "DIETCHAT_TIMEOUT", Err: err}
		}
		c.Timeout = d
	}
	if v := os.Getenv("DIETCHAT_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("DIETCHAT_CREDENTIAL_STORE"); v != "" {
		c.CredentialStore = v
	}
	return nil
}

// Validate checks the configuration and normalizes the API URL
func (c *Config) Validate() error {
	c.APIURL = strings.TrimSuffix(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return &ConfigError{Field: "api_url", Err: errors.New("must not be empty")}
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "api_url", Err: fmt.Errorf("invalid URL %q", c.APIURL)}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Err: fmt.Errorf("must be positive, got %s", c.Timeout)}
	}
	switch c.CredentialStore {
	case StoreFile, StoreSQLite:
	default:
		return &ConfigError{Field: "credential_store", Err: fmt.Errorf("unsupported store %q (supported: file, sqlite)", c.CredentialStore)}
	}
	if c.StateDir == "" {
		return &ConfigError{Field: "state_dir", Err: errors.New("must not be empty")}
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// OpenCredentialStore opens the credential store selected by the configuration
func (c *Config) OpenCredentialStore() (CredentialStore, error) {
	switch c.CredentialStore {
	case StoreSQLite:
		return OpenSQLiteStore(filepath.Join(c.StateDir, "state.db"))
	default:
		return NewFileStore(filepath.Join(c.StateDir, "credentials.yaml")), nil
	}
}
