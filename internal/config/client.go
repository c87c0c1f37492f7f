package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPollInterval and MaxPollInterval bound how stale a client view may get.
	MinPollInterval = 15 * time.Second
	MaxPollInterval = 30 * time.Second

	defaultTickInterval   = time.Second
	defaultStorageTimeout = 10 * time.Second
)

// ClientConfig holds the CLI settings and session stored in ~/.modtracker/config.yaml.
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	AccessToken    string        `yaml:"access_token,omitempty"`
	RefreshToken   string        `yaml:"refresh_token,omitempty"`
	UserID         string        `yaml:"user_id,omitempty"`
	Username       string        `yaml:"username,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	StorageTimeout time.Duration `yaml:"storage_timeout"`
	LogLevel       string        `yaml:"log_level"`

	path string
}

// DefaultClientConfig returns client defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:      getEnv("MODTRACKER_SERVER", "http://localhost:8080"),
		PollInterval:   MinPollInterval,
		TickInterval:   defaultTickInterval,
		StorageTimeout: defaultStorageTimeout,
		LogLevel:       getEnv("MODTRACKER_LOG_LEVEL", "WARN"),
	}
}

// DefaultClientPath returns ~/.modtracker/config.yaml.
func DefaultClientPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".modtracker", "config.yaml"), nil
}

// LoadClient reads the client config at path, returning defaults if the file does not exist.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("MODTRACKER_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the config back to the path it was loaded from.
func (c *ClientConfig) Save() error {
	if c.path == "" {
		return fmt.Errorf("config path not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(c.path, data, 0o600)
}

// LoggedIn reports whether a session is stored.
func (c *ClientConfig) LoggedIn() bool {
	return c.AccessToken != "" && c.UserID != ""
}

// ClearSession forgets the stored tokens.
func (c *ClientConfig) ClearSession() {
	c.AccessToken = ""
	c.RefreshToken = ""
	c.UserID = ""
	c.Username = ""
}

func (c *ClientConfig) normalize() {
	switch {
	case c.PollInterval < MinPollInterval:
		c.PollInterval = MinPollInterval
	case c.PollInterval > MaxPollInterval:
		c.PollInterval = MaxPollInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = defaultStorageTimeout
	}
}
