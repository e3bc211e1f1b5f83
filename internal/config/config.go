// Package config provides configuration management for the PiKVM client
// with Viper integration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "pikvm"
	envPrefix = "PIKVM"
	dirPerm   = 0700
)

// Config represents the complete client configuration
type Config struct {
	// Host is the appliance address, optionally with a port
	Host string `mapstructure:"host" yaml:"host"`

	// Username and Password authenticate against kvmd
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`

	// TOTPSecret is the content of /etc/kvmd/totp.secret when 2FA is on
	TOTPSecret string `mapstructure:"totp_secret" yaml:"totp_secret"`

	// Schema is "https" or "http" for the REST API
	Schema string `mapstructure:"schema" yaml:"schema"`

	// CertTrusted enables TLS certificate verification
	CertTrusted bool `mapstructure:"cert_trusted" yaml:"cert_trusted"`

	// MaxRetries bounds WebSocket connection and send attempts
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryDelay is the fixed pause between attempts
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// Stream opens the session with stream=1
	Stream bool `mapstructure:"stream" yaml:"stream"`

	// KeyDelay paces key state transitions
	KeyDelay time.Duration `mapstructure:"key_delay" yaml:"key_delay"`

	// KeymapDir overrides the bundled keymap CSV files
	KeymapDir string `mapstructure:"keymap_dir" yaml:"keymap_dir"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Username:   "admin",
		Schema:     "https",
		MaxRetries: 3,
		RetryDelay: time.Second,
		KeyDelay:   50 * time.Millisecond,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Manager handles loading configuration from defaults, file and
// environment.
type Manager struct {
	mu     sync.RWMutex
	viper  *viper.Viper
	config *Config
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConfigFile reads path instead of searching the config directories.
func WithConfigFile(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.viper.SetConfigFile(path)
		}
	}
}

// NewManager creates a new configuration manager.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	v := viper.New()

	// config.yaml, config.json, config.toml are all accepted
	v.SetConfigName("config")
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"host":           "HOST",
		"username":       "USERNAME",
		"password":       "PASSWORD",
		"totp_secret":    "TOTP_SECRET",
		"schema":         "SCHEMA",
		"cert_trusted":   "CERT_TRUSTED",
		"max_retries":    "MAX_RETRIES",
		"retry_delay":    "RETRY_DELAY",
		"stream":         "STREAM",
		"key_delay":      "KEY_DELAY",
		"keymap_dir":     "KEYMAP_DIR",
		"logging.level":  "LOG_LEVEL",
		"logging.format": "LOG_FORMAT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, envPrefix+"_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	m := &Manager{
		viper:  v,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Viper exposes the underlying instance so command-line flags can be bound.
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Load reads the configuration. A missing config file is not an error.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setDefaults()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Schema = strings.TrimSuffix(strings.ToLower(config.Schema), "://")

	m.config = config
	return nil
}

// ConfigFileUsed returns the file Load read, empty if none.
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// Save writes the current values to path. The format follows the file
// extension.
func (m *Manager) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := m.viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("host", defaults.Host)
	m.viper.SetDefault("username", defaults.Username)
	m.viper.SetDefault("password", defaults.Password)
	m.viper.SetDefault("totp_secret", defaults.TOTPSecret)
	m.viper.SetDefault("schema", defaults.Schema)
	m.viper.SetDefault("cert_trusted", defaults.CertTrusted)
	m.viper.SetDefault("max_retries", defaults.MaxRetries)
	m.viper.SetDefault("retry_delay", defaults.RetryDelay)
	m.viper.SetDefault("stream", defaults.Stream)
	m.viper.SetDefault("key_delay", defaults.KeyDelay)
	m.viper.SetDefault("keymap_dir", defaults.KeymapDir)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
}

// GetConfigDir returns $XDG_CONFIG_HOME/pikvm (default: ~/.config/pikvm).
func GetConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigFile returns the default config file path.
func GetConfigFile() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
