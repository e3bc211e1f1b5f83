// Package cli holds the state shared by the command-line subcommands.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"pikvm/internal/api"
	"pikvm/internal/config"
	"pikvm/internal/logging"
	"pikvm/pkg/pikvm"
)

// BuildInfo is stamped into the binary with -ldflags
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// App is created once per command invocation
type App struct {
	Manager   *config.Manager
	Config    *config.Config
	Log       zerolog.Logger
	BuildInfo BuildInfo

	client *pikvm.Client
}

// NewApp loads configuration. flags, when non-nil, are bound over the
// file and environment values using bindings (config key to flag name).
func NewApp(configFile string, flags *pflag.FlagSet, bindings map[string]string) (*App, error) {
	m, err := config.NewManager(config.WithConfigFile(configFile))
	if err != nil {
		return nil, err
	}
	if flags != nil {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := m.Viper().BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	if err := m.Load(); err != nil {
		return nil, err
	}

	cfg := m.Get()
	return &App{
		Manager: m,
		Config:  cfg,
		Log:     logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format),
	}, nil
}

// REST returns a REST-only client; no WebSocket is opened.
func (a *App) REST() (*api.Client, error) {
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	return api.New(api.Config{
		Host:        a.Config.Host,
		Schema:      a.Config.Schema,
		CertTrusted: a.Config.CertTrusted,
		Credentials: api.Credentials{
			Username:   a.Config.Username,
			Password:   a.Config.Password,
			TOTPSecret: a.Config.TOTPSecret,
		},
	}, a.Log)
}

// Client opens the full client, including the input session.
func (a *App) Client(ctx context.Context) (*pikvm.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	c, err := pikvm.New(ctx, ClientConfig(a.Config), pikvm.WithLogger(a.Log))
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// Close releases the session if one was opened.
func (a *App) Close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// ClientConfig maps the file configuration onto the client's.
func ClientConfig(cfg *config.Config) pikvm.Config {
	return pikvm.Config{
		Host:        cfg.Host,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TOTPSecret:  cfg.TOTPSecret,
		Schema:      cfg.Schema,
		CertTrusted: cfg.CertTrusted,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Stream:      cfg.Stream,
		KeyDelay:    cfg.KeyDelay,
		KeymapDir:   cfg.KeymapDir,
	}
}
