// Package cmd provides Cobra CLI commands for pikvm.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pikvm/internal/api"
	"pikvm/internal/cli"
	"pikvm/pkg/pikvm"
)

var (
	app        *cli.App
	buildInfo  cli.BuildInfo
	configFile string

	// flagBindings maps config keys to the persistent flags overriding them
	flagBindings = map[string]string{
		"host":           "host",
		"username":       "user",
		"password":       "password",
		"totp_secret":    "totp-secret",
		"schema":         "schema",
		"cert_trusted":   "cert-trusted",
		"stream":         "stream",
		"key_delay":      "key-delay",
		"keymap_dir":     "keymap-dir",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}

	rootCmd = &cobra.Command{
		Use:   "pikvm",
		Short: "Control a PiKVM appliance from the command line",
		Long: `pikvm drives a PiKVM KVM-over-IP appliance.

Keyboard and mouse input go over the kvmd WebSocket; power, GPIO, mass
storage and video snapshots use the kvmd REST API.

Settings come from ~/.config/pikvm/config.yaml, PIKVM_* environment
variables and the flags below, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}

			var err error
			app, err = cli.NewApp(configFile, cmd.Root().PersistentFlags(), flagBindings)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			app.BuildInfo = buildInfo
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				if err := app.Close(); err != nil {
					app.Log.Debug().Err(err).Msg("close session")
				}
			}
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/pikvm/config.yaml)")
	flags.StringP("host", "H", "", "appliance address, optionally host:port")
	flags.StringP("user", "u", "", "kvmd user (default: admin)")
	flags.StringP("password", "p", "", "kvmd password")
	flags.String("totp-secret", "", "TOTP secret for two-factor authentication")
	flags.String("schema", "", "http or https (default: https)")
	flags.Bool("cert-trusted", false, "verify the appliance TLS certificate")
	flags.Bool("stream", false, "open the session with streamer updates")
	flags.Duration("key-delay", 0, "pause between key transitions (default: 50ms)")
	flags.String("keymap-dir", "", "directory with keymap.csv, keymap_shift.csv and keymap_alias.csv")
	flags.String("log-level", "", "trace, debug, info, warn or error")
	flags.String("log-format", "", "console or json")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info cli.BuildInfo) {
	buildInfo = info
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() (*cli.App, error) {
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inputClient opens the full client for keyboard and mouse commands.
func inputClient(cmd *cobra.Command) (*pikvm.Client, error) {
	a, err := GetApp()
	if err != nil {
		return nil, err
	}
	return a.Client(cmd.Context())
}

// restClient builds a REST-only client.
func restClient() (*api.Client, error) {
	a, err := GetApp()
	if err != nil {
		return nil, err
	}
	return a.REST()
}
