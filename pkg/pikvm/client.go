// Package pikvm drives a PiKVM appliance: keyboard and mouse over the kvmd
// WebSocket, and power, GPIO, mass storage and video over its REST API.
//
// Example:
//
//	client, err := pikvm.New(ctx, pikvm.Config{
//		Host:     "pikvm.lan",
//		Username: "admin",
//		Password: "admin",
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	err = client.Keyboard.SendText("Hello<Enter>")
package pikvm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pikvm/internal/api"
	"pikvm/internal/input"
	"pikvm/internal/keymap"
	"pikvm/internal/network"
)

// Config holds connection and pacing parameters. Zero values take the
// documented defaults.
type Config struct {
	Host       string
	Username   string
	Password   string
	TOTPSecret string

	// Schema is "https" (default) or "http". The WebSocket follows it
	// with wss or ws.
	Schema      string
	CertTrusted bool

	// MaxRetries and RetryDelay bound session reconnects (default: 3, 1s)
	MaxRetries int
	RetryDelay time.Duration

	// Stream opens the session with stream=1
	Stream bool

	// KeyDelay paces key transitions (default: 50ms)
	KeyDelay time.Duration

	// KeymapDir replaces the bundled keymaps
	KeymapDir string
}

// Option configures New
type Option func(*options)

type options struct {
	log        zerolog.Logger
	httpClient *http.Client
	dial       network.DialFunc
	table      *keymap.Table
}

// WithLogger sets the logger handed to every component.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithHTTPClient replaces the REST HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithDialFunc replaces the WebSocket dialer.
func WithDialFunc(dial network.DialFunc) Option {
	return func(o *options) {
		o.dial = dial
	}
}

// WithKeymap uses table instead of loading keymaps.
func WithKeymap(table *keymap.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// Client bundles the capability objects of one appliance. Keyboard and
// Mouse share the single Session and must be driven from one goroutine.
type Client struct {
	API      *api.Client
	ATX      *api.ATX
	GPIO     *api.GPIO
	MSD      *api.MSD
	Streamer *api.Streamer

	Session  *network.Session
	Keyboard *input.Keyboard
	Mouse    *input.Mouse
	Keymap   *keymap.Table

	log zerolog.Logger
}

// New builds every component and opens the session.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log

	creds := api.Credentials{
		Username:   cfg.Username,
		Password:   cfg.Password,
		TOTPSecret: cfg.TOTPSecret,
	}

	var apiOpts []api.Option
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	rest, err := api.New(api.Config{
		Host:        cfg.Host,
		Schema:      cfg.Schema,
		CertTrusted: cfg.CertTrusted,
		Credentials: creds,
	}, log, apiOpts...)
	if err != nil {
		return nil, err
	}

	table := o.table
	if table == nil {
		if cfg.KeymapDir != "" {
			table, err = keymap.LoadDir(cfg.KeymapDir, log)
		} else {
			table, err = keymap.Default(log)
		}
		if err != nil {
			return nil, fmt.Errorf("load keymaps: %w", err)
		}
	}

	var sessOpts []network.SessionOption
	if o.dial != nil {
		sessOpts = append(sessOpts, network.WithDialFunc(o.dial))
	}
	session := network.NewSession(network.SessionConfig{
		Host:        cfg.Host,
		Scheme:      wsScheme(rest.Schema()),
		CertTrusted: cfg.CertTrusted,
		Stream:      cfg.Stream,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Header:      creds.Header,
	}, log, sessOpts...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := session.Open(); err != nil {
		return nil, err
	}

	streamer := rest.Streamer()
	c := &Client{
		API:      rest,
		ATX:      rest.ATX(),
		GPIO:     rest.GPIO(),
		MSD:      rest.MSD(),
		Streamer: streamer,
		Session:  session,
		Keyboard: input.NewKeyboard(session, table, log, input.WithKeyDelay(cfg.KeyDelay)),
		Mouse:    input.NewMouse(session, streamer, log),
		Keymap:   table,
		log:      log,
	}
	log.Info().Str("host", cfg.Host).Str("url", session.URL()).Msg("pikvm client ready")
	return c, nil
}

// Close closes the session.
func (c *Client) Close() error {
	return c.Session.Close()
}

func wsScheme(schema string) string {
	if schema == "http" {
		return "ws"
	}
	return "wss"
}
