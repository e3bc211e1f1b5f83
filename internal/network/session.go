// Package network owns the kvmd WebSocket session and LAN discovery.
package network

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries bounds dial attempts and write attempts per send.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = time.Second

	wsPath           = "/api/ws"
	pingTimeout      = 5 * time.Second
	closeTimeout     = time.Second
	handshakeTimeout = 10 * time.Second
)

// Conn is the subset of *websocket.Conn the session uses.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a transport to url carrying header in the handshake.
type DialFunc func(url string, header http.Header) (Conn, error)

// SessionConfig holds the connection parameters of a Session.
type SessionConfig struct {
	// Host is the appliance address, optionally with a port
	Host string

	// Scheme is "wss" (default) or "ws"
	Scheme string

	// CertTrusted enables TLS certificate verification
	CertTrusted bool

	// Stream asks kvmd to push streamer state over the socket
	Stream bool

	// MaxRetries bounds connection and send attempts (default: 3)
	MaxRetries int

	// RetryDelay is the pause between attempts (default: 1s)
	RetryDelay time.Duration

	// Header builds the handshake headers. It is called once per dial so
	// one-time passwords stay fresh.
	Header func() (http.Header, error)
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithDialFunc replaces the gorilla/websocket dialer.
func WithDialFunc(dial DialFunc) SessionOption {
	return func(s *Session) {
		s.dial = dial
	}
}

// Session is the single live input channel to kvmd. It reconnects on
// transport faults and is owned by one goroutine; it does no locking.
type Session struct {
	cfg  SessionConfig
	dial DialFunc
	conn Conn
	log  zerolog.Logger

	sleep func(time.Duration)
}

// NewSession creates a session. It does not connect; call Open.
func NewSession(cfg SessionConfig, log zerolog.Logger, opts ...SessionOption) *Session {
	if cfg.Scheme == "" {
		cfg.Scheme = "wss"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	s := &Session{
		cfg:   cfg,
		log:   log.With().Str("component", "session").Str("host", cfg.Host).Logger(),
		sleep: time.Sleep,
	}
	s.dial = gorillaDialer(cfg.CertTrusted)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func gorillaDialer(certTrusted bool) DialFunc {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: !certTrusted},
	}
	return func(u string, header http.Header) (Conn, error) {
		conn, resp, err := d.Dial(u, header)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
			}
			return nil, err
		}
		return conn, nil
	}
}

// URL returns the handshake URL, e.g. wss://pikvm/api/ws?stream=0.
func (s *Session) URL() string {
	stream := "0"
	if s.cfg.Stream {
		stream = "1"
	}
	u := url.URL{
		Scheme:   s.cfg.Scheme,
		Host:     s.cfg.Host,
		Path:     wsPath,
		RawQuery: "stream=" + stream,
	}
	return u.String()
}

// Streaming reports whether the session was opened with stream=1.
func (s *Session) Streaming() bool {
	return s.cfg.Stream
}

// Connected reports whether a transport handle is held.
func (s *Session) Connected() bool {
	return s.conn != nil
}

// Open connects, trying up to MaxRetries times.
func (s *Session) Open() error {
	conn, err := s.connect()
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *Session) connect() (Conn, error) {
	u := s.URL()
	s.log.Debug().Str("url", u).Msg("connecting")

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		header, err := s.header()
		if err != nil {
			return nil, fmt.Errorf("build handshake headers: %w", err)
		}

		conn, err := s.dial(u, header)
		if err == nil {
			s.log.Debug().Str("url", u).Msg("connected")
			return conn, nil
		}
		lastErr = err

		if attempt < s.cfg.MaxRetries {
			s.log.Info().Err(err).Int("attempt", attempt).Dur("retry_in", s.cfg.RetryDelay).Msg("websocket connection attempt failed")
			s.sleep(s.cfg.RetryDelay)
		}
	}

	s.log.Error().Err(lastErr).Int("attempts", s.cfg.MaxRetries).Msg("failed to connect to websocket")
	return nil, fmt.Errorf("connect %s after %d attempts: %w", u, s.cfg.MaxRetries, lastErr)
}

func (s *Session) header() (http.Header, error) {
	if s.cfg.Header == nil {
		return http.Header{}, nil
	}
	return s.cfg.Header()
}

// EnsureLive pings the peer. When the ping fails the stale handle is
// dropped and the session reconnects; ok is false in that case. err is set
// only when reconnecting fails.
func (s *Session) EnsureLive() (ok bool, err error) {
	if s.conn != nil {
		err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingTimeout))
		if err == nil {
			return true, nil
		}
		s.log.Info().Err(err).Msg("websocket connection lost, reconnecting")
		s.drop()
	}

	conn, err := s.connect()
	if err != nil {
		return false, err
	}
	s.conn = conn
	return false, nil
}

// Send writes payload as one text frame. Failed writes are retried on a
// fresh connection until MaxRetries writes have been attempted.
func (s *Session) Send(payload []byte) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if _, err := s.EnsureLive(); err != nil {
			return err
		}

		err := s.conn.WriteMessage(websocket.TextMessage, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == s.cfg.MaxRetries {
			break
		}
		s.log.Info().Err(err).Int("attempt", attempt).Dur("retry_in", s.cfg.RetryDelay).Msg("send attempt failed")
		s.sleep(s.cfg.RetryDelay)
		s.drop()

		conn, err := s.connect()
		if err != nil {
			return err
		}
		s.conn = conn
	}

	s.log.Error().Err(lastErr).Int("attempts", s.cfg.MaxRetries).Msg("failed to send websocket message")
	return fmt.Errorf("send after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

// ReceiveJSON blocks for the next frame and decodes it as a JSON object.
// A frame that is not valid JSON, or valid JSON other than an object (kvmd
// only sends objects), yields (nil, nil).
func (s *Session) ReceiveJSON() (map[string]any, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Debug().Err(err).Str("raw", string(data)).Msg("failed to parse JSON message")
		return nil, nil
	}
	msg, ok := v.(map[string]any)
	if !ok {
		s.log.Debug().Str("raw", string(data)).Msg("JSON message is not an object, skipping")
		return nil, nil
	}
	return msg, nil
}

// Close sends a close frame and releases the connection.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
		s.log.Debug().Err(err).Msg("close frame not sent")
	}
	return conn.Close()
}

// drop closes the current handle, ignoring errors from a dead transport.
func (s *Session) drop() {
	if s.conn == nil {
		return
	}
	_ = s.conn.Close()
	s.conn = nil
}
