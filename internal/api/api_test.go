package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Method string
	Path   string
	Query  string
	User   string
	Passwd string
	Body   string
}

// fakeKVMD answers like kvmd for the handful of endpoints under test and
// records every request it sees.
type fakeKVMD struct {
	mu       sync.Mutex
	requests []request
	snapshot []byte
}

func (f *fakeKVMD) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		User:   r.Header.Get(HeaderUser),
		Passwd: r.Header.Get(HeaderPasswd),
		Body:   string(body),
	})
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/auth/check":
		if r.Header.Get(HeaderPasswd) != "admin" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, `{"ok": true, "result": {}}`)
	case "/api/info":
		io.WriteString(w, `{"ok": true, "result": {"hw": {"platform": {"type": "rpi", "base": "Raspberry Pi 4"}}}}`)
	case "/api/atx":
		io.WriteString(w, `{"ok": true, "result": {"enabled": true, "leds": {"power": false, "hdd": false}}}`)
	case "/api/gpio":
		io.WriteString(w, `{"ok": false, "result": {"error": "GpioError"}}`)
	case "/api/msd":
		http.Error(w, "internal error", http.StatusInternalServerError)
	case "/api/streamer/snapshot":
		if r.URL.Query().Get("ocr") == "1" {
			io.WriteString(w, "login:")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(f.snapshot)
	case "/api/log":
		io.WriteString(w, "kvmd started\n")
	default:
		if r.Method == http.MethodPost {
			io.WriteString(w, `{"ok": true, "result": {}}`)
			return
		}
		http.NotFound(w, r)
	}
}

func (f *fakeKVMD) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeKVMD) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func newTestClient(t *testing.T, creds Credentials) (*Client, *fakeKVMD) {
	t.Helper()
	kvmd := &fakeKVMD{snapshot: testJPEG(t, 64, 48)}
	srv := httptest.NewServer(kvmd)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Host:        strings.TrimPrefix(srv.URL, "http://"),
		Schema:      "http",
		Credentials: creds,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c, kvmd
}

func TestNew_Schema(t *testing.T) {
	c, err := New(Config{Host: "pikvm"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "https", c.Schema())

	c, err = New(Config{Host: "pikvm", Schema: "http://"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http", c.Schema())

	_, err = New(Config{Host: "pikvm", Schema: "ftp"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestCredentials_Passwd(t *testing.T) {
	creds := Credentials{Username: "admin", Password: "admin"}
	passwd, err := creds.Passwd()
	require.NoError(t, err)
	assert.Equal(t, "admin", passwd)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	creds.TOTPSecret = "JBSWY3DPEHPK3PXP"
	creds.now = func() time.Time { return at }

	want, err := totp.GenerateCode(creds.TOTPSecret, at)
	require.NoError(t, err)

	passwd, err = creds.Passwd()
	require.NoError(t, err)
	assert.Equal(t, "admin"+want, passwd)
	assert.Len(t, passwd, len("admin")+6)

	h, err := creds.Header()
	require.NoError(t, err)
	assert.Equal(t, "admin", h.Get(HeaderUser))
	assert.Equal(t, passwd, h.Get(HeaderPasswd))

	creds.TOTPSecret = "not base32!"
	_, err = creds.Header()
	assert.Error(t, err)
}

func TestClient_AuthCheck(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{Username: "admin", Password: "admin"})
	ok, err := c.AuthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", kvmd.last().User)

	c, _ = newTestClient(t, Credentials{Username: "admin", Password: "nope"})
	ok, err = c.AuthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Info(t *testing.T) {
	c, _ := newTestClient(t, Credentials{Username: "admin", Password: "admin"})

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	hw, ok := info["hw"].(map[string]any)
	require.True(t, ok)
	platform, ok := hw["platform"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rpi", platform["type"])
}

func TestClient_Log(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})

	text, err := c.Log(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "kvmd started\n", text)
	assert.Equal(t, "seek=3600", kvmd.last().Query)
}

func TestClient_Errors(t *testing.T) {
	c, _ := newTestClient(t, Credentials{})

	_, err := c.GPIO().State(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)

	_, err = c.MSD().State(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "/api/msd", statusErr.Path)
	assert.Contains(t, statusErr.Error(), "internal error")
}

func TestATX(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{Username: "admin", Password: "admin"})
	ctx := context.Background()

	state, err := c.ATX().State(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, state["enabled"])

	tests := []struct {
		name  string
		call  func() error
		path  string
		query string
	}{
		{"power on", func() error { return c.ATX().Power(ctx, "on") }, "/api/atx/power", "action=on"},
		{"hard reset", func() error { return c.ATX().Power(ctx, "reset_hard") }, "/api/atx/power", "action=reset_hard"},
		{"long press", func() error { return c.ATX().Click(ctx, "power_long") }, "/api/atx/click", "button=power_long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			last := kvmd.last()
			assert.Equal(t, http.MethodPost, last.Method)
			assert.Equal(t, tt.path, last.Path)
			assert.Equal(t, tt.query, last.Query)
		})
	}
}

func TestATX_InvalidActionMakesNoRequest(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})
	ctx := context.Background()

	assert.ErrorIs(t, c.ATX().Power(ctx, "explode"), ErrInvalidAction)
	assert.ErrorIs(t, c.ATX().Click(ctx, "on"), ErrInvalidAction)
	assert.Equal(t, 0, kvmd.count())
}

func TestGPIO(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})
	ctx := context.Background()

	require.NoError(t, c.GPIO().Switch(ctx, "relay1", true, true))
	assert.Equal(t, "/api/gpio/switch", kvmd.last().Path)
	assert.Equal(t, "channel=relay1&state=1&wait=1", kvmd.last().Query)

	require.NoError(t, c.GPIO().Pulse(ctx, "relay1", 500*time.Millisecond, false))
	assert.Equal(t, "/api/gpio/pulse", kvmd.last().Path)
	assert.Equal(t, "channel=relay1&delay=0.5&wait=0", kvmd.last().Query)
}

func TestMSD(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})
	ctx := context.Background()
	msd := c.MSD()

	tests := []struct {
		name  string
		call  func() error
		path  string
		query string
	}{
		{"params cdrom", func() error { return msd.SetParams(ctx, "ubuntu.iso", true) }, "/api/msd/set_params", "cdrom=1&image=ubuntu.iso"},
		{"params flash", func() error { return msd.SetParams(ctx, "disk.img", false) }, "/api/msd/set_params", "cdrom=0&image=disk.img"},
		{"connect", func() error { return msd.Connect(ctx) }, "/api/msd/set_connected", "connected=1"},
		{"disconnect", func() error { return msd.Disconnect(ctx) }, "/api/msd/set_connected", "connected=0"},
		{"remove", func() error { return msd.Remove(ctx, "old.iso") }, "/api/msd/remove", "image=old.iso"},
		{"reset", func() error { return msd.Reset(ctx) }, "/api/msd/reset", ""},
		{
			"remote with name",
			func() error { return msd.WriteRemote(ctx, "https://example.com/a/b.iso", "c.iso") },
			"/api/msd/write_remote",
			"image=c.iso&url=https%3A%2F%2Fexample.com%2Fa%2Fb.iso",
		},
		{
			"remote default name",
			func() error { return msd.WriteRemote(ctx, "https://example.com/a/b.iso?x=1", "") },
			"/api/msd/write_remote",
			"image=b.iso&url=https%3A%2F%2Fexample.com%2Fa%2Fb.iso%3Fx%3D1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			last := kvmd.last()
			assert.Equal(t, http.MethodPost, last.Method)
			assert.Equal(t, tt.path, last.Path)
			assert.Equal(t, tt.query, last.Query)
		})
	}
}

func TestMSD_Upload(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})

	require.NoError(t, c.MSD().Upload(context.Background(), "boot.img", strings.NewReader("IMAGEDATA")))
	last := kvmd.last()
	assert.Equal(t, "/api/msd/write", last.Path)
	assert.Equal(t, "image=boot.img", last.Query)
	assert.Equal(t, "IMAGEDATA", last.Body)

	err := c.MSD().UploadFile(context.Background(), t.TempDir()+"/missing.iso", "")
	assert.Error(t, err)
}

func TestStreamer(t *testing.T) {
	c, kvmd := newTestClient(t, Credentials{})
	ctx := context.Background()

	data, err := c.Streamer().Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, kvmd.snapshot, data)
	assert.Equal(t, "allow_offline=1", kvmd.last().Query)

	w, h, err := c.Streamer().FrameSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	text, err := c.Streamer().SnapshotText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "login:", text)
	assert.Equal(t, "allow_offline=1&ocr=1", kvmd.last().Query)
}
