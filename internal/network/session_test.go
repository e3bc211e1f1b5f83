package network

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pikvm/internal/protocol"
)

type mockConn struct {
	mock.Mock
}

func (c *mockConn) WriteMessage(messageType int, data []byte) error {
	return c.Called(messageType, data).Error(0)
}

func (c *mockConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return c.Called(messageType, data, deadline).Error(0)
}

func (c *mockConn) ReadMessage() (int, []byte, error) {
	args := c.Called()
	data, _ := args.Get(1).([]byte)
	return args.Int(0), data, args.Error(2)
}

func (c *mockConn) Close() error {
	return c.Called().Error(0)
}

// fakeDialer hands out conns in order, or fails while errs is non-empty.
type fakeDialer struct {
	conns   []Conn
	errs    []error
	urls    []string
	headers []http.Header
}

func (d *fakeDialer) dial(u string, header http.Header) (Conn, error) {
	d.urls = append(d.urls, u)
	d.headers = append(d.headers, header)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return nil, err
	}
	conn := d.conns[0]
	if len(d.conns) > 1 {
		d.conns = d.conns[1:]
	}
	return conn, nil
}

func newTestSession(cfg SessionConfig, d *fakeDialer) (*Session, *[]time.Duration) {
	s := NewSession(cfg, zerolog.Nop(), WithDialFunc(d.dial))
	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, &sleeps
}

func TestSession_URL(t *testing.T) {
	s := NewSession(SessionConfig{Host: "pikvm.local"}, zerolog.Nop())
	assert.Equal(t, "wss://pikvm.local/api/ws?stream=0", s.URL())
	assert.False(t, s.Streaming())

	s = NewSession(SessionConfig{Host: "10.0.0.5:8443", Scheme: "ws", Stream: true}, zerolog.Nop())
	assert.Equal(t, "ws://10.0.0.5:8443/api/ws?stream=1", s.URL())
	assert.True(t, s.Streaming())
}

func TestSession_OpenRetriesThenSucceeds(t *testing.T) {
	conn := &mockConn{}
	d := &fakeDialer{
		conns: []Conn{conn},
		errs:  []error{errors.New("refused"), errors.New("refused")},
	}
	calls := 0
	s, sleeps := newTestSession(SessionConfig{
		Host: "pikvm",
		Header: func() (http.Header, error) {
			calls++
			h := http.Header{}
			h.Set("X-KVMD-User", "admin")
			return h, nil
		},
	}, d)

	require.NoError(t, s.Open())
	assert.True(t, s.Connected())
	assert.Len(t, d.urls, 3)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "admin", d.headers[2].Get("X-KVMD-User"))
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, *sleeps)
}

func TestSession_OpenExhaustsRetries(t *testing.T) {
	last := errors.New("refused 3")
	d := &fakeDialer{errs: []error{errors.New("refused 1"), errors.New("refused 2"), last}}
	s, sleeps := newTestSession(SessionConfig{Host: "pikvm"}, d)

	err := s.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, last)
	assert.False(t, s.Connected())
	assert.Len(t, d.urls, 3)
	assert.Len(t, *sleeps, 2)
}

func TestSession_SendHealthy(t *testing.T) {
	conn := &mockConn{}
	payload := protocol.KeyEvent("KeyA", true)
	conn.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)
	conn.On("WriteMessage", websocket.TextMessage, payload).Return(nil)

	d := &fakeDialer{conns: []Conn{conn}}
	s, sleeps := newTestSession(SessionConfig{Host: "pikvm"}, d)
	require.NoError(t, s.Open())

	require.NoError(t, s.Send(payload))
	conn.AssertNumberOfCalls(t, "WriteMessage", 1)
	conn.AssertNotCalled(t, "Close")
	assert.Empty(t, *sleeps)
	assert.Len(t, d.urls, 1)
}

func TestSession_SendRetryBudget(t *testing.T) {
	broken := errors.New("broken pipe")
	conn := &mockConn{}
	conn.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)
	conn.On("WriteMessage", websocket.TextMessage, mock.Anything).Return(broken)
	conn.On("Close").Return(nil)

	d := &fakeDialer{conns: []Conn{conn}}
	s, sleeps := newTestSession(SessionConfig{Host: "pikvm", MaxRetries: 3, RetryDelay: time.Second}, d)
	require.NoError(t, s.Open())

	err := s.Send(protocol.KeyEvent("KeyA", true))
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)

	conn.AssertNumberOfCalls(t, "WriteMessage", 3)
	conn.AssertNumberOfCalls(t, "Close", 2)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *sleeps)
	assert.Len(t, d.urls, 3)
}

func TestSession_SendRecoversOnFreshConnection(t *testing.T) {
	stale := &mockConn{}
	stale.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)
	stale.On("WriteMessage", websocket.TextMessage, mock.Anything).Return(errors.New("reset"))
	stale.On("Close").Return(errors.New("already closed"))

	fresh := &mockConn{}
	fresh.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)
	fresh.On("WriteMessage", websocket.TextMessage, mock.Anything).Return(nil)

	d := &fakeDialer{conns: []Conn{stale, fresh}}
	s, sleeps := newTestSession(SessionConfig{Host: "pikvm"}, d)
	require.NoError(t, s.Open())

	require.NoError(t, s.Send(protocol.KeyEvent("KeyA", true)))
	stale.AssertNumberOfCalls(t, "Close", 1)
	fresh.AssertNumberOfCalls(t, "WriteMessage", 1)
	assert.Len(t, *sleeps, 1)
}

func TestSession_SendFailsWhenReconnectFails(t *testing.T) {
	conn := &mockConn{}
	conn.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)
	conn.On("WriteMessage", websocket.TextMessage, mock.Anything).Return(errors.New("reset"))
	conn.On("Close").Return(nil)

	d := &fakeDialer{conns: []Conn{conn}}
	s, _ := newTestSession(SessionConfig{Host: "pikvm", MaxRetries: 2}, d)
	require.NoError(t, s.Open())

	refused := errors.New("refused")
	d.errs = []error{refused, refused}

	err := s.Send(protocol.KeyEvent("KeyA", true))
	assert.ErrorIs(t, err, refused)
	assert.False(t, s.Connected())
}

func TestSession_EnsureLive(t *testing.T) {
	dead := &mockConn{}
	dead.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(errors.New("eof"))
	dead.On("Close").Return(nil)

	live := &mockConn{}
	live.On("WriteControl", websocket.PingMessage, mock.Anything, mock.Anything).Return(nil)

	d := &fakeDialer{conns: []Conn{dead, live}}
	s, _ := newTestSession(SessionConfig{Host: "pikvm"}, d)
	require.NoError(t, s.Open())

	ok, err := s.EnsureLive()
	require.NoError(t, err)
	assert.False(t, ok)
	dead.AssertNumberOfCalls(t, "Close", 1)

	ok, err = s.EnsureLive()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, d.urls, 2)
}

func TestSession_ReceiveJSON(t *testing.T) {
	conn := &mockConn{}
	conn.On("ReadMessage").Return(websocket.TextMessage, []byte(`{"event_type":"gpio_state","event":{}}`), nil).Once()
	conn.On("ReadMessage").Return(websocket.TextMessage, []byte(`not json`), nil).Once()
	conn.On("ReadMessage").Return(websocket.TextMessage, []byte(`[1, 2]`), nil).Once()
	conn.On("ReadMessage").Return(websocket.TextMessage, []byte(`42`), nil).Once()
	conn.On("ReadMessage").Return(0, nil, errors.New("closed")).Once()

	s, _ := newTestSession(SessionConfig{Host: "pikvm"}, &fakeDialer{conns: []Conn{conn}})

	_, err := s.ReceiveJSON()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, s.Open())

	msg, err := s.ReceiveJSON()
	require.NoError(t, err)
	assert.Equal(t, "gpio_state", msg["event_type"])

	for _, payload := range []string{"not json", "array", "scalar"} {
		msg, err = s.ReceiveJSON()
		require.NoError(t, err, payload)
		assert.Nil(t, msg, payload)
	}

	_, err = s.ReceiveJSON()
	assert.Error(t, err)
}

func TestSession_Close(t *testing.T) {
	conn := &mockConn{}
	conn.On("WriteControl", websocket.CloseMessage, mock.Anything, mock.Anything).Return(nil)
	conn.On("Close").Return(nil)

	s, _ := newTestSession(SessionConfig{Host: "pikvm"}, &fakeDialer{conns: []Conn{conn}})
	require.NoError(t, s.Open())

	require.NoError(t, s.Close())
	assert.False(t, s.Connected())
	require.NoError(t, s.Close())
	conn.AssertNumberOfCalls(t, "Close", 1)
}

func TestSession_AgainstWebSocketServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-KVMD-User") != "admin" || r.Header.Get("X-KVMD-Passwd") != "admin" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("stream") != "0" {
			http.Error(w, "bad stream flag", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"loop","event":{}}`)); err != nil {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	header := func(user, pass string) func() (http.Header, error) {
		return func() (http.Header, error) {
			h := http.Header{}
			h.Set("X-KVMD-User", user)
			h.Set("X-KVMD-Passwd", pass)
			return h, nil
		}
	}

	s := NewSession(SessionConfig{Host: host, Scheme: "ws", Header: header("admin", "admin")}, zerolog.Nop())
	require.NoError(t, s.Open())
	defer s.Close()

	msg, err := s.ReceiveJSON()
	require.NoError(t, err)
	assert.Equal(t, "loop", msg["event_type"])

	payload := protocol.KeyEvent("KeyA", true)
	require.NoError(t, s.Send(payload))

	select {
	case got := <-received:
		assert.JSONEq(t, string(payload), string(got))
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the key event")
	}

	denied := NewSession(SessionConfig{Host: host, Scheme: "ws", MaxRetries: 2, Header: header("admin", "wrong")}, zerolog.Nop())
	denied.sleep = func(time.Duration) {}
	err = denied.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}
