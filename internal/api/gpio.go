package api

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// GPIO switches and pulses kvmd GPIO channels
type GPIO struct {
	client *Client
}

// GPIO returns the GPIO endpoints of c.
func (c *Client) GPIO() *GPIO {
	return &GPIO{client: c}
}

// State returns /api/gpio.
func (g *GPIO) State(ctx context.Context) (map[string]any, error) {
	return g.client.state(ctx, "/api/gpio")
}

// Switch sets channel to state. With wait, kvmd answers after the switch
// has happened.
func (g *GPIO) Switch(ctx context.Context, channel string, state, wait bool) error {
	q := url.Values{}
	q.Set("channel", channel)
	q.Set("state", boolParam(state))
	q.Set("wait", boolParam(wait))
	return g.client.post(ctx, "/api/gpio/switch", q, nil)
}

// Pulse toggles channel for delay; zero uses the channel's configured delay.
func (g *GPIO) Pulse(ctx context.Context, channel string, delay time.Duration, wait bool) error {
	q := url.Values{}
	q.Set("channel", channel)
	q.Set("delay", strconv.FormatFloat(delay.Seconds(), 'f', -1, 64))
	q.Set("wait", boolParam(wait))
	return g.client.post(ctx, "/api/gpio/pulse", q, nil)
}
