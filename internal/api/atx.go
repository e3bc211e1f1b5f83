package api

import "context"

var (
	atxPowerActions = []string{"on", "off", "off_hard", "reset_hard"}
	atxButtons      = []string{"power", "power_long", "reset"}
)

// ATX drives the host's power and reset lines
type ATX struct {
	client *Client
}

// ATX returns the ATX endpoints of c.
func (c *Client) ATX() *ATX {
	return &ATX{client: c}
}

// State returns /api/atx.
func (a *ATX) State(ctx context.Context) (map[string]any, error) {
	return a.client.state(ctx, "/api/atx")
}

// Power sets the power state: on, off, off_hard or reset_hard.
func (a *ATX) Power(ctx context.Context, action string) error {
	return a.client.postAction(ctx, "/api/atx/power", "action", action, atxPowerActions)
}

// Click presses a front-panel button: power, power_long or reset.
func (a *ATX) Click(ctx context.Context, button string) error {
	return a.client.postAction(ctx, "/api/atx/click", "button", button, atxButtons)
}
