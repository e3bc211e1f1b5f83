package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyEvent(t *testing.T) {
	assert.JSONEq(t,
		`{"event_type": "key", "event": {"key": "KeyA", "state": true}}`,
		string(KeyEvent("KeyA", true)))
	assert.JSONEq(t,
		`{"event_type": "key", "event": {"key": "ShiftLeft", "state": false}}`,
		string(KeyEvent("ShiftLeft", false)))
}

func TestMouseButtonEvent_StateIsString(t *testing.T) {
	assert.JSONEq(t,
		`{"event_type": "mouse_button", "event": {"button": "left", "state": "true"}}`,
		string(MouseButtonEvent("left", true)))
	assert.JSONEq(t,
		`{"event_type": "mouse_button", "event": {"button": "right", "state": "false"}}`,
		string(MouseButtonEvent("right", false)))
}

func TestMouseMoveEvent(t *testing.T) {
	assert.JSONEq(t,
		`{"event_type": "mouse_move", "event": {"to": {"x": -32768, "y": 32767}}}`,
		string(MouseMoveEvent(-32768, 32767)))
}

func TestMouseWheelEvent(t *testing.T) {
	assert.JSONEq(t,
		`{"event_type": "mouse_wheel", "event": {"delta": -1}}`,
		string(MouseWheelEvent(-1)))
}
