// Package protocol defines the JSON events exchanged with kvmd over the
// /api/ws WebSocket.
package protocol

import (
	"encoding/json"
	"strconv"
)

// EventType identifies the kind of outbound input event
type EventType string

const (
	// TypeKey asserts or deasserts a keyboard key
	TypeKey EventType = "key"

	// TypeMouseButton presses or releases a mouse button
	TypeMouseButton EventType = "mouse_button"

	// TypeMouseMove moves the absolute pointer
	TypeMouseMove EventType = "mouse_move"

	// TypeMouseWheel scrolls the wheel
	TypeMouseWheel EventType = "mouse_wheel"
)

// Message is the envelope for every outbound event
type Message struct {
	EventType EventType `json:"event_type"`
	Event     any       `json:"event"`
}

// KeyPayload is the payload for TypeKey
type KeyPayload struct {
	Key   string `json:"key"`
	State bool   `json:"state"`
}

// MouseButtonPayload is the payload for TypeMouseButton. kvmd expects the
// state as the strings "true" and "false" here.
type MouseButtonPayload struct {
	Button string `json:"button"`
	State  string `json:"state"`
}

// Point is an absolute pointer position in device coordinates
type Point struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// MouseMovePayload is the payload for TypeMouseMove
type MouseMovePayload struct {
	To Point `json:"to"`
}

// MouseWheelPayload is the payload for TypeMouseWheel
type MouseWheelPayload struct {
	Delta int `json:"delta"`
}

// KeyEvent encodes a key press (pressed=true) or release.
func KeyEvent(key string, pressed bool) []byte {
	return encode(Message{
		EventType: TypeKey,
		Event:     KeyPayload{Key: key, State: pressed},
	})
}

// MouseButtonEvent encodes a mouse button press or release.
func MouseButtonEvent(button string, pressed bool) []byte {
	return encode(Message{
		EventType: TypeMouseButton,
		Event:     MouseButtonPayload{Button: button, State: strconv.FormatBool(pressed)},
	})
}

// MouseMoveEvent encodes an absolute pointer move.
func MouseMoveEvent(x, y int16) []byte {
	return encode(Message{
		EventType: TypeMouseMove,
		Event:     MouseMovePayload{To: Point{X: x, Y: y}},
	})
}

// MouseWheelEvent encodes a wheel scroll.
func MouseWheelEvent(delta int) []byte {
	return encode(Message{
		EventType: TypeMouseWheel,
		Event:     MouseWheelPayload{Delta: delta},
	})
}

// encode marshals fixed-shape structs, which cannot fail.
func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic("protocol: marshal event: " + err.Error())
	}
	return data
}
