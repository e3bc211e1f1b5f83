package input

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"pikvm/internal/protocol"
)

// DefaultClickDelay is the pause between button press and release.
const DefaultClickDelay = 50 * time.Millisecond

var mouseButtons = map[string]bool{
	"left":   true,
	"right":  true,
	"middle": true,
	"up":     true,
	"down":   true,
}

// Mouse sends absolute pointer, button and wheel events. The frame size used
// for scaling is fetched once, on the first move.
type Mouse struct {
	sender Sender
	frames FrameSizer
	log    zerolog.Logger

	width  int
	height int

	sleep func(time.Duration)
}

// NewMouse creates a mouse. frames may be nil if SetFrameSize is called
// before the first MoveTo.
func NewMouse(sender Sender, frames FrameSizer, log zerolog.Logger) *Mouse {
	return &Mouse{
		sender: sender,
		frames: frames,
		log:    log.With().Str("component", "mouse").Logger(),
		sleep:  time.Sleep,
	}
}

// SetFrameSize fixes the screen size used to scale MoveTo coordinates.
func (m *Mouse) SetFrameSize(width, height int) {
	m.width, m.height = width, height
}

// FrameSize returns the cached frame size, zero before the first move.
func (m *Mouse) FrameSize() (width, height int) {
	return m.width, m.height
}

// Button presses or releases one of left, right, middle, up or down.
func (m *Mouse) Button(button string, pressed bool) error {
	if !mouseButtons[button] {
		m.log.Error().Str("button", button).Msg("button must be one of: left, right, middle, up, down")
		return fmt.Errorf("%w: %q", ErrInvalidButton, button)
	}
	if err := m.sender.Send(protocol.MouseButtonEvent(button, pressed)); err != nil {
		return fmt.Errorf("send mouse button %s: %w", button, err)
	}
	m.log.Debug().Str("button", button).Bool("state", pressed).Msg("mouse button sent")
	return nil
}

// Click presses and releases button. A non-positive delay uses
// DefaultClickDelay.
func (m *Mouse) Click(button string, delay time.Duration) error {
	if delay <= 0 {
		delay = DefaultClickDelay
	}
	if err := m.Button(button, true); err != nil {
		return err
	}
	m.sleep(delay)
	return m.Button(button, false)
}

// MoveTo moves the pointer to screen pixel (x, y).
func (m *Mouse) MoveTo(ctx context.Context, x, y int) error {
	if m.width == 0 || m.height == 0 {
		if m.frames == nil {
			return fmt.Errorf("%w: no frame source", ErrFrameSize)
		}
		w, h, err := m.frames.FrameSize(ctx)
		if err != nil {
			return fmt.Errorf("detect screen size: %w", err)
		}
		m.width, m.height = w, h
		m.log.Debug().Int("width", w).Int("height", h).Msg("screen size detected")
	}
	if m.width <= 0 || m.height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrFrameSize, m.width, m.height)
	}

	kx, ky := Scale(x, y, m.width, m.height)
	if err := m.sender.Send(protocol.MouseMoveEvent(kx, ky)); err != nil {
		return fmt.Errorf("send mouse move: %w", err)
	}
	m.log.Debug().Int("x", x).Int("y", y).Int16("kvm_x", kx).Int16("kvm_y", ky).Msg("mouse moved")
	return nil
}

// Wheel scrolls by delta (negative is down).
func (m *Mouse) Wheel(delta int) error {
	if err := m.sender.Send(protocol.MouseWheelEvent(delta)); err != nil {
		return fmt.Errorf("send mouse wheel: %w", err)
	}
	m.log.Debug().Int("delta", delta).Msg("mouse wheel sent")
	return nil
}

// Scale maps a screen pixel to kvmd's signed 16-bit absolute coordinates.
// width and height must be positive. Points outside the frame are not
// pulled back inside it, but saturate at the int16 limits so they never
// wrap to the opposite edge.
func Scale(x, y, width, height int) (int16, int16) {
	return scaleAxis(x, width), scaleAxis(y, height)
}

func scaleAxis(v, size int) int16 {
	f := math.RoundToEven(float64(v)/float64(size)*0xFFFF - 0x8000)
	return int16(max(math.MinInt16, min(math.MaxInt16, f)))
}
