package input

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pikvm/internal/keymap"
	"pikvm/internal/protocol"
)

// DefaultKeyDelay is the pause between key state transitions.
const DefaultKeyDelay = 50 * time.Millisecond

// ShiftKey is the modifier held for shifted characters.
const ShiftKey keymap.Keycode = "ShiftLeft"

// chords are fixed sequences: every key is pressed in order, then released
// in the same order.
var chords = map[string][]keymap.Keycode{
	"ctrl-alt-delete": {"ControlLeft", "AltLeft", "Delete"},
	"ctrl-alt-del":    {"ControlLeft", "AltLeft", "Delete"},
}

// Keyboard sequences key actions over a Sender. It is not safe for
// concurrent use.
type Keyboard struct {
	sender   Sender
	table    *keymap.Table
	resolver *Resolver
	log      zerolog.Logger

	keyDelay time.Duration
	sleep    func(time.Duration)
}

// KeyboardOption configures a Keyboard
type KeyboardOption func(*Keyboard)

// WithKeyDelay overrides DefaultKeyDelay.
func WithKeyDelay(d time.Duration) KeyboardOption {
	return func(k *Keyboard) {
		if d > 0 {
			k.keyDelay = d
		}
	}
}

// NewKeyboard creates a keyboard that sends through sender.
func NewKeyboard(sender Sender, table *keymap.Table, log zerolog.Logger, opts ...KeyboardOption) *Keyboard {
	k := &Keyboard{
		sender:   sender,
		table:    table,
		resolver: NewResolver(table),
		log:      log.With().Str("component", "keyboard").Logger(),
		keyDelay: DefaultKeyDelay,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Send emits one raw key event with no shift handling. It is the only way
// to press a key without releasing it.
func (k *Keyboard) Send(code keymap.Keycode, pressed bool) error {
	k.log.Trace().Str("key", string(code)).Bool("state", pressed).Msg("key event")
	if err := k.sender.Send(protocol.KeyEvent(string(code), pressed)); err != nil {
		return fmt.Errorf("send key %s: %w", code, err)
	}
	return nil
}

// Press holds key down, pressing shift first when the key needs it.
func (k *Keyboard) Press(key string) error {
	return k.press(k.resolver.Resolve(key))
}

// Release lets key go, then releases shift when the key needed it.
func (k *Keyboard) Release(key string) error {
	return k.release(k.resolver.Resolve(key))
}

// Tap presses and releases key with delay in between. A non-positive delay
// uses the keyboard's key delay.
func (k *Keyboard) Tap(key string, delay time.Duration) error {
	return k.tap(k.resolver.Resolve(key), delay)
}

// Hotkey presses keys in order, then releases them in reverse order.
func (k *Keyboard) Hotkey(keys ...string) error {
	pressed := make([]Resolution, 0, len(keys))
	for _, key := range keys {
		res := k.resolver.Resolve(key)
		if err := k.press(res); err != nil {
			k.releaseAll(pressed)
			return err
		}
		pressed = append(pressed, res)
		k.sleep(k.keyDelay)
	}

	for i := len(pressed) - 1; i >= 0; i-- {
		if err := k.release(pressed[i]); err != nil {
			return err
		}
		k.sleep(k.keyDelay)
	}
	return nil
}

// Combo parses a "Ctrl+Alt+T" style string and sends it as a hotkey.
func (k *Keyboard) Combo(combo string) error {
	parts := ParseCombo(combo)
	if len(parts) == 0 {
		return fmt.Errorf("empty key combination %q", combo)
	}
	keys := make([]string, len(parts))
	for i, p := range parts {
		keys[i] = k.comboKey(p)
	}
	return k.Hotkey(keys...)
}

// SendChord sends a named fixed sequence such as "ctrl-alt-delete".
func (k *Keyboard) SendChord(name string) error {
	codes, ok := chords[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChord, name)
	}

	for _, code := range codes {
		if err := k.Send(code, true); err != nil {
			return err
		}
		k.sleep(k.keyDelay)
	}
	for _, code := range codes {
		if err := k.Send(code, false); err != nil {
			return err
		}
		k.sleep(k.keyDelay)
	}
	return nil
}

// SendText types text. <name> tokens known to the unshifted map are sent as
// single special keys; characters no table can produce are skipped.
func (k *Keyboard) SendText(text string) error {
	k.log.Debug().Str("text", text).Msg("sending text")

	tokens := Tokenize(text, k.table)
	for i := 0; i < len(text); {
		if len(tokens) > 0 && tokens[0].Start == i {
			tok := tokens[0]
			tokens = tokens[1:]
			if err := k.Tap(tok.Name, k.keyDelay); err != nil {
				return err
			}
			k.log.Debug().Str("key", tok.Name).Msg("sent special key")
			i = tok.End
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])
		ch := text[i : i+size]
		i += size

		var res Resolution
		if unicode.IsLetter(r) || unicode.IsSpace(r) || unicode.IsDigit(r) {
			res = k.resolver.Resolve(ch)
		} else {
			var ok bool
			if res, ok = k.resolver.Lookup(ch); !ok {
				k.log.Debug().Str("char", ch).Msg("special key cannot be recognised, skipping")
				continue
			}
		}
		if err := k.tap(res, k.keyDelay); err != nil {
			return err
		}
	}
	return nil
}

func (k *Keyboard) tap(res Resolution, delay time.Duration) error {
	if delay <= 0 {
		delay = k.keyDelay
	}
	if err := k.press(res); err != nil {
		return err
	}
	k.sleep(delay)
	return k.release(res)
}

func (k *Keyboard) press(res Resolution) error {
	if res.Shift {
		if err := k.Send(ShiftKey, true); err != nil {
			return err
		}
	}
	return k.Send(res.Code, true)
}

func (k *Keyboard) release(res Resolution) error {
	if err := k.Send(res.Code, false); err != nil {
		return err
	}
	if res.Shift {
		return k.Send(ShiftKey, false)
	}
	return nil
}

// releaseAll lets go of already pressed hotkey members after a failure.
func (k *Keyboard) releaseAll(pressed []Resolution) {
	for i := len(pressed) - 1; i >= 0; i-- {
		if err := k.release(pressed[i]); err != nil {
			k.log.Warn().Err(err).Str("key", string(pressed[i].Code)).Msg("failed to release key")
		}
	}
}

// comboKey maps one combo member to a key name. Single characters are
// lowercased so "T" means the T key, not shift+T.
func (k *Keyboard) comboKey(part string) string {
	if _, ok := singleRune(part); ok {
		return strings.ToLower(part)
	}
	if _, ok := k.resolver.Lookup(part); ok {
		return part
	}
	return strings.ToLower(part)
}
