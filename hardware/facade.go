// Package hardware implements the Hardware Facade (spec.md §4.1, C1): a
// uniform interface over the RFID reader, keypad matrix, LCD, LED strip,
// buzzer, relay/interlock pair and WiFi MAC/IP that the rest of the
// firmware consumes. Every method is infallible from the caller's
// perspective — driver errors are logged internally and a safe default
// returned, so hardware transients never corrupt the Session State
// Machine (spec.md §7).
//
// The interface shapes follow nfc.Manager / nfc.Device in the retrieval
// pack's NFC agent: small role interfaces, a mock implementation
// alongside the real one, and a Clock abstraction for anything
// time-driven.
package hardware

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Key identifies one physical key on the 3x4 matrix keypad.
type Key rune

const (
	Key0 Key = '0'
	Key1 Key = '1'
	Key2 Key = '2'
	Key3 Key = '3'
	Key4 Key = '4'
	Key5 Key = '5'
	Key6 Key = '6'
	Key7 Key = '7'
	Key8 Key = '8'
	Key9 Key = '9'
	KeyStar Key = '*'
	KeyHash Key = '#'
)

// IsDigit reports whether k is one of the ten numeric keys.
func (k Key) IsDigit() bool {
	return k >= Key0 && k <= Key9
}

// KeySet is the set of keys found pressed during one keypad scan.
// A map keeps the zero value ("no keys") cheap and the common
// membership check (Contains) a single lookup, mirroring how the
// teacher's capability types favor small value types over slices for
// hot-path checks (nfc/capabilities.go).
type KeySet map[Key]struct{}

// NewKeySet builds a KeySet from the given keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether k was pressed in this scan.
func (s KeySet) Contains(k Key) bool {
	_, ok := s[k]
	return ok
}

// Digits returns the pressed numeric keys in scan order is not
// guaranteed (maps are unordered); callers needing PIN entry order
// should consume keys one scan at a time, not via this helper.
func (s KeySet) Digits() []Key {
	var out []Key
	for k := range s {
		if k.IsDigit() {
			out = append(out, k)
		}
	}
	return out
}

// RGB is a backlight / LED color. Symbolic names in the config palette
// (spec.md §6) resolve to one of these.
type RGB struct {
	R, G, B uint8
}

// BeepKind selects one of the buzzer's canned tone patterns.
type BeepKind int

const (
	BeepSuccess BeepKind = iota
	BeepWarning
	BeepError
	BeepAlert
)

func (k BeepKind) String() string {
	switch k {
	case BeepSuccess:
		return "success"
	case BeepWarning:
		return "warning"
	case BeepError:
		return "error"
	case BeepAlert:
		return "alert"
	default:
		return "unknown"
	}
}

// RFIDReader polls the RFID antenna for a card UID.
type RFIDReader interface {
	// ReadCard performs one bounded, wait-free polling cycle and
	// returns the 32-bit UID as a non-negative integer, or -1 when no
	// tag is in the field.
	ReadCard() int64
}

// Keypad scans the 3x4 matrix for currently pressed keys.
type Keypad interface {
	// KeypadScan strobes the matrix once and returns the keys
	// currently held down. No debouncing is performed here.
	KeypadScan() KeySet
}

// ButtonEdges detects debounced rising edges of the `*`/`#` meta keys.
type ButtonEdges interface {
	// ButtonEdge reports whether a new debounced (>=25ms) rising edge
	// occurred since the last call, plus the current scan.
	ButtonEdge() (edge bool, keys KeySet)
}

// Display is the LCD half of the facade: two 16-character text lines
// plus an RGB backlight, written idempotently (spec.md §4.1, §4.3).
type Display interface {
	// LCDWrite performs an idempotent two-line write; implementations
	// must suppress serial traffic when the requested state equals the
	// last committed (line1, line2, backlight) tuple.
	LCDWrite(line1, line2 string, backlight RGB)
}

// LEDs is the addressable LED strip half of the facade.
type LEDs interface {
	LEDsFill(rgb RGB)
	LEDsRainbow()
}

// Buzzer is the piezo/PWM buzzer. It owns an internal effect scheduler;
// Tick must be called once per main-loop iteration to advance any
// in-flight beep pattern (spec.md §4.1).
type Buzzer interface {
	Beep(kind BeepKind)
	BeepStart(freqHz int, duration time.Duration, count int)
	BeepStop()
	Tick()
}

// Relay gates mains power to the equipment via the relay+interlock pair.
type Relay interface {
	// SetRelay toggles relay and interlock together and is always
	// idempotent.
	SetRelay(on bool)
}

// Network exposes the appliance's WiFi identity and station connection.
// The WiFi stack bring-up itself is out of scope (spec.md §1); this is
// the abstract interface bootstrap.ConnectWiFi and
// bootstrap.MaintainNetwork call to drive it.
type Network interface {
	// Connect associates to ssid and blocks until link-up or ctx is
	// done. A concrete build backs this with whatever OS-level station
	// API is available (e.g. wpa_supplicant control socket); out of
	// scope here.
	Connect(ctx context.Context, ssid, password string) error
	Connected() bool
	MACHex() string
	IPDotted() string
}

// Facade aggregates every hardware role the firmware core consumes.
// Concrete builds provide a real implementation per role (GPIO/SPI/UART
// drivers, out of scope per spec.md §1); tests use MockFacade.
type Facade interface {
	RFIDReader
	Keypad
	ButtonEdges
	Display
	LEDs
	Buzzer
	Relay
	Network
}

// Logger returns a component-scoped logger, following the teacher's
// one-logger-per-component convention (tls.Manager, buildinfo) but with
// zerolog's leveled structured output instead of a bare prefix string.
func Logger(base zerolog.Logger) zerolog.Logger {
	return base.With().Str("component", "hardware").Logger()
}
