package buttons

import (
	"time"

	"snapcam/internal/debug"
	"snapcam/internal/hw/gpio"
)

// Button identifies one of the physical keys.
type Button int

const (
	Up Button = iota
	Down
	Left
	Right
	Select
	OK
	Shutter

	buttonCount
)

func (b Button) String() string {
	switch b {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Select:
		return "select"
	case OK:
		return "ok"
	case Shutter:
		return "shutter"
	default:
		return "?"
	}
}

// Pins maps each button to its BCM pin number. All buttons are wired
// active-low with internal pull-ups.
type Pins struct {
	Up, Down, Left, Right, Select, OK, Shutter int
}

func (p Pins) pin(b Button) int {
	switch b {
	case Up:
		return p.Up
	case Down:
		return p.Down
	case Left:
		return p.Left
	case Right:
		return p.Right
	case Select:
		return p.Select
	case OK:
		return p.OK
	case Shutter:
		return p.Shutter
	default:
		return -1
	}
}

// Events is the debounced result of one poll. Fell and Rose report
// edges detected on this poll; Down is the current debounced level.
type Events struct {
	Fell map[Button]bool
	Rose map[Button]bool
	Down map[Button]bool
}

// Any reports whether any edge was seen this poll.
func (e Events) Any() bool {
	return len(e.Fell) > 0 || len(e.Rose) > 0
}

type buttonState struct {
	raw      bool // last raw reading (true = pressed)
	rawSince time.Time
	stable   bool // debounced level
}

// Poller reads the buttons each tick and turns raw pin levels into
// debounced edge events. A raw transition only commits once the level
// has held steady for the debounce window.
type Poller struct {
	gpio   gpio.Driver
	pins   Pins
	window time.Duration
	state  [buttonCount]buttonState
}

// NewPoller configures the button pins as pulled-up inputs.
// window is the debounce window; 0 defaults to 20ms.
func NewPoller(g gpio.Driver, pins Pins, window time.Duration) *Poller {
	if window <= 0 {
		window = 20 * time.Millisecond
	}
	for b := Button(0); b < buttonCount; b++ {
		_ = g.SetupPin(pins.pin(b), gpio.InputPullup)
	}
	return &Poller{gpio: g, pins: pins, window: window}
}

// Poll reads all buttons once and returns debounced edges. A read
// failure on one pin skips that pin for this tick; it never fails the
// whole poll.
func (p *Poller) Poll(now time.Time) Events {
	ev := Events{
		Fell: make(map[Button]bool),
		Rose: make(map[Button]bool),
		Down: make(map[Button]bool),
	}

	for b := Button(0); b < buttonCount; b++ {
		level, err := p.gpio.ReadPin(p.pins.pin(b))
		if err != nil {
			debug.Trace("Buttons: read %s failed: %v", b, err)
			ev.Down[b] = p.state[b].stable
			continue
		}
		raw := level == gpio.Low // active-low

		st := &p.state[b]
		if raw != st.raw {
			st.raw = raw
			st.rawSince = now
		}
		if raw != st.stable && now.Sub(st.rawSince) >= p.window {
			st.stable = raw
			if raw {
				ev.Fell[b] = true
			} else {
				ev.Rose[b] = true
			}
			debug.Button(b.String(), raw)
		}
		ev.Down[b] = st.stable
	}

	return ev
}
