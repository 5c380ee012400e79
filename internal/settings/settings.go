package settings

import "time"

// CaptureMode selects the active capture behaviour. Exactly one is
// active at a time.
type CaptureMode int

const (
	ModeJPEG CaptureMode = iota
	ModeGIF
	ModeStopMotion
	ModeGameBoy
	ModeTimelapse

	modeCount
)

// String returns the short HUD label for the mode.
func (m CaptureMode) String() string {
	switch m {
	case ModeJPEG:
		return "JPEG"
	case ModeGIF:
		return "GIF"
	case ModeStopMotion:
		return "STOP"
	case ModeGameBoy:
		return "GBOY"
	case ModeTimelapse:
		return "LAPS"
	default:
		return "?"
	}
}

// Ext returns the file extension artifacts of this mode are saved with.
func (m CaptureMode) Ext() string {
	switch m {
	case ModeGIF, ModeGameBoy:
		return "gif"
	default:
		return "jpg"
	}
}

// Resolution is an index into the supported sensor resolutions.
type Resolution int

// resolutions mirrors the sensor's supported frame sizes.
var resolutions = []struct {
	label string
	w, h  int
}{
	{"240x240", 240, 240},
	{"320x240", 320, 240},
	{"640x480", 640, 480},
	{"800x600", 800, 600},
	{"1024x768", 1024, 768},
	{"1280x720", 1280, 720},
	{"1600x1200", 1600, 1200},
	{"2048x1536", 2048, 1536},
}

func (r Resolution) String() string { return resolutions[r].label }

// Size returns the pixel dimensions for the resolution.
func (r Resolution) Size() (w, h int) {
	return resolutions[r].w, resolutions[r].h
}

// Effect is a live colour effect applied to preview and captures.
type Effect int

const (
	EffectNone Effect = iota
	EffectInvert
	EffectBW
	EffectSepia

	effectCount
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "None"
	case EffectInvert:
		return "Invert"
	case EffectBW:
		return "B&W"
	case EffectSepia:
		return "Sepia"
	default:
		return "?"
	}
}

// RGB is an LED colour.
type RGB struct {
	R, G, B uint8
}

// ledColors is the cycle of preset LED colours.
var ledColors = []RGB{
	{0, 0, 0},       // off
	{255, 255, 255}, // white
	{255, 0, 0},     // red
	{0, 255, 0},     // green
	{0, 0, 255},     // blue
	{255, 160, 0},   // amber
}

// timelapseIntervals are the selectable time-lapse intervals in seconds.
var timelapseIntervals = []int{5, 10, 15, 30, 60, 90, 120, 300, 600, 1800, 3600}

// TimelapseSubmode selects the display behaviour between time-lapse shots.
type TimelapseSubmode int

const (
	SubmodeHighPower TimelapseSubmode = iota // live preview between shots
	SubmodeLowPower                          // dim display, no preview

	submodeCount
)

func (s TimelapseSubmode) String() string {
	switch s {
	case SubmodeHighPower:
		return "HiPwr"
	case SubmodeLowPower:
		return "LowPwr"
	default:
		return "?"
	}
}

// Field identifies a navigable setting. FieldNone parks the cursor so
// stray up/down presses change nothing.
type Field int

const (
	FieldNone Field = iota
	FieldResolution
	FieldEffect
	FieldMode
	FieldLEDLevel
	FieldLEDColor
	FieldTimelapseRate

	fieldCount
)

func (f Field) String() string {
	switch f {
	case FieldNone:
		return ""
	case FieldResolution:
		return "resolution"
	case FieldEffect:
		return "effect"
	case FieldMode:
		return "mode"
	case FieldLEDLevel:
		return "led_level"
	case FieldLEDColor:
		return "led_color"
	case FieldTimelapseRate:
		return "timelapse_rate"
	default:
		return "?"
	}
}

const ledLevelStep = 16

// Store holds the current device configuration. It is a pure data
// holder with bounds-checked setters: enums wrap around, numeric
// values clamp. A single instance lives for the whole process and is
// only mutated from the control loop.
type Store struct {
	resolution    Resolution
	effect        Effect
	mode          CaptureMode
	ledColorIdx   int
	ledBrightness int
	intervalIdx   int
	submode       TimelapseSubmode
	cursor        Field
}

// New returns a Store with the device defaults.
func New() *Store {
	return &Store{
		resolution:    Resolution(2), // 640x480
		ledBrightness: 64,
		intervalIdx:   4, // 60s
	}
}

func (s *Store) Resolution() Resolution { return s.resolution }

func (s *Store) Effect() Effect { return s.effect }

func (s *Store) Mode() CaptureMode { return s.mode }

func (s *Store) LEDColor() RGB { return ledColors[s.ledColorIdx] }

func (s *Store) LEDBrightness() uint8 { return uint8(s.ledBrightness) }

func (s *Store) Submode() TimelapseSubmode { return s.submode }

func (s *Store) Cursor() Field { return s.cursor }

// TimelapseInterval returns the selected time-lapse interval.
func (s *Store) TimelapseInterval() time.Duration {
	return time.Duration(timelapseIntervals[s.intervalIdx]) * time.Second
}

// TimelapseIntervalSeconds returns the selected interval in seconds.
func (s *Store) TimelapseIntervalSeconds() int {
	return timelapseIntervals[s.intervalIdx]
}

// SetMode sets the capture mode, wrapping out-of-range values.
func (s *Store) SetMode(m CaptureMode) {
	s.mode = CaptureMode(wrap(int(m), int(modeCount)))
}

// SetResolution sets the resolution, wrapping out-of-range values.
func (s *Store) SetResolution(r Resolution) {
	s.resolution = Resolution(wrap(int(r), len(resolutions)))
}

// SetEffect sets the effect, wrapping out-of-range values.
func (s *Store) SetEffect(e Effect) {
	s.effect = Effect(wrap(int(e), int(effectCount)))
}

// SetLEDBrightness clamps to [0,255].
func (s *Store) SetLEDBrightness(v int) {
	s.ledBrightness = clamp(v, 0, 255)
}

// SetTimelapseIntervalSeconds selects the largest supported interval
// at or below secs. Values below the shortest interval select it.
func (s *Store) SetTimelapseIntervalSeconds(secs int) {
	s.intervalIdx = 0
	for i, v := range timelapseIntervals {
		if v <= secs {
			s.intervalIdx = i
		}
	}
}

// CycleSubmode advances the time-lapse power submode.
func (s *Store) CycleSubmode() {
	s.submode = TimelapseSubmode(wrap(int(s.submode)+1, int(submodeCount)))
}

// CursorNext moves the settings cursor right, skipping the time-lapse
// rate entry when the camera is not in LAPS mode.
func (s *Store) CursorNext() {
	s.cursor = Field(wrap(int(s.cursor)+1, int(fieldCount)))
	if s.mode != ModeTimelapse && s.cursor == FieldTimelapseRate {
		s.cursor = Field(wrap(int(s.cursor)+1, int(fieldCount)))
	}
}

// CursorPrev moves the settings cursor left, skipping the time-lapse
// rate entry when the camera is not in LAPS mode.
func (s *Store) CursorPrev() {
	s.cursor = Field(wrap(int(s.cursor)-1, int(fieldCount)))
	if s.mode != ModeTimelapse && s.cursor == FieldTimelapseRate {
		s.cursor = Field(wrap(int(s.cursor)-1, int(fieldCount)))
	}
}

// Adjust applies an up (+1) or down (-1) press to the field under the
// cursor. Enum fields wrap at their boundaries, LED brightness clamps.
func (s *Store) Adjust(delta int) {
	switch s.cursor {
	case FieldResolution:
		s.SetResolution(Resolution(int(s.resolution) + delta))
	case FieldEffect:
		s.SetEffect(Effect(int(s.effect) + delta))
	case FieldMode:
		s.SetMode(CaptureMode(int(s.mode) + delta))
	case FieldLEDLevel:
		s.SetLEDBrightness(s.ledBrightness + delta*ledLevelStep)
	case FieldLEDColor:
		s.ledColorIdx = wrap(s.ledColorIdx+delta, len(ledColors))
	case FieldTimelapseRate:
		s.intervalIdx = wrap(s.intervalIdx+delta, len(timelapseIntervals))
	}
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
