package mode

import (
	"time"

	"snapcam/internal/capture"
	"snapcam/internal/debug"
	"snapcam/internal/settings"
	"snapcam/internal/storage"
)

// State is the controller's capture state.
type State int

const (
	Idle State = iota
	Capturing
)

// Input carries the per-tick button context the active mode needs.
type Input struct {
	// ShutterHeld is the debounced shutter level; GIF recording stops
	// when it goes false.
	ShutterHeld bool
}

// Outcome reports what one controller call did. The loop renders
// Message/Preview and logs Err; it never acts on Saved beyond logging.
type Outcome struct {
	Saved   []string       // files written by this call
	Message string         // transient overlay text
	Preview *capture.Frame // frame to show this tick, if any
	Err     error
	Done    bool // capture ended during this call
}

// Session is the transient state of an in-progress capture. It exists
// iff a capture is in progress and is destroyed when the capture
// completes or is cancelled.
type Session struct {
	Mode      settings.CaptureMode
	Started   time.Time
	Interval  time.Duration  // LAPS: locked at arm time
	NextFire  time.Time      // LAPS: next scheduled shot
	Reference *capture.Frame // STOP: onion-skin reference, last saved frame
	Saved     int            // frames written so far

	frames []*capture.Frame // GIF: collected frames, flushed at the end
}

// FrameCount returns the number of frames collected or saved so far.
func (s *Session) FrameCount() int {
	if s.Mode == settings.ModeGIF {
		return len(s.frames)
	}
	return s.Saved
}

// Remaining returns the time until the next LAPS shot.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.Mode != settings.ModeTimelapse {
		return 0
	}
	d := s.NextFire.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// maxGIFFrames is the auto-stop limit for GIF recording.
const maxGIFFrames = 15

// Controller is the capture-mode state machine. It owns the
// CaptureSession and drives the capture service and storage per mode.
// It runs entirely on the control-loop goroutine; Now is injectable
// for the time-lapse schedule tests.
type Controller struct {
	svc   capture.Service
	store *storage.Manager
	cfg   *settings.Store

	state   State
	session *Session

	Now func() time.Time
}

// NewController wires the state machine to its collaborators.
func NewController(svc capture.Service, store *storage.Manager, cfg *settings.Store) *Controller {
	return &Controller{
		svc:   svc,
		store: store,
		cfg:   cfg,
		Now:   time.Now,
	}
}

// State returns the current capture state.
func (c *Controller) State() State { return c.state }

// Session returns the in-progress session, or nil when idle.
func (c *Controller) Session() *Session { return c.session }

// BeginCapture handles a shutter press. When idle it starts (or, for
// single-shot modes, fully performs) a capture in the current mode;
// during a stop-motion session it captures one more frame. A press
// with no card mounted reports a storage fault and stays idle.
func (c *Controller) BeginCapture() Outcome {
	if c.state == Capturing {
		if c.session.Mode == settings.ModeStopMotion {
			return c.stopMotionFrame()
		}
		return Outcome{}
	}

	if !c.store.Mounted() {
		return Outcome{
			Err:     &storage.Fault{Op: "begin capture", Err: storage.ErrNotMounted},
			Message: "No SD Card",
		}
	}

	m := c.cfg.Mode()
	debug.Mode("IDLE", m.String())

	switch m {
	case settings.ModeJPEG:
		return c.singleShot(m, false)

	case settings.ModeGameBoy:
		return c.singleShot(m, true)

	case settings.ModeGIF:
		c.session = &Session{Mode: m, Started: c.Now()}
		c.state = Capturing
		return Outcome{Message: "RECORDING"}

	case settings.ModeStopMotion:
		c.session = &Session{Mode: m, Started: c.Now()}
		c.state = Capturing
		return c.stopMotionFrame()

	case settings.ModeTimelapse:
		now := c.Now()
		interval := c.cfg.TimelapseInterval()
		c.session = &Session{
			Mode:     m,
			Started:  now,
			Interval: interval,
			NextFire: now.Add(interval),
		}
		c.state = Capturing
		debug.Verbose("Timelapse armed: interval=%v first fire=%v", interval, c.session.NextFire)
		return Outcome{Message: "LAPS ON"}
	}

	return Outcome{}
}

// Tick advances the active capture by one loop iteration. It is a
// no-op when idle. Hardware faults are reported but keep the session
// alive (retried next tick); storage faults end the capture.
func (c *Controller) Tick(in Input) Outcome {
	if c.state != Capturing {
		return Outcome{}
	}

	switch c.session.Mode {
	case settings.ModeGIF:
		return c.tickGIF(in)
	case settings.ModeStopMotion:
		return c.tickStopMotion()
	case settings.ModeTimelapse:
		return c.tickTimelapse()
	}
	return Outcome{}
}

// EndCapture stops the active capture, flushing what the mode allows.
// cause carries the fault that forced the stop, or nil for an explicit
// user stop. Safe to call when idle.
func (c *Controller) EndCapture(cause error) Outcome {
	if c.state != Capturing {
		return Outcome{Err: cause}
	}

	out := Outcome{Done: true, Err: cause}
	s := c.session

	// GIF keeps frames in memory until the end; flush whatever was
	// collected so partial sequences stay valid. Stop-motion frames
	// are already on the card.
	if s.Mode == settings.ModeGIF && len(s.frames) > 0 && c.store.Mounted() {
		if path, err := c.writeGIF(s.frames); err != nil {
			if out.Err == nil {
				out.Err = err
			}
		} else {
			out.Saved = append(out.Saved, path)
			out.Message = "Saved!"
		}
	}

	debug.Mode(s.Mode.String(), "IDLE")
	c.session = nil
	c.state = Idle
	return out
}

// singleShot captures, encodes and writes one frame, returning to idle
// in the same call. dither selects the GBOY rendering.
func (c *Controller) singleShot(m settings.CaptureMode, dither bool) Outcome {
	frame, err := c.svc.CaptureStill()
	if err != nil {
		return Outcome{Err: err}
	}
	capture.ApplyEffect(frame, c.cfg.Effect())

	var data []byte
	if dither {
		out := capture.NewFrame(frame.Width, frame.Height)
		capture.OrderedDither(out, frame)
		frame = out
		data, err = capture.EncodeGIF([]*capture.Frame{out})
	} else {
		data, err = capture.EncodeJPEG(frame)
	}
	if err != nil {
		return Outcome{Err: err}
	}

	path, err := c.store.NextFilename(m)
	if err != nil {
		return Outcome{Err: err}
	}
	// A failed write discards the single incomplete file.
	if err := c.store.Write(path, data); err != nil {
		return Outcome{Err: err}
	}

	debug.Shot(m.String(), path)
	return Outcome{Saved: []string{path}, Message: "Snap!", Preview: frame, Done: true}
}

func (c *Controller) tickGIF(in Input) Outcome {
	frame, err := c.svc.CaptureStill()
	if err != nil {
		// Sensor busy or faulted: keep the session, retry next tick.
		return Outcome{Err: err}
	}
	capture.ApplyEffect(frame, c.cfg.Effect())

	// GIF frames must all share the first frame's bounds; a frame from
	// after a resolution change would invalidate the whole sequence at
	// encode time, so it is shown but not collected.
	if len(c.session.frames) == 0 || c.session.frames[0].SameSize(frame) {
		c.session.frames = append(c.session.frames, frame)
	} else {
		debug.Verbose("GIF: dropped %dx%d frame, recording at %dx%d",
			frame.Width, frame.Height, c.session.frames[0].Width, c.session.frames[0].Height)
	}

	if len(c.session.frames) >= maxGIFFrames || !in.ShutterHeld {
		out := c.EndCapture(nil)
		out.Preview = frame
		return out
	}
	return Outcome{Preview: frame, Message: "RECORDING"}
}

// tickStopMotion renders the onion-skin preview: the saved reference
// frame blended over the live view at reduced opacity. The composite
// goes to a scratch frame so the stored sequence is never touched.
func (c *Controller) tickStopMotion() Outcome {
	live, err := c.svc.CaptureStill()
	if err != nil {
		return Outcome{Err: err}
	}
	capture.ApplyEffect(live, c.cfg.Effect())

	// A reference from before a resolution change cannot be composited;
	// show the live view until the next saved frame replaces it.
	if c.session.Reference == nil || !c.session.Reference.SameSize(live) {
		return Outcome{Preview: live}
	}
	onion := capture.NewFrame(live.Width, live.Height)
	capture.AlphaBlend(onion, c.session.Reference, live)
	return Outcome{Preview: onion}
}

func (c *Controller) tickTimelapse() Outcome {
	now := c.Now()
	if now.Before(c.session.NextFire) {
		return Outcome{}
	}

	// Advance past every boundary already behind us: late ticks skip
	// missed intervals, they never batch catch-up shots.
	for !c.session.NextFire.After(now) {
		c.session.NextFire = c.session.NextFire.Add(c.session.Interval)
	}

	frame, err := c.svc.CaptureStill()
	if err != nil {
		return Outcome{Err: err}
	}
	capture.ApplyEffect(frame, c.cfg.Effect())

	data, err := capture.EncodeJPEG(frame)
	if err != nil {
		return Outcome{Err: err}
	}
	path, err := c.store.NextFilename(settings.ModeTimelapse)
	if err != nil {
		return c.EndCapture(err)
	}
	if err := c.store.Write(path, data); err != nil {
		return c.EndCapture(err)
	}

	c.session.Saved++
	debug.Shot(settings.ModeTimelapse.String(), path)
	return Outcome{Saved: []string{path}, Message: "Snap!", Preview: frame}
}

// stopMotionFrame captures and writes one stop-motion frame and makes
// it the new onion-skin reference.
func (c *Controller) stopMotionFrame() Outcome {
	frame, err := c.svc.CaptureStill()
	if err != nil {
		return Outcome{Err: err}
	}
	capture.ApplyEffect(frame, c.cfg.Effect())

	data, err := capture.EncodeJPEG(frame)
	if err != nil {
		return Outcome{Err: err}
	}
	path, err := c.store.NextFilename(settings.ModeStopMotion)
	if err != nil {
		return c.EndCapture(err)
	}
	if err := c.store.Write(path, data); err != nil {
		return c.EndCapture(err)
	}

	c.session.Reference = frame
	c.session.Saved++
	debug.Shot(settings.ModeStopMotion.String(), path)
	return Outcome{Saved: []string{path}, Message: "Snap!", Preview: frame}
}

// writeGIF encodes frames and writes them under the GIF mode directory.
func (c *Controller) writeGIF(frames []*capture.Frame) (string, error) {
	data, err := capture.EncodeGIF(frames)
	if err != nil {
		return "", err
	}
	path, err := c.store.NextFilename(settings.ModeGIF)
	if err != nil {
		return "", err
	}
	if err := c.store.Write(path, data); err != nil {
		return "", err
	}
	debug.Shot(settings.ModeGIF.String(), path)
	return path, nil
}
