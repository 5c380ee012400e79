package loop

import (
	"context"
	"fmt"
	"time"

	"snapcam/internal/capture"
	"snapcam/internal/config"
	"snapcam/internal/debug"
	"snapcam/internal/display"
	"snapcam/internal/gallery"
	"snapcam/internal/hw/battery"
	"snapcam/internal/hw/beeper"
	"snapcam/internal/hw/buttons"
	"snapcam/internal/hw/led"
	"snapcam/internal/mode"
	"snapcam/internal/settings"
	"snapcam/internal/storage"
	"snapcam/internal/timesync"
)

// messageDuration is how long transient overlay messages stay up.
const messageDuration = 1500 * time.Millisecond

// mountRetryDelay is the pause between mount attempts after insertion.
const mountRetryDelay = 500 * time.Millisecond

// Deps are the collaborators the loop drives. Everything is owned by
// the single loop goroutine; the time-sync channel is the only
// cross-goroutine traffic.
type Deps struct {
	Config     *config.Config
	Buttons    *buttons.Poller
	Battery    *battery.Monitor
	Storage    *storage.Manager
	Settings   *settings.Store
	Controller *mode.Controller
	Display    display.Presenter
	Camera     capture.Service
	LED        *led.LED       // optional
	Beeper     *beeper.Beeper // optional
	TimeSync   <-chan timesync.Result
}

// Loop is the single-threaded cooperative scheduler. One iteration
// polls input, handles SD hot-swap, dispatches buttons, samples the
// battery on cadence, ticks the mode controller and renders. No fault
// in polling or rendering stops the loop; only storage faults during
// an active capture abort that capture.
type Loop struct {
	cfg      *config.Config
	buttons  *buttons.Poller
	battery  *battery.Monitor
	storage  *storage.Manager
	settings *settings.Store
	ctrl     *mode.Controller
	display  display.Presenter
	camera   capture.Service
	led      *led.LED
	beeper   *beeper.Beeper
	gallery  *gallery.Browser
	timesync <-chan timesync.Result

	lastPresent  bool
	lastRes      settings.Resolution
	resApplied   bool
	message      string
	messageUntil time.Time
	preview      *capture.Frame // preview chosen by this tick's controller call

	now   func() time.Time
	sleep func(time.Duration)
}

// New assembles the loop. The gallery browser is created internally
// over the storage manager.
func New(d Deps) *Loop {
	return &Loop{
		cfg:      d.Config,
		buttons:  d.Buttons,
		battery:  d.Battery,
		storage:  d.Storage,
		settings: d.Settings,
		ctrl:     d.Controller,
		display:  d.Display,
		camera:   d.Camera,
		led:      d.LED,
		beeper:   d.Beeper,
		gallery:  gallery.NewBrowser(d.Storage),
		timesync: d.TimeSync,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run drives ticks until ctx is cancelled, pacing iterations to the
// configured tick budget. On shutdown an active capture is ended so
// in-progress files are flushed.
func (l *Loop) Run(ctx context.Context) error {
	debug.Summary("Control loop started")
	budget := l.cfg.TickBudget()

	for {
		select {
		case <-ctx.Done():
			out := l.ctrl.EndCapture(nil)
			l.reportOutcome(out)
			debug.Summary("Control loop stopped")
			return ctx.Err()
		default:
		}

		start := l.now()
		l.tick(start)
		if elapsed := l.now().Sub(start); elapsed < budget {
			l.sleep(budget - elapsed)
		}
	}
}

// tick runs one loop iteration in the fixed order.
func (l *Loop) tick(now time.Time) {
	l.preview = nil

	// 1. Poll buttons (debounced edges).
	ev := l.buttons.Poll(now)

	// 2. SD hot-swap.
	if present := l.storage.Present(); present != l.lastPresent {
		l.lastPresent = present
		l.handleCardChange(present)
	}

	// 3. Dispatch button events.
	l.dispatch(ev, now)

	// 4. Battery cadence.
	if _, _, err := l.battery.MaybeSample(now); err != nil {
		debug.Error(err) // hardware fault: retried next cadence, never fatal
	}

	// 5. Controller tick (no-op when idle).
	out := l.ctrl.Tick(mode.Input{ShutterHeld: ev.Down[buttons.Shutter]})
	l.reportOutcome(out)

	// Push the selected resolution to the sensor when it changes. The
	// sensor keeps its size for the whole of an open session so GIF and
	// stop-motion frames stay mutually consistent; the new size takes
	// effect on the first idle tick.
	if l.ctrl.State() != mode.Capturing {
		if r := l.settings.Resolution(); !l.resApplied || r != l.lastRes {
			w, h := r.Size()
			if err := l.camera.SetResolution(w, h); err != nil {
				debug.Error(err) // sensor kept its old size, retried next change
			}
			l.lastRes = r
			l.resApplied = true
		}
	}

	// LED follows settings; Set is a no-op when unchanged.
	if l.led != nil {
		if err := l.led.Set(l.settings.LEDColor(), l.settings.LEDBrightness()); err != nil {
			debug.Trace("LED: %v", err)
		}
	}

	// Time-sync result, if it has arrived.
	if l.timesync != nil {
		select {
		case r := <-l.timesync:
			l.timesync = nil
			if r.Err != nil {
				debug.Error(r.Err)
			} else {
				l.showMessage("Time synced", now)
			}
		default:
		}
	}

	// 6. Render.
	l.render(now)
}

// handleCardChange reacts to insertion/removal edges. Removal takes
// effect immediately: the handle unmounts and any in-progress capture
// is force-ended with a storage fault on this same tick.
func (l *Loop) handleCardChange(present bool) {
	debug.Card(present)

	if !present {
		l.storage.Unmount()
		if l.ctrl.State() == mode.Capturing {
			out := l.ctrl.EndCapture(&storage.Fault{Op: "capture", Err: fmt.Errorf("card removed")})
			l.reportOutcome(out)
		}
		if l.gallery.Active() {
			l.gallery.Exit()
		}
		l.showMessage("SD Card Removed", l.now())
		return
	}

	l.showMessage("Mounting SD Card", l.now())
	var err error
	for i := 0; i < l.cfg.Defaults.MountRetries; i++ {
		if err = l.storage.Mount(); err == nil {
			return
		}
		debug.Live("Mount attempt %d failed: %v", i+1, err)
		l.sleep(mountRetryDelay)
	}
	debug.Error(err)
	l.showMessage("SD Card Failed!", l.now())
}

// dispatch routes button edges. Gallery mode owns all buttons while
// active; otherwise navigation mutates settings and shutter/OK/select
// drive the mode controller.
func (l *Loop) dispatch(ev buttons.Events, now time.Time) {
	if !ev.Any() {
		return
	}

	if l.gallery.Active() {
		l.dispatchGallery(ev, now)
		return
	}

	if ev.Fell[buttons.Up] {
		l.settings.Adjust(1)
	}
	if ev.Fell[buttons.Down] {
		l.settings.Adjust(-1)
	}
	if ev.Fell[buttons.Right] {
		l.settings.CursorNext()
	}
	if ev.Fell[buttons.Left] {
		l.settings.CursorPrev()
	}

	if ev.Fell[buttons.Shutter] {
		l.reportOutcome(l.ctrl.BeginCapture())
	}

	if ev.Fell[buttons.OK] {
		l.handleOK(now)
	}

	if ev.Fell[buttons.Select] {
		l.handleSelect(now)
	}
}

// handleOK: in LAPS the OK button arms/disarms the time-lapse; during
// a stop-motion session it ends the sequence; otherwise it shows the
// battery overlay.
func (l *Loop) handleOK(now time.Time) {
	if l.settings.Mode() == settings.ModeTimelapse {
		if l.ctrl.State() == mode.Capturing {
			out := l.ctrl.EndCapture(nil)
			out.Message = "LAPS OFF"
			l.reportOutcome(out)
		} else {
			l.reportOutcome(l.ctrl.BeginCapture())
		}
		return
	}

	if s := l.ctrl.Session(); s != nil && s.Mode == settings.ModeStopMotion {
		out := l.ctrl.EndCapture(nil)
		out.Message = fmt.Sprintf("%d frames", s.Saved)
		l.reportOutcome(out)
		return
	}

	sample, err := l.battery.SampleNow(now)
	if err != nil {
		debug.Error(err)
		return
	}
	l.showMessage(fmt.Sprintf("%d%%", sample.Percent), now)
}

// handleSelect: cycles the power submode in LAPS, toggles gallery mode
// everywhere else.
func (l *Loop) handleSelect(now time.Time) {
	if l.settings.Mode() == settings.ModeTimelapse {
		l.settings.CycleSubmode()
		l.showMessage(l.settings.Submode().String(), now)
		return
	}
	if l.ctrl.State() == mode.Capturing {
		return
	}
	if err := l.gallery.Enter(); err != nil {
		debug.Error(err)
		l.showMessage("No Photos", now)
	}
}

func (l *Loop) dispatchGallery(ev buttons.Events, now time.Time) {
	switch {
	case ev.Fell[buttons.Left]:
		l.gallery.Prev()
	case ev.Fell[buttons.Right]:
		l.gallery.Next()
	case ev.Fell[buttons.Up]:
		l.gallery.ZoomIn()
	case ev.Fell[buttons.Down]:
		l.gallery.ZoomOut()
	case ev.Fell[buttons.Select], ev.Fell[buttons.Shutter]:
		l.gallery.Exit()
		l.showMessage("Camera Mode", now)
	}
}

// reportOutcome logs a controller outcome and surfaces its message or
// fault on the overlay. Faults never stop the loop.
func (l *Loop) reportOutcome(out mode.Outcome) {
	if out.Preview != nil {
		l.preview = out.Preview
	}
	if out.Err != nil {
		debug.Error(out.Err)
		if out.Message == "" {
			switch {
			case storage.IsFault(out.Err):
				out.Message = "Storage Error"
			case capture.IsHardwareFault(out.Err):
				// Retried next tick; no overlay spam.
			}
		}
	}
	for _, path := range out.Saved {
		debug.Live("Saved %s", path)
	}
	if len(out.Saved) > 0 && out.Err == nil && l.beeper != nil {
		if err := l.beeper.Shutter(); err != nil {
			debug.Error(err)
		}
	}
	if out.Message != "" {
		l.showMessage(out.Message, l.now())
	}
}

func (l *Loop) showMessage(msg string, now time.Time) {
	l.message = msg
	l.messageUntil = now.Add(messageDuration)
}

// render builds the UI state and draws the tick's preview. A render or
// preview-capture failure is logged and the loop moves on.
func (l *Loop) render(now time.Time) {
	ui := display.UIState{
		Mode:       l.settings.Mode(),
		Cursor:     l.settings.Cursor(),
		Resolution: l.settings.Resolution(),
		Effect:     l.settings.Effect(),
		Battery:    l.battery.Sample(),
		Submode:    l.settings.Submode(),
	}

	if now.Before(l.messageUntil) {
		ui.Message = l.message
	}

	session := l.ctrl.Session()
	if session != nil {
		ui.Capturing = true
		ui.FrameCount = session.FrameCount()
		ui.Remaining = session.Remaining(now)
		ui.DimDisplay = session.Mode == settings.ModeTimelapse &&
			l.settings.Submode() == settings.SubmodeLowPower
	}

	preview := l.preview
	switch {
	case l.gallery.Active():
		path, idx, count := l.gallery.Current()
		ui.GalleryActive = true
		ui.GalleryName = path
		ui.GalleryIndex = idx
		ui.GalleryCount = count
		preview = l.gallery.Frame()
	case preview == nil && !ui.DimDisplay:
		// Live preview: one still per tick when the controller did not
		// already produce a frame.
		frame, err := l.camera.CaptureStill()
		if err != nil {
			debug.Trace("Preview: %v", err) // retried next tick
		} else {
			capture.ApplyEffect(frame, l.settings.Effect())
			preview = frame
		}
	}

	if err := l.display.Render(preview, ui); err != nil {
		debug.Error(err)
	}
}
