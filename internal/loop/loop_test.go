package loop

import (
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"snapcam/internal/capture"
	"snapcam/internal/config"
	"snapcam/internal/display"
	"snapcam/internal/hw/battery"
	"snapcam/internal/hw/beeper"
	"snapcam/internal/hw/buttons"
	"snapcam/internal/hw/gpio"
	"snapcam/internal/mode"
	"snapcam/internal/settings"
	"snapcam/internal/storage"
)

var testPins = buttons.Pins{Up: 17, Down: 27, Left: 22, Right: 23, Select: 24, OK: 25, Shutter: 5}

type stubCamera struct {
	shots    int
	fail     error
	resW     int
	resH     int
	resCalls int
}

func (s *stubCamera) CaptureStill() (*capture.Frame, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.shots++
	f := capture.NewFrame(8, 8)
	for i := range f.Pix {
		f.Pix[i] = uint16(s.shots)
	}
	return f, nil
}

func (s *stubCamera) Stream(count int) iter.Seq2[*capture.Frame, error] {
	return func(yield func(*capture.Frame, error) bool) {
		for i := 0; i < count; i++ {
			if !yield(s.CaptureStill()) {
				return
			}
		}
	}
}

func (s *stubCamera) SetResolution(w, h int) error {
	s.resW, s.resH = w, h
	s.resCalls++
	return nil
}

// recordingPresenter counts renders and keeps the last UI state.
type recordingPresenter struct {
	renders int
	last    display.UIState
	preview *capture.Frame
	fail    error
}

func (p *recordingPresenter) Render(preview *capture.Frame, ui display.UIState) error {
	p.renders++
	p.last = ui
	p.preview = preview
	return p.fail
}

func (p *recordingPresenter) Close() error { return nil }

type loopFixture struct {
	t     *testing.T
	drv   *gpio.MockDriver
	cam   *stubCamera
	store *storage.Manager
	prefs *settings.Store
	ctrl  *mode.Controller
	pres  *recordingPresenter
	loop  *Loop

	now     time.Time
	present bool
	reads   int
	slept   []time.Duration
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	f := &loopFixture{
		t:       t,
		drv:     gpio.NewMockDriver(),
		cam:     &stubCamera{},
		prefs:   settings.New(),
		pres:    &recordingPresenter{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		present: true,
	}

	cfg := &config.Config{
		Defaults: config.DefaultsConfig{
			DebounceMs:   20,
			TickBudgetMs: 33,
			BatteryPollS: 10,
			MountRetries: 3,
		},
	}

	f.store = storage.NewManager(t.TempDir(), func() bool { return f.present })
	f.ctrl = mode.NewController(f.cam, f.store, f.prefs)
	f.ctrl.Now = func() time.Time { return f.now }

	monitor := battery.NewMonitor(func() (uint16, error) {
		f.reads++
		return 38726, nil // ~3.9V
	}, cfg.BatteryPollInterval())

	f.loop = New(Deps{
		Config:     cfg,
		Buttons:    buttons.NewPoller(f.drv, testPins, cfg.Debounce()),
		Battery:    monitor,
		Storage:    f.store,
		Settings:   f.prefs,
		Controller: f.ctrl,
		Display:    f.pres,
		Camera:     f.cam,
	})
	f.loop.now = func() time.Time { return f.now }
	f.loop.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

// tick runs one loop iteration and advances the fake clock by the
// tick budget.
func (f *loopFixture) tick() {
	f.loop.tick(f.now)
	f.now = f.now.Add(33 * time.Millisecond)
}

// press drives a debounced button press through the real poller:
// level change, commit tick, release, release-commit tick.
func (f *loopFixture) press(pin int) {
	f.drv.SetLevel(pin, gpio.Low)
	f.tick()
	f.tick() // 33ms held: fall edge commits and dispatches here
	f.drv.SetLevel(pin, gpio.High)
	f.tick()
	f.tick() // rise edge commits
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestFirstTickMountsCard(t *testing.T) {
	f := newLoopFixture(t)
	if f.store.Mounted() {
		t.Fatal("mounted before the first tick")
	}
	f.tick()
	if !f.store.Mounted() {
		t.Fatal("card present but not mounted after the first tick")
	}
	if f.pres.renders != 1 {
		t.Fatalf("renders = %d, want 1", f.pres.renders)
	}
}

func TestShutterPressCapturesJPEG(t *testing.T) {
	f := newLoopFixture(t)
	f.tick() // mount

	f.press(testPins.Shutter)

	if got := countFiles(t, f.store.Root()); got != 1 {
		t.Fatalf("%d files on card after one press, want 1", got)
	}
	if f.loop.message != "Snap!" {
		t.Fatalf("message = %q, want Snap!", f.loop.message)
	}
}

func TestSavedShotChirpsTheBuzzer(t *testing.T) {
	f := newLoopFixture(t)
	bz := beeper.New(f.drv, 18)
	var toned []time.Duration
	bz.Sleep = func(d time.Duration) {
		toned = append(toned, d)
		if f.drv.Duty(18) == 0 {
			t.Fatal("buzzer silent during the chirp")
		}
	}
	f.loop.beeper = bz

	f.tick() // mount
	f.press(testPins.Shutter)

	if len(toned) != 1 || toned[0] != 50*time.Millisecond {
		t.Fatalf("chirps = %v, want one 50ms chirp", toned)
	}
	if f.drv.Duty(18) != 0 {
		t.Fatalf("duty = %d after the chirp, want muted", f.drv.Duty(18))
	}

	// A failed shot stays silent.
	f.present = false
	f.tick()
	f.press(testPins.Shutter)
	if len(toned) != 1 {
		t.Fatalf("chirps = %d after a failed shot, want 1", len(toned))
	}
}

func TestCardRemovalAbortsCaptureSameTick(t *testing.T) {
	f := newLoopFixture(t)
	f.tick() // mount

	f.prefs.SetMode(settings.ModeTimelapse)
	if out := f.ctrl.BeginCapture(); out.Err != nil {
		t.Fatalf("arm: %v", out.Err)
	}

	f.present = false
	f.tick()

	if f.ctrl.State() != mode.Idle {
		t.Fatal("capture survived the tick that saw the card go away")
	}
	if f.store.Mounted() {
		t.Fatal("storage still mounted")
	}
	if f.loop.message != "SD Card Removed" {
		t.Fatalf("message = %q", f.loop.message)
	}
}

func TestMountRetriesThenGivesUp(t *testing.T) {
	f := newLoopFixture(t)
	f.present = false
	f.tick() // settle lastPresent=false without a card

	// Insertion with an unreachable mount point: every attempt fails.
	if err := os.RemoveAll(f.store.Root()); err != nil {
		t.Fatal(err)
	}
	f.present = true
	f.tick()

	if f.store.Mounted() {
		t.Fatal("mounted a broken card")
	}
	if len(f.slept) != 3 {
		t.Fatalf("slept %d times between attempts, want 3 (one per retry)", len(f.slept))
	}
	if f.loop.message != "SD Card Failed!" {
		t.Fatalf("message = %q", f.loop.message)
	}
}

func TestBatteryCadence(t *testing.T) {
	f := newLoopFixture(t)

	// ~25s of ticks at 1s steps.
	for i := 0; i < 25; i++ {
		f.loop.tick(f.now)
		f.now = f.now.Add(time.Second)
	}
	if f.reads != 3 {
		t.Fatalf("battery reads = %d over 25s, want 3 (t0, +10s, +20s)", f.reads)
	}
}

func TestRenderFailureKeepsTicking(t *testing.T) {
	f := newLoopFixture(t)
	f.pres.fail = errors.New("display gone")

	f.tick()
	f.tick()
	f.tick()
	if f.pres.renders != 3 {
		t.Fatalf("renders = %d, want 3: a render fault must not stop the loop", f.pres.renders)
	}

	// The loop still captures while the display is down.
	f.press(testPins.Shutter)
	if got := countFiles(t, f.store.Root()); got != 1 {
		t.Fatalf("%d files on card, want 1", got)
	}
}

func TestPreviewFailureKeepsTicking(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()

	f.cam.fail = &capture.HardwareFault{Op: "capture", Err: errors.New("sensor busy")}
	f.tick()
	f.tick()
	if f.pres.preview != nil {
		t.Fatal("a preview frame appeared while the sensor was down")
	}

	f.cam.fail = nil
	f.tick()
	if f.pres.preview == nil {
		t.Fatal("preview did not recover with the sensor")
	}
}

func TestOKShowsBatteryOutsideLAPS(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()

	f.press(testPins.OK)
	if !strings.HasSuffix(f.loop.message, "%") {
		t.Fatalf("message = %q, want a battery percentage", f.loop.message)
	}
}

func TestOKArmsAndDisarmsTimelapse(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.prefs.SetMode(settings.ModeTimelapse)

	f.press(testPins.OK)
	if f.ctrl.State() != mode.Capturing {
		t.Fatal("OK did not arm the time-lapse")
	}
	if f.loop.message != "LAPS ON" {
		t.Fatalf("message = %q", f.loop.message)
	}

	f.press(testPins.OK)
	if f.ctrl.State() != mode.Idle {
		t.Fatal("OK did not disarm the time-lapse")
	}
	if f.loop.message != "LAPS OFF" {
		t.Fatalf("message = %q", f.loop.message)
	}
}

func TestOKEndsStopMotionSession(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.prefs.SetMode(settings.ModeStopMotion)

	f.press(testPins.Shutter) // frame 1, session open
	f.press(testPins.Shutter) // frame 2
	if f.ctrl.State() != mode.Capturing {
		t.Fatal("stop-motion session not open")
	}

	f.press(testPins.OK)
	if f.ctrl.State() != mode.Idle {
		t.Fatal("OK did not end the stop-motion session")
	}
	if got := countFiles(t, f.store.Root()); got != 2 {
		t.Fatalf("%d files, want 2 (one per shutter press)", got)
	}
}

func TestSelectWithEmptyCardShowsNoPhotos(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()

	f.press(testPins.Select)
	if f.loop.gallery.Active() {
		t.Fatal("gallery activated with no photos")
	}
	if f.loop.message != "No Photos" {
		t.Fatalf("message = %q", f.loop.message)
	}
}

func TestSelectTogglesGallery(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.press(testPins.Shutter) // put one photo on the card

	f.press(testPins.Select)
	if !f.loop.gallery.Active() {
		t.Fatal("Select did not enter the gallery")
	}
	if !f.pres.last.GalleryActive {
		t.Fatal("render did not reflect gallery mode")
	}

	// Shutter leaves the gallery instead of capturing.
	f.press(testPins.Shutter)
	if f.loop.gallery.Active() {
		t.Fatal("shutter did not exit the gallery")
	}
	if got := countFiles(t, f.store.Root()); got != 1 {
		t.Fatalf("%d files, want still 1: gallery shutter must not capture", got)
	}
}

func TestSelectCyclesSubmodeInLAPS(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.prefs.SetMode(settings.ModeTimelapse)

	f.press(testPins.Select)
	if f.prefs.Submode() != settings.SubmodeLowPower {
		t.Fatalf("submode = %v, want LowPwr", f.prefs.Submode())
	}
	if f.loop.gallery.Active() {
		t.Fatal("Select opened the gallery while in LAPS")
	}
}

func TestLowPowerTimelapseDimsDisplay(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.prefs.SetMode(settings.ModeTimelapse)
	f.prefs.CycleSubmode() // LowPwr
	f.ctrl.BeginCapture()

	shotsBefore := f.cam.shots
	f.tick()
	if !f.pres.last.DimDisplay {
		t.Fatal("display not dimmed in low-power time-lapse")
	}
	if f.pres.preview != nil {
		t.Fatal("live preview rendered in low-power time-lapse")
	}
	if f.cam.shots != shotsBefore {
		t.Fatal("sensor exercised between shots in low-power mode")
	}
}

func TestArrowsNavigateSettings(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()

	f.press(testPins.Right)
	if f.prefs.Cursor() != settings.FieldResolution {
		t.Fatalf("cursor = %v after one right press", f.prefs.Cursor())
	}
	f.press(testPins.Up)
	if got := f.prefs.Resolution().String(); got != "800x600" {
		t.Fatalf("resolution = %s after up press, want 800x600", got)
	}
	f.press(testPins.Down)
	if got := f.prefs.Resolution().String(); got != "640x480" {
		t.Fatalf("resolution = %s after down press, want 640x480", got)
	}
	f.press(testPins.Left)
	if f.prefs.Cursor() != settings.FieldNone {
		t.Fatalf("cursor = %v after left press, want FieldNone", f.prefs.Cursor())
	}
}

func TestResolutionChangeDeferredUntilIdle(t *testing.T) {
	f := newLoopFixture(t)
	f.tick() // mount + initial resolution push
	if f.cam.resCalls != 1 {
		t.Fatalf("resCalls = %d after first tick, want 1", f.cam.resCalls)
	}

	f.prefs.SetMode(settings.ModeStopMotion)
	f.press(testPins.Shutter) // session open
	if f.ctrl.State() != mode.Capturing {
		t.Fatal("stop-motion session not open")
	}

	// Selecting a new resolution mid-session must not reach the sensor.
	f.prefs.SetResolution(settings.Resolution(4)) // 1024x768
	f.tick()
	f.tick()
	if f.cam.resCalls != 1 {
		t.Fatalf("sensor resized mid-session (resCalls = %d)", f.cam.resCalls)
	}

	// Session over: the pending size is applied.
	f.press(testPins.OK)
	if f.ctrl.State() != mode.Idle {
		t.Fatal("OK did not end the session")
	}
	f.tick()
	if f.cam.resCalls != 2 || f.cam.resW != 1024 || f.cam.resH != 768 {
		t.Fatalf("pending resolution not applied after session end: calls=%d %dx%d",
			f.cam.resCalls, f.cam.resW, f.cam.resH)
	}
}

func TestMessageExpires(t *testing.T) {
	f := newLoopFixture(t)
	f.tick()
	f.press(testPins.Shutter)

	if f.pres.last.Message != "Snap!" {
		t.Fatalf("message not rendered: %q", f.pres.last.Message)
	}

	f.now = f.now.Add(2 * time.Second)
	f.tick()
	if f.pres.last.Message != "" {
		t.Fatalf("message %q still rendered after expiry", f.pres.last.Message)
	}
}
