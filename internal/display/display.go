package display

import (
	"time"

	"snapcam/internal/capture"
	"snapcam/internal/debug"
	"snapcam/internal/hw/battery"
	"snapcam/internal/settings"
)

// UIState is everything the overlay needs to draw the HUD. The loop
// rebuilds it every tick from settings, battery and session state.
type UIState struct {
	Mode       settings.CaptureMode
	Cursor     settings.Field
	Resolution settings.Resolution
	Effect     settings.Effect
	Battery    battery.Sample

	Capturing  bool
	FrameCount int
	Remaining  time.Duration // LAPS: time to next shot
	Submode    settings.TimelapseSubmode
	DimDisplay bool // LAPS low-power: dim between shots

	Message string // transient status ("Snap!", "No SD Card", ...)

	GalleryActive bool
	GalleryName   string
	GalleryIndex  int
	GalleryCount  int
}

// Presenter renders the preview frame and HUD overlay. Render never
// returns an error fatal to the loop and must tolerate a nil preview,
// degrading to overlay-only.
type Presenter interface {
	Render(preview *capture.Frame, ui UIState) error
	Close() error
}

// NullPresenter discards frames; used headless and in tests.
type NullPresenter struct{}

func (NullPresenter) Render(preview *capture.Frame, ui UIState) error {
	debug.Trace("Display: render (null) mode=%s msg=%q", ui.Mode, ui.Message)
	return nil
}

func (NullPresenter) Close() error { return nil }
