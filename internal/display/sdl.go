package display

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"snapcam/internal/capture"
	"snapcam/internal/debug"
	"snapcam/internal/settings"
)

// SDLPresenter renders the preview into a desktop window. It is the
// development stand-in for the device panel: the preview frame is
// streamed into an RGB565 texture and a rect-based HUD is drawn on
// top (the panel has no font rendering either).
//
// SDL2 requires all calls from the thread that initialized it; the
// control loop runs on the locked main goroutine, so this holds.
type SDLPresenter struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	texW     int32
	texH     int32
	scale    int32
	winW     int32
	winH     int32
}

// NewSDLPresenter opens the preview window at the panel resolution
// times scale.
func NewSDLPresenter(width, height, scale int) (*SDLPresenter, error) {
	if scale <= 0 {
		scale = 1
	}
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("display: init sdl: %w", err)
	}

	winW := int32(width * scale)
	winH := int32(height * scale)
	window, err := sdl.CreateWindow(
		"snapcam",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		winW,
		winH,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("display: create window: %w", err)
	}

	// Accelerated first, software as fallback (headless dev boxes).
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		debug.Info("Display: hardware renderer unavailable (%v), using software", err)
		renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_SOFTWARE)
		if err != nil {
			window.Destroy()
			sdl.Quit()
			return nil, fmt.Errorf("display: create renderer: %w", err)
		}
	}
	renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)

	return &SDLPresenter{
		window:   window,
		renderer: renderer,
		scale:    int32(scale),
		winW:     winW,
		winH:     winH,
	}, nil
}

// Render draws the preview (or black when nil) plus the HUD. It never
// returns an error the loop should treat as fatal; failures are
// reported so the loop can log and continue.
func (p *SDLPresenter) Render(preview *capture.Frame, ui UIState) error {
	// Keep the window responsive; the loop owns all other input.
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if _, ok := event.(*sdl.QuitEvent); ok {
			debug.Live("Display: window close requested")
		}
	}

	if err := p.renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		return fmt.Errorf("display: clear: %w", err)
	}
	if err := p.renderer.Clear(); err != nil {
		return fmt.Errorf("display: clear: %w", err)
	}

	if preview != nil && len(preview.Pix) > 0 {
		if err := p.blit(preview); err != nil {
			// Degrade to overlay-only on a bad frame.
			debug.Error(err)
		}
	}

	p.drawOverlay(ui)
	p.renderer.Present()
	return nil
}

// blit streams the RGB565 frame into the window texture, recreating
// it when the capture resolution changed.
func (p *SDLPresenter) blit(f *capture.Frame) error {
	w, h := int32(f.Width), int32(f.Height)
	if p.texture == nil || p.texW != w || p.texH != h {
		if p.texture != nil {
			p.texture.Destroy()
		}
		tex, err := p.renderer.CreateTexture(
			sdl.PIXELFORMAT_RGB565, sdl.TEXTUREACCESS_STREAMING, w, h)
		if err != nil {
			p.texture = nil
			return fmt.Errorf("display: create texture: %w", err)
		}
		p.texture = tex
		p.texW, p.texH = w, h
	}

	if err := p.texture.Update(nil, unsafe.Pointer(&f.Pix[0]), f.Width*2); err != nil {
		return fmt.Errorf("display: update texture: %w", err)
	}
	dst := sdl.Rect{W: p.winW, H: p.winH}
	if err := p.renderer.Copy(p.texture, nil, &dst); err != nil {
		return fmt.Errorf("display: copy texture: %w", err)
	}
	return nil
}

// drawOverlay draws the rect-based HUD: battery gauge, mode marker,
// recording indicator, message banner, settings cursor ticks.
func (p *SDLPresenter) drawOverlay(ui UIState) {
	// Low-power time-lapse dims everything between shots.
	if ui.DimDisplay {
		p.renderer.SetDrawColor(0, 0, 0, 220)
		p.renderer.FillRect(&sdl.Rect{W: p.winW, H: p.winH})
	}

	// Battery gauge, top right: outline plus a fill proportional to charge.
	const gaugeW, gaugeH = 40, 12
	gx := p.winW - gaugeW - 8
	p.renderer.SetDrawColor(255, 255, 255, 200)
	p.renderer.DrawRect(&sdl.Rect{X: gx, Y: 8, W: gaugeW, H: gaugeH})
	fill := int32(ui.Battery.Percent) * (gaugeW - 4) / 100
	if ui.Battery.Percent > 25 {
		p.renderer.SetDrawColor(0, 220, 0, 220)
	} else {
		p.renderer.SetDrawColor(220, 0, 0, 220)
	}
	p.renderer.FillRect(&sdl.Rect{X: gx + 2, Y: 10, W: fill, H: gaugeH - 4})

	// Mode marker, top left: one tick per mode, active one filled.
	for i := 0; i < 5; i++ {
		r := sdl.Rect{X: int32(8 + i*14), Y: 8, W: 10, H: 10}
		p.renderer.SetDrawColor(255, 255, 255, 200)
		if settings.CaptureMode(i) == ui.Mode {
			p.renderer.FillRect(&r)
		} else {
			p.renderer.DrawRect(&r)
		}
	}

	// Recording dot.
	if ui.Capturing {
		p.renderer.SetDrawColor(255, 0, 0, 255)
		p.renderer.FillRect(&sdl.Rect{X: p.winW/2 - 5, Y: 8, W: 10, H: 10})
	}

	// Settings cursor tick along the bottom edge.
	if ui.Cursor != settings.FieldNone {
		p.renderer.SetDrawColor(255, 255, 0, 255)
		p.renderer.FillRect(&sdl.Rect{X: int32(ui.Cursor) * 20, Y: p.winH - 6, W: 16, H: 4})
	}

	// Message banner.
	if ui.Message != "" {
		p.renderer.SetDrawColor(0, 0, 0, 180)
		p.renderer.FillRect(&sdl.Rect{Y: p.winH - 28, W: p.winW, H: 22})
		p.renderer.SetDrawColor(255, 255, 255, 255)
		p.renderer.FillRect(&sdl.Rect{X: 8, Y: p.winH - 22, W: int32(len(ui.Message)) * 6, H: 10})
	}
}

// Close tears down the SDL resources.
func (p *SDLPresenter) Close() error {
	if p.texture != nil {
		p.texture.Destroy()
	}
	if p.renderer != nil {
		p.renderer.Destroy()
	}
	if p.window != nil {
		p.window.Destroy()
	}
	sdl.Quit()
	return nil
}
