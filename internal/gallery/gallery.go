package gallery

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"snapcam/internal/capture"
	"snapcam/internal/debug"
	"snapcam/internal/storage"
)

const (
	minZoom = 1 // full size
	maxZoom = 3 // 1/4 size
)

// Browser holds gallery-mode state: the scanned image list, the
// current position and the zoom level. Navigation wraps at both ends;
// zoom clamps to its range.
type Browser struct {
	store  *storage.Manager
	files  []string
	index  int
	zoom   int
	active bool

	// Decoded frame for the current path and zoom, so the render loop
	// does not hit the card every tick.
	cached     *capture.Frame
	cachedPath string
	cachedZoom int
}

// NewBrowser creates an inactive browser over the card.
func NewBrowser(store *storage.Manager) *Browser {
	return &Browser{store: store, zoom: minZoom}
}

// Active reports whether gallery mode owns the buttons.
func (b *Browser) Active() bool { return b.active }

// Enter scans the card and activates gallery mode. With no images (or
// no card) it stays inactive and returns an error for the overlay.
func (b *Browser) Enter() error {
	files, err := b.store.ListImages()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("gallery: no photos")
	}
	b.files = files
	b.index = 0
	b.zoom = minZoom
	b.active = true
	debug.Info("Gallery: %d images", len(files))
	return nil
}

// Exit leaves gallery mode and drops the scanned list.
func (b *Browser) Exit() {
	b.active = false
	b.files = nil
	b.index = 0
	b.cached = nil
	b.cachedPath = ""
	debug.Info("Gallery: exit")
}

// Next advances to the next image, wrapping at the end.
func (b *Browser) Next() { b.move(1) }

// Prev steps back to the previous image, wrapping at the start.
func (b *Browser) Prev() { b.move(-1) }

func (b *Browser) move(delta int) {
	if len(b.files) == 0 {
		return
	}
	b.index = (b.index + delta + len(b.files)) % len(b.files)
}

// ZoomIn enlarges (toward full size); clamped.
func (b *Browser) ZoomIn() {
	if b.zoom > minZoom {
		b.zoom--
	}
}

// ZoomOut shrinks; clamped.
func (b *Browser) ZoomOut() {
	if b.zoom < maxZoom {
		b.zoom++
	}
}

// Zoom returns the current zoom level (1 = full size).
func (b *Browser) Zoom() int { return b.zoom }

// Current returns the selected file, its position and the count.
func (b *Browser) Current() (path string, index, count int) {
	if len(b.files) == 0 {
		return "", 0, 0
	}
	return b.files[b.index], b.index, len(b.files)
}

// Frame returns the current image as a preview frame, downscaled by
// the zoom level. The decode is cached until the selection or zoom
// changes, so repeated renders of one image cost nothing. Decode
// failures return nil so the HUD can fall back to a file-info overlay.
func (b *Browser) Frame() *capture.Frame {
	path, _, count := b.Current()
	if count == 0 {
		return nil
	}
	if b.cached != nil && b.cachedPath == path && b.cachedZoom == b.zoom {
		return b.cached
	}

	f, err := os.Open(path)
	if err != nil {
		debug.Error(fmt.Errorf("gallery: open %s: %w", path, err))
		return nil
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".gif":
		img, err = gif.Decode(f)
	default:
		return nil
	}
	if err != nil {
		debug.Error(fmt.Errorf("gallery: decode %s: %w", path, err))
		return nil
	}

	frame := capture.FromImage(img)
	if b.zoom > minZoom {
		frame = downscale(frame, 1<<(b.zoom-1))
	}
	b.cached = frame
	b.cachedPath = path
	b.cachedZoom = b.zoom
	return frame
}

// downscale reduces the frame by an integer factor (nearest sample).
func downscale(f *capture.Frame, factor int) *capture.Frame {
	w := f.Width / factor
	h := f.Height / factor
	if w < 1 || h < 1 {
		return f
	}
	out := capture.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, f.At(x*factor, y*factor))
		}
	}
	return out
}
