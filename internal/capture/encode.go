package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
)

// JPEGQuality is the fixed encoder quality for stills.
const JPEGQuality = 90

// GIFFrameDelay is the inter-frame delay for animated GIFs, in
// hundredths of a second (0.12s per frame).
const GIFFrameDelay = 12

// EncodeJPEG encodes a single frame as JPEG bytes.
func EncodeJPEG(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.ToImage(), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeGIF encodes a frame sequence as an animated GIF. A single
// frame yields a valid still GIF (used by the GBOY mode).
func EncodeGIF(frames []*Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("encode gif: no frames")
	}

	g := &gif.GIF{}
	for _, f := range frames {
		src := f.ToImage()
		p := image.NewPaletted(src.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, src.Bounds(), src, image.Point{})
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, GIFFrameDelay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
