package capture

import (
	"image"
	"image/color"
)

// Frame is a raw RGB565 frame as produced by the sensor. The display
// panel and the effects pipeline operate on this format directly; the
// encoders convert to image.Image on the way out.
type Frame struct {
	Width, Height int
	Pix           []uint16
}

// NewFrame allocates a zeroed (black) frame.
func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]uint16, w*h)}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint16, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// SameSize reports whether both frames have the same dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return o != nil && f.Width == o.Width && f.Height == o.Height
}

// At returns the RGB565 pixel at (x, y).
func (f *Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// Set writes the RGB565 pixel at (x, y).
func (f *Frame) Set(x, y int, v uint16) {
	f.Pix[y*f.Width+x] = v
}

// PackRGB565 packs 8-bit channels into an RGB565 pixel.
func PackRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// UnpackRGB565 expands an RGB565 pixel back to 8-bit channels.
func UnpackRGB565(v uint16) (r, g, b uint8) {
	r = uint8(v>>11) << 3
	g = uint8(v>>5&0x3f) << 2
	b = uint8(v&0x1f) << 3
	// Replicate high bits into the low bits so full-scale stays full-scale.
	r |= r >> 5
	g |= g >> 6
	b |= b >> 5
	return
}

// ToImage converts the frame to an RGBA image for the stdlib encoders.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := UnpackRGB565(f.At(x, y))
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// FromImage converts an image into a new RGB565 frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, PackRGB565(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return f
}
