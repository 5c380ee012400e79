package capture

import "snapcam/internal/settings"

// AlphaBlend composites a over b at 50% opacity into dst. The frames
// are expected to share dimensions; on a mismatch only the common
// prefix is blended so a resized input never panics. dst may alias b
// but not a. Used for the stop-motion onion-skin preview, which must
// never mutate the stored reference frame.
func AlphaBlend(dst, a, b *Frame) {
	n := len(dst.Pix)
	if len(a.Pix) < n {
		n = len(a.Pix)
	}
	if len(b.Pix) < n {
		n = len(b.Pix)
	}
	for i := 0; i < n; i++ {
		ra, ga, ba := UnpackRGB565(a.Pix[i])
		rb, gb, bb := UnpackRGB565(b.Pix[i])
		dst.Pix[i] = PackRGB565(
			uint8((uint16(ra)+uint16(rb))/2),
			uint8((uint16(ga)+uint16(gb))/2),
			uint8((uint16(ba)+uint16(bb))/2),
		)
	}
}

// bayer4 is the classic 4x4 ordered-dithering kernel, scaled to the
// 0-255 luminance range.
var bayer4 = [4][4]int{
	{0, 128, 32, 160},
	{192, 64, 224, 96},
	{48, 176, 16, 144},
	{240, 112, 80, 208},
}

// OrderedDither renders src into dst as 1-bit black/white using the
// fixed 4x4 Bayer kernel at the capture resolution.
func OrderedDither(dst, src *Frame) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			r, g, b := UnpackRGB565(src.At(x, y))
			// Integer Rec.601 luma.
			luma := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
			if luma > bayer4[y%4][x%4] {
				dst.Set(x, y, 0xffff)
			} else {
				dst.Set(x, y, 0x0000)
			}
		}
	}
}

// ApplyEffect applies the selected colour effect to the frame in place.
func ApplyEffect(f *Frame, e settings.Effect) {
	switch e {
	case settings.EffectNone:
		return
	case settings.EffectInvert:
		for i := range f.Pix {
			f.Pix[i] = ^f.Pix[i]
		}
	case settings.EffectBW:
		for i := range f.Pix {
			r, g, b := UnpackRGB565(f.Pix[i])
			luma := uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
			f.Pix[i] = PackRGB565(luma, luma, luma)
		}
	case settings.EffectSepia:
		for i := range f.Pix {
			r, g, b := UnpackRGB565(f.Pix[i])
			luma := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
			f.Pix[i] = PackRGB565(
				clamp8(luma*240/200),
				clamp8(luma*200/200),
				clamp8(luma*145/200),
			)
		}
	}
}

func clamp8(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
