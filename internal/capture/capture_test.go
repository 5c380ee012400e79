package capture

import (
	"bytes"
	"image/gif"
	"image/jpeg"
	"testing"

	"snapcam/internal/settings"
)

func TestRGB565RoundTrip(t *testing.T) {
	cases := []struct {
		r, g, b uint8
	}{
		{0, 0, 0},
		{255, 255, 255},
		{255, 0, 0},
		{0, 255, 0},
		{0, 0, 255},
		{128, 64, 32},
	}
	for _, c := range cases {
		r, g, b := UnpackRGB565(PackRGB565(c.r, c.g, c.b))
		// RGB565 keeps 5/6/5 bits; the round trip may lose the low bits
		// but full-scale must stay full-scale.
		if d := int(r) - int(c.r); d < -8 || d > 8 {
			t.Errorf("red %d round-tripped to %d", c.r, r)
		}
		if d := int(g) - int(c.g); d < -4 || d > 4 {
			t.Errorf("green %d round-tripped to %d", c.g, g)
		}
		if d := int(b) - int(c.b); d < -8 || d > 8 {
			t.Errorf("blue %d round-tripped to %d", c.b, b)
		}
	}
	if r, g, b := UnpackRGB565(PackRGB565(255, 255, 255)); r != 255 || g != 255 || b != 255 {
		t.Errorf("white degraded to (%d,%d,%d)", r, g, b)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := NewFrame(4, 4)
	f.Set(1, 1, 0x1234)
	c := f.Clone()
	c.Set(1, 1, 0xffff)
	if f.At(1, 1) != 0x1234 {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestInvertIsInvolution(t *testing.T) {
	f := NewFrame(4, 4)
	for i := range f.Pix {
		f.Pix[i] = uint16(i * 991)
	}
	orig := f.Clone()

	ApplyEffect(f, settings.EffectInvert)
	if f.At(0, 0) == orig.At(0, 0) && f.At(3, 3) == orig.At(3, 3) {
		t.Fatal("invert changed nothing")
	}
	ApplyEffect(f, settings.EffectInvert)
	for i := range f.Pix {
		if f.Pix[i] != orig.Pix[i] {
			t.Fatalf("pixel %d: double invert = %04x, want %04x", i, f.Pix[i], orig.Pix[i])
		}
	}
}

func TestBWProducesGray(t *testing.T) {
	f := NewFrame(2, 2)
	f.Set(0, 0, PackRGB565(200, 30, 90))
	ApplyEffect(f, settings.EffectBW)
	r, g, b := UnpackRGB565(f.At(0, 0))
	// All channels equal up to 565 quantization.
	if d := int(r) - int(g); d < -8 || d > 8 {
		t.Errorf("r/g differ after B&W: %d vs %d", r, g)
	}
	if d := int(g) - int(b); d < -8 || d > 8 {
		t.Errorf("g/b differ after B&W: %d vs %d", g, b)
	}
}

func TestOrderedDitherIsOneBit(t *testing.T) {
	src := NewFrame(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(x * 255 / 7)
			src.Set(x, y, PackRGB565(v, v, v))
		}
	}
	dst := NewFrame(8, 8)
	OrderedDither(dst, src)

	white, black := 0, 0
	for _, p := range dst.Pix {
		switch p {
		case 0xffff:
			white++
		case 0x0000:
			black++
		default:
			t.Fatalf("dither produced a mid-tone pixel %04x", p)
		}
	}
	if white == 0 || black == 0 {
		t.Fatalf("gradient dithered to a flat field (white=%d black=%d)", white, black)
	}
	// The source must be untouched.
	if src.At(0, 0) == 0xffff || src.At(7, 7) == 0x0000 {
		t.Fatal("dither mutated the source frame")
	}
}

func TestAlphaBlendDoesNotTouchReference(t *testing.T) {
	ref := NewFrame(4, 4)
	for i := range ref.Pix {
		ref.Pix[i] = PackRGB565(255, 0, 0)
	}
	live := NewFrame(4, 4)
	for i := range live.Pix {
		live.Pix[i] = PackRGB565(0, 0, 255)
	}
	saved := ref.Clone()

	dst := NewFrame(4, 4)
	AlphaBlend(dst, ref, live)

	for i := range ref.Pix {
		if ref.Pix[i] != saved.Pix[i] {
			t.Fatal("blend mutated the reference frame")
		}
	}
	r, _, b := UnpackRGB565(dst.At(0, 0))
	if r < 100 || r > 150 || b < 100 || b > 150 {
		t.Fatalf("blend of red over blue = r=%d b=%d, want both near 127", r, b)
	}
}

func TestAlphaBlendMismatchedSizesIsSafe(t *testing.T) {
	small := NewFrame(4, 4)
	big := NewFrame(8, 8)
	for i := range big.Pix {
		big.Pix[i] = PackRGB565(0, 0, 255)
	}

	dst := NewFrame(8, 8)
	AlphaBlend(dst, small, big) // must not panic past small's length
	if dst.Width != 8 || len(dst.Pix) != 64 {
		t.Fatalf("dst resized: %dx%d", dst.Width, dst.Height)
	}
	AlphaBlend(dst, big, small)
}

func TestEncodeJPEGDecodes(t *testing.T) {
	sim := NewSimulator(32, 24)
	f, err := sim.CaptureStill()
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeJPEG(f)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("decoded size = %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestEncodeGIFKeepsFrameCount(t *testing.T) {
	sim := NewSimulator(16, 16)
	var frames []*Frame
	for i := 0; i < 4; i++ {
		f, err := sim.CaptureStill()
		if err != nil {
			t.Fatal(err)
		}
		frames = append(frames, f)
	}
	data, err := EncodeGIF(frames)
	if err != nil {
		t.Fatalf("EncodeGIF: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.Image) != 4 {
		t.Fatalf("decoded %d frames, want 4", len(g.Image))
	}
}

func TestEncodeGIFEmptyFails(t *testing.T) {
	if _, err := EncodeGIF(nil); err == nil {
		t.Fatal("EncodeGIF(nil) succeeded")
	}
}

func TestSimulatorFramesDiffer(t *testing.T) {
	sim := NewSimulator(32, 32)
	a, _ := sim.CaptureStill()
	b, _ := sim.CaptureStill()
	same := true
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("consecutive simulator frames are identical")
	}
}
