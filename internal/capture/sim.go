package capture

import (
	"iter"
	"sync"

	"snapcam/internal/debug"
)

// Simulator is a Service implementation producing a synthetic moving
// test pattern. Used for development on PC and for exercising the
// full pipeline without a sensor.
type Simulator struct {
	mu     sync.Mutex
	width  int
	height int
	tick   int
}

// NewSimulator creates a simulated sensor at the given resolution.
func NewSimulator(width, height int) *Simulator {
	debug.Info("Using simulated camera sensor (%dx%d)", width, height)
	return &Simulator{width: width, height: height}
}

func (s *Simulator) SetResolution(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
	debug.Verbose("Simulator: resolution set to %dx%d", width, height)
	return nil
}

// CaptureStill renders a gradient with a sweeping bar so consecutive
// frames differ, which keeps GIF and stop-motion output meaningful.
func (s *Simulator) CaptureStill() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := NewFrame(s.width, s.height)
	bar := s.tick * 4 % s.width
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			r := uint8(x * 255 / s.width)
			g := uint8(y * 255 / s.height)
			b := uint8(128)
			if x >= bar && x < bar+8 {
				r, g, b = 255, 255, 255
			}
			f.Set(x, y, PackRGB565(r, g, b))
		}
	}
	s.tick++
	return f, nil
}

func (s *Simulator) Stream(count int) iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		for i := 0; i < count; i++ {
			f, err := s.CaptureStill()
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}
