package capture

import (
	"errors"
	"fmt"
	"iter"
)

// ErrBusy is returned when the sensor is mid-exposure and cannot
// service the request this tick. Callers retry on the next tick.
var ErrBusy = errors.New("capture: sensor busy")

// HardwareFault signals the sensor or its bus is unreachable. It is
// retried once per tick and is never fatal to the control loop.
type HardwareFault struct {
	Op  string
	Err error
}

func (f *HardwareFault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("capture: hardware fault during %s", f.Op)
	}
	return fmt.Sprintf("capture: hardware fault during %s: %v", f.Op, f.Err)
}

func (f *HardwareFault) Unwrap() error { return f.Err }

// IsHardwareFault reports whether err is (or wraps) a HardwareFault.
func IsHardwareFault(err error) bool {
	var hf *HardwareFault
	return errors.As(err, &hf)
}

// Service is the high-level interface the rest of the application uses
// to talk to the camera sensor, regardless of how it is attached
// (parallel bus, USB, simulated).
type Service interface {
	// CaptureStill grabs one frame at the current resolution.
	CaptureStill() (*Frame, error)

	// Stream yields up to count consecutive frames. Iteration stops
	// early on the first hardware fault, which is yielded with a nil
	// frame.
	Stream(count int) iter.Seq2[*Frame, error]

	// SetResolution reconfigures the sensor output size.
	SetResolution(width, height int) error
}
