package beeper

import (
	"testing"
	"time"

	"snapcam/internal/hw/gpio"
)

func TestToneDividesClockAndMutes(t *testing.T) {
	drv := gpio.NewMockDriver()
	b := New(drv, 15)

	if drv.Duty(15) != 0 {
		t.Fatalf("duty = %d before any tone, want 0", drv.Duty(15))
	}

	var slept time.Duration
	var dutyDuringTone uint32
	b.Sleep = func(d time.Duration) {
		slept = d
		dutyDuringTone = drv.Duty(15)
	}

	if err := b.Tone(1000, 80*time.Millisecond); err != nil {
		t.Fatalf("Tone: %v", err)
	}
	// 64 kHz clock at 1 kHz gives a 64-step cycle, half high.
	if dutyDuringTone != 32 {
		t.Fatalf("duty during tone = %d, want 32", dutyDuringTone)
	}
	if slept != 80*time.Millisecond {
		t.Fatalf("slept %v, want 80ms", slept)
	}
	if drv.Duty(15) != 0 {
		t.Fatalf("duty = %d after tone, want muted", drv.Duty(15))
	}
}

func TestShutterChirp(t *testing.T) {
	drv := gpio.NewMockDriver()
	b := New(drv, 15)

	var slept time.Duration
	var duty uint32
	b.Sleep = func(d time.Duration) {
		slept = d
		duty = drv.Duty(15)
	}

	if err := b.Shutter(); err != nil {
		t.Fatalf("Shutter: %v", err)
	}
	// 1500 Hz on the 64 kHz clock truncates to a 42-step cycle.
	if duty != 21 {
		t.Fatalf("duty = %d, want 21", duty)
	}
	if slept != 50*time.Millisecond {
		t.Fatalf("slept %v, want 50ms", slept)
	}
}
