// Package beeper drives a piezo buzzer on a PWM pin.
package beeper

import (
	"time"

	"snapcam/internal/hw/gpio"
)

// pwmClock is the PWM clock frequency the drivers run their pins at.
// Tone pitch is set by dividing it down with the cycle length.
const pwmClock = 64000

// Beeper plays fixed-pitch tones on a buzzer pin. Tones block for
// their duration; they are short enough to play inline.
type Beeper struct {
	gpio gpio.Driver
	pin  int

	// Sleep paces the tone duration; swapped out in tests.
	Sleep func(time.Duration)
}

// New configures the buzzer pin for PWM and returns it silent.
func New(g gpio.Driver, pin int) *Beeper {
	_ = g.SetupPin(pin, gpio.PWM)
	b := &Beeper{gpio: g, pin: pin, Sleep: time.Sleep}
	_ = b.mute()
	return b
}

// Tone plays a square wave at freq hertz for the given duration, then
// mutes the pin. Frequencies outside the range the PWM clock can
// divide down to are clamped.
func (b *Beeper) Tone(freq int, dur time.Duration) error {
	if freq < 1 {
		freq = 1
	}
	cycle := uint32(pwmClock / freq)
	if cycle < 2 {
		cycle = 2
	}
	if err := b.gpio.SetPWM(b.pin, cycle/2, cycle); err != nil {
		return err
	}
	b.Sleep(dur)
	return b.mute()
}

// Shutter plays the short confirmation chirp after a saved shot.
func (b *Beeper) Shutter() error {
	return b.Tone(1500, 50*time.Millisecond)
}

func (b *Beeper) mute() error {
	return b.gpio.SetPWM(b.pin, 0, pwmClock)
}
