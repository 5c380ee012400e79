package led

import (
	"snapcam/internal/hw/gpio"
	"snapcam/internal/settings"
)

// Pins holds the PWM pins driving the RGB status LED.
type Pins struct {
	Red, Green, Blue int
}

// LED drives the RGB status LED. Brightness scales all three channels;
// colour and brightness come straight from the settings store.
type LED struct {
	gpio gpio.Driver
	pins Pins
	// last applied state, to skip redundant PWM writes each tick
	color      settings.RGB
	brightness uint8
	applied    bool
}

// New configures the LED pins for PWM and returns the LED dark.
func New(g gpio.Driver, pins Pins) *LED {
	_ = g.SetupPin(pins.Red, gpio.PWM)
	_ = g.SetupPin(pins.Green, gpio.PWM)
	_ = g.SetupPin(pins.Blue, gpio.PWM)

	l := &LED{gpio: g, pins: pins}
	_ = l.apply(settings.RGB{}, 0)
	l.applied = true
	return l
}

// Set applies colour at brightness (0-255). Redundant calls with the
// same values are no-ops so the control loop can call it every tick.
func (l *LED) Set(color settings.RGB, brightness uint8) error {
	if l.applied && color == l.color && brightness == l.brightness {
		return nil
	}
	if err := l.apply(color, brightness); err != nil {
		return err
	}
	l.color = color
	l.brightness = brightness
	l.applied = true
	return nil
}

// Off turns the LED dark.
func (l *LED) Off() error {
	return l.Set(settings.RGB{}, 0)
}

func (l *LED) apply(color settings.RGB, brightness uint8) error {
	if err := l.gpio.SetPWM(l.pins.Red, scale(color.R, brightness), 255); err != nil {
		return err
	}
	if err := l.gpio.SetPWM(l.pins.Green, scale(color.G, brightness), 255); err != nil {
		return err
	}
	return l.gpio.SetPWM(l.pins.Blue, scale(color.B, brightness), 255)
}

func scale(channel, brightness uint8) uint32 {
	return uint32(channel) * uint32(brightness) / 255
}
