package battery

import (
	"fmt"
	"time"

	"snapcam/internal/debug"
)

// Sample is one smoothed battery reading. It is produced on a fixed
// cadence by the monitor and read-only to everything else.
type Sample struct {
	Voltage float64
	Percent int
	Taken   time.Time
}

// ReadFunc returns one raw ADC reading (0..65535) from the battery
// divider. The real implementation reads an MCP3008 over SPI; tests
// and the simulator substitute a plain function.
type ReadFunc func() (uint16, error)

const historySize = 10

// Monitor samples the battery on a fixed cadence and smooths readings
// over the last ten samples, matching the divider math of the board
// (raw/65535 * 3.3V reference * 2:1 divider).
type Monitor struct {
	read     ReadFunc
	interval time.Duration
	history  []float64
	last     time.Time
	sample   Sample
}

// NewMonitor creates a monitor. interval <= 0 defaults to 10s.
func NewMonitor(read ReadFunc, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{read: read, interval: interval}
}

// Sample returns the most recent smoothed sample.
func (m *Monitor) Sample() Sample { return m.sample }

// MaybeSample refreshes the sample if the cadence has elapsed.
// It reports whether a new sample was taken.
func (m *Monitor) MaybeSample(now time.Time) (Sample, bool, error) {
	if !m.last.IsZero() && now.Sub(m.last) < m.interval {
		return m.sample, false, nil
	}
	s, err := m.SampleNow(now)
	return s, err == nil, err
}

// SampleNow forces an immediate reading, e.g. for the battery overlay.
func (m *Monitor) SampleNow(now time.Time) (Sample, error) {
	raw, err := m.read()
	if err != nil {
		return m.sample, fmt.Errorf("battery: read: %w", err)
	}
	m.last = now

	voltage := float64(raw) / 65535.0 * 3.3 * 2
	m.history = append(m.history, voltage)
	if len(m.history) > historySize {
		m.history = m.history[1:]
	}

	var sum float64
	for _, v := range m.history {
		sum += v
	}
	avg := sum / float64(len(m.history))

	m.sample = Sample{Voltage: avg, Percent: Percentage(avg), Taken: now}
	debug.Battery(m.sample.Voltage, m.sample.Percent)
	return m.sample, nil
}

// Percentage estimates charge from voltage using the cell's
// discharge curve.
func Percentage(voltage float64) int {
	switch {
	case voltage >= 4.2:
		return 100
	case voltage >= 3.7:
		return int((voltage - 3.7) / 0.5 * 100)
	case voltage >= 3.5:
		return int((voltage - 3.5) / 0.2 * 25)
	case voltage >= 3.2:
		return int((voltage - 3.2) / 0.3 * 25)
	default:
		return 0
	}
}
