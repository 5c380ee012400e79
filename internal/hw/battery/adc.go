package battery

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"snapcam/internal/debug"
)

// NewMCP3008Reader returns a ReadFunc sampling channel ch of an
// MCP3008 ADC on SPI0. The 10-bit result is left-shifted to the
// 16-bit range the monitor expects.
func NewMCP3008Reader(ch int) (ReadFunc, func(), error) {
	if ch < 0 || ch > 7 {
		return nil, nil, fmt.Errorf("battery: adc channel must be 0-7, got %d", ch)
	}

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return nil, nil, fmt.Errorf("battery: open spi: %w", err)
	}
	rpio.SpiSpeed(1350000)
	rpio.SpiChipSelect(0)

	debug.Info("Battery ADC: MCP3008 channel %d on SPI0", ch)

	read := func() (uint16, error) {
		// MCP3008 single-ended conversation: start bit, mode+channel,
		// then clock out the 10-bit result.
		buf := []byte{0x01, byte(0x80 | ch<<4), 0x00}
		rpio.SpiExchange(buf)
		raw := uint16(buf[1]&0x03)<<8 | uint16(buf[2])
		return raw << 6, nil
	}
	cleanup := func() { rpio.SpiEnd(rpio.Spi0) }
	return read, cleanup, nil
}
