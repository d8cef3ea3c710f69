package i2cbus

import (
	"github.com/pkg/errors"
	periphi2c "periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// OpenPeriph opens a device via the periph.io bus registry.  busName may be
// a name like "/dev/i2c-1" or "" for the first available bus.
func OpenPeriph(busName string, addr int) (Device, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open I2C bus %q", busName)
	}
	return &periphDevice{
		dev: &periphi2c.Dev{Bus: bus, Addr: uint16(addr)},
		bus: bus,
	}, nil
}

type periphDevice struct {
	dev *periphi2c.Dev
	bus periphi2c.BusCloser
}

func (d *periphDevice) ReadReg(reg byte, buf []byte) error {
	return d.dev.Tx([]byte{reg}, buf)
}

func (d *periphDevice) WriteReg(reg byte, buf []byte) error {
	w := make([]byte, 1+len(buf))
	w[0] = reg
	copy(w[1:], buf)
	return d.dev.Tx(w, nil)
}

func (d *periphDevice) Close() error {
	return d.bus.Close()
}
