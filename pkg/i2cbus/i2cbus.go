// Package i2cbus provides register-level access to devices on the robot's
// I2C bus.  The bus is a single shared resource: all transactions are issued
// from the one localization loop goroutine, so the package adds no locking
// beyond what the backends require.
package i2cbus

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

// Device is a single addressed device on the bus.
type Device interface {
	// ReadReg reads len(buf) bytes from the device starting at reg.
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// Open opens a device via the Linux devfs I2C interface, e.g.
// Open("/dev/i2c-1", 0x29).
func Open(device string, addr int) (Device, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: device}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s addr 0x%02x", device, addr)
	}
	return dev, nil
}

// OpenBackend opens a device using the backend named in the robot's
// configuration: "devfs" (default) or "periph".
func OpenBackend(backend, device string, addr int) (Device, error) {
	switch backend {
	case "", "devfs":
		return Open(device, addr)
	case "periph":
		return OpenPeriph(device, addr)
	}
	return nil, errors.Errorf("unknown I2C backend %q", backend)
}
