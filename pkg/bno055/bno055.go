// Package bno055 drives a Bosch BNO055 absolute-orientation IMU over I2C.
package bno055

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/i2cbus"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/imu"
)

const (
	DefaultAddr = 0x28

	regChipID   = 0x00
	regQuatData = 0x20
	regOprMode  = 0x3d
	regPwrMode  = 0x3e

	chipID = 0xa0

	modeConfig = 0x00
	modeNDOF   = 0x0c

	pwrNormal = 0x00

	// Quaternion registers are Q14 fixed point.
	quatScale = 1.0 / 16384.0

	// The chip boots in ~400ms; poll the ID register over a bounded window.
	bootPollInterval = 50 * time.Millisecond
	bootPollTries    = 20

	// Datasheet switching times, with margin.
	modeSwitchDelay = 30 * time.Millisecond
	fusionStartup   = 650 * time.Millisecond
)

type BNO055 struct {
	dev i2cbus.Device
}

var _ imu.Source = (*BNO055)(nil)

// New verifies the chip is present, switches it into NDOF fusion mode and
// waits for fusion output to start.  A device that never acknowledges within
// the boot window yields imu.ErrUnavailable.
func New(dev i2cbus.Device) (*BNO055, error) {
	b := &BNO055{dev: dev}

	var id [1]byte
	found := false
	for i := 0; i < bootPollTries; i++ {
		if err := dev.ReadReg(regChipID, id[:]); err == nil && id[0] == chipID {
			found = true
			break
		}
		time.Sleep(bootPollInterval)
	}
	if !found {
		return nil, errors.Wrapf(imu.ErrUnavailable, "BNO055 chip ID not seen (last read 0x%02x)", id[0])
	}

	if err := dev.WriteReg(regOprMode, []byte{modeConfig}); err != nil {
		return nil, errors.Wrap(err, "failed to enter config mode")
	}
	time.Sleep(modeSwitchDelay)
	if err := dev.WriteReg(regPwrMode, []byte{pwrNormal}); err != nil {
		return nil, errors.Wrap(err, "failed to set power mode")
	}
	if err := dev.WriteReg(regOprMode, []byte{modeNDOF}); err != nil {
		return nil, errors.Wrap(err, "failed to enter NDOF mode")
	}
	time.Sleep(fusionStartup)

	return b, nil
}

// Quaternion reads one fused orientation sample.
func (b *BNO055) Quaternion() (imu.Quaternion, error) {
	var buf [8]byte
	if err := b.dev.ReadReg(regQuatData, buf[:]); err != nil {
		return imu.Quaternion{}, errors.Wrapf(imu.ErrUnavailable, "quaternion read failed: %v", err)
	}
	return decodeQuat(buf[:]), nil
}

func (b *BNO055) Close() error {
	return b.dev.Close()
}

// decodeQuat unpacks the 8-byte quaternion block: w, x, y, z as
// little-endian int16 in Q14.
func decodeQuat(buf []byte) imu.Quaternion {
	s16 := func(off int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(buf[off:off+2]))) * quatScale
	}
	return imu.Quaternion{
		W: s16(0),
		I: s16(2),
		J: s16(4),
		K: s16(6),
	}
}
