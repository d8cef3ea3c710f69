package i2cbus

import "github.com/pkg/errors"

// MockDevice is a scripted Device for driver tests.  Reads are served from
// Regs unless OnRead is set; writes are recorded.
type MockDevice struct {
	Regs map[byte][]byte

	// OnRead, if non-nil, is called instead of the Regs lookup.
	OnRead func(reg byte, buf []byte) error

	ReadErr  error
	WriteErr error

	Writes []RegWrite
	Closed bool
}

type RegWrite struct {
	Reg  byte
	Data []byte
}

func (m *MockDevice) ReadReg(reg byte, buf []byte) error {
	if m.ReadErr != nil {
		return m.ReadErr
	}
	if m.OnRead != nil {
		return m.OnRead(reg, buf)
	}
	data, ok := m.Regs[reg]
	if !ok {
		return errors.Errorf("mock: no data for register 0x%02x", reg)
	}
	copy(buf, data)
	return nil
}

func (m *MockDevice) WriteReg(reg byte, buf []byte) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	m.Writes = append(m.Writes, RegWrite{Reg: reg, Data: data})
	return nil
}

func (m *MockDevice) Close() error {
	m.Closed = true
	return nil
}
