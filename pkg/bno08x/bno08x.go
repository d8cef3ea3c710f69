// Package bno08x reads quaternion reports from a UART-attached BNO08x.
// The robot's companion microcontroller forwards rotation vectors as framed
// binary packets over the serial link.
package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/imu"
)

const DefaultDevice = "/dev/ttyAMA0"

const ReportFrequency = 100
const ReportInterval = time.Second / ReportFrequency

// Packet: 0xaa 0xaa preamble, index byte, i/j/k/w as little-endian int16 in
// Q14, additive checksum over index+payload.
const packetLen = 12

// Q14 fixed point.
const quatScale = 1.0 / 16384.0

type Report struct {
	Time  time.Time
	Index uint8
	Quat  imu.Quaternion
}

type IMU struct {
	portName string
	log      *zap.SugaredLogger

	lock       sync.Mutex
	cond       *sync.Cond
	lastReport Report
}

var _ imu.Source = (*IMU)(nil)

func New(portName string, log *zap.SugaredLogger) *IMU {
	if portName == "" {
		portName = DefaultDevice
	}
	b := &IMU{portName: portName, log: log}
	b.cond = sync.NewCond(&b.lock)
	return b
}

// Start launches the background read loop; it reconnects on failure until
// the context is cancelled.
func (b *IMU) Start(ctx context.Context) {
	go b.loopReadingReports(ctx)
}

// Quaternion returns a sample strictly fresher than the time of call.
func (b *IMU) Quaternion() (imu.Quaternion, error) {
	r, err := b.WaitForSampleAfter(time.Now())
	return r.Quat, err
}

// Close is a no-op; the serial port belongs to the read loop and is released
// when its context is cancelled.
func (b *IMU) Close() error {
	return nil
}

const starvationTimeout = time.Second

// WaitForSampleAfter blocks until a report newer than t arrives.  If the
// stream stalls for more than a second it returns imu.ErrUnavailable rather
// than waiting forever.
func (b *IMU) WaitForSampleAfter(t time.Time) (Report, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	deadline := time.Now().Add(starvationTimeout)
	// If the serial read stalls mid-packet nothing else broadcasts, so the
	// deadline arms its own wake-up; otherwise the check below never runs.
	timer := time.AfterFunc(starvationTimeout, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.cond.Broadcast()
	})
	defer timer.Stop()
	for b.lastReport.Time.Before(t) {
		b.cond.Wait()
		if b.lastReport.Time.Before(t) && time.Now().After(deadline) {
			return Report{}, errors.Wrap(imu.ErrUnavailable, "no IMU report for >1s")
		}
	}
	return b.lastReport, nil
}

func (b *IMU) loopReadingReports(ctx context.Context) {
	defer b.cond.Broadcast()
	for ctx.Err() == nil {
		err := b.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		b.log.Infow("BNO08X loop stopped; will retry", "error", err)
		time.Sleep(100 * time.Millisecond)
		// Wake any waiter so its starvation timeout can fire.
		b.cond.Broadcast()
	}
}

func (b *IMU) openAndLoop(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: 115200,
	}
	s, err := serial.Open(b.portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", b.portName, err)
	}
	defer func() {
		_ = s.Close()
	}()

	br := bufio.NewReader(s)
resync:
	b.log.Debug("BNO08X resync...")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		buf, err := br.Peek(2)
		if err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
		if bytes.Equal(buf, []byte{0xaa, 0xaa}) {
			break
		}
		_, err = br.Discard(1)
		if err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
	}
	b.log.Debug("BNO08X in sync with packet stream")

	buf := make([]byte, packetLen)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.ReadAtLeast(br, buf, packetLen)
		if err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
		report, ok := decodeFrame(buf)
		if !ok {
			b.log.Debug("BNO08X lost sync")
			goto resync
		}
		b.setReport(report)
	}
}

// decodeFrame parses one packet buffer; ok is false on a bad preamble or
// checksum, in which case the caller must resync.
func decodeFrame(buf []byte) (Report, bool) {
	if len(buf) != packetLen || !bytes.Equal(buf[:2], []byte{0xaa, 0xaa}) {
		return Report{}, false
	}
	var checksum uint8
	for _, c := range buf[2 : packetLen-1] {
		checksum += c
	}
	if buf[packetLen-1] != checksum {
		return Report{}, false
	}
	s16 := func(off int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(buf[off:off+2]))) * quatScale
	}
	return Report{
		Time:  time.Now(),
		Index: buf[2],
		Quat: imu.Quaternion{
			I: s16(3),
			J: s16(5),
			K: s16(7),
			W: s16(9),
		},
	}, true
}

func (b *IMU) setReport(report Report) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lastReport = report
	b.cond.Broadcast()
}
