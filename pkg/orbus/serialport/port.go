// Package serialport implements orbus.Transport over a local serial
// device.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/rbonghi/serial-bridge/pkg/orbus"
)

// Config identifies the device and its line parameters.
type Config struct {
	Device string
	Baud   int
	// PollInterval is the read timeout configured on the port. It bounds
	// one blocking read, not the reply wait, which the link slices itself.
	PollInterval time.Duration
}

// DefaultPollInterval is used when Config.PollInterval is zero.
const DefaultPollInterval = 10 * time.Millisecond

// Port is an orbus.Transport backed by github.com/tarm/serial.
type Port struct {
	conf   Config
	handle *serial.Port
	// peek holds the byte consumed by WaitReadable until the next
	// ReadAvailable.
	peek []byte
}

// New creates an unopened Port.
func New(conf Config) *Port {
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultPollInterval
	}
	return &Port{conf: conf}
}

// Open implements orbus.Transport.
func (p *Port) Open() error {
	h, err := serial.OpenPort(&serial.Config{
		Name:        p.conf.Device,
		Baud:        p.conf.Baud,
		ReadTimeout: p.conf.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", p.conf.Device, err)
	}
	p.handle = h
	return nil
}

// Write implements orbus.Transport.
func (p *Port) Write(b []byte) (int, error) {
	if p.handle == nil {
		return 0, orbus.ErrNotOpen
	}
	return p.handle.Write(b)
}

// WaitReadable polls the port until a byte arrives or the timeout elapses.
// The byte is kept aside for the next ReadAvailable. A read returning zero
// bytes, with or without io.EOF, is a timeout tick of the port.
func (p *Port) WaitReadable(timeout time.Duration) (bool, error) {
	if p.handle == nil {
		return false, orbus.ErrNotOpen
	}
	if len(p.peek) > 0 {
		return true, nil
	}
	deadline := time.Now().Add(timeout)
	one := make([]byte, 1)
	for {
		n, err := p.handle.Read(one)
		if n > 0 {
			p.peek = append(p.peek, one[:n]...)
			return true, nil
		}
		if err != nil && err != io.EOF {
			return false, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
	}
}

// ReadAvailable implements orbus.Transport. It drains the peek buffer and
// whatever else has already arrived on the port.
func (p *Port) ReadAvailable(b []byte) (int, error) {
	if p.handle == nil {
		return 0, orbus.ErrNotOpen
	}
	n := copy(b, p.peek)
	p.peek = p.peek[n:]
	if n == len(b) {
		return n, nil
	}
	m, err := p.handle.Read(b[n:])
	if err == io.EOF {
		err = nil
	}
	return n + m, err
}

// Close implements orbus.Transport. The handle is left in place so a
// concurrent blocked read fails out instead of dereferencing nil.
func (p *Port) Close() error {
	if p.handle == nil {
		return nil
	}
	return p.handle.Close()
}
