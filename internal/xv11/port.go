package xv11

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port is the minimal serial port surface the driver reads from.
type Port interface {
	io.Reader
	io.Closer
}

// Opener opens a port. Tests substitute an in-memory one.
type Opener func(path string, opts PortOptions) (Port, error)

// OpenSerial opens a real serial device.
func OpenSerial(path string, opts PortOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return p, nil
}

// ListPorts returns the serial devices visible to the OS.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
