// Package xv11 reads the Neato XV-11 lidar over a serial port and assembles
// its 4-reading packets into full-rotation laser scans.
package xv11

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Packet layout.
const (
	PacketSize     = 22
	StartByte      = 0xFA
	FirstIndex     = 0xA0
	LastIndex      = 0xF9
	ReadingsPerPkt = 4
	PacketsPerRev  = LastIndex - FirstIndex + 1
)

var (
	ErrShortPacket = errors.New("xv11: short packet")
	ErrBadStart    = errors.New("xv11: missing start byte")
	ErrBadIndex    = errors.New("xv11: index out of range")
	ErrChecksum    = errors.New("xv11: checksum mismatch")
)

// Reading is one distance sample.
type Reading struct {
	// DistanceMM is the range in millimetres.
	DistanceMM uint16
	Strength   uint16
	// Invalid is set when the module could not measure this angle.
	Invalid bool
	// Warning is set when the signal strength is lower than expected.
	Warning bool
}

// Packet is a decoded 22-byte frame covering four consecutive degrees.
type Packet struct {
	// Index is the packet's position in the rotation, 0 to 89.
	Index    int
	SpeedRPM float64
	Readings [ReadingsPerPkt]Reading
}

// FirstAngle returns the bearing in degrees of Readings[0].
func (p Packet) FirstAngle() int { return p.Index * ReadingsPerPkt }

// Checksum computes the frame checksum over the first 20 bytes of b.
func Checksum(b []byte) uint16 {
	var chk32 uint32
	for i := 0; i < 10; i++ {
		word := uint32(b[2*i]) | uint32(b[2*i+1])<<8
		chk32 = (chk32 << 1) + word
	}
	sum := (chk32 & 0x7FFF) + (chk32 >> 15)
	return uint16(sum & 0x7FFF)
}

// DecodePacket parses one frame. b must start at the start byte.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < PacketSize {
		return Packet{}, ErrShortPacket
	}
	if b[0] != StartByte {
		return Packet{}, ErrBadStart
	}
	if b[1] < FirstIndex || b[1] > LastIndex {
		return Packet{}, fmt.Errorf("%w: 0x%02X", ErrBadIndex, b[1])
	}
	if want, got := Checksum(b), binary.LittleEndian.Uint16(b[20:22]); want != got {
		return Packet{}, fmt.Errorf("%w: computed 0x%04X, frame 0x%04X", ErrChecksum, want, got)
	}

	p := Packet{
		Index:    int(b[1] - FirstIndex),
		SpeedRPM: float64(binary.LittleEndian.Uint16(b[2:4])) / 64,
	}
	for i := range p.Readings {
		r := b[4+4*i : 8+4*i]
		p.Readings[i] = Reading{
			DistanceMM: uint16(r[0]) | uint16(r[1]&0x3F)<<8,
			Strength:   binary.LittleEndian.Uint16(r[2:4]),
			Invalid:    r[1]&0x80 != 0,
			Warning:    r[1]&0x40 != 0,
		}
	}
	return p, nil
}

// EncodePacket builds a frame with a valid checksum. Used by simulators and
// tests.
func EncodePacket(p Packet) []byte {
	b := make([]byte, PacketSize)
	b[0] = StartByte
	b[1] = byte(FirstIndex + p.Index)
	binary.LittleEndian.PutUint16(b[2:4], uint16(p.SpeedRPM*64))
	for i, rd := range p.Readings {
		r := b[4+4*i : 8+4*i]
		r[0] = byte(rd.DistanceMM)
		r[1] = byte(rd.DistanceMM>>8) & 0x3F
		if rd.Invalid {
			r[1] |= 0x80
		}
		if rd.Warning {
			r[1] |= 0x40
		}
		binary.LittleEndian.PutUint16(r[2:4], rd.Strength)
	}
	binary.LittleEndian.PutUint16(b[20:22], Checksum(b))
	return b
}
