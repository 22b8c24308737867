package xv11

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/timeutil"
)

// ScanSink receives assembled scans. *dispatch.Dispatcher satisfies it.
type ScanSink interface {
	SubmitScan(s scan.LaserScan) bool
}

// Stats counts driver activity.
type Stats struct {
	Packets        uint64  `json:"packets"`
	ChecksumErrors uint64  `json:"checksum_errors"`
	SkippedBytes   uint64  `json:"skipped_bytes"`
	Scans          uint64  `json:"scans"`
	Dropped        uint64  `json:"dropped"`
	LastRPM        float64 `json:"last_rpm"`
}

// Driver reads frames from a port and publishes full rotations.
type Driver struct {
	port Port
	asm  *Assembler
	sink ScanSink

	mu    sync.Mutex
	stats Stats
}

// NewDriver creates a driver reading from port.
func NewDriver(port Port, frameID string, clock timeutil.Clock, sink ScanSink) *Driver {
	return &Driver{
		port: port,
		asm:  NewAssembler(frameID, clock),
		sink: sink,
	}
}

// Stats returns a copy of the counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

type frameResult struct {
	pkt Packet
	err error
}

// Run reads until ctx is cancelled or the port reaches EOF. EOF returns nil
// after the partial rotation is flushed.
func (d *Driver) Run(ctx context.Context) error {
	frames := make(chan frameResult)

	// The blocking read happens on its own goroutine so cancellation is
	// observed between frames.
	go func() {
		defer close(frames)
		r := bufio.NewReaderSize(d.port, 4*PacketSize)
		for {
			pkt, err := d.nextFrame(r)
			select {
			case frames <- frameResult{pkt, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fr, ok := <-frames:
			if !ok {
				return nil
			}
			if fr.err != nil {
				if s, ok := d.asm.Flush(); ok {
					d.emit(s)
				}
				if errors.Is(fr.err, io.EOF) {
					return nil
				}
				return fr.err
			}
			d.mu.Lock()
			d.stats.Packets++
			d.stats.LastRPM = fr.pkt.SpeedRPM
			d.mu.Unlock()
			if s, ok := d.asm.Add(fr.pkt); ok {
				d.emit(s)
			}
		}
	}
}

// nextFrame scans for the next frame with a valid checksum, skipping one
// byte at a time on a bad frame so it resyncs mid-stream.
func (d *Driver) nextFrame(r *bufio.Reader) (Packet, error) {
	for {
		b, err := r.Peek(PacketSize)
		if err != nil {
			return Packet{}, err
		}
		if b[0] != StartByte || b[1] < FirstIndex || b[1] > LastIndex {
			d.skip(r, false)
			continue
		}
		pkt, err := DecodePacket(b)
		if err != nil {
			d.skip(r, errors.Is(err, ErrChecksum))
			continue
		}
		_, _ = r.Discard(PacketSize)
		return pkt, nil
	}
}

func (d *Driver) skip(r *bufio.Reader, checksum bool) {
	_, _ = r.Discard(1)
	d.mu.Lock()
	d.stats.SkippedBytes++
	if checksum {
		d.stats.ChecksumErrors++
	}
	d.mu.Unlock()
}

func (d *Driver) emit(s scan.LaserScan) {
	ok := d.sink.SubmitScan(s)
	d.mu.Lock()
	if ok {
		d.stats.Scans++
	} else {
		d.stats.Dropped++
	}
	d.mu.Unlock()
	if !ok {
		log.Printf("[XV11] scan dropped: dispatcher queue full")
	}
}

// Close closes the port, unblocking a pending read.
func (d *Driver) Close() error {
	return d.port.Close()
}
