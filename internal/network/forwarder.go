package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/wire"
)

// TargetForwarder publishes targets as envelope datagrams to a UDP address.
// Publish never blocks; targets are dropped when the send queue is full.
type TargetForwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	logInterval time.Duration
	address     string
	dropped     atomic.Int64
	sent        atomic.Int64
}

// NewTargetForwarder dials address (host:port).
func NewTargetForwarder(address string, queueDepth int, logInterval time.Duration) (*TargetForwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if logInterval <= 0 {
		logInterval = time.Minute
	}
	return &TargetForwarder{
		conn:        conn,
		channel:     make(chan []byte, queueDepth),
		logInterval: logInterval,
		address:     address,
	}, nil
}

// Start runs the send loop until ctx is cancelled. Write errors are
// summarised once per log interval.
func (f *TargetForwarder) Start(ctx context.Context) {
	go func() {
		errCount := 0
		var lastError error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case datagram := <-f.channel:
				if _, err := f.conn.Write(datagram); err != nil {
					errCount++
					lastError = err
					continue
				}
				f.sent.Add(1)
			case <-ticker.C:
				if errCount > 0 && lastError != nil {
					log.Printf("[Forward] %d target datagrams failed (latest: %v)", errCount, lastError)
					errCount = 0
					lastError = nil
				}
			}
		}
	}()

	log.Printf("[Forward] Forwarding targets to %s", f.address)
}

// Publish implements dispatch.Publisher.
func (f *TargetForwarder) Publish(t dispatch.Target) {
	datagram := wire.Marshal(&wire.Envelope{Target: wire.FromTarget(t)})
	select {
	case f.channel <- datagram:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns the number of targets dropped on a full queue.
func (f *TargetForwarder) Dropped() int64 { return f.dropped.Load() }

// Sent returns the number of datagrams written.
func (f *TargetForwarder) Sent() int64 { return f.sent.Load() }

// Close closes the UDP connection. Call after the Start context is done.
func (f *TargetForwarder) Close() error {
	return f.conn.Close()
}
