package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/wire"
)

// ErrUnexpectedTarget is returned when a Target envelope arrives on an input
// feed. Targets only flow outward.
var ErrUnexpectedTarget = errors.New("target envelope on input feed")

// Sink receives decoded feed messages. *dispatch.Dispatcher queues them;
// dispatch.Inline handles them synchronously.
type Sink interface {
	SubmitOdometry(odom pose.Odometry) bool
	SubmitScan(s scan.LaserScan) bool
	SubmitReverseRequest() bool
}

// FeedHandler decodes envelope datagrams and routes them to a Sink.
type FeedHandler struct {
	sink  Sink
	stats *FeedStats
}

// NewFeedHandler creates a handler. A nil stats gets a private counter set.
func NewFeedHandler(sink Sink, stats *FeedStats) *FeedHandler {
	if stats == nil {
		stats = NewFeedStats()
	}
	return &FeedHandler{sink: sink, stats: stats}
}

// Stats returns the handler's counters.
func (h *FeedHandler) Stats() *FeedStats { return h.stats }

// HandlePacket decodes one datagram. A refused submission is counted, not
// returned as an error.
func (h *FeedHandler) HandlePacket(packet []byte) error {
	h.stats.AddPacket(len(packet))

	var env wire.Envelope
	if err := wire.Unmarshal(packet, &env); err != nil {
		h.stats.AddDecodeError()
		return fmt.Errorf("decode envelope: %w", err)
	}
	kind := env.Kind()
	h.stats.AddKind(kind.String())

	var ok bool
	switch kind {
	case wire.KindOdometry:
		ok = h.sink.SubmitOdometry(env.Odometry.Odometry())
	case wire.KindScan:
		ok = h.sink.SubmitScan(env.Scan.LaserScan())
	case wire.KindReverseRequest:
		ok = h.sink.SubmitReverseRequest()
	case wire.KindTarget:
		return ErrUnexpectedTarget
	default:
		return wire.ErrEmptyEnvelope
	}
	if !ok {
		h.stats.AddDropped()
	}
	return nil
}

// UDPListener receives envelope datagrams and hands them to a FeedHandler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	handler     *FeedHandler
	factory     UDPSocketFactory
	conn        UDPSocket
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Sink        Sink
	Stats       *FeedStats
	// SocketFactory defaults to SystemSocketFactory.
	SocketFactory UDPSocketFactory
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	factory := config.SocketFactory
	if factory == nil {
		factory = SystemSocketFactory{}
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		handler:     NewFeedHandler(config.Sink, config.Stats),
		factory:     factory,
	}
}

// Handler returns the listener's FeedHandler.
func (l *UDPListener) Handler() *FeedHandler { return l.handler }

// Start listens until ctx is cancelled. Decode errors are logged per
// datagram and never stop the loop.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("[Feed] Warning: failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}
	log.Printf("[Feed] UDP listener started on %s", conn.LocalAddr())

	go l.logStatsLoop(ctx)

	buffer := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			log.Print("[Feed] UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("[Feed] UDP read error: %v", err)
			continue
		}
		if err := l.handler.HandlePacket(buffer[:n]); err != nil {
			log.Printf("[Feed] Error handling datagram from %v: %v", from, err)
		}
	}
}

func (l *UDPListener) logStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.handler.stats.LogStats()
		}
	}
}

// Close closes the underlying socket, if open.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
