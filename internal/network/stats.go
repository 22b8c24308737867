package network

import (
	"sync"
	"time"

	"github.com/banshee-data/nextobject/internal/monitoring"
)

// FeedStats counts datagrams seen on an input feed. Safe for concurrent use.
type FeedStats struct {
	mu           sync.Mutex
	packets      int64
	bytes        int64
	decodeErrors int64
	dropped      int64
	byKind       map[string]int64
	lastReset    time.Time
}

// StatsSnapshot is a point-in-time copy of FeedStats.
type StatsSnapshot struct {
	Packets      int64            `json:"packets"`
	Bytes        int64            `json:"bytes"`
	DecodeErrors int64            `json:"decode_errors"`
	Dropped      int64            `json:"dropped"`
	ByKind       map[string]int64 `json:"by_kind"`
}

// NewFeedStats returns zeroed counters.
func NewFeedStats() *FeedStats {
	return &FeedStats{byKind: make(map[string]int64), lastReset: time.Now()}
}

// AddPacket records a received datagram of n bytes.
func (s *FeedStats) AddPacket(n int) {
	s.mu.Lock()
	s.packets++
	s.bytes += int64(n)
	s.mu.Unlock()
}

// AddKind records a decoded message of the given kind.
func (s *FeedStats) AddKind(kind string) {
	s.mu.Lock()
	s.byKind[kind]++
	s.mu.Unlock()
}

// AddDecodeError records a datagram that failed to decode.
func (s *FeedStats) AddDecodeError() {
	s.mu.Lock()
	s.decodeErrors++
	s.mu.Unlock()
}

// AddDropped records a message the sink refused.
func (s *FeedStats) AddDropped() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (s *FeedStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make(map[string]int64, len(s.byKind))
	for k, v := range s.byKind {
		kinds[k] = v
	}
	return StatsSnapshot{
		Packets:      s.packets,
		Bytes:        s.bytes,
		DecodeErrors: s.decodeErrors,
		Dropped:      s.dropped,
		ByKind:       kinds,
	}
}

// LogStats logs the rate since the previous call and resets the window.
func (s *FeedStats) LogStats() {
	s.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(s.lastReset).Seconds()
	packets, bytes := s.packets, s.bytes
	errs, dropped := s.decodeErrors, s.dropped
	s.packets, s.bytes, s.decodeErrors, s.dropped = 0, 0, 0, 0
	s.lastReset = now
	s.mu.Unlock()

	if packets == 0 && errs == 0 {
		return
	}
	if elapsed <= 0 {
		elapsed = 1
	}
	monitoring.Logf("[Feed] %.1f pkt/s, %.1f KB/s, %d decode errors, %d dropped",
		float64(packets)/elapsed, float64(bytes)/1024/elapsed, errs, dropped)
}
