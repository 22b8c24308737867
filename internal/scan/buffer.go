package scan

import (
	"errors"
	"sync"
)

// ErrNoScanAvailable is returned by Buffer.Scan before any scan has been
// stored. It normally means a request raced ahead of the first sensor sweep.
var ErrNoScanAvailable = errors.New("no scan available")

// Buffer holds the most recent LaserScan. Stored scans are deep-copied on the
// way in and on the way out.
type Buffer struct {
	mu     sync.RWMutex
	latest *LaserScan
	seq    uint64
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// SetScan replaces the stored scan in full.
func (b *Buffer) SetScan(s LaserScan) {
	c := s.Clone()
	b.mu.Lock()
	b.latest = &c
	b.seq++
	b.mu.Unlock()
}

// Scan returns a copy of the latest scan, or ErrNoScanAvailable.
func (b *Buffer) Scan() (LaserScan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return LaserScan{}, ErrNoScanAvailable
	}
	return b.latest.Clone(), nil
}

// Seq returns how many scans have been stored.
func (b *Buffer) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}
