package dispatch

import (
	"time"

	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

// Target is a single selection result emitted downstream.
type Target struct {
	ID         string
	Direction  selector.Direction
	Point      scan.Point32
	Cost       float64
	Candidates int
	Stamp      time.Time
}

// Publisher receives every emitted target. Implementations must not block
// for long; the dispatcher calls Publish on its own goroutine.
type Publisher interface {
	Publish(t Target)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(t Target)

// Publish implements Publisher.
func (f PublisherFunc) Publish(t Target) { f(t) }

// Publishers fans a target out to each publisher in order. Nil entries are
// skipped.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(t Target) {
	for _, p := range ps {
		if p != nil {
			p.Publish(t)
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(Target) {}

// Inline feeds a dispatcher synchronously: the Submit methods run the
// handler on the caller's goroutine instead of queueing, so replays never
// drop input.
type Inline struct {
	*Dispatcher
}

// SubmitOdometry applies odom immediately.
func (in Inline) SubmitOdometry(odom pose.Odometry) bool {
	in.HandleOdometry(odom)
	return true
}

// SubmitScan handles s immediately. Selection errors are counted by the
// dispatcher.
func (in Inline) SubmitScan(s scan.LaserScan) bool {
	_, _ = in.HandleScan(s)
	return true
}

// SubmitReverseRequest handles the request immediately.
func (in Inline) SubmitReverseRequest() bool {
	_, _ = in.HandleReverseRequest()
	return true
}
