// Package dispatch wires the pose, scan and reverse-request feeds to target
// selection. Each feed arrives on its own channel; there is no ordering
// between feeds, and selection always uses whatever pose and scan are
// resident when it runs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/nextobject/internal/monitoring"
	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
	"github.com/banshee-data/nextobject/internal/timeutil"
)

var logf = monitoring.Component("Dispatch")

// Config holds the dispatcher's collaborators. Selector is required; the
// rest default when nil or zero.
type Config struct {
	Selector  *selector.Selector
	Converter scan.RangeToPointConverter
	Publisher Publisher
	Clock     timeutil.Clock

	// Tracker and Buffer may be shared with other components, for example a
	// WorldProjector that reads the same pose.
	Tracker *pose.Tracker
	Buffer  *scan.Buffer

	// Heading converts odometry orientation; defaults to the selector
	// model's HeadingFunc.
	Heading pose.HeadingFunc

	QueueDepth    int
	StatsInterval time.Duration
}

// Stats counts dispatcher activity since start.
type Stats struct {
	PosesApplied   uint64 `json:"poses_applied"`
	ScansApplied   uint64 `json:"scans_applied"`
	Requests       uint64 `json:"reverse_requests"`
	ForwardEmitted uint64 `json:"forward_emitted"`
	ReverseEmitted uint64 `json:"reverse_emitted"`
	NoScan         uint64 `json:"no_scan"`
	EmptySet       uint64 `json:"empty_point_set"`
	QueueDropped   uint64 `json:"queue_dropped"`
}

// Status is a point-in-time view for the debug endpoints.
type Status struct {
	Pose        pose.Pose
	ScanSeq     uint64
	LastForward *Target
	LastReverse *Target
	Stats       Stats
}

// Dispatcher owns the pose tracker and scan buffer and runs selection.
type Dispatcher struct {
	poses   *pose.Tracker
	scans   *scan.Buffer
	sel     *selector.Selector
	conv    scan.RangeToPointConverter
	heading pose.HeadingFunc
	pub     Publisher
	clock   timeutil.Clock

	poseCh    chan pose.Odometry
	scanCh    chan scan.LaserScan
	requestCh chan struct{}

	statsInterval time.Duration

	posesApplied   atomic.Uint64
	scansApplied   atomic.Uint64
	requests       atomic.Uint64
	forwardEmitted atomic.Uint64
	reverseEmitted atomic.Uint64
	noScan         atomic.Uint64
	emptySet       atomic.Uint64
	queueDropped   atomic.Uint64

	lastMu      sync.Mutex
	lastForward *Target
	lastReverse *Target
}

// New creates a Dispatcher from cfg.
func New(cfg Config) *Dispatcher {
	if cfg.Selector == nil {
		panic("dispatch: Config.Selector is required")
	}
	d := &Dispatcher{
		poses:         cfg.Tracker,
		scans:         cfg.Buffer,
		sel:           cfg.Selector,
		conv:          cfg.Converter,
		heading:       cfg.Heading,
		pub:           cfg.Publisher,
		clock:         cfg.Clock,
		statsInterval: cfg.StatsInterval,
	}
	if d.poses == nil {
		d.poses = pose.NewTracker()
	}
	if d.scans == nil {
		d.scans = scan.NewBuffer()
	}
	if d.conv == nil {
		d.conv = scan.LaserProjector{}
	}
	if d.heading == nil {
		d.heading = cfg.Selector.Config().Model.HeadingFunc()
	}
	if d.pub == nil {
		d.pub = noopPublisher{}
	}
	if d.clock == nil {
		d.clock = timeutil.RealClock{}
	}
	depth := cfg.QueueDepth
	if depth < 1 {
		depth = 1
	}
	d.poseCh = make(chan pose.Odometry, depth)
	d.scanCh = make(chan scan.LaserScan, depth)
	d.requestCh = make(chan struct{}, depth)
	return d
}

// Tracker returns the pose tracker owned by the dispatcher.
func (d *Dispatcher) Tracker() *pose.Tracker { return d.poses }

// Buffer returns the scan buffer owned by the dispatcher.
func (d *Dispatcher) Buffer() *scan.Buffer { return d.scans }

// Selector returns the configured selector.
func (d *Dispatcher) Selector() *selector.Selector { return d.sel }

// SubmitOdometry queues a pose update for Run. It never blocks; a full queue
// drops the update and returns false.
func (d *Dispatcher) SubmitOdometry(odom pose.Odometry) bool {
	select {
	case d.poseCh <- odom:
		return true
	default:
		d.queueDropped.Add(1)
		return false
	}
}

// SubmitScan queues a scan for Run. It never blocks.
func (d *Dispatcher) SubmitScan(s scan.LaserScan) bool {
	select {
	case d.scanCh <- s:
		return true
	default:
		d.queueDropped.Add(1)
		return false
	}
}

// SubmitReverseRequest queues a reverse-target request for Run. It never
// blocks.
func (d *Dispatcher) SubmitReverseRequest() bool {
	select {
	case d.requestCh <- struct{}{}:
		return true
	default:
		d.queueDropped.Add(1)
		return false
	}
}

// Run consumes the feeds until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d.statsInterval > 0 {
		ticker := time.NewTicker(d.statsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case odom := <-d.poseCh:
			d.HandleOdometry(odom)
		case s := <-d.scanCh:
			// Errors are counted and logged inside; keep consuming.
			_, _ = d.HandleScan(s)
		case <-d.requestCh:
			_, _ = d.HandleReverseRequest()
		case <-tick:
			d.logStats()
		}
	}
}

// HandleOdometry converts the orientation and stores the pose.
func (d *Dispatcher) HandleOdometry(odom pose.Odometry) {
	d.poses.ApplyOdometry(odom, d.heading)
	d.posesApplied.Add(1)
}

// HandleScan stores s and emits the forward target chosen from its points.
// A scan that yields no points is stored but produces ErrEmptyPointSet.
func (d *Dispatcher) HandleScan(s scan.LaserScan) (Target, error) {
	d.scans.SetScan(s)
	d.scansApplied.Add(1)

	points := s.Points
	if len(points) == 0 {
		points = d.conv.Project(s)
	}
	return d.selectAndEmit(points, selector.Forward)
}

// HandleReverseRequest selects the best point behind the robot from the
// buffered scan. Before the first scan it returns scan.ErrNoScanAvailable.
func (d *Dispatcher) HandleReverseRequest() (Target, error) {
	d.requests.Add(1)
	points, err := d.PointSet()
	if err != nil {
		d.noScan.Add(1)
		logf("reverse request ignored: %v", err)
		return Target{}, err
	}
	return d.selectAndEmit(points, selector.Reverse)
}

// PointSet converts the buffered scan with the configured converter.
func (d *Dispatcher) PointSet() (scan.PointSet, error) {
	s, err := d.scans.Scan()
	if err != nil {
		return nil, err
	}
	return d.conv.Project(s), nil
}

func (d *Dispatcher) selectAndEmit(points scan.PointSet, dir selector.Direction) (Target, error) {
	best, err := d.sel.Select(points, d.poses.Pose(), dir)
	if err != nil {
		if errors.Is(err, selector.ErrEmptyPointSet) {
			d.emptySet.Add(1)
		}
		logf("%s selection dropped: %v", dir, err)
		return Target{}, fmt.Errorf("%s selection: %w", dir, err)
	}

	t := Target{
		ID:         uuid.NewString(),
		Direction:  dir,
		Point:      best.Point,
		Cost:       best.Cost,
		Candidates: len(points),
		Stamp:      d.clock.Now(),
	}

	d.lastMu.Lock()
	if dir == selector.Reverse {
		d.lastReverse = &t
		d.reverseEmitted.Add(1)
	} else {
		d.lastForward = &t
		d.forwardEmitted.Add(1)
	}
	d.lastMu.Unlock()

	d.pub.Publish(t)
	return t, nil
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		PosesApplied:   d.posesApplied.Load(),
		ScansApplied:   d.scansApplied.Load(),
		Requests:       d.requests.Load(),
		ForwardEmitted: d.forwardEmitted.Load(),
		ReverseEmitted: d.reverseEmitted.Load(),
		NoScan:         d.noScan.Load(),
		EmptySet:       d.emptySet.Load(),
		QueueDropped:   d.queueDropped.Load(),
	}
}

// Status returns a snapshot of the dispatcher's state.
func (d *Dispatcher) Status() Status {
	st := Status{
		Pose:    d.poses.Pose(),
		ScanSeq: d.scans.Seq(),
		Stats:   d.Stats(),
	}
	d.lastMu.Lock()
	if d.lastForward != nil {
		f := *d.lastForward
		st.LastForward = &f
	}
	if d.lastReverse != nil {
		r := *d.lastReverse
		st.LastReverse = &r
	}
	d.lastMu.Unlock()
	return st
}

func (d *Dispatcher) logStats() {
	s := d.Stats()
	logf("Stats: poses=%d scans=%d requests=%d forward=%d reverse=%d no_scan=%d empty=%d dropped=%d",
		s.PosesApplied, s.ScansApplied, s.Requests, s.ForwardEmitted, s.ReverseEmitted, s.NoScan, s.EmptySet, s.QueueDropped)
}
