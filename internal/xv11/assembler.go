package xv11

import (
	"math"
	"time"

	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/timeutil"
)

// Sensor limits reported in every scan.
const (
	RangeMin = 0.06
	RangeMax = 5.0
	Readings = PacketsPerRev * ReadingsPerPkt
)

// Assembler collects packets into one 360-reading scan per rotation. A scan
// is emitted when the packet index wraps; degrees never reported in that
// rotation read as 0, which is below RangeMin.
type Assembler struct {
	frameID string
	clock   timeutil.Clock

	ranges      []float32
	intensities []float32
	rpmSum      float64
	packets     int
	lastIndex   int
	started     time.Time
}

// NewAssembler creates an assembler stamping scans with clock.
func NewAssembler(frameID string, clock timeutil.Clock) *Assembler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	a := &Assembler{frameID: frameID, clock: clock}
	a.reset()
	return a
}

func (a *Assembler) reset() {
	a.ranges = make([]float32, Readings)
	a.intensities = make([]float32, Readings)
	a.rpmSum = 0
	a.packets = 0
	a.lastIndex = -1
	a.started = time.Time{}
}

// Add folds p into the current rotation. When p starts a new rotation the
// completed scan is returned with ok set.
func (a *Assembler) Add(p Packet) (s scan.LaserScan, ok bool) {
	if a.packets > 0 && p.Index <= a.lastIndex {
		s, ok = a.build(), true
		a.reset()
	}
	if a.packets == 0 {
		a.started = a.clock.Now()
	}

	base := p.FirstAngle()
	for i, rd := range p.Readings {
		if rd.Invalid {
			continue
		}
		a.ranges[base+i] = float32(rd.DistanceMM) / 1000
		a.intensities[base+i] = float32(rd.Strength)
	}
	a.rpmSum += p.SpeedRPM
	a.packets++
	a.lastIndex = p.Index
	return s, ok
}

// Flush returns the partial rotation, if any, and resets.
func (a *Assembler) Flush() (scan.LaserScan, bool) {
	if a.packets == 0 {
		return scan.LaserScan{}, false
	}
	s := a.build()
	a.reset()
	return s, true
}

func (a *Assembler) build() scan.LaserScan {
	increment := 2 * math.Pi / Readings
	s := scan.LaserScan{
		Stamp:          a.started,
		FrameID:        a.frameID,
		AngleMin:       0,
		AngleMax:       float32(2*math.Pi - increment),
		AngleIncrement: float32(increment),
		RangeMin:       RangeMin,
		RangeMax:       RangeMax,
		Ranges:         a.ranges,
		Intensities:    a.intensities,
	}
	if rpm := a.rpmSum / float64(a.packets); rpm > 0 {
		scanTime := 60 / rpm
		s.ScanTime = float32(scanTime)
		s.TimeIncrement = float32(scanTime / Readings)
	}
	return s
}
