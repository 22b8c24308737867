package wire

import (
	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

// FromOdometry converts a pose feed message for the wire.
func FromOdometry(o pose.Odometry) *Odometry {
	return &Odometry{
		StampNanos: stampNanos(o.Stamp),
		PositionX:  o.PositionX,
		PositionY:  o.PositionY,
		QX:         o.QX,
		QY:         o.QY,
		QZ:         o.QZ,
		QW:         o.QW,
		LinearX:    o.LinearVelX,
		LinearY:    o.LinearVelY,
	}
}

// Odometry converts back to the pose feed message.
func (o *Odometry) Odometry() pose.Odometry {
	return pose.Odometry{
		Stamp:      stampTime(o.StampNanos),
		PositionX:  o.PositionX,
		PositionY:  o.PositionY,
		QX:         o.QX,
		QY:         o.QY,
		QZ:         o.QZ,
		QW:         o.QW,
		LinearVelX: o.LinearX,
		LinearVelY: o.LinearY,
	}
}

// FromScan converts a scan for the wire.
func FromScan(s scan.LaserScan) *LaserScan {
	out := &LaserScan{
		StampNanos:     stampNanos(s.Stamp),
		FrameID:        s.FrameID,
		AngleMin:       s.AngleMin,
		AngleMax:       s.AngleMax,
		AngleIncrement: s.AngleIncrement,
		TimeIncrement:  s.TimeIncrement,
		ScanTime:       s.ScanTime,
		RangeMin:       s.RangeMin,
		RangeMax:       s.RangeMax,
		Ranges:         s.Ranges,
		Intensities:    s.Intensities,
	}
	if len(s.Points) > 0 {
		out.Points = make([]Point32, len(s.Points))
		for i, p := range s.Points {
			out.Points[i] = Point32(p)
		}
	}
	return out
}

// LaserScan converts back to a scan.
func (s *LaserScan) LaserScan() scan.LaserScan {
	out := scan.LaserScan{
		Stamp:          stampTime(s.StampNanos),
		FrameID:        s.FrameID,
		AngleMin:       s.AngleMin,
		AngleMax:       s.AngleMax,
		AngleIncrement: s.AngleIncrement,
		TimeIncrement:  s.TimeIncrement,
		ScanTime:       s.ScanTime,
		RangeMin:       s.RangeMin,
		RangeMax:       s.RangeMax,
		Ranges:         s.Ranges,
		Intensities:    s.Intensities,
	}
	if len(s.Points) > 0 {
		out.Points = make(scan.PointSet, len(s.Points))
		for i, p := range s.Points {
			out.Points[i] = scan.Point32(p)
		}
	}
	return out
}

// FromTarget converts an emitted target for the wire.
func FromTarget(t dispatch.Target) *Target {
	dir := DirectionForward
	if t.Direction == selector.Reverse {
		dir = DirectionReverse
	}
	return &Target{
		ID:         t.ID,
		Direction:  dir,
		Point:      Point32(t.Point),
		Cost:       t.Cost,
		Candidates: int64(t.Candidates),
		StampNanos: stampNanos(t.Stamp),
	}
}

// Target converts back to a dispatch target.
func (t *Target) Target() dispatch.Target {
	dir := selector.Forward
	if t.Direction == DirectionReverse {
		dir = selector.Reverse
	}
	return dispatch.Target{
		ID:         t.ID,
		Direction:  dir,
		Point:      scan.Point32(t.Point),
		Cost:       t.Cost,
		Candidates: int(t.Candidates),
		Stamp:      stampTime(t.StampNanos),
	}
}
