// Package scan holds range-scan messages, the buffer that keeps the most
// recent one, and the projection from ranges to Cartesian points.
package scan

import (
	"time"
)

// Point32 is a single Cartesian point, matching the geometry_msgs/Point32
// layout the downstream consumers expect. Z is carried but unused by the
// planar selection.
type Point32 struct {
	X float32
	Y float32
	Z float32
}

// Point2D is the planar view of a point.
type Point2D struct {
	X float64
	Y float64
}

// XY returns the planar projection of p.
func (p Point32) XY() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// PointSet is an ordered set of candidate points produced fresh for each
// scan or query. Order matters: ranking ties resolve to the earlier point.
type PointSet []Point32

// LaserScan is a single sweep of a planar rangefinder. Angles are radians,
// ranges meters. Points optionally carries an already-projected point cloud
// supplied by the producer.
type LaserScan struct {
	Stamp          time.Time
	FrameID        string
	AngleMin       float32
	AngleMax       float32
	AngleIncrement float32
	TimeIncrement  float32
	ScanTime       float32
	RangeMin       float32
	RangeMax       float32
	Ranges         []float32
	Intensities    []float32
	Points         PointSet
}

// Clone returns a deep copy of s so the caller cannot observe later
// mutation of the original's slices.
func (s LaserScan) Clone() LaserScan {
	out := s
	out.Ranges = cloneFloats(s.Ranges)
	out.Intensities = cloneFloats(s.Intensities)
	if s.Points != nil {
		out.Points = make(PointSet, len(s.Points))
		copy(out.Points, s.Points)
	}
	return out
}

func cloneFloats(in []float32) []float32 {
	if in == nil {
		return nil
	}
	out := make([]float32, len(in))
	copy(out, in)
	return out
}
