package scan

import (
	"math"

	"github.com/banshee-data/nextobject/internal/pose"
)

// RangeToPointConverter turns a raw scan into Cartesian candidate points.
type RangeToPointConverter interface {
	Project(s LaserScan) PointSet
}

// LaserProjector projects each ray at angle_min + i*angle_increment to
// (r cos θ, r sin θ) in the sensor frame. Rays shorter than range_min, at or
// beyond the cutoff, or non-finite are dropped.
type LaserProjector struct {
	// RangeCutoff overrides the scan's range_max when positive.
	RangeCutoff float64
}

// Project implements RangeToPointConverter.
func (p LaserProjector) Project(s LaserScan) PointSet {
	cutoff := float64(s.RangeMax)
	if p.RangeCutoff > 0 {
		cutoff = p.RangeCutoff
	}
	rangeMin := float64(s.RangeMin)

	points := make(PointSet, 0, len(s.Ranges))
	for i, r32 := range s.Ranges {
		r := float64(r32)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		if r < rangeMin || r >= cutoff {
			continue
		}
		theta := float64(s.AngleMin) + float64(i)*float64(s.AngleIncrement)
		points = append(points, Point32{
			X: float32(r * math.Cos(theta)),
			Y: float32(r * math.Sin(theta)),
		})
	}
	return points
}

// PoseSource supplies the pose used to place sensor points in the world.
type PoseSource interface {
	Pose() pose.Pose
}

// WorldProjector projects with Base and then rotates by the current heading
// and translates by the current position.
type WorldProjector struct {
	Base RangeToPointConverter
	Pose PoseSource
}

// Project implements RangeToPointConverter.
func (w WorldProjector) Project(s LaserScan) PointSet {
	points := w.Base.Project(s)
	p := w.Pose.Pose()
	sin, cos := math.Sincos(p.Heading)
	for i, pt := range points {
		x, y := float64(pt.X), float64(pt.Y)
		points[i].X = float32(p.X + cos*x - sin*y)
		points[i].Y = float32(p.Y + sin*x + cos*y)
	}
	return points
}
