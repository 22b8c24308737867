// Package selector ranks candidate points by how cheap they are to reach
// from the current pose. Distance and heading misalignment both add cost,
// since turning is more expensive than driving forward.
//
// Two cost models are supported. CostModelCompat reproduces the arithmetic
// the robots have always run: distance is sqrt(dx²·dy²) and the bearing in
// degrees has the heading (in radians) subtracted from it. CostModelCorrected
// uses Euclidean distance and a heading-relative bearing in degrees, wrapped
// to [-180, 180), whose magnitude is penalized.
package selector

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
)

// ErrEmptyPointSet is returned when selection is asked to rank no points.
var ErrEmptyPointSet = errors.New("empty point set")

// CostModel selects the distance and angle arithmetic.
type CostModel int

const (
	CostModelCompat CostModel = iota
	CostModelCorrected
)

func (m CostModel) String() string {
	switch m {
	case CostModelCompat:
		return "compat"
	case CostModelCorrected:
		return "corrected"
	default:
		return fmt.Sprintf("CostModel(%d)", int(m))
	}
}

// HeadingFunc returns the quaternion conversion that matches the model, so
// corrected angles are measured against a true yaw.
func (m CostModel) HeadingFunc() pose.HeadingFunc {
	if m == CostModelCorrected {
		return pose.YawFromQuaternion
	}
	return pose.HeadingFromQuaternion
}

// ParseCostModel converts a config name into a CostModel.
func ParseCostModel(value string) (CostModel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "compat":
		return CostModelCompat, nil
	case "corrected":
		return CostModelCorrected, nil
	default:
		return CostModelCompat, fmt.Errorf("unknown cost model %q", value)
	}
}

// Direction is the selection mode.
type Direction int

const (
	// Forward favors points close to and ahead of the robot.
	Forward Direction = iota
	// Reverse favors points close to and behind the robot.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText encodes the direction by name so JSON reads "forward" or "reverse".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forward":
		*d = Forward
	case "reverse":
		*d = Reverse
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// Config holds the selection tunables.
type Config struct {
	// AngleWeight scales the angular penalty relative to distance.
	AngleWeight float64
	Model       CostModel
}

// Scored is a candidate with its cost and position in the input set.
type Scored struct {
	Point scan.Point32
	Cost  float64
	Index int
}

// Selector is stateless apart from its configuration; every method is a
// pure function of its arguments.
type Selector struct {
	cfg Config
}

// New returns a Selector using cfg.
func New(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Config returns the selector's configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Distance returns the model's distance from at to p.
func (s *Selector) Distance(p scan.Point32, at pose.Pose) float64 {
	xy := p.XY()
	if s.cfg.Model == CostModelCorrected {
		return r2.Point{X: xy.X, Y: xy.Y}.Sub(at.Position()).Norm()
	}
	dx := xy.X - at.X
	dy := xy.Y - at.Y
	return float64(float32(math.Sqrt(dx * dx * dy * dy)))
}

// Angle returns the model's angle from the heading to p, in degrees.
// Compat returns the signed, unit-mixed value; corrected returns the
// magnitude of the wrapped relative bearing, in [0, 180].
func (s *Selector) Angle(p scan.Point32, at pose.Pose) float64 {
	xy := p.XY()
	bearing := math.Atan2(xy.Y-at.Y, xy.X-at.X) * (180.0 / math.Pi)
	if s.cfg.Model == CostModelCorrected {
		return math.Abs(wrapDegrees(bearing - at.Heading*(180.0/math.Pi)))
	}
	return float64(float32(bearing - at.Heading))
}

// wrapDegrees maps a into [-180, 180).
func wrapDegrees(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

// Cost returns the selection cost of p in direction dir.
func (s *Selector) Cost(p scan.Point32, at pose.Pose, dir Direction) float64 {
	angle := s.Angle(p, at)
	if dir == Reverse {
		angle = 180 - angle
	}
	cost := s.Distance(p, at) + s.cfg.AngleWeight*angle
	if s.cfg.Model == CostModelCompat {
		return float64(float32(cost))
	}
	return cost
}

func (s *Selector) costs(points scan.PointSet, at pose.Pose, dir Direction) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = s.Cost(p, at, dir)
	}
	return out
}

// Select returns the lowest-cost point. Ties go to the earlier point and NaN
// costs never win unless every cost is NaN, in which case the first point is
// returned.
func (s *Selector) Select(points scan.PointSet, at pose.Pose, dir Direction) (Scored, error) {
	if len(points) == 0 {
		return Scored{}, ErrEmptyPointSet
	}
	costs := s.costs(points, at, dir)
	i := floats.MinIdx(costs)
	return Scored{Point: points[i], Cost: costs[i], Index: i}, nil
}

// SelectForward returns the best point ahead of the robot.
func (s *Selector) SelectForward(points scan.PointSet, at pose.Pose) (scan.Point32, error) {
	best, err := s.Select(points, at, Forward)
	if err != nil {
		return scan.Point32{}, fmt.Errorf("select forward: %w", err)
	}
	return best.Point, nil
}

// SelectReverse returns the best point behind the robot.
func (s *Selector) SelectReverse(points scan.PointSet, at pose.Pose) (scan.Point32, error) {
	best, err := s.Select(points, at, Reverse)
	if err != nil {
		return scan.Point32{}, fmt.Errorf("select reverse: %w", err)
	}
	return best.Point, nil
}

// Rank returns every point ordered by ascending cost. The sort is stable and
// NaN costs sort last, so Rank(...)[0] agrees with Select.
func (s *Selector) Rank(points scan.PointSet, at pose.Pose, dir Direction) []Scored {
	costs := s.costs(points, at, dir)
	ranked := make([]Scored, len(points))
	for i, p := range points {
		ranked[i] = Scored{Point: p, Cost: costs[i], Index: i}
	}
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		aNaN, bNaN := math.IsNaN(a.Cost), math.IsNaN(b.Cost)
		switch {
		case aNaN && bNaN:
			return 0
		case aNaN:
			return 1
		case bNaN:
			return -1
		case a.Cost < b.Cost:
			return -1
		case a.Cost > b.Cost:
			return 1
		}
		return 0
	})
	return ranked
}
