// Package monitor serves debug views of the selector: a JSON status page,
// an interactive scatter of the current point set, and a PNG rendering of
// the same scene.
package monitor

import (
	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

// Source is the dispatcher surface the debug views read.
type Source interface {
	Status() dispatch.Status
	PointSet() (scan.PointSet, error)
	Selector() *selector.Selector
	SubmitReverseRequest() bool
	HandleReverseRequest() (dispatch.Target, error)
}

// View is one frame of the debug scene.
type View struct {
	Pose    pose.Pose
	Points  scan.PointSet
	Forward *selector.Scored
	Reverse *selector.Scored
	Model   selector.CostModel
}

// BuildView selects both directions over the buffered scan at the current
// pose. It fails with scan.ErrNoScanAvailable before the first scan.
func BuildView(src Source) (View, error) {
	points, err := src.PointSet()
	if err != nil {
		return View{}, err
	}
	sel := src.Selector()
	v := View{
		Pose:   src.Status().Pose,
		Points: points,
		Model:  sel.Config().Model,
	}
	if best, err := sel.Select(points, v.Pose, selector.Forward); err == nil {
		v.Forward = &best
	}
	if best, err := sel.Select(points, v.Pose, selector.Reverse); err == nil {
		v.Reverse = &best
	}
	return v, nil
}

// extent returns the half-width of a square window holding every point and
// the robot, padded by 5%.
func (v View) extent() float64 {
	maxAbs := max(abs(v.Pose.X), abs(v.Pose.Y))
	for _, p := range v.Points {
		maxAbs = max(maxAbs, abs(float64(p.X)), abs(float64(p.Y)))
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs * 1.05
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
