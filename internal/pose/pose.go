// Package pose tracks the robot's latest planar pose from odometry updates.
package pose

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r2"
)

// Pose is a snapshot of the robot's planar state. Heading is in radians in
// whatever convention the producing HeadingFunc uses.
type Pose struct {
	X        float64
	Y        float64
	Heading  float64
	Velocity r2.Point
	Stamp    time.Time
}

// Position returns the pose position as a vector.
func (p Pose) Position() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Age reports how old the pose is relative to now. A pose that has never
// been stamped reports zero.
func (p Pose) Age(now time.Time) time.Duration {
	if p.Stamp.IsZero() {
		return 0
	}
	return now.Sub(p.Stamp)
}

// HeadingFunc converts an orientation quaternion to a heading angle.
type HeadingFunc func(qx, qy, qz, qw float64) float64

// HeadingFromQuaternion is the heading conversion the deployed robots have
// always used. It is not a true yaw extraction (for a pure 90° yaw it
// returns π), and it is kept verbatim so existing angle_weight tunings stay
// valid. See YawFromQuaternion for the standard form.
func HeadingFromQuaternion(qx, qy, qz, qw float64) float64 {
	return math.Atan2(2*(qx*qw+qy*qz), qx*qx+qy*qy-qz*qz-qw*qw)
}

// YawFromQuaternion extracts the rotation about Z from a unit quaternion.
func YawFromQuaternion(qx, qy, qz, qw float64) float64 {
	return math.Atan2(2*(qw*qz+qx*qy), 1-2*(qy*qy+qz*qz))
}

// Odometry is a filtered pose estimate as delivered by the pose feed.
type Odometry struct {
	Stamp                  time.Time
	PositionX, PositionY   float64
	QX, QY, QZ, QW         float64
	LinearVelX, LinearVelY float64
}

// Tracker holds the most recent pose. Updates swap an immutable snapshot so
// readers never observe a partially written pose.
type Tracker struct {
	current atomic.Pointer[Pose]
}

// NewTracker returns a tracker holding the zero pose.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.current.Store(&Pose{})
	return t
}

// UpdatePose overwrites the stored pose. No bounds are checked.
func (t *Tracker) UpdatePose(x, y, heading, velocityX, velocityY float64) {
	t.store(Pose{
		X:        x,
		Y:        y,
		Heading:  heading,
		Velocity: r2.Point{X: velocityX, Y: velocityY},
	})
}

// ApplyOdometry converts the odometry orientation with heading and stores
// the resulting pose, carrying the odometry stamp.
func (t *Tracker) ApplyOdometry(odom Odometry, heading HeadingFunc) {
	t.store(Pose{
		X:        odom.PositionX,
		Y:        odom.PositionY,
		Heading:  heading(odom.QX, odom.QY, odom.QZ, odom.QW),
		Velocity: r2.Point{X: odom.LinearVelX, Y: odom.LinearVelY},
		Stamp:    odom.Stamp,
	})
}

func (t *Tracker) store(p Pose) {
	t.current.Store(&p)
}

// Pose returns the current snapshot by value.
func (t *Tracker) Pose() Pose {
	if p := t.current.Load(); p != nil {
		return *p
	}
	return Pose{}
}
