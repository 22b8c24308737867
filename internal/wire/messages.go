package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Point32 mirrors scan.Point32.
type Point32 struct {
	X, Y, Z float32
}

func (p *Point32) AppendWire(b []byte) []byte {
	b = appendFloat(b, 1, p.X)
	b = appendFloat(b, 2, p.Y)
	return appendFloat(b, 3, p.Z)
}

func (p *Point32) UnmarshalWire(b []byte) error {
	*p = Point32{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeFloat(typ, b, &p.X)
		case 2:
			return consumeFloat(typ, b, &p.Y)
		case 3:
			return consumeFloat(typ, b, &p.Z)
		}
		return 0, nil
	})
}

// Odometry is a filtered pose estimate: position, orientation quaternion and
// planar linear velocity.
type Odometry struct {
	StampNanos int64
	PositionX  float64
	PositionY  float64
	QX         float64
	QY         float64
	QZ         float64
	QW         float64
	LinearX    float64
	LinearY    float64
}

func (o *Odometry) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, o.StampNanos)
	b = appendDouble(b, 2, o.PositionX)
	b = appendDouble(b, 3, o.PositionY)
	b = appendDouble(b, 4, o.QX)
	b = appendDouble(b, 5, o.QY)
	b = appendDouble(b, 6, o.QZ)
	b = appendDouble(b, 7, o.QW)
	b = appendDouble(b, 8, o.LinearX)
	return appendDouble(b, 9, o.LinearY)
}

func (o *Odometry) UnmarshalWire(b []byte) error {
	*o = Odometry{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &o.StampNanos)
		case 2:
			return consumeDouble(typ, b, &o.PositionX)
		case 3:
			return consumeDouble(typ, b, &o.PositionY)
		case 4:
			return consumeDouble(typ, b, &o.QX)
		case 5:
			return consumeDouble(typ, b, &o.QY)
		case 6:
			return consumeDouble(typ, b, &o.QZ)
		case 7:
			return consumeDouble(typ, b, &o.QW)
		case 8:
			return consumeDouble(typ, b, &o.LinearX)
		case 9:
			return consumeDouble(typ, b, &o.LinearY)
		}
		return 0, nil
	})
}

// LaserScan is a single planar sweep, optionally carrying projected points.
type LaserScan struct {
	StampNanos     int64
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
	Points         []Point32
}

func (s *LaserScan) AppendWire(b []byte) []byte {
	b = appendInt64(b, 1, s.StampNanos)
	b = appendString(b, 2, s.FrameID)
	b = appendFloat(b, 3, s.AngleMin)
	b = appendFloat(b, 4, s.AngleMax)
	b = appendFloat(b, 5, s.AngleIncrement)
	b = appendFloat(b, 6, s.TimeIncrement)
	b = appendFloat(b, 7, s.ScanTime)
	b = appendFloat(b, 8, s.RangeMin)
	b = appendFloat(b, 9, s.RangeMax)
	b = appendPackedFloats(b, 10, s.Ranges)
	b = appendPackedFloats(b, 11, s.Intensities)
	for i := range s.Points {
		b = appendMessage(b, 12, &s.Points[i])
	}
	return b
}

func (s *LaserScan) UnmarshalWire(b []byte) error {
	*s = LaserScan{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &s.StampNanos)
		case 2:
			return consumeString(typ, b, &s.FrameID)
		case 3:
			return consumeFloat(typ, b, &s.AngleMin)
		case 4:
			return consumeFloat(typ, b, &s.AngleMax)
		case 5:
			return consumeFloat(typ, b, &s.AngleIncrement)
		case 6:
			return consumeFloat(typ, b, &s.TimeIncrement)
		case 7:
			return consumeFloat(typ, b, &s.ScanTime)
		case 8:
			return consumeFloat(typ, b, &s.RangeMin)
		case 9:
			return consumeFloat(typ, b, &s.RangeMax)
		case 10:
			return consumeFloats(typ, b, &s.Ranges)
		case 11:
			return consumeFloats(typ, b, &s.Intensities)
		case 12:
			var p Point32
			n, err := consumeMessage(typ, b, &p)
			if n > 0 {
				s.Points = append(s.Points, p)
			}
			return n, err
		}
		return 0, nil
	})
}

// ReverseRequest asks for the best target behind the robot.
type ReverseRequest struct {
	StampNanos int64
}

func (r *ReverseRequest) AppendWire(b []byte) []byte {
	return appendInt64(b, 1, r.StampNanos)
}

func (r *ReverseRequest) UnmarshalWire(b []byte) error {
	*r = ReverseRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeInt64(typ, b, &r.StampNanos)
		}
		return 0, nil
	})
}

// StreamRequest opens a target stream. When both flags are false every
// target is streamed.
type StreamRequest struct {
	ForwardOnly bool
	ReverseOnly bool
}

func (r *StreamRequest) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, r.ForwardOnly)
	return appendBool(b, 2, r.ReverseOnly)
}

func (r *StreamRequest) UnmarshalWire(b []byte) error {
	*r = StreamRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBool(typ, b, &r.ForwardOnly)
		case 2:
			return consumeBool(typ, b, &r.ReverseOnly)
		}
		return 0, nil
	})
}

// Direction values carried by Target.Direction.
const (
	DirectionForward uint64 = 0
	DirectionReverse uint64 = 1
)

// Target is an emitted selection result.
type Target struct {
	ID         string
	Direction  uint64
	Point      Point32
	Cost       float64
	Candidates int64
	StampNanos int64
}

func (t *Target) AppendWire(b []byte) []byte {
	b = appendString(b, 1, t.ID)
	if t.Direction != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, t.Direction)
	}
	b = appendMessage(b, 3, &t.Point)
	b = appendDouble(b, 4, t.Cost)
	b = appendInt64(b, 5, t.Candidates)
	return appendInt64(b, 6, t.StampNanos)
}

func (t *Target) UnmarshalWire(b []byte) error {
	*t = Target{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &t.ID)
		case 2:
			return consumeVarint(typ, b, &t.Direction)
		case 3:
			return consumeMessage(typ, b, &t.Point)
		case 4:
			return consumeDouble(typ, b, &t.Cost)
		case 5:
			return consumeInt64(typ, b, &t.Candidates)
		case 6:
			return consumeInt64(typ, b, &t.StampNanos)
		}
		return 0, nil
	})
}

// Kind identifies which payload an Envelope carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindOdometry
	KindScan
	KindReverseRequest
	KindTarget
)

func (k Kind) String() string {
	switch k {
	case KindOdometry:
		return "odometry"
	case KindScan:
		return "scan"
	case KindReverseRequest:
		return "reverse_request"
	case KindTarget:
		return "target"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrEmptyEnvelope is returned when an envelope carries no payload.
var ErrEmptyEnvelope = errors.New("envelope carries no payload")

// Envelope frames one message per UDP datagram. Exactly one field is set.
type Envelope struct {
	Odometry       *Odometry
	Scan           *LaserScan
	ReverseRequest *ReverseRequest
	Target         *Target
}

// Kind reports the payload kind. If several are set the first in field
// order wins.
func (e *Envelope) Kind() Kind {
	switch {
	case e.Odometry != nil:
		return KindOdometry
	case e.Scan != nil:
		return KindScan
	case e.ReverseRequest != nil:
		return KindReverseRequest
	case e.Target != nil:
		return KindTarget
	}
	return KindUnknown
}

func (e *Envelope) AppendWire(b []byte) []byte {
	switch e.Kind() {
	case KindOdometry:
		b = appendMessage(b, 1, e.Odometry)
	case KindScan:
		b = appendMessage(b, 2, e.Scan)
	case KindReverseRequest:
		b = appendMessage(b, 3, e.ReverseRequest)
	case KindTarget:
		b = appendMessage(b, 4, e.Target)
	}
	return b
}

// UnmarshalWire decodes an envelope. A later payload field replaces an
// earlier one, as with a protobuf oneof.
func (e *Envelope) UnmarshalWire(b []byte) error {
	*e = Envelope{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			m := &Odometry{}
			n, err := consumeMessage(typ, b, m)
			if n > 0 {
				*e = Envelope{Odometry: m}
			}
			return n, err
		case 2:
			m := &LaserScan{}
			n, err := consumeMessage(typ, b, m)
			if n > 0 {
				*e = Envelope{Scan: m}
			}
			return n, err
		case 3:
			m := &ReverseRequest{}
			n, err := consumeMessage(typ, b, m)
			if n > 0 {
				*e = Envelope{ReverseRequest: m}
			}
			return n, err
		case 4:
			m := &Target{}
			n, err := consumeMessage(typ, b, m)
			if n > 0 {
				*e = Envelope{Target: m}
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	if e.Kind() == KindUnknown {
		return ErrEmptyEnvelope
	}
	return nil
}
