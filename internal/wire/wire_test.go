package wire

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/pose"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

func TestEnvelope_ScanThroughDomain(t *testing.T) {
	in := scan.LaserScan{
		Stamp:          time.Unix(1700000000, 123).UTC(),
		FrameID:        "neato_laser",
		AngleMin:       0,
		AngleMax:       6.26573,
		AngleIncrement: 0.0174533,
		ScanTime:       0.2,
		RangeMin:       0.06,
		RangeMax:       5,
		Ranges:         []float32{1.5, float32(math.Inf(1)), 0.3},
		Intensities:    []float32{100, 0, 42},
		Points:         scan.PointSet{{X: 1, Y: 2}, {X: -3, Y: 0.5, Z: 1}},
	}

	b := Marshal(&Envelope{Scan: FromScan(in)})

	var env Envelope
	if err := Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Kind() != KindScan {
		t.Fatalf("Kind() = %v, want scan", env.Kind())
	}
	if diff := cmp.Diff(in, env.Scan.LaserScan()); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvelope_OdometryThroughDomain(t *testing.T) {
	in := pose.Odometry{
		Stamp:      time.Unix(5, 0).UTC(),
		PositionX:  1.25,
		PositionY:  -4,
		QZ:         math.Sin(math.Pi / 4),
		QW:         math.Cos(math.Pi / 4),
		LinearVelX: 0.2,
	}

	var env Envelope
	if err := Unmarshal(Marshal(&Envelope{Odometry: FromOdometry(in)}), &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Kind() != KindOdometry {
		t.Fatalf("Kind() = %v, want odometry", env.Kind())
	}
	if diff := cmp.Diff(in, env.Odometry.Odometry()); diff != "" {
		t.Errorf("odometry mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvelope_EmptyReverseRequest(t *testing.T) {
	b := Marshal(&Envelope{ReverseRequest: &ReverseRequest{}})
	if len(b) == 0 {
		t.Fatal("an empty request must still produce a tagged payload")
	}
	var env Envelope
	if err := Unmarshal(b, &env); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if env.Kind() != KindReverseRequest {
		t.Errorf("Kind() = %v, want reverse_request", env.Kind())
	}
}

func TestEnvelope_NoPayload(t *testing.T) {
	var env Envelope
	if err := Unmarshal(nil, &env); !errors.Is(err, ErrEmptyEnvelope) {
		t.Errorf("Unmarshal(nil) = %v, want ErrEmptyEnvelope", err)
	}

	// Only an unknown field: skipped, still empty.
	b := protowire.AppendTag(nil, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	if err := Unmarshal(b, &env); !errors.Is(err, ErrEmptyEnvelope) {
		t.Errorf("Unmarshal(unknown only) = %v, want ErrEmptyEnvelope", err)
	}
}

func TestTarget_ThroughDomain(t *testing.T) {
	in := dispatch.Target{
		ID:         "7d3b0f1c-2a59-4a8e-9d0f-6a1c3c9e2b11",
		Direction:  selector.Reverse,
		Point:      scan.Point32{X: -1, Y: 0.25},
		Cost:       3.5,
		Candidates: 212,
		Stamp:      time.Unix(1, 500).UTC(),
	}
	var out Target
	if err := Unmarshal(Marshal(FromTarget(in)), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out.Target()); diff != "" {
		t.Errorf("target mismatch (-want +got):\n%s", diff)
	}
}

// A hand-assembled message using the schema's field numbers, with ranges
// sent unpacked and an unknown field in the middle.
func TestLaserScan_DecodesForeignEncoding(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "laser")
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))
	for _, r := range []float32{1, 2} {
		b = protowire.AppendTag(b, 10, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(r))
	}
	b = protowire.AppendTag(b, 9, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(8))

	var s LaserScan
	if err := Unmarshal(b, &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := LaserScan{FrameID: "laser", RangeMax: 8, Ranges: []float32{1, 2}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	packedBad := protowire.AppendTag(nil, 10, protowire.BytesType)
	packedBad = protowire.AppendBytes(packedBad, []byte{1, 2, 3})

	truncated := Marshal(&Odometry{PositionX: 1})
	truncated = truncated[:len(truncated)-2]

	tests := []struct {
		name string
		b    []byte
		msg  Message
	}{
		{"packed length not multiple of 4", packedBad, &LaserScan{}},
		{"truncated fixed64", truncated, &Odometry{}},
		{"bad tag", []byte{0xff}, &Target{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Unmarshal(tc.b, tc.msg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestUnmarshal_ResetsReceiver(t *testing.T) {
	s := LaserScan{FrameID: "stale", Ranges: []float32{9}}
	if err := Unmarshal(Marshal(&LaserScan{RangeMax: 1}), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.FrameID != "" || s.Ranges != nil {
		t.Errorf("stale fields survived decode: %+v", s)
	}
}

func TestKind_String(t *testing.T) {
	if KindTarget.String() != "target" || Kind(42).String() != "Kind(42)" {
		t.Errorf("unexpected Kind strings: %s %s", KindTarget, Kind(42))
	}
}
