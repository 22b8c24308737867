package xv11

import (
	"bytes"
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/timeutil"
)

func samplePacket(index int, mm uint16) Packet {
	p := Packet{Index: index, SpeedRPM: 300}
	for i := range p.Readings {
		p.Readings[i] = Reading{DistanceMM: mm + uint16(i), Strength: 100}
	}
	return p
}

func TestChecksum_KnownFrame(t *testing.T) {
	frame := []byte{
		0xFA, 0xA0, 0x2B, 0x4B,
		0x4E, 0x02, 0x13, 0x01,
		0x4F, 0x02, 0x1E, 0x01,
		0x50, 0x02, 0x1A, 0x01,
		0x53, 0x02, 0x13, 0x01,
		0x3F, 0x06,
	}
	assert.Equal(t, uint16(0x063F), Checksum(frame))

	p, err := DecodePacket(frame)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Index)
	assert.InDelta(t, float64(0x4B2B)/64, p.SpeedRPM, 1e-9)
	assert.Equal(t, Reading{DistanceMM: 0x024E, Strength: 0x0113}, p.Readings[0])
	assert.Equal(t, uint16(0x0253), p.Readings[3].DistanceMM)
}

func TestDecodePacket_Flags(t *testing.T) {
	p := samplePacket(10, 1500)
	p.Readings[1].Invalid = true
	p.Readings[2].Warning = true

	got, err := DecodePacket(EncodePacket(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, 40, got.FirstAngle())
}

func TestDecodePacket_Errors(t *testing.T) {
	good := EncodePacket(samplePacket(0, 1000))

	_, err := DecodePacket(good[:10])
	assert.ErrorIs(t, err, ErrShortPacket)

	bad := bytes.Clone(good)
	bad[0] = 0x00
	_, err = DecodePacket(bad)
	assert.ErrorIs(t, err, ErrBadStart)

	bad = bytes.Clone(good)
	bad[1] = 0x10
	_, err = DecodePacket(bad)
	assert.ErrorIs(t, err, ErrBadIndex)

	bad = bytes.Clone(good)
	bad[5] ^= 0x01
	_, err = DecodePacket(bad)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestAssembler_EmitsOnWrap(t *testing.T) {
	stamp := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	a := NewAssembler("laser", timeutil.NewMockClock(stamp))

	for i := 0; i < PacketsPerRev; i++ {
		p := samplePacket(i, 1000)
		if i == 0 {
			p.Readings[2].Invalid = true
		}
		_, ok := a.Add(p)
		require.False(t, ok, "packet %d", i)
	}

	s, ok := a.Add(samplePacket(0, 2000))
	require.True(t, ok)
	assert.Equal(t, "laser", s.FrameID)
	assert.Equal(t, stamp, s.Stamp)
	require.Len(t, s.Ranges, 360)
	require.Len(t, s.Intensities, 360)
	assert.InDelta(t, 1.0, s.Ranges[0], 1e-6)
	assert.InDelta(t, 1.001, s.Ranges[1], 1e-6)
	assert.Zero(t, s.Ranges[2], "invalid reading reads as zero")
	assert.InDelta(t, 1.003, s.Ranges[359], 1e-6)
	assert.InDelta(t, 2*math.Pi/360, s.AngleIncrement, 1e-6)
	assert.InDelta(t, 0.2, s.ScanTime, 1e-6)
	assert.Equal(t, float32(RangeMin), s.RangeMin)
	assert.Equal(t, float32(RangeMax), s.RangeMax)

	// The wrapping packet starts the next rotation.
	s, ok = a.Flush()
	require.True(t, ok)
	assert.InDelta(t, 2.0, s.Ranges[0], 1e-6)
	assert.Zero(t, s.Ranges[4])

	_, ok = a.Flush()
	assert.False(t, ok)
}

func TestAssembler_ProjectsAroundSensor(t *testing.T) {
	a := NewAssembler("laser", nil)
	for i := 0; i < PacketsPerRev; i++ {
		p := Packet{Index: i, SpeedRPM: 300}
		for j := range p.Readings {
			p.Readings[j] = Reading{DistanceMM: 1000, Strength: 100}
		}
		a.Add(p)
	}
	s, ok := a.Flush()
	require.True(t, ok)

	pts := scan.LaserProjector{}.Project(s)
	require.Len(t, pts, 360)
	assert.InDelta(t, 1.0, pts[0].X, 1e-5)
	assert.InDelta(t, 0.0, pts[0].Y, 1e-5)
	// 90 degrees is reading 2 of packet 22.
	assert.InDelta(t, 0.0, pts[90].X, 1e-5)
	assert.InDelta(t, 1.0, pts[90].Y, 1e-5)
	assert.InDelta(t, -1.0, pts[180].X, 1e-5)
}

type memPort struct {
	*bytes.Reader
}

func (memPort) Close() error { return nil }

type scanRecorder struct {
	mu    sync.Mutex
	scans []scan.LaserScan
}

func (r *scanRecorder) SubmitScan(s scan.LaserScan) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, s)
	return true
}

func TestDriver_ResyncsAndAssembles(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x13, StartByte}) // line noise
	for rev := 0; rev < 2; rev++ {
		for i := 0; i < PacketsPerRev; i++ {
			frame := EncodePacket(samplePacket(i, uint16(1000*(rev+1))))
			if rev == 0 && i == 5 {
				frame[7] ^= 0xFF // corrupt strength, breaks checksum
			}
			stream.Write(frame)
		}
	}

	rec := &scanRecorder{}
	d := NewDriver(memPort{bytes.NewReader(stream.Bytes())}, "laser", nil, rec)
	require.NoError(t, d.Run(context.Background()))

	require.Len(t, rec.scans, 2)
	assert.InDelta(t, 1.0, rec.scans[0].Ranges[0], 1e-6)
	assert.Zero(t, rec.scans[0].Ranges[20], "corrupt packet 5 is skipped")
	assert.InDelta(t, 2.0, rec.scans[1].Ranges[0], 1e-6)

	st := d.Stats()
	assert.Equal(t, uint64(2*PacketsPerRev-1), st.Packets)
	assert.Equal(t, uint64(1), st.ChecksumErrors)
	assert.Equal(t, uint64(2), st.Scans)
	assert.Equal(t, 300.0, st.LastRPM)
}

type blockingPort struct {
	closed chan struct{}
	once   sync.Once
}

func (p *blockingPort) Read([]byte) (int, error) {
	<-p.closed
	return 0, io.EOF
}

func (p *blockingPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func TestDriver_StopsOnCancel(t *testing.T) {
	port := &blockingPort{closed: make(chan struct{})}
	d := NewDriver(port, "laser", nil, &scanRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
	require.NoError(t, d.Close())
}

func TestPortOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    PortOptions
		want    serial.Mode
		wantErr bool
	}{
		{
			name: "defaults",
			want: serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			name: "two stop bits even parity",
			opts: PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even"},
			want: serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{name: "bad data bits", opts: PortOptions{DataBits: 9}, wantErr: true},
		{name: "bad stop bits", opts: PortOptions{StopBits: 3}, wantErr: true},
		{name: "bad parity", opts: PortOptions{Parity: "mark"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.opts.SerialMode()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *mode)
		})
	}
}
