package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nextobject/internal/config"
	"github.com/banshee-data/nextobject/internal/monitoring"
	"github.com/banshee-data/nextobject/internal/network"
	"github.com/banshee-data/nextobject/internal/wire"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func writeFeed(t *testing.T, payloads ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, payload := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: net.IPv4(10, 0, 0, 1), DstIP: net.IPv4(10, 0, 0, 2)}
		udp := &layers.UDP{SrcPort: 5000, DstPort: 7400}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			eth, ip, udp, gopacket.Payload(payload)))
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000+int64(i), 0), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestReplayAndPlot(t *testing.T) {
	scanMsg := wire.Marshal(&wire.Envelope{Scan: &wire.LaserScan{
		AngleIncrement: 3.1,
		RangeMin:       0.1,
		RangeMax:       10,
		Ranges:         []float32{1, 2},
	}})
	reverse := wire.Marshal(&wire.Envelope{ReverseRequest: &wire.ReverseRequest{}})
	path := writeFeed(t, scanMsg, reverse)

	v, stats, res, err := replay(context.Background(), config.DefaultSelectorConfig(), network.ReplayConfig{Path: path, UDPPort: 7400})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Payloads)
	assert.Equal(t, uint64(1), stats.ForwardEmitted)
	assert.Equal(t, uint64(1), stats.ReverseEmitted)
	assert.Len(t, v.Points, 2)
	require.NotNil(t, v.Forward)
	require.NotNil(t, v.Reverse)

	dir := t.TempDir()
	png := filepath.Join(dir, "out.png")
	require.NoError(t, writeOutput(png, v, 3*vg.Inch))
	html := filepath.Join(dir, "out.html")
	require.NoError(t, writeOutput(html, v, 0))

	for _, p := range []string{png, html} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
	}
}

func TestReplay_NoScan(t *testing.T) {
	path := writeFeed(t, wire.Marshal(&wire.Envelope{ReverseRequest: &wire.ReverseRequest{}}))
	_, _, _, err := replay(context.Background(), config.DefaultSelectorConfig(), network.ReplayConfig{Path: path})
	assert.Error(t, err)
}

func TestReplay_HonoursRangeCutoff(t *testing.T) {
	scanMsg := wire.Marshal(&wire.Envelope{Scan: &wire.LaserScan{
		AngleIncrement: 3.1,
		RangeMin:       0.1,
		RangeMax:       10,
		Ranges:         []float32{1, 2},
	}})
	path := writeFeed(t, scanMsg)

	cfg := config.DefaultSelectorConfig()
	cutoff := 1.5
	cfg.RangeCutoff = &cutoff

	v, stats, _, err := replay(context.Background(), cfg, network.ReplayConfig{Path: path, UDPPort: 7400})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ForwardEmitted)
	require.Len(t, v.Points, 1)
	assert.InDelta(t, 1.0, v.Points[0].X, 1e-6)
	require.NotNil(t, v.Forward)
	assert.InDelta(t, 1.0, v.Forward.Point.X, 1e-6)
}
