// Command scan-plot replays a captured UDP feed through the selector and
// renders the final point set with its forward and reverse targets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nextobject/internal/config"
	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/monitor"
	"github.com/banshee-data/nextobject/internal/network"
)

var (
	pcapFile   = flag.String("pcap", "", "Classic pcap capture of the UDP feed (required)")
	udpPort    = flag.Int("udp-port", 7400, "Destination port of feed datagrams (0 accepts all)")
	configFile = flag.String("config", "", "Selector tuning JSON (default: built-in defaults)")
	out        = flag.String("out", "scan.png", "Output file; .html writes an interactive chart")
	inches     = flag.Float64("size", 8, "PNG edge length in inches")
	speed      = flag.Float64("speed", 0, "Replay pacing multiplier (0 = as fast as possible)")
)

// replay feeds the capture through a dispatcher and returns the resulting
// view along with the counters.
func replay(ctx context.Context, cfg *config.SelectorConfig, rc network.ReplayConfig) (monitor.View, dispatch.Stats, network.ReplayResult, error) {
	d, err := dispatch.FromTuning(cfg, nil)
	if err != nil {
		return monitor.View{}, dispatch.Stats{}, network.ReplayResult{}, err
	}

	res, err := network.ReadPCAPFile(ctx, rc, network.NewFeedHandler(dispatch.Inline{Dispatcher: d}, nil))
	if err != nil {
		return monitor.View{}, d.Stats(), res, err
	}
	v, err := monitor.BuildView(d)
	return v, d.Stats(), res, err
}

func writeOutput(path string, v monitor.View, size vg.Length) error {
	if strings.EqualFold(filepath.Ext(path), ".html") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := monitor.RenderScatter(f, v); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return monitor.SaveScanPNG(path, v, size)
}

func main() {
	flag.Parse()
	if *pcapFile == "" {
		log.Fatal("-pcap is required")
	}

	cfg := config.DefaultSelectorConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadSelectorConfig(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, stats, res, err := replay(ctx, cfg, network.ReplayConfig{Path: *pcapFile, UDPPort: *udpPort, Speed: *speed})
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	if err := writeOutput(*out, v, vg.Length(*inches)*vg.Inch); err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}

	fmt.Printf("packets=%d payloads=%d errors=%d scans=%d forward=%d reverse=%d points=%d -> %s\n",
		res.Packets, res.Payloads, res.Errors, stats.ScansApplied, stats.ForwardEmitted, stats.ReverseEmitted, len(v.Points), *out)
}
