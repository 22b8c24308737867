package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PacketHandler consumes one UDP payload.
type PacketHandler interface {
	HandlePacket(payload []byte) error
}

// ReplayConfig controls ReadPCAPFile.
type ReplayConfig struct {
	Path string
	// UDPPort filters on destination port; 0 accepts every UDP datagram.
	UDPPort int
	// Speed paces delivery by capture timestamps: 1 is real time, 2 twice
	// as fast. 0 replays as fast as possible.
	Speed float64
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Packets  int
	Payloads int
	Errors   int
	Elapsed  time.Duration
}

// ReadPCAPFile replays the UDP payloads of a classic pcap capture through
// handler. Handler errors are logged and counted; they do not stop the
// replay.
func ReadPCAPFile(ctx context.Context, cfg ReplayConfig, handler PacketHandler) (ReplayResult, error) {
	var res ReplayResult
	f, err := os.Open(cfg.Path)
	if err != nil {
		return res, fmt.Errorf("failed to open PCAP file %s: %w", cfg.Path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return res, fmt.Errorf("failed to read PCAP header %s: %w", cfg.Path, err)
	}

	start := time.Now()
	var firstCapture time.Time
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("[Replay] stopping due to context cancellation (processed %d packets)", res.Packets)
			return res, err
		}

		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read packet %d: %w", res.Packets+1, err)
		}
		res.Packets++

		packet := gopacket.NewPacket(data, r.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if cfg.UDPPort > 0 && int(udp.DstPort) != cfg.UDPPort {
			continue
		}

		if cfg.Speed > 0 {
			if firstCapture.IsZero() {
				firstCapture = ci.Timestamp
			}
			due := time.Duration(float64(ci.Timestamp.Sub(firstCapture)) / cfg.Speed)
			if wait := due - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
					return res, ctx.Err()
				case <-time.After(wait):
				}
			}
		}

		res.Payloads++
		if err := handler.HandlePacket(udp.Payload); err != nil {
			res.Errors++
			log.Printf("[Replay] packet %d: %v", res.Packets, err)
		}
	}

	res.Elapsed = time.Since(start)
	log.Printf("[Replay] complete: %d packets, %d payloads, %d errors in %v",
		res.Packets, res.Payloads, res.Errors, res.Elapsed)
	return res, nil
}
