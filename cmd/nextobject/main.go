package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/nextobject/internal/config"
	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/monitor"
	"github.com/banshee-data/nextobject/internal/network"
	"github.com/banshee-data/nextobject/internal/rpc"
	"github.com/banshee-data/nextobject/internal/version"
	"github.com/banshee-data/nextobject/internal/xv11"
)

var (
	configFile   = flag.String("config", "", "Path to selector tuning JSON (default: built-in defaults)")
	listen       = flag.String("listen", "localhost:8082", "HTTP listen address for /debug/ pages (empty disables)")
	grpcListen   = flag.String("grpc-listen", ":50061", "gRPC listen address for TargetService (empty disables)")
	udpAddr      = flag.String("udp-addr", ":7400", "UDP bind address for the odometry/scan/request feed (empty disables)")
	rcvBuf       = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes")
	forwardAddr  = flag.String("forward-addr", "", "host:port to send target datagrams to (empty disables)")
	xv11Port     = flag.String("xv11-port", "", "Serial device of an XV-11 lidar to read scans from (empty disables)")
	xv11Baud     = flag.Int("xv11-baud", xv11.DefaultBaudRate, "XV-11 baud rate")
	frameID      = flag.String("frame-id", "laser", "Frame id stamped on XV-11 scans")
	logInterval  = flag.Duration("log-interval", time.Minute, "Feed statistics logging interval")
	logTargets   = flag.Bool("log-targets", false, "Log every emitted target")
	listPorts    = flag.Bool("list-ports", false, "List serial ports and exit")
	printVersion = flag.Bool("version", false, "Print version and exit")
)

func loadConfig(path string) (*config.SelectorConfig, error) {
	if path == "" {
		return config.DefaultSelectorConfig(), nil
	}
	return config.LoadSelectorConfig(path)
}

func logPublisher(t dispatch.Target) {
	log.Printf("[Target] %s %s (%.3f, %.3f) cost=%.3f of %d", t.ID, t.Direction, t.Point.X, t.Point.Y, t.Cost, t.Candidates)
}

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		return
	}
	if *listPorts {
		ports, err := xv11.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("%s starting: model=%s angle_weight=%.3f", version.String(), cfg.GetCostModel(), cfg.GetAngleWeight())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := rpc.NewHub(cfg.GetQueueDepth())
	pubs := dispatch.Publishers{hub}
	if *logTargets {
		pubs = append(pubs, dispatch.PublisherFunc(logPublisher))
	}

	var forwarder *network.TargetForwarder
	if *forwardAddr != "" {
		forwarder, err = network.NewTargetForwarder(*forwardAddr, cfg.GetQueueDepth(), *logInterval)
		if err != nil {
			log.Fatalf("failed to create target forwarder: %v", err)
		}
		defer forwarder.Close()
		forwarder.Start(ctx)
		pubs = append(pubs, forwarder)
	}

	d, err := dispatch.FromTuning(cfg, pubs)
	if err != nil {
		log.Fatalf("failed to build dispatcher: %v", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("dispatcher error: %v", err)
		}
		log.Print("dispatcher routine terminated")
	}()

	debug := monitor.NewDebugServer(d)
	debug.AddStatus("grpc_subscribers", func() any { return hub.Subscribers() })
	if forwarder != nil {
		debug.AddStatus("forwarder", func() any {
			return map[string]int64{"sent": forwarder.Sent(), "dropped": forwarder.Dropped()}
		})
	}

	if *udpAddr != "" {
		feedStats := network.NewFeedStats()
		debug.AddStatus("udp_feed", func() any { return feedStats.Snapshot() })
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address:     *udpAddr,
			RcvBuf:      *rcvBuf,
			LogInterval: *logInterval,
			Sink:        d,
			Stats:       feedStats,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("UDP listener error: %v", err)
			}
			log.Print("UDP listener routine terminated")
		}()
	}

	if *xv11Port != "" {
		port, err := xv11.OpenSerial(*xv11Port, xv11.PortOptions{BaudRate: *xv11Baud})
		if err != nil {
			log.Fatalf("failed to open XV-11 port: %v", err)
		}
		driver := xv11.NewDriver(port, *frameID, nil, d)
		debug.AddStatus("xv11", func() any { return driver.Stats() })
		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				<-ctx.Done()
				driver.Close()
			}()
			if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[XV11] driver error: %v", err)
			}
			log.Print("[XV11] driver routine terminated")
		}()
	}

	if *grpcListen != "" {
		lis, err := net.Listen("tcp", *grpcListen)
		if err != nil {
			log.Fatalf("failed to listen for gRPC: %v", err)
		}
		gs := rpc.NewGRPCServer(rpc.NewServer(d, hub))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rpc.Serve(ctx, gs, lis, hub); err != nil {
				log.Printf("[gRPC] server error: %v", err)
			}
		}()
	}

	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runHTTP(ctx, *listen, debug)
		}()
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func runHTTP(ctx context.Context, addr string, debug *monitor.DebugServer) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status": "ok", "service": "nextobject", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
	})
	debug.Attach(mux)

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
}
