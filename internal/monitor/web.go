package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/httputil"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
	"github.com/banshee-data/nextobject/internal/version"
)

// DebugServer attaches the selector's debug pages to a tsweb debugger.
type DebugServer struct {
	src     Source
	started time.Time

	mu     sync.Mutex
	extras map[string]func() any
}

// StatusResponse is the /debug/status body.
type StatusResponse struct {
	Version    string          `json:"version"`
	Uptime     string          `json:"uptime"`
	Dispatcher dispatch.Status `json:"dispatcher"`
	PoseAge    string          `json:"pose_age,omitempty"`
	Extra      map[string]any  `json:"extra,omitempty"`
}

// NewDebugServer creates debug pages reading from src.
func NewDebugServer(src Source) *DebugServer {
	return &DebugServer{src: src, started: time.Now(), extras: make(map[string]func() any)}
}

// AddStatus adds a named section to /debug/status, evaluated per request.
func (s *DebugServer) AddStatus(name string, fn func() any) {
	s.mu.Lock()
	s.extras[name] = fn
	s.mu.Unlock()
}

// Attach registers the pages under /debug/ on mux. tsweb limits access to
// loopback and Tailscale addresses.
func (s *DebugServer) Attach(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())
	debug.KVFunc("Uptime", func() any { return time.Since(s.started).Round(time.Second).String() })

	debug.Handle("status", "Selector status (JSON)", http.HandlerFunc(s.handleStatus))
	debug.Handle("scan", "Current point set with forward and reverse targets", http.HandlerFunc(s.handleScan))
	debug.Handle("scan.png", "Current point set as PNG", http.HandlerFunc(s.handleScanPNG))
	debug.HandleSilentFunc("reverse", s.handleReverse)
}

func (s *DebugServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	st := s.src.Status()
	resp := StatusResponse{
		Version:    version.String(),
		Uptime:     time.Since(s.started).Round(time.Millisecond).String(),
		Dispatcher: st,
	}
	if !st.Pose.Stamp.IsZero() {
		resp.PoseAge = st.Pose.Age(time.Now()).String()
	}

	s.mu.Lock()
	names := make([]string, 0, len(s.extras))
	for name := range s.extras {
		names = append(names, name)
	}
	sort.Strings(names)
	fns := make([]func() any, len(names))
	for i, name := range names {
		fns[i] = s.extras[name]
	}
	s.mu.Unlock()

	if len(names) > 0 {
		resp.Extra = make(map[string]any, len(names))
		for i, name := range names {
			resp.Extra[name] = fns[i]()
		}
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *DebugServer) view(w http.ResponseWriter) (View, bool) {
	v, err := BuildView(s.src)
	if errors.Is(err, scan.ErrNoScanAvailable) {
		httputil.Conflict(w, err.Error())
		return View{}, false
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return View{}, false
	}
	return v, true
}

func (s *DebugServer) handleScan(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := RenderScatter(&buf, v); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *DebugServer) handleScanPNG(w http.ResponseWriter, r *http.Request) {
	size := 6 * vg.Inch
	if in := r.URL.Query().Get("inches"); in != "" {
		if f, err := strconv.ParseFloat(in, 64); err == nil && f >= 2 && f <= 20 {
			size = vg.Length(f) * vg.Inch
		}
	}
	v, ok := s.view(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := PlotScanPNG(&buf, v, size); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// handleReverse queues a reverse request; the target appears on the
// dispatcher's publishers. With ?sync=1 the selection runs inline and the
// target is returned.
func (s *DebugServer) handleReverse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if r.URL.Query().Get("sync") == "1" {
		t, err := s.src.HandleReverseRequest()
		switch {
		case errors.Is(err, scan.ErrNoScanAvailable):
			httputil.Conflict(w, err.Error())
		case errors.Is(err, selector.ErrEmptyPointSet):
			httputil.UnprocessableEntity(w, err.Error())
		case err != nil:
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		default:
			httputil.WriteJSONOK(w, t)
		}
		return
	}
	if !s.src.SubmitReverseRequest() {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "request queue full")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
