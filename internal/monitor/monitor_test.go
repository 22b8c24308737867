package monitor

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/monitoring"
	"github.com/banshee-data/nextobject/internal/scan"
	"github.com/banshee-data/nextobject/internal/selector"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func newDispatcher() *dispatch.Dispatcher {
	return dispatch.New(dispatch.Config{
		Selector:   selector.New(selector.Config{AngleWeight: 1}),
		QueueDepth: 1,
	})
}

func sampleScan() scan.LaserScan {
	return scan.LaserScan{
		AngleIncrement: float32(179 * math.Pi / 180),
		RangeMin:       0.1,
		RangeMax:       10,
		Ranges:         []float32{1, 2},
	}
}

func newServer(t *testing.T, d *dispatch.Dispatcher) (*DebugServer, *http.ServeMux) {
	t.Helper()
	srv := NewDebugServer(d)
	mux := http.NewServeMux()
	srv.Attach(mux)
	return srv, mux
}

// do issues a request from loopback, which tsweb requires for /debug/.
func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestBuildView(t *testing.T) {
	d := newDispatcher()
	_, err := BuildView(d)
	assert.ErrorIs(t, err, scan.ErrNoScanAvailable)

	_, err = d.HandleScan(sampleScan())
	require.NoError(t, err)

	v, err := BuildView(d)
	require.NoError(t, err)
	require.Len(t, v.Points, 2)
	require.NotNil(t, v.Forward)
	require.NotNil(t, v.Reverse)
	assert.Equal(t, 0, v.Forward.Index)
	assert.Equal(t, 1, v.Reverse.Index)
	assert.InDelta(t, 2.1, v.extent(), 1e-3)
}

func TestBuildView_EmptyPointSet(t *testing.T) {
	d := newDispatcher()
	_, _ = d.HandleScan(scan.LaserScan{RangeMax: 10})

	v, err := BuildView(d)
	require.NoError(t, err)
	assert.Empty(t, v.Points)
	assert.Nil(t, v.Forward)
	assert.Nil(t, v.Reverse)
	assert.Equal(t, 1.0, v.extent())
}

func TestStatusEndpoint(t *testing.T) {
	d := newDispatcher()
	srv, mux := newServer(t, d)
	srv.AddStatus("feed", func() any { return map[string]int{"packets": 3} })
	_, _ = d.HandleScan(sampleScan())

	rec := do(mux, http.MethodGet, "/debug/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Version    string `json:"version"`
		Dispatcher struct {
			ScanSeq uint64
			Stats   dispatch.Stats
		} `json:"dispatcher"`
		Extra map[string]map[string]int `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Version, "nextobject "))
	assert.Equal(t, uint64(1), body.Dispatcher.ScanSeq)
	assert.Equal(t, uint64(1), body.Dispatcher.Stats.ForwardEmitted)
	assert.Equal(t, 3, body.Extra["feed"]["packets"])

	rec = do(mux, http.MethodPost, "/debug/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDebugRequiresLoopback(t *testing.T) {
	_, mux := newServer(t, newDispatcher())
	req := httptest.NewRequest(http.MethodGet, "/debug/status", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScanEndpoints(t *testing.T) {
	d := newDispatcher()
	_, mux := newServer(t, d)

	assert.Equal(t, http.StatusConflict, do(mux, http.MethodGet, "/debug/scan").Code)
	assert.Equal(t, http.StatusConflict, do(mux, http.MethodGet, "/debug/scan.png").Code)

	_, err := d.HandleScan(sampleScan())
	require.NoError(t, err)

	rec := do(mux, http.MethodGet, "/debug/scan")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Current point set")

	rec = do(mux, http.MethodGet, "/debug/scan.png?inches=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestReverseEndpoint(t *testing.T) {
	d := newDispatcher()
	_, mux := newServer(t, d)

	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodGet, "/debug/reverse").Code)
	assert.Equal(t, http.StatusConflict, do(mux, http.MethodPost, "/debug/reverse?sync=1").Code)

	_, _ = d.HandleScan(scan.LaserScan{RangeMax: 10})
	assert.Equal(t, http.StatusUnprocessableEntity, do(mux, http.MethodPost, "/debug/reverse?sync=1").Code)

	_, err := d.HandleScan(sampleScan())
	require.NoError(t, err)
	rec := do(mux, http.MethodPost, "/debug/reverse?sync=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reverse"`)
	var target dispatch.Target
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &target))
	assert.Equal(t, selector.Reverse, target.Direction)
	assert.Less(t, target.Point.X, float32(0))

	// Queue depth is one and nothing drains it.
	assert.Equal(t, http.StatusAccepted, do(mux, http.MethodPost, "/debug/reverse").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(mux, http.MethodPost, "/debug/reverse").Code)
}

func TestRenderScatter_StridesLargeSets(t *testing.T) {
	v := View{Points: make(scan.PointSet, 3*maxChartPoints)}
	for i := range v.Points {
		v.Points[i] = scan.Point32{X: float32(i % 100), Y: float32(i / 100)}
	}
	var buf bytes.Buffer
	require.NoError(t, RenderScatter(&buf, v))
	assert.Contains(t, buf.String(), "stride=3")
}

func TestSaveScanPNG(t *testing.T) {
	d := newDispatcher()
	_, _ = d.HandleScan(sampleScan())
	v, err := BuildView(d)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, SaveScanPNG(path, v, 3*vg.Inch))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
