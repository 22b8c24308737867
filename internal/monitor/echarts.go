package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/nextobject/internal/scan"
)

// maxChartPoints bounds the scatter payload; larger sets are strided.
const maxChartPoints = 8000

// RenderScatter writes an HTML scatter chart of v.
func RenderScatter(w io.Writer, v View) error {
	stride := 1
	if len(v.Points) > maxChartPoints {
		stride = (len(v.Points) + maxChartPoints - 1) / maxChartPoints
	}

	data := make([]opts.ScatterData, 0, len(v.Points)/stride+1)
	for i := 0; i < len(v.Points); i += stride {
		p := v.Points[i]
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
	}

	pad := v.extent()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Next object", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Current point set",
			Subtitle: fmt.Sprintf("model=%s points=%d stride=%d heading=%.3f", v.Model, len(v.Points), stride, v.Pose.Heading),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("robot", []opts.ScatterData{{Value: []interface{}{v.Pose.X, v.Pose.Y}, Symbol: "triangle", SymbolSize: 14}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#fde725"}))
	if v.Forward != nil {
		scatter.AddSeries("forward", []opts.ScatterData{targetDatum(v.Forward.Point)},
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
	}
	if v.Reverse != nil {
		scatter.AddSeries("reverse", []opts.ScatterData{targetDatum(v.Reverse.Point)},
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#e8384f"}))
	}

	return scatter.Render(w)
}

func targetDatum(p scan.Point32) opts.ScatterData {
	return opts.ScatterData{Value: []interface{}{p.X, p.Y}, Symbol: "diamond", SymbolSize: 12}
}
