package monitor

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	pointColor   = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	forwardColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	reverseColor = color.RGBA{R: 232, G: 56, B: 79, A: 255}
	robotColor   = color.RGBA{R: 68, G: 1, B: 84, A: 255}
)

// NewScanPlot builds a gonum plot of v.
func NewScanPlot(v View) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Point set (%s, %d points)", v.Model, len(v.Points))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	pad := v.extent()
	p.X.Min, p.X.Max = -pad, pad
	p.Y.Min, p.Y.Max = -pad, pad
	p.Add(plotter.NewGrid())

	if len(v.Points) > 0 {
		xys := make(plotter.XYs, len(v.Points))
		for i, pt := range v.Points {
			xys[i].X = float64(pt.X)
			xys[i].Y = float64(pt.Y)
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
		s.GlyphStyle.Color = pointColor
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
	}

	// Heading ray, one tenth of the window long.
	ray := plotter.XYs{
		{X: v.Pose.X, Y: v.Pose.Y},
		{X: v.Pose.X + pad/10*math.Cos(v.Pose.Heading), Y: v.Pose.Y + pad/10*math.Sin(v.Pose.Heading)},
	}
	line, err := plotter.NewLine(ray)
	if err != nil {
		return nil, fmt.Errorf("heading: %w", err)
	}
	line.Color = robotColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := addMarker(p, "robot", v.Pose.X, v.Pose.Y, robotColor, draw.TriangleGlyph{}); err != nil {
		return nil, err
	}
	if v.Forward != nil {
		if err := addMarker(p, "forward", float64(v.Forward.Point.X), float64(v.Forward.Point.Y), forwardColor, draw.PyramidGlyph{}); err != nil {
			return nil, err
		}
	}
	if v.Reverse != nil {
		if err := addMarker(p, "reverse", float64(v.Reverse.Point.X), float64(v.Reverse.Point.Y), reverseColor, draw.BoxGlyph{}); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addMarker(p *plot.Plot, label string, x, y float64, c color.Color, shape draw.GlyphDrawer) error {
	s, err := plotter.NewScatter(plotter.XYs{{X: x, Y: y}})
	if err != nil {
		return fmt.Errorf("%s marker: %w", label, err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(5)
	s.GlyphStyle.Shape = shape
	p.Add(s)
	p.Legend.Add(label, s)
	return nil
}

// PlotScanPNG writes a size×size PNG of v.
func PlotScanPNG(w io.Writer, v View, size vg.Length) error {
	p, err := NewScanPlot(v)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SaveScanPNG writes the PNG rendering of v to path.
func SaveScanPNG(path string, v View, size vg.Length) error {
	p, err := NewScanPlot(v)
	if err != nil {
		return err
	}
	if err := p.Save(size, size, path); err != nil {
		return fmt.Errorf("save scan plot: %w", err)
	}
	return nil
}
