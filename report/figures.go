package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/feature"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

const histogramBins = 20

var (
	barColor  = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	edgeColor = color.Black
)

// FeatureDistributions draws one 20-bin histogram per feature, two per row.
func FeatureDistributions(ds *dataset.Dataset, features []string, path string) error {
	if len(features) == 0 {
		return errors.NewValueError("report.FeatureDistributions", "no features")
	}
	const cols = 2
	rows := (len(features) + cols - 1) / cols
	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, cols)
	}

	for i, name := range features {
		c, err := ds.NumericColumn(name)
		if err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = name
		values := plotter.Values(lo.Filter(c.Values, func(v float64, _ int) bool { return !math.IsNaN(v) }))
		if len(values) > 0 {
			h, err := plotter.NewHist(values, histogramBins)
			if err != nil {
				return err
			}
			h.FillColor = barColor
			h.LineStyle.Color = edgeColor
			p.Add(h)
		}
		grid[i/cols][i%cols] = p
	}
	return saveGrid(grid, 16*vg.Inch, vg.Length(rows)*4*vg.Inch, path)
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ.
type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int) {
	n := g.m.SymmetricDim()
	return n, n
}

func (g corrGrid) Z(c, r int) float64 { return math.Max(-1, math.Min(1, g.m.At(r, c))) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }
func (g corrGrid) Min() float64       { return -1 }
func (g corrGrid) Max() float64       { return 1 }

// CorrelationHeatmap draws the annotated pairwise correlation matrix of
// names on a blue-red diverging scale fixed to [-1, 1].
func CorrelationHeatmap(ds *dataset.Dataset, names []string, path string) error {
	corr, err := feature.CorrelationMatrix(ds, names)
	if err != nil {
		return err
	}
	n := len(names)

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)
	heat := plotter.NewHeatMap(corrGrid{corr}, cmap.Palette(255))

	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, fmt.Sprintf("%.2f", corr.At(r, c)))
		}
	}
	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return err
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = draw.XCenter
		annot.TextStyle[i].YAlign = draw.YCenter
	}

	p := plot.New()
	p.Title.Text = "Correlation Heatmap (Top Features)"
	p.Add(heat, annot)
	p.NominalX(names...)
	p.NominalY(names...)
	rotateX(p)
	return p.Save(14*vg.Inch, 10*vg.Inch, path)
}

// FeatureImportance draws a horizontal bar per feature.
func FeatureImportance(features []string, importances []float64, path string) error {
	if len(features) != len(importances) {
		return errors.NewDimensionError("report.FeatureImportance", len(features), len(importances), 0)
	}
	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(14))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = barColor

	p := plot.New()
	p.Title.Text = "The Effect On Infant Mortality Rate"
	p.X.Label.Text = "Feature Importance"
	p.Y.Label.Text = "Features"
	p.Add(bars)
	p.NominalY(features...)
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

// ModelComparison draws one R2 bar per candidate.
func ModelComparison(models []string, r2 []float64, path string) error {
	if len(models) != len(r2) {
		return errors.NewDimensionError("report.ModelComparison", len(models), len(r2), 0)
	}
	if len(models) == 0 {
		return errors.NewValueError("report.ModelComparison", "no models")
	}
	bars, err := plotter.NewBarChart(plotter.Values(r2), vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = barColor

	p := plot.New()
	p.Title.Text = "Model Comparison (R2 Scores)"
	p.Y.Label.Text = "R2 Score"
	p.Add(bars)
	p.NominalX(models...)
	rotateX(p)
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}
