// Package report renders the training run's PNG figures: feature
// distributions, the correlation heatmap, random forest importances and the
// R2 comparison across candidates.
package report

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/imrcast/dataset"
	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
)

// Output file names.
const (
	DistributionsFile = "feature_distributions.png"
	HeatmapFile       = "correlation_heatmap.png"
	ImportanceFile    = "feature_importance.png"
	ComparisonFile    = "model_comparison.png"
)

// Input is everything the figures are drawn from.
type Input struct {
	// Dataset holds the cleaned rows.
	Dataset  *dataset.Dataset
	Target   string
	Features []string
	// Importances are aligned with Features. Nil skips the importance plot.
	Importances []float64
	// Models and R2 are the candidate names and holdout R2 in catalog order.
	Models []string
	R2     []float64
}

// Writer writes figures into a directory.
type Writer struct {
	dir    string
	logger log.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, logger: log.GetLogger()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(log.ComponentKey, "report")
	return w
}

// WriteAll renders every figure it has data for and returns the written
// paths.
func (w *Writer) WriteAll(in Input) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report directory %s", w.dir)
	}

	var written []string
	save := func(name string, render func(path string) error) error {
		path := filepath.Join(w.dir, name)
		if err := render(path); err != nil {
			return errors.Wrapf(err, "render %s", name)
		}
		written = append(written, path)
		w.logger.Debug("Figure written", log.PathKey, path)
		return nil
	}

	if err := save(DistributionsFile, func(p string) error {
		return FeatureDistributions(in.Dataset, in.Features, p)
	}); err != nil {
		return written, err
	}
	if err := save(HeatmapFile, func(p string) error {
		return CorrelationHeatmap(in.Dataset, append(append([]string(nil), in.Features...), in.Target), p)
	}); err != nil {
		return written, err
	}
	if in.Importances != nil {
		if err := save(ImportanceFile, func(p string) error {
			return FeatureImportance(in.Features, in.Importances, p)
		}); err != nil {
			return written, err
		}
	} else {
		w.logger.Warn("No feature importances; skipping plot", log.PathKey, ImportanceFile)
	}
	if err := save(ComparisonFile, func(p string) error {
		return ModelComparison(in.Models, in.R2, p)
	}); err != nil {
		return written, err
	}

	w.logger.Info("Report written", log.ArtifactDirKey, w.dir, "figures", len(written))
	return written, nil
}

// rotateX tilts nominal X labels so long column names do not overlap.
func rotateX(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

// saveGrid draws plots tiled row-major onto one PNG. Nil cells stay blank.
func saveGrid(plots [][]*plot.Plot, width, height vg.Length, path string) error {
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
