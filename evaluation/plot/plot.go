// Package plot renders per-sample trajectory errors over time.
package plot

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/trajeval/evaluation"
)

const (
	width  = 14 * vg.Inch
	height = 6 * vg.Inch
)

// PositionErrors writes a plot of every run's position error over time to path. The image format follows
// the file extension.
func PositionErrors(runs []evaluation.RunRecord, path string) error {
	return render(runs, path, "Position error", "error [m]", func(s evaluation.SampleError) float64 {
		return s.Position
	})
}

// OrientationErrors writes a plot of every run's orientation error over time to path.
func OrientationErrors(runs []evaluation.RunRecord, path string) error {
	return render(runs, path, "Orientation error", "error [rad]", func(s evaluation.SampleError) float64 {
		return s.Orientation
	})
}

func render(
	runs []evaluation.RunRecord,
	path, title, yLabel string,
	value func(evaluation.SampleError) float64,
) error {
	if len(runs) == 0 {
		return errors.New("no runs to plot")
	}
	start := earliest(runs)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	for i, run := range runs {
		pts := make(plotter.XYs, 0, len(run.Result.Samples))
		for _, s := range run.Result.Samples {
			pts = append(pts, plotter.XY{X: float64(s.Timestamp-start) / 1e9, Y: value(s)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "building line for run %q", run.Label)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(run.Label, line)
	}
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating plot directory")
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "saving plot %s", path)
	}
	return nil
}

func earliest(runs []evaluation.RunRecord) int64 {
	start := int64(math.MaxInt64)
	for _, run := range runs {
		if len(run.Result.Samples) > 0 && run.Result.Samples[0].Timestamp < start {
			start = run.Result.Samples[0].Timestamp
		}
	}
	if start == math.MaxInt64 {
		return 0
	}
	return start
}
