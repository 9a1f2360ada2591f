package cli

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/trajeval/dataset"
	"go.viam.com/trajeval/evaluation"
	"go.viam.com/trajeval/trajectory"
	"go.viam.com/trajeval/trajectory/align"
)

// AlignAction is the corresponding action for 'align'. It prints the transform recovered between a single
// estimate and the ground truth, and the errors of the estimate before and after alignment.
func AlignAction(c *cli.Context) error {
	logger, closeLogger := newLogger(c)
	defer closeLogger()

	estimate, err := loadFile(c, c.String(alignFlagEstimate), c.String(alignFlagEstimateFormat))
	if err != nil {
		return errors.Wrap(err, "loading estimate")
	}
	groundTruth, err := loadFile(c, c.String(alignFlagGroundTruth), c.String(alignFlagGroundTruthFormat))
	if err != nil {
		return errors.Wrap(err, "loading ground truth")
	}

	tolerance := trajectory.DefaultMatchTolerance
	if c.IsSet(alignFlagTolerance) {
		tolerance = c.Duration(alignFlagTolerance)
	}
	var mask *trajectory.EventMask
	if c.Bool(alignFlagEvents) {
		if estimate.Events == nil {
			return errors.Errorf("format %q records no localization events", c.String(alignFlagEstimateFormat))
		}
		mask = estimate.Events
	}

	aligned, tf, err := align.Align(estimate.Trajectory, groundTruth.Trajectory, c.Bool(alignFlagEstimateScale),
		align.WithMatchTolerance(tolerance))
	if err != nil {
		return err
	}
	logger.Debugw("aligned estimate", "estimate", c.String(alignFlagEstimate), "transform", tf.String())

	raw, err := evaluation.ComputeErrors(estimate.Trajectory, groundTruth.Trajectory, mask,
		evaluation.WithMatchTolerance(tolerance))
	if err != nil {
		return errors.Wrap(err, "computing unaligned errors")
	}
	result, err := evaluation.ComputeErrors(aligned, groundTruth.Trajectory, mask, evaluation.WithMatchTolerance(tolerance))
	if err != nil {
		return errors.Wrap(err, "computing aligned errors")
	}

	printf(c.App.Writer, "%s", tf.String())
	printf(c.App.Writer, "%s", errorTable(raw, result))
	if c.Bool(alignFlagHistogram) {
		return printHistogram(c.App.Writer, result)
	}
	return nil
}

const histogramBins = 10

// printHistogram prints the distribution of the per-sample position errors of r.
func printHistogram(w io.Writer, r *evaluation.ErrorResult) error {
	errs := make([]float64, 0, len(r.Samples))
	for _, s := range r.Samples {
		errs = append(errs, s.Position)
	}
	if r.PositionMax-floats.Min(errs) < 1e-6 {
		printf(w, "position error is %.6f m at every sample", r.PositionMax)
		return nil
	}
	printf(w, "position error [m]")
	return histogram.Fprint(w, histogram.Hist(histogramBins, errs), histogram.Linear(40))
}

func loadFile(c *cli.Context, path, format string) (*dataset.Dataset, error) {
	loader, err := dataset.NewLoader(dataset.Format(format))
	if err != nil {
		return nil, err
	}
	return loader.Load(c.Context, path)
}

func errorTable(raw, aligned *evaluation.ErrorResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"", "Samples", "Position mean", "Position RMSE", "Position max",
		"Orientation mean", "Orientation RMSE", "Orientation max"})
	for _, row := range []struct {
		name string
		r    *evaluation.ErrorResult
	}{{"raw", raw}, {"aligned", aligned}} {
		t.AppendRow(table.Row{
			row.name,
			row.r.SampleCount,
			fmt.Sprintf("%.6f m", row.r.PositionMean),
			fmt.Sprintf("%.6f m", row.r.PositionRMSE),
			fmt.Sprintf("%.6f m", row.r.PositionMax),
			fmt.Sprintf("%.6f rad", row.r.OrientationMean),
			fmt.Sprintf("%.6f rad", row.r.OrientationRMSE),
			fmt.Sprintf("%.6f rad", row.r.OrientationMax),
		})
	}
	return t.Render()
}

// VersionAction is the corresponding action for 'version'.
func VersionAction(c *cli.Context) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("error reading build info")
	}
	if c.Bool(debugFlag) {
		printf(c.App.Writer, "%s", info.String())
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	version := "?"
	if rev, ok := settings["vcs.revision"]; ok && len(rev) >= 8 {
		version = rev[:8]
		if settings["vcs.modified"] == "true" {
			version += "+"
		}
	}
	printf(c.App.Writer, "Version %s Git=%s Go=%s", info.Main.Version, version, info.GoVersion)
	return nil
}
