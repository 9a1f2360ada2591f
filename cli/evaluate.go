package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"go.viam.com/trajeval/config"
	"go.viam.com/trajeval/dataset"
	"go.viam.com/trajeval/evaluation"
	"go.viam.com/trajeval/evaluation/plot"
	"go.viam.com/trajeval/logging"
)

const (
	stepSession = "session"
	stepLoad    = "load"
	stepPlots   = "plots"

	positionPlotFile    = "position_error.png"
	orientationPlotFile = "orientation_error.png"
)

func runStepID(name string) string {
	return "run/" + name
}

// EvaluateAction is the corresponding action for 'evaluate'. It returns a *evaluation.ThresholdViolationError
// after printing the summary when any run exceeded a threshold.
func EvaluateAction(c *cli.Context) error {
	cfg, err := config.Read(c.Context, c.String(evaluateFlagConfig))
	if err != nil {
		return err
	}
	plotDir := cfg.PlotDir
	if c.IsSet(evaluateFlagPlotDir) {
		plotDir = c.String(evaluateFlagPlotDir)
	} else if plotDir != "" {
		plotDir = cfg.ResolvePath(plotDir)
	}

	for _, run := range cfg.Runs {
		if len(run.Thresholds) == 0 {
			warningf(c.App.ErrWriter, "run %q has no thresholds and always passes", run.Name)
		}
	}

	logger, closeLogger := newLogger(c)
	defer closeLogger()
	pm := NewProgressManager(c.App.ErrWriter, evaluationSteps(cfg, plotDir),
		WithProgressOutput(!c.Bool(evaluateFlagNoProgress)))

	agg, err := runEvaluation(c.Context, cfg, plotDir, logger, pm)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", agg.Summary())
	if plotDir != "" {
		printf(c.App.Writer, "plots written to %s", plotDir)
	}
	return agg.Check()
}

func evaluationSteps(cfg *config.Config, plotDir string) []*Step {
	steps := []*Step{
		{ID: stepSession, Message: fmt.Sprintf("Evaluating %d run(s) of %s", len(cfg.Runs), cfg.ConfigFilePath)},
		{ID: stepLoad, Message: "Loading datasets", IndentLevel: 1},
	}
	for _, run := range cfg.Runs {
		steps = append(steps, &Step{ID: runStepID(run.Name), Message: "Evaluating " + run.Name, IndentLevel: 1})
	}
	if plotDir != "" {
		steps = append(steps, &Step{ID: stepPlots, Message: "Writing plots", IndentLevel: 1})
	}
	return steps
}

// runEvaluation evaluates the runs of cfg in order. Errors that prevent a run from being evaluated abort the
// session; threshold failures are left for the aggregator to report.
func runEvaluation(
	ctx context.Context,
	cfg *config.Config,
	plotDir string,
	logger logging.Logger,
	pm *ProgressManager,
) (*evaluation.Aggregator, error) {
	defer pm.Stop()
	//nolint:errcheck
	_ = pm.Start(stepSession)

	//nolint:errcheck
	_ = pm.Start(stepLoad)
	groundTruth, estimates, err := loadDatasets(ctx, cfg)
	if err != nil {
		//nolint:errcheck
		_ = pm.Fail(stepLoad, err)
		return nil, err
	}
	//nolint:errcheck
	_ = pm.CompleteWithMessage(stepLoad,
		fmt.Sprintf("Loaded %d dataset(s), %d ground truth samples", len(estimates)+1, groundTruth.Trajectory.Len()))

	session := evaluation.NewSession(logger.Sublogger("session"), evaluation.WithMatchTolerance(cfg.Tolerance()))
	logger.Infow("starting session", "session", session.ID(), "config", cfg.ConfigFilePath, "runs", len(cfg.Runs))

	results := make(map[string]*evaluation.ErrorResult, len(cfg.Runs))
	for i, run := range cfg.Runs {
		stepID := runStepID(run.Name)
		//nolint:errcheck
		_ = pm.Start(stepID)
		result, err := evaluateConfiguredRun(session, groundTruth, estimates[i], run, results)
		if err != nil {
			//nolint:errcheck
			_ = pm.Fail(stepID, err)
			return nil, err
		}
		results[run.Name] = result

		runs := session.Aggregator().Runs()
		record := runs[len(runs)-1]
		summary := fmt.Sprintf("%s: %d samples, position rmse %.4f m, orientation rmse %.4f rad",
			run.Name, result.SampleCount, result.PositionRMSE, result.OrientationRMSE)
		if record.Passed() {
			//nolint:errcheck
			_ = pm.CompleteWithMessage(stepID, summary)
		} else {
			//nolint:errcheck
			_ = pm.FailWithMessage(stepID,
				fmt.Sprintf("%s, %d threshold(s) exceeded", summary, len(evaluation.Failures(record.Verdicts))))
		}
	}

	if plotDir != "" {
		//nolint:errcheck
		_ = pm.Start(stepPlots)
		if err := writePlots(session.Aggregator().Runs(), plotDir); err != nil {
			//nolint:errcheck
			_ = pm.Fail(stepPlots, err)
			return nil, err
		}
		//nolint:errcheck
		_ = pm.Complete(stepPlots)
	}

	agg := session.Aggregator()
	if agg.OverallPass() {
		//nolint:errcheck
		_ = pm.Complete(stepSession)
	} else {
		//nolint:errcheck
		_ = pm.FailWithMessage(stepSession, fmt.Sprintf("%d threshold violation(s)", len(agg.Failures())))
	}
	return agg, nil
}

func evaluateConfiguredRun(
	session *evaluation.Session,
	groundTruth, estimate *dataset.Dataset,
	run config.Run,
	results map[string]*evaluation.ErrorResult,
) (*evaluation.ErrorResult, error) {
	sets := make([]evaluation.ThresholdSet, 0, len(run.Thresholds))
	for _, threshold := range run.Thresholds {
		set, err := threshold.ThresholdSet(results)
		if err != nil {
			return nil, errors.Wrapf(err, "run %q", run.Name)
		}
		sets = append(sets, set)
	}

	spec := evaluation.RunSpec{
		Label:         run.Name,
		Estimate:      estimate.Trajectory,
		Reference:     groundTruth.Trajectory,
		EstimateScale: run.EstimateScale,
		ThresholdSets: sets,
	}
	if run.UseLocalizationEvents {
		spec.Mask = estimate.Events
	}
	return session.EvaluateRun(spec)
}

// loadDatasets loads the ground truth and the estimate of every run concurrently. The first failure cancels
// the loads still in flight.
func loadDatasets(ctx context.Context, cfg *config.Config) (*dataset.Dataset, []*dataset.Dataset, error) {
	g, ctx := errgroup.WithContext(ctx)
	var groundTruth *dataset.Dataset
	g.Go(func() error {
		ds, err := loadDataset(ctx, cfg, cfg.GroundTruth)
		if err != nil {
			return errors.Wrap(err, "loading ground truth")
		}
		groundTruth = ds
		return nil
	})
	estimates := make([]*dataset.Dataset, len(cfg.Runs))
	for i, run := range cfg.Runs {
		i, run := i, run
		g.Go(func() error {
			ds, err := loadDataset(ctx, cfg, run.Estimate)
			if err != nil {
				return errors.Wrapf(err, "loading estimate of run %q", run.Name)
			}
			estimates[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return groundTruth, estimates, nil
}

func loadDataset(ctx context.Context, cfg *config.Config, d config.Dataset) (*dataset.Dataset, error) {
	loader, err := dataset.NewLoader(dataset.Format(d.Format))
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, cfg.ResolvePath(d.Path))
}

func writePlots(runs []evaluation.RunRecord, dir string) error {
	if err := plot.PositionErrors(runs, filepath.Join(dir, positionPlotFile)); err != nil {
		return errors.Wrap(err, "plotting position errors")
	}
	if err := plot.OrientationErrors(runs, filepath.Join(dir, orientationPlotFile)); err != nil {
		return errors.Wrap(err, "plotting orientation errors")
	}
	return nil
}

// SchemaAction is the corresponding action for 'schema'.
func SchemaAction(c *cli.Context) error {
	return writeSchema(c.App.Writer)
}

func writeSchema(w io.Writer) error {
	out, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config schema")
	}
	printf(w, "%s", out)
	return nil
}
