// Package config defines the run configuration of an evaluation session.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/trajeval/dataset"
	"go.viam.com/trajeval/evaluation"
	"go.viam.com/trajeval/trajectory"
)

// Config describes an evaluation session: the ground truth and the runs compared against it, in order.
type Config struct {
	GroundTruth Dataset `json:"ground_truth" yaml:"ground_truth"`
	// MatchTolerance is a duration string such as "10ms". Defaults to trajectory.DefaultMatchTolerance.
	MatchTolerance string `json:"match_tolerance,omitempty" yaml:"match_tolerance,omitempty"`
	PlotDir        string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	Runs           []Run  `json:"runs" yaml:"runs"`

	// ConfigFilePath is the file the config was read from, if any. Relative dataset paths resolve against
	// its directory.
	ConfigFilePath string `json:"-" yaml:"-"`
}

// Dataset locates a trajectory file.
type Dataset struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format"`
}

// Run describes one estimate to evaluate.
type Run struct {
	Name     string  `json:"name" yaml:"name"`
	Estimate Dataset `json:"estimate" yaml:"estimate"`
	// EstimateScale lets the alignment fit a scale factor.
	EstimateScale bool `json:"estimate_scale,omitempty" yaml:"estimate_scale,omitempty"`
	// UseLocalizationEvents restricts the errors to the estimate's localization events.
	UseLocalizationEvents bool        `json:"use_localization_events,omitempty" yaml:"use_localization_events,omitempty"`
	Thresholds            []Threshold `json:"thresholds" yaml:"thresholds"`
}

// Threshold is either an absolute threshold set, or one whose position bounds are the errors of an earlier
// run named by RelativeTo. Orientation bounds are always given.
type Threshold struct {
	Name               string   `json:"name" yaml:"name"`
	RelativeTo         string   `json:"relative_to,omitempty" yaml:"relative_to,omitempty"`
	MaxPositionMean    *float64 `json:"max_position_mean_m,omitempty" yaml:"max_position_mean_m,omitempty"`
	MaxPositionRMSE    *float64 `json:"max_position_rmse_m,omitempty" yaml:"max_position_rmse_m,omitempty"`
	MaxOrientationMean *float64 `json:"max_orientation_mean_rad,omitempty" yaml:"max_orientation_mean_rad,omitempty"`
	MaxOrientationRMSE *float64 `json:"max_orientation_rmse_rad,omitempty" yaml:"max_orientation_rmse_rad,omitempty"`
}

// Schema returns the JSON schema of a Config.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

// Validate checks the whole config and returns every problem found, each qualified by its path.
func (c *Config) Validate() error {
	var errs error
	if err := c.GroundTruth.Validate("ground_truth"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.MatchTolerance != "" {
		if tol, err := time.ParseDuration(c.MatchTolerance); err != nil {
			errs = multierr.Append(errs, NewConfigValidationError("match_tolerance", err))
		} else if tol < 0 {
			errs = multierr.Append(errs, NewConfigValidationError("match_tolerance", errors.New("must not be negative")))
		}
	}
	if len(c.Runs) == 0 {
		errs = multierr.Append(errs, NewConfigValidationFieldRequiredError("", "runs"))
	}

	seen := make(map[string]struct{}, len(c.Runs))
	for i, run := range c.Runs {
		path := fmt.Sprintf("runs.%d", i)
		if run.Name == "" {
			errs = multierr.Append(errs, NewConfigValidationFieldRequiredError(path, "name"))
		} else if _, ok := seen[run.Name]; ok {
			errs = multierr.Append(errs, NewConfigValidationError(path, errors.Errorf("duplicate run name %q", run.Name)))
		}
		if err := run.Estimate.Validate(path + ".estimate"); err != nil {
			errs = multierr.Append(errs, err)
		}
		if run.UseLocalizationEvents && dataset.Format(run.Estimate.Format) != dataset.Rovioli {
			errs = multierr.Append(errs, NewConfigValidationError(path,
				errors.Errorf("format %q records no localization events", run.Estimate.Format)))
		}
		for j, th := range run.Thresholds {
			if err := th.Validate(fmt.Sprintf("%s.thresholds.%d", path, j), seen); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		seen[run.Name] = struct{}{}
	}
	return errs
}

// Tolerance returns the configured match tolerance. It assumes the config is valid.
func (c *Config) Tolerance() time.Duration {
	if c.MatchTolerance == "" {
		return trajectory.DefaultMatchTolerance
	}
	tol, err := time.ParseDuration(c.MatchTolerance)
	if err != nil {
		return trajectory.DefaultMatchTolerance
	}
	return tol
}

// ResolvePath returns path, made relative to the config file's directory when it is not absolute.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) || c.ConfigFilePath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(c.ConfigFilePath), path)
}

// Validate checks that the dataset names a path and a known format.
func (d Dataset) Validate(path string) error {
	if d.Path == "" {
		return NewConfigValidationFieldRequiredError(path, "path")
	}
	if d.Format == "" {
		return NewConfigValidationFieldRequiredError(path, "format")
	}
	if !lo.Contains(dataset.Formats(), dataset.Format(d.Format)) {
		return NewConfigValidationError(path, errors.Errorf("unknown format %q, expected one of %v", d.Format, dataset.Formats()))
	}
	return nil
}

// Validate checks the threshold. earlierRuns holds the names of the runs configured before this one.
func (t Threshold) Validate(path string, earlierRuns map[string]struct{}) error {
	if t.Name == "" {
		return NewConfigValidationFieldRequiredError(path, "name")
	}
	type bound struct {
		field string
		value *float64
	}
	required := []bound{
		{"max_orientation_mean_rad", t.MaxOrientationMean},
		{"max_orientation_rmse_rad", t.MaxOrientationRMSE},
	}
	if t.RelativeTo == "" {
		required = append([]bound{
			{"max_position_mean_m", t.MaxPositionMean},
			{"max_position_rmse_m", t.MaxPositionRMSE},
		}, required...)
	} else {
		if _, ok := earlierRuns[t.RelativeTo]; !ok {
			return NewConfigValidationError(path, errors.Errorf("relative_to %q does not name an earlier run", t.RelativeTo))
		}
		if t.MaxPositionMean != nil || t.MaxPositionRMSE != nil {
			return NewConfigValidationError(path, errors.New("position bounds of a relative threshold come from the run it is relative to"))
		}
	}
	for _, b := range required {
		if b.value == nil {
			return NewConfigValidationFieldRequiredError(path, b.field)
		}
	}
	if err := t.bounds().Validate(); err != nil {
		return NewConfigValidationError(path, err)
	}
	return nil
}

// ThresholdSet builds the evaluation threshold set. results holds the errors of the runs evaluated so far,
// by name.
func (t Threshold) ThresholdSet(results map[string]*evaluation.ErrorResult) (evaluation.ThresholdSet, error) {
	if t.RelativeTo == "" {
		return t.bounds(), nil
	}
	prior, ok := results[t.RelativeTo]
	if !ok {
		return evaluation.ThresholdSet{}, errors.Errorf("threshold %q: no result for run %q", t.Name, t.RelativeTo)
	}
	set := t.bounds()
	return evaluation.ThresholdSetFromResult(t.Name, prior, set.MaxOrientationMean, set.MaxOrientationRMSE), nil
}

// bounds returns the set of configured bounds, with unset ones as zero.
func (t Threshold) bounds() evaluation.ThresholdSet {
	deref := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return evaluation.ThresholdSet{
		Name:               t.Name,
		MaxPositionMean:    deref(t.MaxPositionMean),
		MaxPositionRMSE:    deref(t.MaxPositionRMSE),
		MaxOrientationMean: deref(t.MaxOrientationMean),
		MaxOrientationRMSE: deref(t.MaxOrientationRMSE),
	}
}
