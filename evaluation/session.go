package evaluation

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/trajeval/logging"
	"go.viam.com/trajeval/trajectory"
	"go.viam.com/trajeval/trajectory/align"
)

// RunSpec describes one estimate to evaluate in a Session.
type RunSpec struct {
	Label     string
	Estimate  *trajectory.Trajectory
	Reference *trajectory.Trajectory
	// EstimateScale lets the alignment fit a scale factor as well as a rigid transform.
	EstimateScale bool
	// Mask, if set, restricts the error statistics to the selected estimate samples.
	Mask          *trajectory.EventMask
	ThresholdSets []ThresholdSet
}

// Session evaluates a sequence of runs and collects their verdicts.
type Session struct {
	id         uuid.UUID
	logger     logging.Logger
	opts       []Option
	aggregator *Aggregator
}

// NewSession returns a session with an empty aggregator. The options apply to every run.
func NewSession(logger logging.Logger, opts ...Option) *Session {
	return &Session{id: uuid.New(), logger: logger, opts: opts, aggregator: NewAggregator()}
}

// ID returns the identifier attached to every log line of the session.
func (s *Session) ID() string {
	return s.id.String()
}

// EvaluateRun aligns the estimate onto the reference, computes its errors, checks them against the run's
// threshold sets and records the outcome. Threshold failures are only recorded; an error is returned when the
// run could not be evaluated at all, in which case nothing is recorded.
func (s *Session) EvaluateRun(spec RunSpec) (*ErrorResult, error) {
	o := options{tolerance: trajectory.DefaultMatchTolerance}
	for _, opt := range s.opts {
		opt(&o)
	}

	aligned, tf, err := align.Align(spec.Estimate, spec.Reference, spec.EstimateScale, align.WithMatchTolerance(o.tolerance))
	if err != nil {
		return nil, errors.Wrapf(err, "aligning run %q", spec.Label)
	}
	s.logger.Debugw("aligned estimate", "session", s.ID(), "run", spec.Label, "transform", tf.String())

	result, err := ComputeErrors(aligned, spec.Reference, spec.Mask, s.opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "computing errors of run %q", spec.Label)
	}
	s.logger.Infow("evaluated run",
		"session", s.ID(),
		"run", spec.Label,
		"samples", result.SampleCount,
		"position_mean", result.PositionMean,
		"position_rmse", result.PositionRMSE,
		"orientation_mean", result.OrientationMean,
		"orientation_rmse", result.OrientationRMSE,
	)

	verdicts := EvaluateThresholds(spec.Label, result, spec.ThresholdSets)
	for _, v := range Failures(verdicts) {
		s.logger.Warnw("threshold exceeded",
			"session", s.ID(), "run", v.Run, "threshold_set", v.ThresholdSet, "field", v.Field.String(), "actual", v.Actual, "limit", v.Limit)
	}
	s.aggregator.Record(spec.Label, result, verdicts)
	return result, nil
}

// Aggregator returns the session's aggregator.
func (s *Session) Aggregator() *Aggregator {
	return s.aggregator
}
