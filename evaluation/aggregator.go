package evaluation

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

// RunRecord is one evaluated run held by an Aggregator.
type RunRecord struct {
	Label    string
	Result   *ErrorResult
	Verdicts []Verdict
}

// Passed reports whether every verdict of the run passed.
func (r RunRecord) Passed() bool {
	return AllPassed(r.Verdicts)
}

// Aggregator collects the runs of one evaluation session in the order they are recorded.
// It is not safe for concurrent use.
type Aggregator struct {
	runs []RunRecord
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record adds a run. Labels are not required to be unique.
func (a *Aggregator) Record(runLabel string, result *ErrorResult, verdicts []Verdict) {
	a.runs = append(a.runs, RunRecord{
		Label:    runLabel,
		Result:   result,
		Verdicts: append([]Verdict(nil), verdicts...),
	})
}

// Runs returns the recorded runs in insertion order.
func (a *Aggregator) Runs() []RunRecord {
	return append([]RunRecord(nil), a.runs...)
}

// OverallPass reports whether every verdict of every run passed. An empty session passes.
func (a *Aggregator) OverallPass() bool {
	return lo.EveryBy(a.runs, RunRecord.Passed)
}

// Failures returns every failing verdict of every run, in insertion order.
func (a *Aggregator) Failures() []Verdict {
	return Failures(lo.FlatMap(a.runs, func(r RunRecord, _ int) []Verdict { return r.Verdicts }))
}

// Check returns nil if the session passed, and otherwise a *ThresholdViolationError naming every failure.
func (a *Aggregator) Check() error {
	failures := a.Failures()
	if len(failures) == 0 {
		return nil
	}
	return newThresholdViolationError(failures)
}

// Summary renders the error statistics of every run followed by every threshold comparison, both in
// insertion order.
func (a *Aggregator) Summary() string {
	results := table.NewWriter()
	results.AppendHeader(table.Row{
		"#", "Run", "Samples",
		"Position mean [m]", "Position RMSE [m]", "Orientation mean [rad]", "Orientation RMSE [rad]",
		"Result",
	})
	for i, r := range a.runs {
		results.AppendRow(table.Row{
			i + 1, r.Label, r.Result.SampleCount,
			fmt.Sprintf("%.6f", r.Result.PositionMean),
			fmt.Sprintf("%.6f", r.Result.PositionRMSE),
			fmt.Sprintf("%.6f", r.Result.OrientationMean),
			fmt.Sprintf("%.6f", r.Result.OrientationRMSE),
			passFail(r.Passed()),
		})
	}
	results.AppendFooter(table.Row{"", "", "", "", "", "", "Overall", passFail(a.OverallPass())})

	verdicts := table.NewWriter()
	verdicts.AppendHeader(table.Row{"Run", "Threshold set", "Field", "Actual", "Limit", "Result"})
	for _, r := range a.runs {
		for _, v := range r.Verdicts {
			verdicts.AppendRow(table.Row{
				v.Run, v.ThresholdSet, v.Field,
				fmt.Sprintf("%.6f %s", v.Actual, v.Field.Unit()),
				fmt.Sprintf("%.6f %s", v.Limit, v.Field.Unit()),
				passFail(v.Passed),
			})
		}
	}
	return results.Render() + "\n" + verdicts.Render()
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
