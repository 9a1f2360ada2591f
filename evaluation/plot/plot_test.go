package plot

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/trajeval/evaluation"
)

func fakeRun(label string, n int, scale float64) evaluation.RunRecord {
	samples := make([]evaluation.SampleError, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, evaluation.SampleError{
			Timestamp:     1_000_000_000 + int64(i)*50_000_000,
			EstimateIndex: i,
			Position:      scale * float64(i%7),
			Orientation:   scale * 0.1 * float64(i%5),
		})
	}
	return evaluation.RunRecord{Label: label, Result: &evaluation.ErrorResult{SampleCount: n, Samples: samples}}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	runs := []evaluation.RunRecord{fakeRun("vio", 40, 0.01), fakeRun("vil", 40, 0.005)}

	position := filepath.Join(dir, "nested", "position_error.png")
	test.That(t, PositionErrors(runs, position), test.ShouldBeNil)
	orientation := filepath.Join(dir, "orientation_error.svg")
	test.That(t, OrientationErrors(runs, orientation), test.ShouldBeNil)

	for _, path := range []string{position, orientation} {
		info, err := os.Stat(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
	}
}

func TestRenderNoRuns(t *testing.T) {
	err := PositionErrors(nil, filepath.Join(t.TempDir(), "empty.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRenderUnknownFormat(t *testing.T) {
	err := PositionErrors([]evaluation.RunRecord{fakeRun("vio", 5, 1)}, filepath.Join(t.TempDir(), "plot.unknown"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEarliest(t *testing.T) {
	late := fakeRun("late", 3, 1)
	early := fakeRun("early", 3, 1)
	early.Result.Samples[0].Timestamp = 10
	test.That(t, earliest([]evaluation.RunRecord{late, early}), test.ShouldEqual, int64(10))
	test.That(t, earliest([]evaluation.RunRecord{{Label: "none", Result: &evaluation.ErrorResult{}}}), test.ShouldEqual, int64(0))
}
