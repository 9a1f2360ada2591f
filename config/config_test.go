package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/trajeval/evaluation"
	"go.viam.com/trajeval/trajectory"
)

const endToEndJSON = `{
  "ground_truth": {"path": "V1_01_easy_ground_truth.csv", "format": "euroc_ground_truth"},
  "match_tolerance": "5ms",
  "runs": [
    {
      "name": "VIO",
      "estimate": {"path": "rovioli_estimated_poses_vio.csv", "format": "rovioli"},
      "thresholds": [
        {"name": "vio", "max_position_mean_m": 0.08, "max_position_rmse_m": 0.08,
         "max_orientation_mean_rad": 0.07, "max_orientation_rmse_rad": 0.07}
      ]
    },
    {
      "name": "VIL",
      "estimate": {"path": "/data/rovioli_estimated_poses_vil.csv", "format": "rovioli"},
      "use_localization_events": true,
      "thresholds": [
        {"name": "vil", "max_position_mean_m": 0.05, "max_position_rmse_m": 0.05,
         "max_orientation_mean_rad": 0.07, "max_orientation_rmse_rad": 0.07},
        {"name": "vio position", "relative_to": "VIO",
         "max_orientation_mean_rad": 0.07, "max_orientation_rmse_rad": 0.07}
      ]
    }
  ]
}`

const endToEndYAML = `
ground_truth:
  path: ${TRAJEVAL_TEST_DATA}/gt.csv
  format: euroc_ground_truth
runs:
  - name: VIWLS
    estimate:
      path: vertices.csv
      format: maplab_vertices
    thresholds:
      - name: vio
        max_position_mean_m: 0.08
        max_position_rmse_m: 0.08
        max_orientation_mean_rad: 0.07
        max_orientation_rmse_rad: 0.07
`

func TestFromReaderJSON(t *testing.T) {
	cfg, err := FromReader(context.Background(), "/configs/run.json", strings.NewReader(endToEndJSON))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Runs, test.ShouldHaveLength, 2)
	test.That(t, cfg.Tolerance(), test.ShouldEqual, 5*time.Millisecond)
	test.That(t, cfg.Runs[1].UseLocalizationEvents, test.ShouldBeTrue)

	test.That(t, cfg.ResolvePath(cfg.GroundTruth.Path), test.ShouldEqual, "/configs/V1_01_easy_ground_truth.csv")
	test.That(t, cfg.ResolvePath(cfg.Runs[1].Estimate.Path), test.ShouldEqual, "/data/rovioli_estimated_poses_vil.csv")

	vioSet, err := cfg.Runs[0].Thresholds[0].ThresholdSet(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vioSet, test.ShouldResemble, evaluation.ThresholdSet{
		Name: "vio", MaxPositionMean: 0.08, MaxPositionRMSE: 0.08, MaxOrientationMean: 0.07, MaxOrientationRMSE: 0.07,
	})

	relative := cfg.Runs[1].Thresholds[1]
	_, err = relative.ThresholdSet(nil)
	test.That(t, err, test.ShouldNotBeNil)
	prior := map[string]*evaluation.ErrorResult{"VIO": {PositionMean: 0.03, PositionRMSE: 0.04}}
	relSet, err := relative.ThresholdSet(prior)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, relSet, test.ShouldResemble, evaluation.ThresholdSet{
		Name: "vio position", MaxPositionMean: 0.03, MaxPositionRMSE: 0.04, MaxOrientationMean: 0.07, MaxOrientationRMSE: 0.07,
	})
}

func TestReadYAMLWithEnvironment(t *testing.T) {
	t.Setenv("TRAJEVAL_TEST_DATA", "/mnt/datasets")
	path := filepath.Join(t.TempDir(), "run.yaml")
	test.That(t, os.WriteFile(path, []byte(endToEndYAML), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.GroundTruth.Path, test.ShouldEqual, "/mnt/datasets/gt.csv")
	test.That(t, cfg.Tolerance(), test.ShouldEqual, trajectory.DefaultMatchTolerance)
	test.That(t, cfg.ResolvePath("vertices.csv"), test.ShouldEqual, filepath.Join(filepath.Dir(path), "vertices.csv"))
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromReader(context.Background(), "run.json", strings.NewReader(`{"runs": [`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "json")

	_, err = FromReader(context.Background(), "run.json", strings.NewReader(`{"ground_truht": {}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ground_truht")

	_, err = FromReader(context.Background(), "run.yml", strings.NewReader("bogus: 1\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "yaml")
}

func validConfig() *Config {
	limit := func(v float64) *float64 { return &v }
	return &Config{
		GroundTruth: Dataset{Path: "gt.csv", Format: "euroc_ground_truth"},
		Runs: []Run{
			{
				Name:     "VIO",
				Estimate: Dataset{Path: "vio.csv", Format: "rovioli"},
				Thresholds: []Threshold{{
					Name: "vio", MaxPositionMean: limit(0.08), MaxPositionRMSE: limit(0.08),
					MaxOrientationMean: limit(0.07), MaxOrientationRMSE: limit(0.07),
				}},
			},
			{
				Name:     "VIL",
				Estimate: Dataset{Path: "vil.csv", Format: "rovioli"},
				Thresholds: []Threshold{{
					Name: "relative", RelativeTo: "VIO", MaxOrientationMean: limit(0.07), MaxOrientationRMSE: limit(0.07),
				}},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	test.That(t, validConfig().Validate(), test.ShouldBeNil)

	for _, tc := range []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"no runs", func(c *Config) { c.Runs = nil }, `"runs" is required`},
		{"missing ground truth path", func(c *Config) { c.GroundTruth.Path = "" }, `"ground_truth": "path" is required`},
		{"unknown format", func(c *Config) { c.Runs[0].Estimate.Format = "tum" }, `unknown format "tum"`},
		{"bad tolerance", func(c *Config) { c.MatchTolerance = "soon" }, "match_tolerance"},
		{"negative tolerance", func(c *Config) { c.MatchTolerance = "-1ms" }, "must not be negative"},
		{"unnamed run", func(c *Config) { c.Runs[1].Name = "" }, `"runs.1": "name" is required`},
		{"duplicate run", func(c *Config) { c.Runs[1].Name = "VIO" }, "duplicate run name"},
		{"events need rovioli", func(c *Config) {
			c.Runs[0].UseLocalizationEvents = true
			c.Runs[0].Estimate.Format = "maplab_vertices"
		}, "records no localization events"},
		{"missing bound", func(c *Config) { c.Runs[0].Thresholds[0].MaxPositionRMSE = nil }, `"max_position_rmse_m" is required`},
		{"negative bound", func(c *Config) {
			v := -0.1
			c.Runs[0].Thresholds[0].MaxOrientationMean = &v
		}, "non-negative"},
		{"relative to later run", func(c *Config) { c.Runs[0].Thresholds[0].RelativeTo = "VIL" }, "does not name an earlier run"},
		{"relative with position bounds", func(c *Config) {
			v := 0.1
			c.Runs[1].Thresholds[0].MaxPositionMean = &v
		}, "come from the run"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.GroundTruth.Format = ""
	cfg.Runs[0].Name = ""
	cfg.Runs[1].Thresholds[0].Name = ""
	test.That(t, multierr.Errors(cfg.Validate()), test.ShouldHaveLength, 3)
}

func TestSchema(t *testing.T) {
	out, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "ground_truth")
	test.That(t, string(out), test.ShouldContainSubstring, "max_orientation_rmse_rad")
}
