// Package cli contains the trajeval command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	debugFlag   = "debug"
	logFileFlag = "log-file"

	evaluateFlagConfig     = "config"
	evaluateFlagPlotDir    = "plot-dir"
	evaluateFlagNoProgress = "no-progress"

	alignFlagEstimate          = "estimate"
	alignFlagEstimateFormat    = "estimate-format"
	alignFlagGroundTruth       = "ground-truth"
	alignFlagGroundTruthFormat = "ground-truth-format"
	alignFlagEstimateScale     = "estimate-scale"
	alignFlagTolerance         = "tolerance"
	alignFlagEvents            = "use-localization-events"
	alignFlagHistogram         = "histogram"
)

var app = &cli.App{
	Name:            "trajeval",
	Usage:           "evaluate trajectory estimates against ground truth",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotated when it grows past 100MB",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "evaluate",
			Usage:     "evaluate every run of a session config and check its thresholds",
			UsageText: "trajeval evaluate --config <FILE> [--plot-dir <DIR>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     evaluateFlagConfig,
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "load the session from `FILE` (json or yaml)",
				},
				&cli.StringFlag{
					Name:  evaluateFlagPlotDir,
					Usage: "write error plots to `DIR`, overriding the config's plot_dir",
				},
				&cli.BoolFlag{
					Name:  evaluateFlagNoProgress,
					Usage: "do not print progress spinners",
				},
			},
			Action: EvaluateAction,
		},
		{
			Name:  "align",
			Usage: "align a single estimate onto ground truth and print the transform and its errors",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     alignFlagEstimate,
					Required: true,
					Usage:    "estimated trajectory `FILE`",
				},
				&cli.StringFlag{
					Name:  alignFlagEstimateFormat,
					Value: "rovioli",
					Usage: "format of the estimate",
				},
				&cli.StringFlag{
					Name:     alignFlagGroundTruth,
					Required: true,
					Usage:    "ground truth `FILE`",
				},
				&cli.StringFlag{
					Name:  alignFlagGroundTruthFormat,
					Value: "euroc_ground_truth",
					Usage: "format of the ground truth",
				},
				&cli.BoolFlag{
					Name:  alignFlagEstimateScale,
					Usage: "fit a scale factor as well as a rigid transform",
				},
				&cli.BoolFlag{
					Name:  alignFlagEvents,
					Usage: "compute errors at localization events only",
				},
				&cli.DurationFlag{
					Name:  alignFlagTolerance,
					Usage: "largest timestamp gap between corresponding samples",
				},
				&cli.BoolFlag{
					Name:  alignFlagHistogram,
					Usage: "print a histogram of the aligned position errors",
				},
			},
			Action: AlignAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the session config",
			Action: SchemaAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
