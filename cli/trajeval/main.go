// Package main is the trajeval command itself.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"go.viam.com/trajeval/cli"
	"go.viam.com/trajeval/evaluation"
)

// exitThresholdViolation is the exit status when every run was evaluated but at least one exceeded a threshold.
const exitThresholdViolation = 2

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		var violations *evaluation.ThresholdViolationError
		if errors.As(err, &violations) {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(exitThresholdViolation)
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err.Error())
		os.Exit(1)
	}
}
