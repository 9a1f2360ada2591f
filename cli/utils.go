package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/trajeval/logging"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, color.New(color.FgYellow, color.Bold).Sprint("Warning: ")+format+"\n", a...)
}

// newLogger returns the logger of a command and a function that flushes and closes it. Logs go to the app's
// ErrWriter so that the command's report stays alone on its Writer, and also to a rotated file when
// --log-file is set.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	level := zapcore.InfoLevel
	if c.Bool(debugFlag) {
		level = zapcore.DebugLevel
	}
	out := c.App.ErrWriter
	var logFile *lumberjack.Logger
	if path := c.String(logFileFlag); path != "" {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 2,
			Compress:   true,
		}
		out = io.MultiWriter(out, logFile)
	}
	logger := logging.NewWriterLogger("trajeval", out, level)
	return logger, func() {
		//nolint:errcheck
		_ = logger.Sync()
		if logFile != nil {
			//nolint:errcheck
			_ = logFile.Close()
		}
	}
}
