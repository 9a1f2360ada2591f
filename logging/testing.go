package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// testCore is a zap core that writes each entry through the test's Log method, so that log lines are
// attributed to the right test even when tests run in parallel.
type testCore struct {
	zapcore.LevelEnabler
	tb     testing.TB
	fields []zapcore.Field
}

func newTestCore(tb testing.TB, level zapcore.LevelEnabler) *testCore {
	return &testCore{LevelEnabler: level, tb: tb}
}

func (c *testCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &testCore{LevelEnabler: c.LevelEnabler, tb: c.tb, fields: combined}
}

func (c *testCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write outputs the log entry to the underlying test object `Log` method.
func (c *testCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.tb.Helper()
	toPrint := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, entry.Caller.TrimmedPath())
	}
	toPrint = append(toPrint, entry.Message)

	all := append(append([]zapcore.Field(nil), c.fields...), fields...)
	if len(all) == 0 {
		c.tb.Log(strings.Join(toPrint, "\t"))
		return nil
	}

	// Use zap's json encoder which will encode our slice of fields in-order. Call it with an empty
	// Entry object such that only the fields become "map-ified".
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, all)
	if err != nil {
		c.tb.Log(strings.Join(toPrint, "\t"))
		return err
	}
	toPrint = append(toPrint, buf.String())
	c.tb.Log(strings.Join(toPrint, "\t"))
	return nil
}

// Sync is a no-op.
func (c *testCore) Sync() error {
	return nil
}
