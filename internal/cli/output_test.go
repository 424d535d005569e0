package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Success("done")
	p.Error("broken")
	p.Warning("careful")
	p.Info("note")
	assert.Equal(t, "✓ done\n✗ broken\n⚠ careful\nℹ note\n", buf.String())
}

func TestTimed(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	assert.NoError(t, p.Timed("migrate up", func() error { return nil }))
	assert.Equal(t, "✓ migrate up (< 1s)\n", buf.String())

	buf.Reset()
	boom := errors.New("boom")
	assert.ErrorIs(t, p.Timed("migrate up", func() error { return boom }), boom)
	assert.Equal(t, "✗ migrate up failed: boom\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "< 1s", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h30m", FormatDuration(90*time.Minute))
}
