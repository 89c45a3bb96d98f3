package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/der"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func record() der.Record {
	return der.Record{
		Time:           time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC),
		ImportSetpoint: 500,
		ImportPower:    400,
		ImportEnergy:   2499.25,
		ExportPower:    0,
		ExportEnergy:   2500.75,
	}
}

func TestLineFormat(t *testing.T) {

	var buf bytes.Buffer
	sink := NewSink(zapcore.AddSync(&buf))

	require.NoError(t, sink.Write(record()))

	assert.Equal(t, "2024-03-01 12:00:05\tDER_Data\t500\t400\t2499.25\t0\t0\t2500.75\n", buf.String())
}

func TestFileAppends(t *testing.T) {

	require := require.New(t)

	path := filepath.Join(t.TempDir(), "der.log")
	sink, err := OpenFileSink(path)
	require.NoError(err)
	require.NoError(sink.Write(record()))
	require.NoError(sink.Close())

	sink, err = OpenFileSink(path)
	require.NoError(err)
	require.NoError(sink.Write(record()))
	require.NoError(sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(lines, 2)
	require.Len(strings.Split(lines[0], "\t"), 8)
}

func TestEngineEmitsThroughSink(t *testing.T) {

	var buf bytes.Buffer
	e := der.NewEngine(der.RatedLimits{RatedImportEnergy: 100}, der.Simulated{})
	e.SetTelemetry(NewSink(zapcore.AddSync(&buf)), 5*time.Second)

	assert.True(t, e.MaybeLog(1700000000))
	assert.False(t, e.MaybeLog(1700000000))
	assert.Equal(t, 1, strings.Count(buf.String(), CONTEXT))
}

func TestOpenFailure(t *testing.T) {

	_, err := OpenFileSink(filepath.Join(t.TempDir(), "missing", "der.log"))
	assert.Error(t, err)
}
