package der

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	records []Record
	err     error
}

func (m *memorySink) Write(r Record) error {
	m.records = append(m.records, r)
	return m.err
}

func TestMaybeLogOnIntervalBoundary(t *testing.T) {

	require := require.New(t)

	sink := &memorySink{}
	e := halfCharged()
	e.SetImportSetpoint(400)
	e.SetTelemetry(sink, 5*time.Second)

	require.False(e.MaybeLog(1003))
	require.True(e.MaybeLog(1005))
	require.False(e.MaybeLog(1005), "same second is logged once")
	require.True(e.MaybeLog(1010))

	require.Len(sink.records, 2)
	r := sink.records[0]
	require.Equal(time.Unix(1005, 0).UTC(), r.Time)
	require.Equal(400.0, r.ImportSetpoint)
	require.Equal(2500.0, r.ImportEnergy)
	require.Equal(2500.0, r.ExportEnergy)
}

func TestMaybeLogDisabled(t *testing.T) {

	e := halfCharged()
	assert.False(t, e.MaybeLog(0), "no sink")

	sink := &memorySink{}
	e.SetTelemetry(sink, 0)
	assert.False(t, e.MaybeLog(60))
	assert.Empty(t, sink.records)
}

func TestMaybeLogIgnoresSinkErrors(t *testing.T) {

	sink := &memorySink{err: errors.New("disk full")}
	e := halfCharged()
	e.SetTelemetry(sink, time.Second)

	assert.True(t, e.MaybeLog(10))
	assert.True(t, e.MaybeLog(11))
	assert.Len(t, sink.records, 2)
}

func TestMaybeLogAtEpoch(t *testing.T) {

	sink := &memorySink{}
	e := halfCharged()
	e.SetTelemetry(sink, time.Minute)

	assert.True(t, e.MaybeLog(0))
	assert.False(t, e.MaybeLog(0))
	assert.Len(t, sink.records, 1)
}
