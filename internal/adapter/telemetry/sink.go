// Package telemetry writes control records to an append-only log file.
package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/berfenger/der2mqtt/internal/core/der"

	"go.uber.org/zap/zapcore"
)

const (
	CONTEXT     = "DER_Data"
	TIME_LAYOUT = "2006-01-02 15:04:05"
)

// FileSink appends one tab-delimited line per record.
type FileSink struct {
	core   zapcore.Core
	closer func() error
}

// OpenFileSink opens path for appending, creating it when missing.
func OpenFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry sink: %w", err)
	}
	sink := NewSink(zapcore.Lock(f))
	sink.closer = f.Close
	return sink, nil
}

// NewSink writes records to ws.
func NewSink(ws zapcore.WriteSyncer) *FileSink {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TIME_LAYOUT),
		ConsoleSeparator: "\t",
	})
	return &FileSink{core: zapcore.NewCore(enc, ws, zapcore.InfoLevel)}
}

func (s *FileSink) Write(r der.Record) error {
	return s.core.Write(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    r.Time,
		Message: FormatRecord(r),
	}, nil)
}

func (s *FileSink) Close() error {
	_ = s.core.Sync()
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// FormatRecord renders the context tag followed by the six control fields.
func FormatRecord(r der.Record) string {
	values := []float64{
		r.ImportSetpoint,
		r.ImportPower,
		r.ImportEnergy,
		r.ExportSetpoint,
		r.ExportPower,
		r.ExportEnergy,
	}
	fields := make([]string, 0, len(values)+1)
	fields = append(fields, CONTEXT)
	for _, v := range values {
		fields = append(fields, strconv.FormatFloat(v, 'g', 6, 64))
	}
	return strings.Join(fields, "\t")
}

var _ der.TelemetrySink = (*FileSink)(nil)
