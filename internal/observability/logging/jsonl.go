package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/admitguard/admitguard/internal/observability"
	"github.com/admitguard/admitguard/internal/version"
)

const SchemaVersion = "1.0"

// EventPrefix namespaces every structured event
const EventPrefix = "admitguard."

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

type logEntry struct {
	Timestamp         string         `json:"ts"`
	Level             string         `json:"level"`
	Event             string         `json:"event,omitempty"`
	Component         string         `json:"component"`
	OpID              string         `json:"op_id"`
	SchemaVersion     string         `json:"schema_version"`
	AdmitGuardVersion string         `json:"admitguard_version,omitempty"`
	GoVersion         string         `json:"go_version,omitempty"`
	Message           string         `json:"msg,omitempty"`
	Fields            map[string]any `json:"fields,omitempty"`
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}

	entry := logEntry{
		Timestamp:         time.Now().Format(time.RFC3339Nano),
		Level:             level,
		Component:         component,
		SchemaVersion:     SchemaVersion,
		AdmitGuardVersion: version.BuildVersion(),
		GoVersion:         runtime.Version(),
		Message:           msg,
		Fields:            pairs(fields),
	}

	j.writeEntry(entry)
}

func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	entry := logEntry{
		Timestamp:         time.Now().Format(time.RFC3339Nano),
		Level:             LevelInfo,
		Event:             EventPrefix + event,
		Component:         "cli",
		OpID:              observability.OpID(ctx),
		SchemaVersion:     SchemaVersion,
		AdmitGuardVersion: version.BuildVersion(),
		GoVersion:         runtime.Version(),
		Fields:            fields,
	}
	j.writeEntry(entry)
}

func (j *jsonlLogger) writeEntry(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data) // best effort
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// pairs turns alternating key, value args into a map
func pairs(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	out := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out[key] = fields[i+1]
		}
	}
	return out
}
