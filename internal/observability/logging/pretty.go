package logging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// prettyLogger writes one colored line per message. Events are dropped;
// they are meant for machine consumers.
type prettyLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

var levelColors = map[string]*color.Color{
	LevelDebug: color.New(color.Faint),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

func (p *prettyLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < p.minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(levelColors[level].Sprint(strings.ToUpper(level)))
	fmt.Fprintf(&b, " [%s] %s", component, msg)

	kv := pairs(fields)
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, kv[k])
	}
	b.WriteByte('\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.writer, b.String())
}

func (p *prettyLogger) Debug(component, msg string, fields ...any) {
	p.log(LevelDebug, component, msg, fields...)
}

func (p *prettyLogger) Info(component, msg string, fields ...any) {
	p.log(LevelInfo, component, msg, fields...)
}

func (p *prettyLogger) Warn(component, msg string, fields ...any) {
	p.log(LevelWarn, component, msg, fields...)
}

func (p *prettyLogger) Error(component, msg string, fields ...any) {
	p.log(LevelError, component, msg, fields...)
}

func (p *prettyLogger) Event(ctx context.Context, event string, fields map[string]any) {}

func (p *prettyLogger) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
