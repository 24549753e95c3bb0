package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/admitguard/admitguard/internal/audit"
	"github.com/admitguard/admitguard/internal/config"
	"github.com/admitguard/admitguard/internal/observability"
	"github.com/admitguard/admitguard/internal/observability/logging"
	otelobs "github.com/admitguard/admitguard/internal/observability/otel"
	"github.com/admitguard/admitguard/internal/rules"
)

// app is the per-invocation environment shared by all commands
type app struct {
	cfg  config.Config
	loc  *time.Location
	log  logging.Logger
	otel *otelobs.Handle
}

// active is closed by Execute once the command returns
var active *app

type appKey struct{}

func newApp(ctx context.Context, cfg config.Config) (*app, context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid display timezone: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Format:     cfg.Logging.Format,
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}

	a := &app{cfg: cfg, loc: loc, log: logger}
	ctx = observability.WithOpID(ctx)
	ctx = logging.WithLogger(ctx, logger)

	if cfg.OTel.Enabled {
		h, err := otelobs.Init(ctx, otelobs.Config{
			Enabled:         true,
			Endpoint:        cfg.OTel.Endpoint,
			Protocol:        cfg.OTel.Protocol,
			Insecure:        cfg.OTel.Insecure,
			ServiceName:     cfg.OTel.ServiceName,
			SampleRatio:     cfg.OTel.SampleRatio,
			RulesVersion:    persistedRulesVersion(cfg.RulesPath),
			DisplayTimezone: loc.String(),
		})
		if err != nil {
			logger.Close()
			return nil, nil, fmt.Errorf("failed to start tracing: %w", err)
		}
		a.otel = h
		ctx = otelobs.WithHandle(ctx, h)
	}

	return a, context.WithValue(ctx, appKey{}, a), nil
}

// persistedRulesVersion fingerprints the rules in effect at startup. Invalid
// or unreadable rules yield "", rulesStore reports those.
func persistedRulesVersion(path string) string {
	store, err := rules.Open(rules.NewFilePersister(path))
	if err != nil {
		return ""
	}
	return store.Current().Version
}

func appFrom(ctx context.Context) (*app, error) {
	if a, ok := ctx.Value(appKey{}).(*app); ok {
		return a, nil
	}
	return nil, fmt.Errorf("admitguard is not initialized")
}

func (a *app) close() {
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otel.Shutdown(ctx); err != nil {
			a.log.Warn("otel", "shutdown failed", "error", err.Error())
		}
	}
	_ = a.log.Close()
}

// rulesStore opens the persisted rule configuration. A persisted file that
// cannot be read or fails validation is reported and replaced by defaults.
func (a *app) rulesStore() (*rules.Store, error) {
	p := rules.NewFilePersister(a.cfg.RulesPath)
	store, err := rules.Open(p)
	if err == nil {
		return store, nil
	}

	a.log.Warn("rules", "ignoring persisted rules, using defaults", "path", p.Path(), "error", err.Error())
	strict, serr := rules.DefaultStrict()
	if serr != nil {
		return nil, serr
	}
	return rules.NewStore(strict, rules.DefaultTunables(), p)
}

func (a *app) journal() *rules.Journal {
	return rules.NewJournal(a.cfg.HistoryPath)
}

func (a *app) auditStore() (*audit.FileStore, error) {
	return audit.NewFileStore(a.cfg.AuditPath)
}
