// Package config loads admitguard settings from a YAML file, a .env file and
// ADMITGUARD_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // display timezone must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix for environment overrides
const EnvPrefix = "ADMITGUARD_"

type Config struct {
	RulesPath       string        `yaml:"rules_path" env:"RULES_PATH" validate:"required"`
	AuditPath       string        `yaml:"audit_path" env:"AUDIT_PATH" validate:"required"`
	HistoryPath     string        `yaml:"history_path" env:"HISTORY_PATH" validate:"required"`
	DisplayTimezone string        `yaml:"display_timezone" env:"DISPLAY_TIMEZONE" validate:"required,timezone"`
	Logging         LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	OTel            OTelConfig    `yaml:"otel" envPrefix:"OTEL_"`
}

type LoggingConfig struct {
	Format     string `yaml:"format" env:"FORMAT" validate:"oneof=pretty jsonl off"`
	Level      string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Output     string `yaml:"output" env:"OUTPUT" validate:"required"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB" validate:"min=1"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS" validate:"min=0"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Protocol    string  `yaml:"protocol" env:"PROTOCOL" validate:"oneof=otlphttp otlpgrpc"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME" validate:"required"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Dir is the per-user state directory, ~/.admitguard
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".admitguard"
	}
	return filepath.Join(home, ".admitguard")
}

// DefaultPath of the config file
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() Config {
	dir := Dir()
	return Config{
		RulesPath:       filepath.Join(dir, "rules.yaml"),
		AuditPath:       filepath.Join(dir, "audit.json"),
		HistoryPath:     filepath.Join(dir, "rules-history.jsonl"),
		DisplayTimezone: "Asia/Kolkata",
		Logging: LoggingConfig{
			Format:     "pretty",
			Level:      "info",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		OTel: OTelConfig{
			Protocol:    "otlphttp",
			ServiceName: "admitguard",
			SampleRatio: 1.0,
		},
	}
}

// LoadDotEnv sets variables from the given .env files without overriding
// ones already in the environment. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path over the defaults, then applies ADMITGUARD_* variables.
// An empty path means DefaultPath, which may be absent; an explicit path
// must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(raw))
		expanded = strings.ReplaceAll(expanded, "\r\n", "\n")
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.RulesPath = expandHome(cfg.RulesPath)
	cfg.AuditPath = expandHome(cfg.AuditPath)
	cfg.HistoryPath = expandHome(cfg.HistoryPath)
	if cfg.Logging.Output != "stderr" {
		cfg.Logging.Output = expandHome(cfg.Logging.Output)
	}

	return cfg, cfg.Validate()
}

var validate = validator.New()

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Location resolves DisplayTimezone
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DisplayTimezone)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
