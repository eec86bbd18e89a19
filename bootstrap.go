package sceneloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	EnvConfigDir        = "SCENELOADER_CONFIG_DIR"
	EnvRootName         = "SCENELOADER_ROOT_NAME"
	EnvLogLevel         = "SCENELOADER_LOG_LEVEL"
	EnvMetricsNamespace = "SCENELOADER_METRICS_NAMESPACE"
)

// Settings configures process start-up.
type Settings struct {
	ConfigDir        string `yaml:"config_dir" validate:"required"`
	RootName         string `yaml:"root_name" validate:"required,max=128"`
	LogLevel         string `yaml:"log_level" validate:"log_level"`
	MetricsNamespace string `yaml:"metrics_namespace" validate:"omitempty,max=64"`
}

// DefaultSettings returns the settings used when nothing is overridden.
func DefaultSettings() Settings {
	return Settings{
		ConfigDir:        DefaultConfigDir,
		RootName:         DefaultRootName,
		LogLevel:         "info",
		MetricsNamespace: DefaultMetricsNamespace,
	}
}

// SettingsFromEnv overlays environment variables on the defaults.
func SettingsFromEnv() (Settings, error) {
	s := Settings{
		ConfigDir:        os.Getenv(EnvConfigDir),
		RootName:         os.Getenv(EnvRootName),
		LogLevel:         os.Getenv(EnvLogLevel),
		MetricsNamespace: os.Getenv(EnvMetricsNamespace),
	}.withDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// withDefaults overlays the non-empty fields of s on the defaults.
func (s Settings) withDefaults() Settings {
	out := DefaultSettings()
	if v := strings.TrimSpace(s.ConfigDir); v != "" {
		out.ConfigDir = v
	}
	if v := strings.TrimSpace(s.RootName); v != "" {
		out.RootName = v
	}
	if v := strings.TrimSpace(s.LogLevel); v != "" {
		out.LogLevel = v
	}
	if v := strings.TrimSpace(s.MetricsNamespace); v != "" {
		out.MetricsNamespace = v
	}
	return out
}

// Validate checks the settings struct tags.
func (s Settings) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// Setup lists the collaborators wired at start-up.
type Setup struct {
	Settings Settings
	// Source overrides the folder named by Settings.ConfigDir.
	Source  ConfigSource
	Catalog Catalog
	Events  EventSource
	// Logger overrides the logger built from Settings.LogLevel.
	Logger *zap.Logger
	// Metrics overrides the collectors built from Settings.MetricsNamespace.
	Metrics *Metrics
	Context context.Context
}

// Bootstrap is the start-up entry point: it loads the configuration,
// partitions the catalog, builds the manager and subscribes it to the event
// source. Configuration errors are returned before any activation can be
// handled; dangling references are logged and skipped.
func Bootstrap(setup Setup) (*Manager, error) {
	settings := setup.Settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if setup.Catalog == nil {
		return nil, errors.New("bootstrap: nil template catalog")
	}
	if setup.Events == nil {
		return nil, errors.New("bootstrap: nil event source")
	}

	logger := setup.Logger
	if logger == nil {
		built, err := NewLogger(settings.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: build logger: %w", err)
		}
		logger = built
	}
	metrics := setup.Metrics
	if metrics == nil {
		metrics = NewMetrics(settings.MetricsNamespace)
	}

	source := setup.Source
	if source == nil {
		source = NewDirSource(settings.ConfigDir)
	}
	cfg, err := Load(source)
	if err != nil {
		logger.Error("singleton configuration rejected", zap.String("source", source.Location()), zap.Error(err))
		return nil, err
	}

	registry, warnings := Partition(cfg, setup.Catalog.Templates())
	for _, w := range warnings {
		logger.Warn("configuration entry skipped", zap.Error(w))
	}
	logger.Info("singleton registry partitioned",
		zap.String("source", cfg.Source()),
		zap.Int("general", len(registry.General())),
		zap.Strings("scenes", registry.Scenes()),
		zap.Int("skipped", len(warnings)))

	manager := NewManager(registry,
		WithLogger(logger),
		WithMetrics(metrics),
		WithRootName(settings.RootName),
		WithBaseContext(setup.Context),
	)
	if err := manager.Subscribe(setup.Events); err != nil {
		return nil, err
	}
	return manager, nil
}
