// Package extension provides the Forge extension adapter for Embers.
//
// It implements the forge.Extension interface to integrate the progression
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.embers" or "embers" keys.
package extension

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/embers"
	audithook "github.com/xraph/embers/audit_hook"
	"github.com/xraph/embers/observability"
	"github.com/xraph/embers/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "embers"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Meta-progression and economy engine for endless runners"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Embers as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *embers.Engine
	store      store.Store
	engineOpts []embers.Option
}

// New creates a new Embers Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine. This is nil until Register is called.
func (e *Extension) Engine() *embers.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration, opens the
// store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := openStore(context.Background(), e.config)
		if err != nil {
			return err
		}
		e.store = s
	}

	eng, err := embers.New(e.store, e.buildEngineOpts()...)
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*embers.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("embers: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("embers: engine not initialized")
	}
	return e.engine.Health(ctx)
}

// buildEngineOpts constructs embers.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []embers.Option {
	opts := make([]embers.Option, 0, len(e.engineOpts)+3)
	opts = append(opts, embers.WithConfig(e.engineConfig()))

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(prometheus.DefaultRegisterer)
		opts = append(opts, embers.WithPlugin(observability.NewMetricsExtension(factory)))
	}
	if e.config.EnableAudit {
		opts = append(opts, embers.WithPlugin(audithook.New(audithook.RecorderFunc(e.logAudit))))
	}

	return append(opts, e.engineOpts...)
}

// engineConfig overlays the extension tuning onto embers.DefaultConfig.
func (e *Extension) engineConfig() embers.Config {
	cfg := embers.DefaultConfig()
	cfg.DisableMigrate = e.config.DisableMigrate
	cfg.DisableSanitizer = e.config.DisableSanitizer
	if e.config.PrestigeRequirement > 0 {
		cfg.PrestigeRequirement = e.config.PrestigeRequirement
	}
	if e.config.PrestigeScaleFactor > 0 {
		cfg.PrestigeScaleFactor = e.config.PrestigeScaleFactor
	}
	if e.config.IdleBaseCapHours > 0 {
		cfg.IdleBaseCapHours = e.config.IdleBaseCapHours
	}
	if e.config.IdleBaseRatePerHour > 0 {
		cfg.IdleBaseRatePerHour = e.config.IdleBaseRatePerHour
	}
	if e.config.PluginTimeout > 0 {
		cfg.PluginTimeout = e.config.PluginTimeout
	}
	return cfg
}

func (e *Extension) logAudit(_ context.Context, ev *audithook.AuditEvent) error {
	e.Logger().Info("embers: audit",
		forge.F("id", ev.ID.String()),
		forge.F("action", ev.Action),
		forge.F("resource", ev.Resource),
		forge.F("resource_id", ev.ResourceID),
		forge.F("severity", ev.Severity),
	)
	return nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("embers: configuration is required but not found in config files; " +
				"ensure 'extensions.embers' or 'embers' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("embers: configuration loaded",
		forge.F("backend", e.config.Backend),
		forge.F("slot", e.config.Slot),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_sanitizer", e.config.DisableSanitizer),
		forge.F("enable_metrics", e.config.EnableMetrics),
		forge.F("enable_audit", e.config.EnableAudit),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.embers", "embers"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("embers: loaded config from file", forge.F("key", key))
			return cfg, true
		}
		e.Logger().Warn("embers: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Backend == "" {
		cfg.Backend = defaults.Backend
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.Slot == "" {
		cfg.Slot = defaults.Slot
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps and true flags win.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableSanitizer {
		yamlConfig.DisableSanitizer = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}
	if programmaticConfig.EnableAudit {
		yamlConfig.EnableAudit = true
	}

	fillString(&yamlConfig.Backend, programmaticConfig.Backend)
	fillString(&yamlConfig.DSN, programmaticConfig.DSN)
	fillString(&yamlConfig.Database, programmaticConfig.Database)
	fillString(&yamlConfig.Slot, programmaticConfig.Slot)

	fillFloat(&yamlConfig.PrestigeRequirement, programmaticConfig.PrestigeRequirement)
	fillFloat(&yamlConfig.PrestigeScaleFactor, programmaticConfig.PrestigeScaleFactor)
	fillFloat(&yamlConfig.IdleBaseCapHours, programmaticConfig.IdleBaseCapHours)
	fillFloat(&yamlConfig.IdleBaseRatePerHour, programmaticConfig.IdleBaseRatePerHour)
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}
