package extension

import "time"

// Backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the Embers extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.embers" or "embers" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableSanitizer skips the save repair pass on start.
	DisableSanitizer bool `json:"disable_sanitizer" mapstructure:"disable_sanitizer" yaml:"disable_sanitizer"`

	// Backend selects the store when none was given with WithStore:
	// memory (default), sqlite, postgres or mongo.
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// DSN is the sqlite path, postgres connection string or mongo URI.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the mongo database name (default: "embers").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// Slot is the save slot (default: "default").
	Slot string `json:"slot" mapstructure:"slot" yaml:"slot"`

	// Tuning overrides. Zero keeps the engine default.
	PrestigeRequirement float64       `json:"prestige_requirement" mapstructure:"prestige_requirement" yaml:"prestige_requirement"`
	PrestigeScaleFactor float64       `json:"prestige_scale_factor" mapstructure:"prestige_scale_factor" yaml:"prestige_scale_factor"`
	IdleBaseCapHours    float64       `json:"idle_base_cap_hours" mapstructure:"idle_base_cap_hours" yaml:"idle_base_cap_hours"`
	IdleBaseRatePerHour float64       `json:"idle_base_rate_per_hour" mapstructure:"idle_base_rate_per_hour" yaml:"idle_base_rate_per_hour"`
	PluginTimeout       time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// EnableMetrics registers the prometheus metrics plugin on the default registerer.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// EnableAudit records every game event to the extension logger.
	EnableAudit bool `json:"enable_audit" mapstructure:"enable_audit" yaml:"enable_audit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendMemory,
		Database: "embers",
		Slot:     "default",
	}
}
