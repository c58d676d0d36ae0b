package embers

import (
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/xraph/embers/idle"
	"github.com/xraph/embers/modifier"
	"github.com/xraph/embers/plugin"
	"github.com/xraph/embers/prestige"
	"github.com/xraph/embers/sanitize"
	"github.com/xraph/embers/types"
	"github.com/xraph/embers/upgrade"
)

// EnvPrefix prefixes every environment variable read by ConfigFromEnv.
const EnvPrefix = "EMBERS_"

// Config holds the tunables of an Engine.
type Config struct {
	// Idle accrual
	IdleBaseCapHours      float64 `json:"idle_base_cap_hours" yaml:"idle_base_cap_hours" env:"IDLE_BASE_CAP_HOURS"`
	IdleBaseRatePerHour   float64 `json:"idle_base_rate_per_hour" yaml:"idle_base_rate_per_hour" env:"IDLE_BASE_RATE_PER_HOUR"`
	IdlePrestigeRateBonus float64 `json:"idle_prestige_rate_bonus" yaml:"idle_prestige_rate_bonus" env:"IDLE_PRESTIGE_RATE_BONUS"`

	// Prestige curve
	PrestigeRequirement float64 `json:"prestige_requirement" yaml:"prestige_requirement" env:"PRESTIGE_REQUIREMENT"`
	PrestigeScaleFactor float64 `json:"prestige_scale_factor" yaml:"prestige_scale_factor" env:"PRESTIGE_SCALE_FACTOR"`

	// Unlock prices
	StoreUnlockCost    int64 `json:"store_unlock_cost" yaml:"store_unlock_cost" env:"STORE_UNLOCK_COST"`
	ModifierUnlockCost int64 `json:"modifier_unlock_cost" yaml:"modifier_unlock_cost" env:"MODIFIER_UNLOCK_COST"`

	// Modifier bonuses
	SpeedBonus   float64 `json:"speed_bonus" yaml:"speed_bonus" env:"SPEED_BONUS"`
	HazardsBonus float64 `json:"hazards_bonus" yaml:"hazards_bonus" env:"HAZARDS_BONUS"`

	// Startup
	DisableMigrate   bool            `json:"disable_migrate" yaml:"disable_migrate" env:"DISABLE_MIGRATE"`
	DisableSanitizer bool            `json:"disable_sanitizer" yaml:"disable_sanitizer" env:"DISABLE_SANITIZER"`
	Limits           sanitize.Limits `json:"limits" yaml:"limits" envPrefix:"LIMIT_"`

	// PluginTimeout bounds each plugin hook. Zero waits forever.
	PluginTimeout time.Duration `json:"plugin_timeout" yaml:"plugin_timeout" env:"PLUGIN_TIMEOUT"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	idleCfg := idle.DefaultConfig()
	prestigeCfg := prestige.DefaultConfig()
	mods := modifier.Defaults()
	return Config{
		IdleBaseCapHours:      idleCfg.BaseCapHours,
		IdleBaseRatePerHour:   idleCfg.BaseRatePerHour,
		IdlePrestigeRateBonus: idleCfg.PrestigeRateBonus,
		PrestigeRequirement:   prestigeCfg.Requirement,
		PrestigeScaleFactor:   prestigeCfg.ScaleFactor,
		StoreUnlockCost:       upgrade.DefaultStoreUnlockCost,
		ModifierUnlockCost:    modifier.DefaultUnlockCost,
		SpeedBonus:            mods[0].Bonus,
		HazardsBonus:          mods[1].Bonus,
		Limits:                sanitize.DefaultLimits(),
		PluginTimeout:         plugin.DefaultTimeout,
	}
}

// ConfigFromEnv returns DefaultConfig overlaid with EMBERS_* environment
// variables, e.g. EMBERS_PRESTIGE_REQUIREMENT or EMBERS_LIMIT_MAX_BALANCE.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("embers: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs types.MultiError
	nonNegative := func(field string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs.Add(fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidConfig, field, v))
		}
	}
	nonNegative("idle_base_cap_hours", c.IdleBaseCapHours)
	nonNegative("idle_base_rate_per_hour", c.IdleBaseRatePerHour)
	nonNegative("idle_prestige_rate_bonus", c.IdlePrestigeRateBonus)
	nonNegative("prestige_requirement", c.PrestigeRequirement)
	nonNegative("speed_bonus", c.SpeedBonus)
	nonNegative("hazards_bonus", c.HazardsBonus)
	nonNegative("store_unlock_cost", float64(c.StoreUnlockCost))
	nonNegative("modifier_unlock_cost", float64(c.ModifierUnlockCost))
	nonNegative("limits.max_best_distance", c.Limits.MaxBestDistance)
	if c.PrestigeScaleFactor < 1 || math.IsNaN(c.PrestigeScaleFactor) || math.IsInf(c.PrestigeScaleFactor, 0) {
		errs.Add(fmt.Errorf("%w: prestige_scale_factor must be >= 1, got %v", ErrInvalidConfig, c.PrestigeScaleFactor))
	}
	if c.Limits.MaxPrestigeLevel < 0 || c.Limits.MaxBalance < 0 {
		errs.Add(fmt.Errorf("%w: limits must be non-negative", ErrInvalidConfig))
	}
	if c.PluginTimeout < 0 {
		errs.Add(fmt.Errorf("%w: plugin_timeout must be non-negative", ErrInvalidConfig))
	}
	return errs.Err()
}

func (c Config) idleConfig() idle.Config {
	return idle.Config{
		BaseCapHours:      c.IdleBaseCapHours,
		BaseRatePerHour:   c.IdleBaseRatePerHour,
		PrestigeRateBonus: c.IdlePrestigeRateBonus,
	}
}

func (c Config) prestigeConfig() prestige.Config {
	return prestige.Config{
		Requirement: c.PrestigeRequirement,
		ScaleFactor: c.PrestigeScaleFactor,
	}
}

func (c Config) modifiers() []modifier.Definition {
	return []modifier.Definition{
		{Name: modifier.Speed, Bonus: c.SpeedBonus},
		{Name: modifier.Hazards, Bonus: c.HazardsBonus},
	}
}
