// Package achievement evaluates unlock rules at run end and runs the
// separate unlock then claim flow that pays rewards into the bank.
package achievement

import "github.com/xraph/embers/stats"

// ProgressType names the metric an achievement tracks.
type ProgressType string

const (
	ProgressBestDistance     ProgressType = "best_distance"
	ProgressLifetimeDistance ProgressType = "lifetime_distance"
	ProgressRunsPlayed       ProgressType = "runs_played"
	ProgressLifetimeEarned   ProgressType = "lifetime_earned"
	ProgressSpeedModRuns     ProgressType = "speed_mod_runs"
	ProgressHazardsModRuns   ProgressType = "hazards_mod_runs"
	ProgressPrestigeLevel    ProgressType = "prestige_level"
	ProgressFlipsInRun       ProgressType = "flips_in_run"
	ProgressNoHitDistance    ProgressType = "longest_nohit_distance"
	ProgressHardModeDistance ProgressType = "hardmode_distance"
	ProgressRunDistance      ProgressType = "run_distance"
	ProgressRunScore         ProgressType = "run_score"
	ProgressRunCurrency      ProgressType = "run_currency"
)

// DefaultReward is paid when a definition does not set one.
const DefaultReward = 10

// Definition is author-time data for one achievement.
type Definition struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description" json:"description"`
	SortOrder    int          `yaml:"sort_order" json:"sort_order"`
	ProgressType ProgressType `yaml:"progress" json:"progress"`
	Target       float64      `yaml:"target" json:"target"`
	Reward       int64        `yaml:"reward" json:"reward"`
}

// Metrics is the read-only snapshot achievements are evaluated against. It
// must be taken after the run's final numbers are recorded.
type Metrics struct {
	BestDistance  float64
	RunDistance   float64
	RunScore      float64
	RunCurrency   int64
	PrestigeLevel int
	Stats         stats.Snapshot
}

// ProgressFor resolves the progress of t from m. Unknown types resolve to 0.
func ProgressFor(t ProgressType, m Metrics) float64 {
	switch t {
	case ProgressBestDistance:
		return max(m.BestDistance, m.RunDistance)
	case ProgressLifetimeDistance:
		return m.Stats.LifetimeDistance
	case ProgressRunsPlayed:
		return float64(m.Stats.RunsPlayed)
	case ProgressLifetimeEarned:
		return float64(m.Stats.LifetimeEarned)
	case ProgressSpeedModRuns:
		return float64(m.Stats.ModifierRuns["speed"])
	case ProgressHazardsModRuns:
		return float64(m.Stats.ModifierRuns["hazards"])
	case ProgressPrestigeLevel:
		return float64(m.PrestigeLevel)
	case ProgressFlipsInRun:
		return m.Stats.BestFlipsInRun
	case ProgressNoHitDistance:
		return m.Stats.BestNoHit
	case ProgressHardModeDistance:
		return m.Stats.BestHardMode
	case ProgressRunDistance:
		return m.RunDistance
	case ProgressRunScore:
		return m.RunScore
	case ProgressRunCurrency:
		return float64(m.RunCurrency)
	default:
		return 0
	}
}

// Progress is one row of the achievement list.
type Progress struct {
	Definition Definition `json:"definition"`
	Progress   float64    `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	Claimed    bool       `json:"claimed"`
}
