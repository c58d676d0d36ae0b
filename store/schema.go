package store

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Scope says whether a persisted key survives a prestige reset.
type Scope string

const (
	// ScopeCycle keys are cleared when the player prestiges.
	ScopeCycle Scope = "cycle"
	// ScopePermanent keys live for the whole save.
	ScopePermanent Scope = "permanent"
)

// ErrUnclassifiedKey is returned by Classify for keys outside the schema.
var ErrUnclassifiedKey = errors.New("store: unclassified key")

// Exact keys.
const (
	KeyBankBalance          = "bank_balance"
	KeyIdleLastClaim        = "idle_last_claim_unix"
	KeyPrestigeLevel        = "prestige_level"
	KeyPrestigeBestDistance = "prestige_best_distance"
	KeyStoreUnlocked        = "store_unlocked"
	KeyModsUnlocked         = "mods_unlocked"
	KeySkinSelected         = "skin_selected"
	KeySaveVersion          = "save_version"
)

// Lifetime counters and best-ever records.
const (
	KeyStatLifetimeDistance = "stat_lifetime_distance"
	KeyStatLifetimeEarned   = "stat_lifetime_earned"
	KeyStatRunsPlayed       = "stat_runs_played"

	KeyBestHighScore        = "best_high_score"
	KeyBestDistance         = "best_distance"
	KeyBestFlipsInRun       = "best_flips_in_run"
	KeyBestNoHitDistance    = "best_nohit_distance"
	KeyBestHardModeDistance = "best_hardmode_distance"
)

// Key prefixes for per-id state.
const (
	PrefixUpgradeTier  = "upgrade_tier_"
	PrefixAchUnlocked  = "ach_unlocked_"
	PrefixAchClaimed   = "ach_claimed_"
	PrefixStat         = "stat_"
	PrefixStatModRuns  = "stat_mod_runs_"
	PrefixBest         = "best_"
	PrefixModOn        = "mod_on_"
	PrefixSkinUnlocked = "skin_unlocked_"
)

// UpgradeTierKey is the owned-tier key of an upgrade.
func UpgradeTierKey(upgradeID string) string { return PrefixUpgradeTier + upgradeID }

// AchievementUnlockedKey is the unlocked flag of an achievement.
func AchievementUnlockedKey(achID string) string { return PrefixAchUnlocked + achID }

// AchievementClaimedKey is the claimed flag of an achievement.
func AchievementClaimedKey(achID string) string { return PrefixAchClaimed + achID }

// ModifierRunsKey counts runs started with the named modifier enabled.
func ModifierRunsKey(name string) string { return PrefixStatModRuns + name }

// ModifierOnKey is the toggle of a run modifier.
func ModifierOnKey(name string) string { return PrefixModOn + name }

// SkinUnlockedKey is the unlocked flag of a skin.
func SkinUnlockedKey(skinID string) string { return PrefixSkinUnlocked + skinID }

type rule struct {
	key    string
	prefix bool
	scope  Scope
}

// schema lists every key family the engine writes. Adding a key to the save
// means adding it here first.
var schema = []rule{
	{KeyBankBalance, false, ScopeCycle},
	{KeyIdleLastClaim, false, ScopePermanent},
	{PrefixUpgradeTier, true, ScopeCycle},
	{KeyPrestigeLevel, false, ScopePermanent},
	{KeyPrestigeBestDistance, false, ScopeCycle},
	{PrefixAchUnlocked, true, ScopePermanent},
	{PrefixAchClaimed, true, ScopePermanent},
	{PrefixStat, true, ScopePermanent},
	{PrefixBest, true, ScopePermanent},
	{KeyStoreUnlocked, false, ScopeCycle},
	{KeyModsUnlocked, false, ScopeCycle},
	{PrefixModOn, true, ScopeCycle},
	{KeySkinSelected, false, ScopePermanent},
	{PrefixSkinUnlocked, true, ScopePermanent},
	{KeySaveVersion, false, ScopePermanent},
}

// Classify returns the prestige scope of key.
func Classify(key string) (Scope, error) {
	for _, r := range schema {
		if r.prefix {
			if strings.HasPrefix(key, r.key) && len(key) > len(r.key) {
				return r.scope, nil
			}
			continue
		}
		if key == r.key {
			return r.scope, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnclassifiedKey, key)
}

// CycleScoped returns the exact keys and the key prefixes that a prestige
// reset clears.
func CycleScoped() (keys []string, prefixes []string) {
	for _, r := range schema {
		if r.scope != ScopeCycle {
			continue
		}
		if r.prefix {
			prefixes = append(prefixes, r.key)
		} else {
			keys = append(keys, r.key)
		}
	}
	return keys, prefixes
}

var keyPart = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidKeyPart reports whether s may be embedded in a key. Catalog ids and
// modifier names must pass it so every backend can store them verbatim.
func ValidKeyPart(s string) bool { return keyPart.MatchString(s) }
