package embers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/xraph/embers/achievement"
	"github.com/xraph/embers/bank"
	"github.com/xraph/embers/clock"
	"github.com/xraph/embers/cosmetic"
	"github.com/xraph/embers/id"
	"github.com/xraph/embers/idle"
	"github.com/xraph/embers/modifier"
	"github.com/xraph/embers/plugin"
	"github.com/xraph/embers/prestige"
	"github.com/xraph/embers/sanitize"
	"github.com/xraph/embers/stats"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/upgrade"
)

// Engine is the progression and economy engine of one save slot. Every
// command is serialized on one mutex; plugin hooks run synchronously inside
// it and must not call back into the Engine.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	cfg     Config
	clock   clock.Clock
	plugins *plugin.Registry
	logger  *slog.Logger

	upgradeCatalog     *upgrade.Catalog
	achievementCatalog *achievement.Catalog
	skins              []cosmetic.Skin

	stats        *stats.Aggregator
	bank         *bank.Bank
	ownership    *upgrade.Ownership
	shop         *upgrade.Shop
	prestige     *prestige.Cycle
	idle         *idle.Clock
	achievements *achievement.Engine
	modifiers    *modifier.Set
	wardrobe     *cosmetic.Wardrobe
	sanitizer    *sanitize.Sanitizer

	run             *activeRun
	lastRun         RunResult
	lastRunCurrency int64
	started         bool
}

type activeRun struct {
	id        id.RunID
	startedAt time.Time
	modifiers []string
	bonuses   []float64
	hardMode  bool
}

// RunResult is what the game loop reports when a run ends.
type RunResult struct {
	Distance             float64 `json:"distance"`
	Score                int64   `json:"score"`
	FlipsInRun           int     `json:"flips_in_run,omitempty"`
	LongestNoHitDistance float64 `json:"longest_nohit_distance,omitempty"`
}

// RunSummary is the settled outcome of a run.
type RunSummary struct {
	RunID           string                   `json:"run_id"`
	Distance        float64                  `json:"distance"`
	Score           int64                    `json:"score"`
	Earned          int64                    `json:"earned"`
	Balance         int64                    `json:"balance"`
	Duration        time.Duration            `json:"duration"`
	NewHighScore    bool                     `json:"new_high_score"`
	NewBestDistance bool                     `json:"new_best_distance"`
	Unlocked        []achievement.Definition `json:"unlocked,omitempty"`
	CanPrestige     bool                     `json:"can_prestige"`
}

// New creates an Engine over s. Catalogs default to the embedded ones.
func New(s store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:   s,
		cfg:     DefaultConfig(),
		clock:   clock.Real{},
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.upgradeCatalog == nil {
		e.upgradeCatalog = upgrade.DefaultCatalog()
	}
	if e.achievementCatalog == nil {
		e.achievementCatalog = achievement.DefaultCatalog()
	}
	if e.skins == nil {
		e.skins = cosmetic.DefaultSkins()
	}
	e.plugins.WithTimeout(e.cfg.PluginTimeout)

	var err error
	e.stats = stats.New(s)
	e.bank = bank.New(s, e.stats)
	e.ownership = upgrade.NewOwnership(s, e.upgradeCatalog)
	e.shop = upgrade.NewShop(s, e.cfg.StoreUnlockCost)
	e.prestige = prestige.New(s, e.cfg.prestigeConfig())
	e.idle = idle.New(s, e.clock, e.ownership, e.prestige, e.cfg.idleConfig())
	e.achievements = achievement.New(s, e.achievementCatalog)
	e.sanitizer = sanitize.New(s, e.upgradeCatalog, e.cfg.Limits)
	if e.modifiers, err = modifier.New(s, e.cfg.ModifierUnlockCost, e.cfg.modifiers()...); err != nil {
		return nil, err
	}
	if e.wardrobe, err = cosmetic.NewWardrobe(s, e.skins...); err != nil {
		return nil, err
	}

	e.bank.OnChange(func(ctx context.Context, c bank.Change) {
		e.plugins.EmitBalanceChanged(ctx, plugin.BalanceChanged{Balance: c.Balance, Delta: c.Delta})
	})

	return e, nil
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithConfig replaces the tuning.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock sets the wall clock used for idle accrual and run timing.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // duplicates are logged by the registry
	}
}

// WithUpgradeCatalog replaces the embedded upgrade catalog.
func WithUpgradeCatalog(c *upgrade.Catalog) Option {
	return func(e *Engine) {
		e.upgradeCatalog = c
	}
}

// WithAchievementCatalog replaces the embedded achievement catalog.
func WithAchievementCatalog(c *achievement.Catalog) Option {
	return func(e *Engine) {
		e.achievementCatalog = c
	}
}

// WithSkins replaces the embedded skin list.
func WithSkins(skins ...cosmetic.Skin) Option {
	return func(e *Engine) {
		e.skins = skins
	}
}

// Start migrates the store, repairs the save and prepares first-launch state.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	if !e.cfg.DisableSanitizer {
		rep, err := e.sanitizer.Run(ctx)
		if err != nil {
			return err
		}
		if rep.Dirty() {
			e.logger.Warn("embers: save repaired", "keys", rep.Changed)
		}
	}

	if err := e.idle.EnsureInitialized(ctx); err != nil {
		return err
	}
	level, err := e.prestige.Level(ctx)
	if err != nil {
		return err
	}
	if _, err := e.wardrobe.RefreshFromPrestige(ctx, level); err != nil {
		return err
	}
	if err := e.wardrobe.EnsureDefaultSelection(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)
	e.started = true

	e.logger.Info("embers started",
		"prestige_level", level,
		"upgrades", e.upgradeCatalog.Len(),
		"achievements", e.achievementCatalog.Len(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop settles any unsettled run earnings and closes the store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := context.Background()
	if e.run != nil {
		e.bank.EndRun()
		e.run = nil
	}
	if n, err := e.bank.SettleRun(ctx); err != nil {
		e.logger.Error("embers: settle on stop failed", "error", err)
	} else if n > 0 {
		e.logger.Info("embers: settled interrupted run", "amount", n)
	}

	e.plugins.EmitShutdown(ctx)
	e.started = false

	return e.store.Close()
}

// Health pings the store.
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Config returns the active tuning.
func (e *Engine) Config() Config { return e.cfg }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// ──────────────────────────────────────────────────
// Run lifecycle
// ──────────────────────────────────────────────────

// RunStarted opens a run and returns its id. Of the requested modifiers only
// those unlocked and toggled on apply, each once; the rest are dropped.
// Earnings left over from a run whose settlement failed are settled first.
func (e *Engine) RunStarted(ctx context.Context, modifiers ...string) (id.RunID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run != nil {
		return id.Nil, ErrRunActive
	}
	for _, m := range modifiers {
		if !e.modifiers.Known(m) {
			return id.Nil, fmt.Errorf("%w: %q", ErrUnknownModifier, m)
		}
	}
	modifiers, err := e.modifiers.Enabled(ctx, modifiers)
	if err != nil {
		return id.Nil, err
	}
	if e.bank.RunEarnings() > 0 {
		if _, err := e.bank.SettleRun(ctx); err != nil {
			return id.Nil, err
		}
	}
	if err := e.stats.RecordRunStarted(ctx, modifiers...); err != nil {
		return id.Nil, err
	}

	run := &activeRun{
		id:        id.NewRunID(),
		startedAt: e.clock.Now(),
		modifiers: modifiers,
		bonuses:   e.modifiers.Bonuses(modifiers),
		hardMode:  e.modifiers.HardMode(modifiers),
	}
	e.bank.BeginRun()
	e.run = run

	e.logger.Debug("run started", "run_id", run.id.String(), "modifiers", modifiers)
	e.plugins.EmitRunStarted(ctx, plugin.RunStarted{RunID: run.id.String(), Modifiers: run.modifiers})

	return run.id, nil
}

// RunActive reports whether a run is in progress.
func (e *Engine) RunActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run != nil
}

// CurrencyPickedUp adds a pickup to the run accumulator after applying the
// run modifiers and the prestige multiplier. Pickups outside a run are
// dropped and report 0.
func (e *Engine) CurrencyPickedUp(ctx context.Context, base int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run == nil {
		return 0, nil
	}
	pm, err := e.prestige.CurrencyMultiplier(ctx)
	if err != nil {
		return 0, err
	}
	return e.bank.AddRunEarnings(ctx, base, modifier.Compose(1, e.run.bonuses, pm))
}

// ScoreFor applies the run modifiers and the prestige multiplier to a base
// score. Outside a run the currently toggled modifiers are used.
func (e *Engine) ScoreFor(ctx context.Context, base float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var bonuses []float64
	if e.run != nil {
		bonuses = e.run.bonuses
	} else {
		active, err := e.modifiers.Active(ctx)
		if err != nil {
			return 0, err
		}
		bonuses = e.modifiers.Bonuses(active)
	}
	pm, err := e.prestige.ScoreMultiplier(ctx)
	if err != nil {
		return 0, err
	}
	return modifier.Compose(base, bonuses, pm), nil
}

// RunEnded records the final run numbers, evaluates achievements against
// them and then settles the run earnings into the bank.
func (e *Engine) RunEnded(ctx context.Context, res RunResult) (RunSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run == nil {
		return RunSummary{}, ErrRunNotActive
	}
	run := e.run
	e.bank.EndRun()
	e.run = nil

	res.Distance = nonNegative(res.Distance)
	res.LongestNoHitDistance = nonNegative(res.LongestNoHitDistance)
	res.Score = max(res.Score, 0)
	res.FlipsInRun = max(res.FlipsInRun, 0)

	sum := RunSummary{
		RunID:    run.id.String(),
		Distance: res.Distance,
		Score:    res.Score,
		Duration: e.clock.Now().Sub(run.startedAt),
	}

	if err := e.stats.AddLifetimeDistance(ctx, res.Distance); err != nil {
		return RunSummary{}, err
	}
	if err := e.prestige.RecordRunDistance(ctx, res.Distance); err != nil {
		return RunSummary{}, err
	}

	bests := []struct {
		key   string
		value float64
		flag  *bool
	}{
		{store.KeyBestDistance, res.Distance, &sum.NewBestDistance},
		{store.KeyBestHighScore, float64(res.Score), &sum.NewHighScore},
		{store.KeyBestFlipsInRun, float64(res.FlipsInRun), nil},
		{store.KeyBestNoHitDistance, res.LongestNoHitDistance, nil},
	}
	if run.hardMode {
		bests = append(bests, struct {
			key   string
			value float64
			flag  *bool
		}{store.KeyBestHardModeDistance, res.Distance, nil})
	}
	for _, b := range bests {
		improved, err := e.stats.RecordBest(ctx, b.key, b.value)
		if err != nil {
			return RunSummary{}, err
		}
		if b.flag != nil {
			*b.flag = improved
		}
	}

	metrics, err := e.metrics(ctx, res, e.bank.RunEarnings())
	if err != nil {
		return RunSummary{}, err
	}
	unlocked, err := e.achievements.Evaluate(ctx, metrics)
	if err != nil {
		return RunSummary{}, err
	}
	sum.Unlocked = unlocked
	e.lastRun = res
	e.lastRunCurrency = metrics.RunCurrency

	if sum.Earned, err = e.bank.SettleRun(ctx); err != nil {
		return RunSummary{}, err
	}
	if sum.Balance, err = e.bank.Balance(ctx); err != nil {
		return RunSummary{}, err
	}
	if sum.CanPrestige, err = e.prestige.CanPrestige(ctx); err != nil {
		return RunSummary{}, err
	}

	ids := make([]string, 0, len(unlocked))
	for _, def := range unlocked {
		ids = append(ids, def.ID)
		e.plugins.EmitAchievementUnlocked(ctx, def.ID)
	}

	e.logger.Debug("run ended",
		"run_id", sum.RunID,
		"distance", sum.Distance,
		"score", sum.Score,
		"earned", sum.Earned,
		"unlocked", ids,
	)
	e.plugins.EmitRunEnded(ctx, plugin.RunEnded{
		RunID:        sum.RunID,
		Distance:     sum.Distance,
		Score:        sum.Score,
		Earned:       sum.Earned,
		Duration:     sum.Duration,
		NewHighScore: sum.NewHighScore,
		Unlocked:     ids,
	})

	return sum, nil
}

// metrics builds the achievement snapshot for a run. It must be called after
// the run's distance and bests are recorded.
func (e *Engine) metrics(ctx context.Context, res RunResult, runCurrency int64) (achievement.Metrics, error) {
	snap, err := e.stats.Snapshot(ctx)
	if err != nil {
		return achievement.Metrics{}, err
	}
	level, err := e.prestige.Level(ctx)
	if err != nil {
		return achievement.Metrics{}, err
	}
	return achievement.Metrics{
		BestDistance:  snap.BestDistance,
		RunDistance:   res.Distance,
		RunScore:      float64(res.Score),
		RunCurrency:   runCurrency,
		PrestigeLevel: level,
		Stats:         snap,
	}, nil
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ──────────────────────────────────────────────────
// Bank and idle income
// ──────────────────────────────────────────────────

// Balance returns the spendable balance.
func (e *Engine) Balance(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bank.Balance(ctx)
}

// IdleStatus returns the idle clock display snapshot.
func (e *Engine) IdleStatus(ctx context.Context) (idle.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idle.Status(ctx)
}

// ClaimIdle credits the claimable idle amount and restarts the clock in one
// write. It returns the amount credited.
func (e *Engine) ClaimIdle(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored, err := e.idle.StoredHours(ctx)
	if err != nil {
		return 0, err
	}
	amount, err := e.idle.ClaimWith(ctx, e.bank)
	if err != nil {
		return 0, err
	}
	if amount > 0 {
		e.logger.Debug("idle claimed", "amount", amount, "stored_hours", stored)
		e.plugins.EmitIdleClaimed(ctx, plugin.IdleClaimed{Amount: amount, StoredHours: stored})
	}
	return amount, nil
}

// ──────────────────────────────────────────────────
// Upgrades
// ──────────────────────────────────────────────────

// UnlockStore opens the upgrade store for this prestige cycle.
func (e *Engine) UnlockStore(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.Unlock(ctx, e.bank)
}

// StoreUnlocked reports whether the upgrade store is open.
func (e *Engine) StoreUnlocked(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shop.Unlocked(ctx)
}

// UpgradeQuotes returns the purchase state of every upgrade.
func (e *Engine) UpgradeQuotes(ctx context.Context) ([]upgrade.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := e.bank.Balance(ctx)
	if err != nil {
		return nil, err
	}
	gating, err := e.prestige.BestDistance(ctx)
	if err != nil {
		return nil, err
	}
	open, err := e.shop.Unlocked(ctx)
	if err != nil {
		return nil, err
	}
	return e.ownership.Quotes(ctx, balance, gating, !open)
}

// PurchaseUpgrade buys the next tier of an upgrade. The gating metric is the
// best distance of the current prestige cycle.
func (e *Engine) PurchaseUpgrade(ctx context.Context, upgradeID string) (upgrade.Purchase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.upgradeCatalog.Get(upgradeID)
	if !ok {
		return upgrade.Purchase{}, fmt.Errorf("%w: %q", ErrUnknownUpgrade, upgradeID)
	}
	open, err := e.shop.Unlocked(ctx)
	if err != nil {
		return upgrade.Purchase{}, err
	}
	if !open {
		tier, err := e.ownership.Tier(ctx, upgradeID)
		if err != nil {
			return upgrade.Purchase{}, err
		}
		return upgrade.Purchase{UpgradeID: upgradeID, Tier: tier, Reason: upgrade.ReasonStoreLocked}, nil
	}
	gating, err := e.prestige.BestDistance(ctx)
	if err != nil {
		return upgrade.Purchase{}, err
	}

	p, err := e.ownership.TryPurchase(ctx, def, e.bank, gating)
	if err != nil {
		return upgrade.Purchase{}, err
	}
	if p.OK {
		e.logger.Debug("upgrade purchased", "upgrade_id", p.UpgradeID, "tier", p.Tier, "cost", p.Cost)
		e.plugins.EmitUpgradePurchased(ctx, plugin.UpgradePurchased{UpgradeID: p.UpgradeID, Tier: p.Tier, Cost: p.Cost})
	}
	return p, nil
}

// OwnedPayloads resolves the payload of every owned upgrade for effect
// dispatch at run start. Unowned upgrades are omitted.
func (e *Engine) OwnedPayloads(ctx context.Context) (map[string]upgrade.Payload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiers, err := e.ownership.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]upgrade.Payload, len(tiers))
	for _, def := range e.upgradeCatalog.All() {
		if tiers[def.ID] > 0 {
			out[def.ID] = upgrade.ResolvedPayload(def, tiers[def.ID])
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Prestige
// ──────────────────────────────────────────────────

// PrestigeStatus returns the prestige display snapshot.
func (e *Engine) PrestigeStatus(ctx context.Context) (prestige.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prestige.Status(ctx)
}

// Prestige performs the cycle reset when eligible and returns the new level.
// It is refused while a run is in progress.
func (e *Engine) Prestige(ctx context.Context) (bool, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run != nil {
		return false, 0, ErrRunActive
	}
	before, err := e.bank.Balance(ctx)
	if err != nil {
		return false, 0, err
	}
	ok, level, err := e.prestige.DoPrestige(ctx)
	if err != nil || !ok {
		return false, 0, err
	}

	skins, err := e.wardrobe.RefreshFromPrestige(ctx, level)
	if err != nil {
		return true, level, err
	}

	mult := e.prestige.Multiplier(level)
	e.logger.Info("prestige", "level", level, "multiplier", mult, "skins_unlocked", skins)
	if before != 0 {
		e.plugins.EmitBalanceChanged(ctx, plugin.BalanceChanged{Balance: 0, Delta: -before})
	}
	e.plugins.EmitPrestige(ctx, plugin.Prestiged{Level: level, Multiplier: mult})

	return true, level, nil
}

// ──────────────────────────────────────────────────
// Achievements and stats
// ──────────────────────────────────────────────────

// Achievements lists every achievement with its progress, measured against
// the last finished run of this session.
func (e *Engine) Achievements(ctx context.Context) ([]achievement.Progress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.metrics(ctx, e.lastRun, e.lastRunCurrency)
	if err != nil {
		return nil, err
	}
	return e.achievements.List(ctx, m)
}

// ClaimAchievement pays an unlocked achievement's reward once.
func (e *Engine) ClaimAchievement(ctx context.Context, achievementID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.achievementCatalog.Get(achievementID)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAchievement, achievementID)
	}
	claimed, err := e.achievements.TryClaim(ctx, achievementID, e.bank)
	if err != nil || !claimed {
		return false, err
	}
	e.plugins.EmitAchievementClaimed(ctx, plugin.AchievementClaimed{AchievementID: def.ID, Reward: def.Reward})
	return true, nil
}

// Stats returns the lifetime counters and best-ever records.
func (e *Engine) Stats(ctx context.Context) (stats.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Snapshot(ctx)
}

// ──────────────────────────────────────────────────
// Modifiers and cosmetics
// ──────────────────────────────────────────────────

// Modifiers returns every run modifier with its toggle.
func (e *Engine) Modifiers(ctx context.Context) ([]modifier.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modifiers.States(ctx)
}

// UnlockModifiers makes run modifiers available for this prestige cycle.
func (e *Engine) UnlockModifiers(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modifiers.Unlock(ctx, e.bank)
}

// SetModifier toggles a modifier. It reports false while modifiers are locked.
func (e *Engine) SetModifier(ctx context.Context, name string, on bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.modifiers.Known(name) {
		return false, fmt.Errorf("%w: %q", ErrUnknownModifier, name)
	}
	return e.modifiers.Toggle(ctx, name, on)
}

// ActiveModifiers returns the modifiers currently toggled on, ready to pass
// to RunStarted.
func (e *Engine) ActiveModifiers(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modifiers.Active(ctx)
}

// Skins lists every skin with its state.
func (e *Engine) Skins(ctx context.Context) ([]cosmetic.SkinState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wardrobe.List(ctx)
}

// SelectSkin selects an unlocked skin.
func (e *Engine) SelectSkin(ctx context.Context, skinID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.wardrobe.Get(skinID); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownSkin, skinID)
	}
	return e.wardrobe.Select(ctx, skinID)
}
