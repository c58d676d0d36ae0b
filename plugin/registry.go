package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds how long a single hook may run.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and dispatches events to them.
// Hook lists are cached by interface at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onRunStarted          []OnRunStarted
	onRunEnded            []OnRunEnded
	onBalanceChanged      []OnBalanceChanged
	onUpgradePurchased    []OnUpgradePurchased
	onIdleClaimed         []OnIdleClaimed
	onPrestige            []OnPrestige
	onAchievementUnlocked []OnAchievementUnlocked
	onAchievementClaimed  []OnAchievementClaimed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Zero disables it.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnRunStarted); ok {
		r.onRunStarted = append(r.onRunStarted, v)
		hooks = append(hooks, "OnRunStarted")
	}
	if v, ok := p.(OnRunEnded); ok {
		r.onRunEnded = append(r.onRunEnded, v)
		hooks = append(hooks, "OnRunEnded")
	}
	if v, ok := p.(OnBalanceChanged); ok {
		r.onBalanceChanged = append(r.onBalanceChanged, v)
		hooks = append(hooks, "OnBalanceChanged")
	}
	if v, ok := p.(OnUpgradePurchased); ok {
		r.onUpgradePurchased = append(r.onUpgradePurchased, v)
		hooks = append(hooks, "OnUpgradePurchased")
	}
	if v, ok := p.(OnIdleClaimed); ok {
		r.onIdleClaimed = append(r.onIdleClaimed, v)
		hooks = append(hooks, "OnIdleClaimed")
	}
	if v, ok := p.(OnPrestige); ok {
		r.onPrestige = append(r.onPrestige, v)
		hooks = append(hooks, "OnPrestige")
	}
	if v, ok := p.(OnAchievementUnlocked); ok {
		r.onAchievementUnlocked = append(r.onAchievementUnlocked, v)
		hooks = append(hooks, "OnAchievementUnlocked")
	}
	if v, ok := p.(OnAchievementClaimed); ok {
		r.onAchievementClaimed = append(r.onAchievementClaimed, v)
		hooks = append(hooks, "OnAchievementClaimed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// emit runs call for every hook in order. Failures are logged and never
// reach the caller.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list func() []T, call func(T) error) {
	r.mu.RLock()
	plugins := list()
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", func() []OnInit { return r.onInit }, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func() []OnShutdown { return r.onShutdown }, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitRunStarted emits a run started event.
func (r *Registry) EmitRunStarted(ctx context.Context, ev RunStarted) {
	emit(ctx, r, "OnRunStarted", func() []OnRunStarted { return r.onRunStarted }, func(p OnRunStarted) error {
		return p.OnRunStarted(ctx, ev)
	})
}

// EmitRunEnded emits a run ended event.
func (r *Registry) EmitRunEnded(ctx context.Context, ev RunEnded) {
	emit(ctx, r, "OnRunEnded", func() []OnRunEnded { return r.onRunEnded }, func(p OnRunEnded) error {
		return p.OnRunEnded(ctx, ev)
	})
}

// EmitBalanceChanged emits a balance changed event.
func (r *Registry) EmitBalanceChanged(ctx context.Context, ev BalanceChanged) {
	emit(ctx, r, "OnBalanceChanged", func() []OnBalanceChanged { return r.onBalanceChanged }, func(p OnBalanceChanged) error {
		return p.OnBalanceChanged(ctx, ev)
	})
}

// EmitUpgradePurchased emits an upgrade purchased event.
func (r *Registry) EmitUpgradePurchased(ctx context.Context, ev UpgradePurchased) {
	emit(ctx, r, "OnUpgradePurchased", func() []OnUpgradePurchased { return r.onUpgradePurchased }, func(p OnUpgradePurchased) error {
		return p.OnUpgradePurchased(ctx, ev)
	})
}

// EmitIdleClaimed emits an idle claimed event.
func (r *Registry) EmitIdleClaimed(ctx context.Context, ev IdleClaimed) {
	emit(ctx, r, "OnIdleClaimed", func() []OnIdleClaimed { return r.onIdleClaimed }, func(p OnIdleClaimed) error {
		return p.OnIdleClaimed(ctx, ev)
	})
}

// EmitPrestige emits a prestige event.
func (r *Registry) EmitPrestige(ctx context.Context, ev Prestiged) {
	emit(ctx, r, "OnPrestige", func() []OnPrestige { return r.onPrestige }, func(p OnPrestige) error {
		return p.OnPrestige(ctx, ev)
	})
}

// EmitAchievementUnlocked emits an achievement unlocked event.
func (r *Registry) EmitAchievementUnlocked(ctx context.Context, achievementID string) {
	emit(ctx, r, "OnAchievementUnlocked", func() []OnAchievementUnlocked { return r.onAchievementUnlocked }, func(p OnAchievementUnlocked) error {
		return p.OnAchievementUnlocked(ctx, achievementID)
	})
}

// EmitAchievementClaimed emits an achievement claimed event.
func (r *Registry) EmitAchievementClaimed(ctx context.Context, ev AchievementClaimed) {
	emit(ctx, r, "OnAchievementClaimed", func() []OnAchievementClaimed { return r.onAchievementClaimed }, func(p OnAchievementClaimed) error {
		return p.OnAchievementClaimed(ctx, ev)
	})
}

// callWithTimeout calls a plugin function and waits for it, up to the
// registry timeout. A plugin must never stall the progression loop.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	if r.timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
