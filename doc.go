// Package embers is the meta-progression and economy engine of an endless
// runner. It owns everything that outlives a single run:
//
//   - a spendable balance that is credited once per run and never goes negative
//   - idle income that accrues from the wall clock while the game is closed
//   - tiered upgrades with geometric costs and distance or dependency gates
//   - a prestige cycle that wipes cycle-scoped progress for a permanent multiplier
//   - achievements that unlock at run end and pay out on an explicit claim
//   - lifetime statistics, best-ever records, run modifiers and skins
//
// Embers is a library. The game loop reports three signals (RunStarted,
// CurrencyPickedUp and RunEnded) and the UI calls the query and command
// methods of Engine. Physics, rendering and input stay in the game.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/embers"
//	    "github.com/xraph/embers/store/sqlite"
//	)
//
//	db, err := sqlite.Open("save.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng, err := embers.New(sqlite.New(db, sqlite.DefaultSlot))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	mods, _ := eng.ActiveModifiers(ctx)
//	runID, _ := eng.RunStarted(ctx, mods...)
//	eng.CurrencyPickedUp(ctx, 1)
//	summary, _ := eng.RunEnded(ctx, embers.RunResult{Distance: 312, Score: 4200})
//
// # Persistence
//
// State lives in a key-value store.Store. Every key belongs to one of two
// scopes (see store.Classify): cycle keys are deleted by a prestige, permanent
// keys survive it. Multi-key changes such as a purchase (debit plus tier) or
// a claim (credit plus flag) are applied as one atomic store.Batch, so a
// failed write never leaves the save half-updated. Backends ship for memory,
// SQLite, PostgreSQL and MongoDB.
//
// # Multipliers
//
// Score and currency use the same composition order:
//
//	base × (1 + Σ modifier bonuses) × prestige multiplier
//
// where the prestige multiplier is scaleFactor^level (1.5 by default).
//
// # Identifiers
//
// Runs and audit events use TypeIDs:
//
//	run_01h2xcejqtf2nbrexx3vqjhp41   // Run ID
//	aevt_01h455vb4pex5vsknk084sn02q  // Audit event ID
package embers
