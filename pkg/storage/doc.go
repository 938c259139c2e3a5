// Package storage persists per-user flag decisions so that repeated
// evaluations of the same feature stay sticky across calls, restarts and
// settings refreshes.
//
// A Record captures whichever of the rollout / experiment assignments
// applied for a (featureKey, userId) pair. Records are validated before
// writing: missing keys or a partially specified assignment (key present but
// variation id missing) are rejected so a corrupt record can never
// short-circuit a future evaluation.
//
// Two implementations ship with the package: MemoryStore, a mutex-guarded
// map suited to tests and single-process hosts, and RedisStore for shared
// server-side deployments:
//
//	store := storage.NewMemoryStore()
//	err := store.Set(ctx, &storage.Record{
//		FeatureKey:            "checkout-redesign",
//		UserID:                "user-1",
//		ExperimentID:          20,
//		ExperimentKey:         "exp-checkout",
//		ExperimentVariationID: 2,
//	})
//
// The decision engine treats read errors as a cache miss and write errors as
// a no-op; storage failures degrade evaluation quality, never break it.
package storage
