// Package decision is the evaluation engine: given an immutable settings
// snapshot and a caller-supplied user context, it decides which variation of
// a feature applies to that user, deterministically and without any network
// round-trip.
//
// Evaluation composes four pieces. The traffic allocator maps a user's hash
// bucket onto a campaign's variation ranges, honoring whitelists first. The
// rule evaluator walks a single rollout or experiment rule through its
// states (not evaluated, segmentation checked, passed or failed), resolving
// gateway attributes on demand and electing mutually-exclusive-group winners
// once per call. The orchestrator runs the per-feature algorithm: stored
// decision short-circuit, rollout rules in declared order, then experiment
// rules, persisting the fresh outcome and emitting impressions.
//
//	orch := decision.NewOrchestrator(
//		decision.WithStore(store),
//		decision.WithTracker(dispatcher),
//		decision.WithLogger(log),
//	)
//	flag := orch.GetFlag(ctx, snapshot, "checkout-redesign", &decision.UserContext{
//		ID:              "user-1",
//		CustomVariables: map[string]any{"plan": "pro"},
//	})
//	if flag.Enabled {
//		cta := flag.Variable("cta", "Buy now")
//		_ = cta
//	}
//
// GetFlag never returns an error and never panics: configuration problems,
// storage failures and malformed segments all degrade to a disabled flag
// with a logged diagnostic. The only shared state across concurrent calls
// is the read-only snapshot; group winner election and resolved attributes
// are scoped to one call.
package decision
