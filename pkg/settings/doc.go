// Package settings defines the server-delivered configuration model: which
// features exist, their rollout and experiment rules, the campaigns those
// rules point at, variation traffic ranges and mutually exclusive groups.
//
// A Settings snapshot is immutable once parsed. Refreshing configuration
// means fetching a whole new snapshot and swapping the active reference
// atomically; nothing is ever mutated in place, so concurrent evaluations
// always see a consistent view.
//
// Parse unmarshals the wire payload, assigns each variation its slice of the
// 1..10000 bucket scale from its weight, and validates structural invariants
// (unique feature keys, resolvable campaign and group references, range
// tiling at 100% traffic):
//
//	snapshot, err := settings.Parse(payload)
//	if err != nil {
//		// reject the payload, keep the previous snapshot
//	}
//	feature := snapshot.FeatureByKey("checkout-redesign")
//
// Source abstracts where payloads come from; HTTPSource fetches them from
// the config delivery endpoint.
package settings
