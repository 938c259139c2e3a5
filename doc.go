// Package flagkit is a client-side feature flagging and experimentation SDK:
// it evaluates feature flags, runs A/B experiments and reports conversions
// against a periodically refreshed settings snapshot, with every decision
// computed locally and deterministically from a hash of the user id.
//
// The typical setup loads configuration from the environment and wires all
// collaborators in one call:
//
//	var cfg flagkit.Config
//	config.MustLoad(&cfg)
//
//	client, dispatcher, err := flagkit.NewFromConfig(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	if dispatcher != nil {
//		defer dispatcher.Close(context.Background())
//	}
//	if err := client.Start(ctx); err != nil {
//		return err
//	}
//
//	user := &decision.UserContext{ID: "user-123"}
//	flag := client.GetFlag(ctx, "checkout-redesign", user)
//	if flag.Enabled {
//		cta := flag.Variable("cta", "Buy now")
//		_ = cta
//	}
//	_, _ = client.Track(ctx, "purchase", user, map[string]any{"amount": 42})
//
// Pieces can also be wired individually through options; see New. The
// subpackages under pkg/ are usable on their own: pkg/bucketer for the hash
// bucketing primitive, pkg/segment for the targeting expression evaluator,
// pkg/settings for snapshot parsing and delivery, pkg/decision for the
// evaluation engine, pkg/events for impression dispatch and pkg/storage for
// sticky decision persistence.
package flagkit
