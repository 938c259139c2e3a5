package decision

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/segment"
	"github.com/dmitrymomot/flagkit/pkg/settings"
)

// RuleState tracks how far a single rule progressed through evaluation.
type RuleState int

const (
	// StateNotEvaluated is the initial state before any check ran.
	StateNotEvaluated RuleState = iota
	// StateSegmentationChecked means pre-segmentation ran, regardless of
	// its outcome.
	StateSegmentationChecked
	// StatePassed means the rule admits this user.
	StatePassed
	// StateFailed means the rule rejected this user.
	StateFailed
)

// RuleResult is the outcome of evaluating one rollout or experiment rule
// for one user.
type RuleResult struct {
	State RuleState

	// PreSegmentationPassed reports whether this rule may claim the user:
	// the campaign's segment expression matched and, for grouped campaigns,
	// it won the group election. Callers use it to pick the first admitting
	// rule.
	PreSegmentationPassed bool

	// Whitelisted is non-nil when an explicit override or whitelist entry
	// forces this variation, bypassing bucketing.
	Whitelisted *settings.Variation
}

// passState carries the per-call caches shared by every rule evaluated
// within one GetFlag invocation. Group winners are elected at most once per
// call so mutually exclusive campaigns stay mutually exclusive, and gateway
// resolution happens at most once no matter how many rules need it.
type passState struct {
	megWinners   map[string]int
	resolved     *gateway.Resolved
	resolveTried bool
}

func newPassState() *passState {
	return &passState{megWinners: make(map[string]int)}
}

// ruleEvaluator decides whether one campaign rule admits a user. It is
// stateless across calls; all per-call caching lives in passState.
type ruleEvaluator struct {
	evaluator *segment.Evaluator
	resolver  gateway.Resolver
	log       *slog.Logger
}

func newRuleEvaluator(resolver gateway.Resolver, log *slog.Logger) *ruleEvaluator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ruleEvaluator{
		evaluator: segment.NewEvaluator(log),
		resolver:  resolver,
		log:       log,
	}
}

// Evaluate runs the admission checks for one campaign in order: the cached
// group-winner short-circuit, pre-segmentation, group winner election, then
// whitelisting. Election happens only after this campaign's own segmentation
// passed, so a campaign whose audience the user does not match can neither
// win a group nor trigger its election.
func (r *ruleEvaluator) Evaluate(ctx context.Context, snap *settings.Settings, c *settings.Campaign, user *UserContext, pass *passState) RuleResult {
	res := RuleResult{State: StateNotEvaluated}

	groupID, group := snap.GroupForCampaign(c.ID)
	if group != nil {
		if winner, elected := pass.megWinners[groupID]; elected && winner != c.ID {
			res.State = StateFailed
			return res
		}
	}

	passed, ok := r.segmentationPasses(ctx, c, user, pass)
	if !ok {
		res.State = StateFailed
		return res
	}

	res.State = StateSegmentationChecked
	res.PreSegmentationPassed = passed
	if !passed {
		res.State = StateFailed
		return res
	}

	if group != nil {
		winner, elected := pass.megWinners[groupID]
		if !elected {
			winner = r.electGroupWinner(ctx, snap, groupID, group, user, pass)
			pass.megWinners[groupID] = winner
			r.log.Debug("elected group winner",
				"group_id", groupID, "winner_campaign_id", winner, "user_id", user.ID)
		}
		if winner != c.ID {
			res.State = StateFailed
			res.PreSegmentationPassed = false
			return res
		}
	}

	res.Whitelisted = WhitelistedVariation(c, user)
	res.State = StatePassed
	return res
}

// segmentationPasses evaluates the campaign's audience expression. ok is
// false when the expression is malformed; a malformed expression fails
// closed.
func (r *ruleEvaluator) segmentationPasses(ctx context.Context, c *settings.Campaign, user *UserContext, pass *passState) (passed, ok bool) {
	node, err := segment.Parse(c.Segments)
	if err != nil {
		r.log.Error("malformed segment expression, rule fails closed",
			"campaign_id", c.ID, "error", err)
		return false, false
	}
	if node == nil {
		return true, true
	}
	attrs := r.attributesFor(ctx, node, user, pass)
	return r.evaluator.Evaluate(node, attrs), true
}

// attributesFor assembles the evaluation context, resolving gateway
// attributes only when the expression actually reads location or device
// signals the caller did not supply. A failed resolution is logged once and
// evaluation proceeds with whatever attributes exist.
func (r *ruleEvaluator) attributesFor(ctx context.Context, node *segment.Node, user *UserContext, pass *passState) *segment.Attributes {
	attrs := &segment.Attributes{
		UserID:   user.ID,
		Custom:   user.CustomVariables,
		Location: user.Location,
		Device:   user.Device,
	}

	req := node.Requires()
	needLocation := req.Location && attrs.Location == nil
	needDevice := req.Device && attrs.Device == nil
	if (!needLocation && !needDevice) || r.resolver == nil {
		return attrs
	}

	if !pass.resolveTried {
		pass.resolveTried = true
		resolved, err := r.resolver.Resolve(ctx, gateway.Request{
			IP:        user.IPAddress,
			UserAgent: user.UserAgent,
		})
		if err != nil {
			r.log.Warn("gateway resolution failed, evaluating with partial attributes",
				"user_id", user.ID, "error", err)
		} else {
			pass.resolved = resolved
		}
	}

	if pass.resolved != nil {
		if attrs.Location == nil {
			attrs.Location = pass.resolved.Location
		}
		if attrs.Device == nil {
			attrs.Device = pass.resolved.Device
		}
	}
	return attrs
}
