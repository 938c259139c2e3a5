package decision

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/flagkit/pkg/events"
	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/settings"
	"github.com/dmitrymomot/flagkit/pkg/storage"
)

// Tracker receives analytics impressions emitted during evaluation. The
// events dispatcher satisfies it; tests substitute an in-memory recorder.
type Tracker interface {
	Dispatch(imp events.Impression) error
}

// Orchestrator runs the per-feature decision algorithm against a settings
// snapshot. It is safe for concurrent use; all per-call state lives on the
// stack of GetFlag.
type Orchestrator struct {
	rules    *ruleEvaluator
	store    storage.Store
	tracker  Tracker
	resolver gateway.Resolver
	log      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables sticky decisions via the given store. Without a store
// every call re-evaluates from scratch.
func WithStore(store storage.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithTracker routes assignment impressions to the given tracker. Without a
// tracker no impressions are emitted.
func WithTracker(tracker Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = tracker
	}
}

// WithResolver enables gateway attribute resolution for segments that read
// location or device signals.
func WithResolver(resolver gateway.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = resolver
	}
}

// WithLogger sets the diagnostics logger. Nil discards diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// NewOrchestrator creates an orchestrator. All collaborators are optional.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.rules = newRuleEvaluator(o.resolver, o.log)
	return o
}

// GetFlag evaluates a feature for a user and returns the resulting flag.
// It never panics and never returns an error: every failure mode degrades
// to a disabled flag with a logged diagnostic.
func (o *Orchestrator) GetFlag(ctx context.Context, snap *settings.Settings, featureKey string, user *UserContext) (flag *Flag) {
	flag = &Flag{}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("flag evaluation recovered, returning disabled",
				"feature_key", featureKey, "panic", r)
			flag = &Flag{}
		}
	}()

	if snap == nil || user == nil || user.ID == "" {
		o.log.Warn("flag evaluation skipped", "feature_key", featureKey,
			"reason", "missing settings or user id")
		return flag
	}

	feature := snap.FeatureByKey(featureKey)
	if feature == nil {
		o.log.Warn("unknown feature key", "feature_key", featureKey)
		return flag
	}

	stored := o.storedRecord(ctx, featureKey, user.ID)
	pass := newPassState()

	rollout, experiment := o.evaluate(ctx, snap, feature, user, stored, pass)

	flag.Enabled = rollout.variation != nil || experiment.variation != nil
	if rollout.variation != nil {
		flag.RolloutKey = rollout.campaign.Key
		flag.RolloutVariation = rollout.variation.Name
	}
	if experiment.variation != nil {
		flag.ExperimentKey = experiment.campaign.Key
		flag.ExperimentVariation = experiment.variation.Name
	}
	flag.Variables = effectiveVariables(feature, rollout.variation, experiment.variation)

	o.persist(ctx, featureKey, user.ID, rollout, experiment)
	o.emitImpressions(snap, feature, user, experiment, flag.Enabled)
	return flag
}

// assignment pairs a campaign with the variation chosen from it. fresh
// marks assignments made this call, as opposed to replayed stored ones.
type assignment struct {
	campaign  *settings.Campaign
	variation *settings.Variation
	fresh     bool
}

// evaluate runs the rollout and experiment phases. A stored experiment
// assignment that is still valid under the current settings short-circuits
// both phases. A stored rollout assignment is replayed but experiments are
// still evaluated fresh, so a user enabled by rollout before an experiment
// launched still joins it.
func (o *Orchestrator) evaluate(ctx context.Context, snap *settings.Settings, feature *settings.Feature, user *UserContext, stored *storage.Record, pass *passState) (rollout, experiment assignment) {
	if stored != nil {
		rollout = o.replayRollout(snap, stored)
		if rollout.variation != nil && !o.revalidate(ctx, snap, rollout.campaign, user, pass) {
			rollout = assignment{}
		}
		if exp := o.replayExperiment(snap, stored); exp.variation != nil {
			if o.revalidate(ctx, snap, exp.campaign, user, pass) {
				return rollout, exp
			}
		}
	}

	if rollout.variation == nil {
		rollout = o.rolloutPhase(ctx, snap, feature, user, pass)
		if len(feature.RulesOfType(settings.RuleRollout)) > 0 && rollout.variation == nil {
			return rollout, experiment
		}
	}

	experiment = o.experimentPhase(ctx, snap, feature, user, pass)
	return rollout, experiment
}

// revalidate re-runs the admission checks for a replayed assignment when the
// campaign demands it. Most campaigns honor stickiness unconditionally;
// IsAlwaysCheckSegment ones must still match the audience on every call.
func (o *Orchestrator) revalidate(ctx context.Context, snap *settings.Settings, c *settings.Campaign, user *UserContext, pass *passState) bool {
	if !c.IsAlwaysCheckSegment {
		return true
	}
	return o.rules.Evaluate(ctx, snap, c, user, pass).PreSegmentationPassed
}

// replayRollout restores a stored rollout assignment, dropping it when the
// campaign or variation no longer exists in the current settings.
func (o *Orchestrator) replayRollout(snap *settings.Settings, stored *storage.Record) assignment {
	if !stored.HasRollout() {
		return assignment{}
	}
	c := snap.CampaignByID(stored.RolloutID)
	if c == nil {
		o.log.Debug("stored rollout campaign gone, re-evaluating",
			"feature_key", stored.FeatureKey, "campaign_id", stored.RolloutID)
		return assignment{}
	}
	v := c.VariationByID(stored.RolloutVariationID)
	if v == nil {
		return assignment{}
	}
	return assignment{campaign: c, variation: v}
}

// replayExperiment restores a stored experiment assignment under the same
// validity rules as replayRollout.
func (o *Orchestrator) replayExperiment(snap *settings.Settings, stored *storage.Record) assignment {
	if !stored.HasExperiment() {
		return assignment{}
	}
	c := snap.CampaignByID(stored.ExperimentID)
	if c == nil {
		o.log.Debug("stored experiment campaign gone, re-evaluating",
			"feature_key", stored.FeatureKey, "campaign_id", stored.ExperimentID)
		return assignment{}
	}
	v := c.VariationByID(stored.ExperimentVariationID)
	if v == nil {
		return assignment{}
	}
	return assignment{campaign: c, variation: v}
}

// rolloutPhase walks rollout rules in declared order and stops at the first
// rule whose segmentation admits the user, whether or not traffic then
// admits them. A feature with no rollout rules passes through implicitly.
func (o *Orchestrator) rolloutPhase(ctx context.Context, snap *settings.Settings, feature *settings.Feature, user *UserContext, pass *passState) assignment {
	for _, rule := range feature.RulesOfType(settings.RuleRollout) {
		c := snap.CampaignByID(rule.CampaignID)
		if c == nil || !c.Running() {
			continue
		}
		res := o.rules.Evaluate(ctx, snap, c, user, pass)
		if !res.PreSegmentationPassed {
			continue
		}
		if res.Whitelisted != nil {
			return assignment{campaign: c, variation: res.Whitelisted, fresh: true}
		}
		if v := AllocateVariation(c, user.ID); v != nil {
			return assignment{campaign: c, variation: v, fresh: true}
		}
		// Segmentation admitted the user but traffic did not; later rollout
		// rules are not consulted.
		return assignment{}
	}
	return assignment{}
}

// experimentPhase mirrors rolloutPhase for experiment rules.
func (o *Orchestrator) experimentPhase(ctx context.Context, snap *settings.Settings, feature *settings.Feature, user *UserContext, pass *passState) assignment {
	for _, rule := range feature.RulesOfType(settings.RuleExperiment) {
		c := snap.CampaignByID(rule.CampaignID)
		if c == nil || !c.Running() {
			continue
		}
		res := o.rules.Evaluate(ctx, snap, c, user, pass)
		if !res.PreSegmentationPassed {
			continue
		}
		if res.Whitelisted != nil {
			return assignment{campaign: c, variation: res.Whitelisted, fresh: true}
		}
		if v := AllocateVariation(c, user.ID); v != nil {
			return assignment{campaign: c, variation: v, fresh: true}
		}
		return assignment{}
	}
	return assignment{}
}

// storedRecord fetches the persisted decision, treating every storage
// failure as a cache miss.
func (o *Orchestrator) storedRecord(ctx context.Context, featureKey, userID string) *storage.Record {
	if o.store == nil {
		return nil
	}
	rec, err := o.store.Get(ctx, featureKey, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.log.Warn("decision store read failed, evaluating fresh",
				"feature_key", featureKey, "user_id", userID, "error", err)
		}
		return nil
	}
	return rec
}

// persist writes the combined decision back when anything was freshly
// decided this call. Replayed stored assignments ride along so the record
// stays complete.
func (o *Orchestrator) persist(ctx context.Context, featureKey, userID string, rollout, experiment assignment) {
	if o.store == nil || (!rollout.fresh && !experiment.fresh) {
		return
	}
	rec := &storage.Record{FeatureKey: featureKey, UserID: userID}
	if rollout.variation != nil {
		rec.RolloutID = rollout.campaign.ID
		rec.RolloutKey = rollout.campaign.Key
		rec.RolloutVariationID = rollout.variation.ID
	}
	if experiment.variation != nil {
		rec.ExperimentID = experiment.campaign.ID
		rec.ExperimentKey = experiment.campaign.Key
		rec.ExperimentVariationID = experiment.variation.ID
	}
	if err := o.store.Set(ctx, rec); err != nil {
		o.log.Warn("decision store write failed",
			"feature_key", featureKey, "user_id", userID, "error", err)
	}
}

// emitImpressions reports a fresh experiment assignment and, when the
// feature has an impact campaign, a holdout impression on every call.
func (o *Orchestrator) emitImpressions(snap *settings.Settings, feature *settings.Feature, user *UserContext, experiment assignment, enabled bool) {
	if o.tracker == nil {
		return
	}
	if experiment.fresh && experiment.variation != nil {
		o.dispatch(events.Impression{
			EventName:   events.EventVariationShown,
			AccountID:   snap.AccountID,
			UserID:      user.ID,
			CampaignID:  experiment.campaign.ID,
			VariationID: experiment.variation.ID,
		})
	}
	if ic := feature.ImpactCampaign; ic != nil {
		// The impact group observes enablement only: variation 2 marks an
		// enabled outcome, variation 1 a disabled one.
		variationID := 1
		if enabled {
			variationID = 2
		}
		o.dispatch(events.Impression{
			EventName:   events.EventVariationShown,
			AccountID:   snap.AccountID,
			UserID:      user.ID,
			CampaignID:  ic.CampaignID,
			VariationID: variationID,
		})
	}
}

func (o *Orchestrator) dispatch(imp events.Impression) {
	if err := o.tracker.Dispatch(imp); err != nil {
		o.log.Warn("impression dispatch failed",
			"event", imp.EventName, "user_id", imp.UserID, "error", err)
	}
}

// effectiveVariables layers feature defaults under the assigned variations.
func effectiveVariables(feature *settings.Feature, rollout, experiment *settings.Variation) []*settings.Variable {
	layers := [][]*settings.Variable{feature.Variables}
	if rollout != nil {
		layers = append(layers, rollout.Variables)
	}
	if experiment != nil {
		layers = append(layers, experiment.Variables)
	}
	return mergeVariables(layers...)
}
