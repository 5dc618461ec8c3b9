package effects

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// ReplacementManager manages all active replacement, prevention and
// rule-modifying effects in a game.
//
// Key responsibilities:
// - Check rule-modifying effects before anything else
// - Apply replacement effects to events in the correct order
// - Prevent effects from applying twice to the same event
// - Give self-replacement effects priority
type ReplacementManager struct {
	replacements []ReplacementEffect
	ruleEffects  []RuleModifyingEffect
	seq          int
	namespace    uuid.UUID
	logger       *zap.Logger
}

// NewReplacementManager creates a new replacement effect manager
func NewReplacementManager(logger *zap.Logger, namespace uuid.UUID) *ReplacementManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementManager{namespace: namespace, logger: logger}
}

func (rm *ReplacementManager) nextID(kind string) string {
	rm.seq++
	return uuid.NewSHA1(rm.namespace, fmt.Appendf(nil, "%s/%d", kind, rm.seq)).String()
}

// AddEffect adds a replacement effect to the manager and returns its id.
func (rm *ReplacementManager) AddEffect(effect ReplacementEffect, timestamp int64) string {
	if effect == nil {
		rm.logger.Warn("attempted to add nil replacement effect")
		return ""
	}
	if effect.ID() == "" {
		effect.setID(rm.nextID("replacement"))
	}
	effect.setTimestamp(timestamp)
	rm.replacements = append(rm.replacements, effect)

	rm.logger.Debug("added replacement effect",
		zap.String("effect_id", effect.ID()),
		zap.String("source_id", effect.SourceID()),
		zap.Bool("self_replacement", effect.IsSelfReplacement()))
	return effect.ID()
}

// AddRuleModifying adds a rule-modifying effect and returns its id.
func (rm *ReplacementManager) AddRuleModifying(effect RuleModifyingEffect, timestamp int64) string {
	if effect == nil {
		return ""
	}
	if effect.ID() == "" {
		effect.setID(rm.nextID("rule"))
	}
	effect.setTimestamp(timestamp)
	rm.ruleEffects = append(rm.ruleEffects, effect)

	rm.logger.Debug("added rule-modifying effect",
		zap.String("effect_id", effect.ID()),
		zap.String("source_id", effect.SourceID()),
		zap.String("text", effect.Text()))
	return effect.ID()
}

// RemoveEffect removes a replacement or rule-modifying effect.
func (rm *ReplacementManager) RemoveEffect(effectID string) {
	rm.replacements = slices.DeleteFunc(rm.replacements, func(e ReplacementEffect) bool { return e.ID() == effectID })
	rm.ruleEffects = slices.DeleteFunc(rm.ruleEffects, func(e RuleModifyingEffect) bool { return e.ID() == effectID })
}

// RemoveBySource removes every effect created by a source.
func (rm *ReplacementManager) RemoveBySource(sourceID string) {
	rm.removeWhere(func(e durable) bool { return e.SourceID() == sourceID })
}

// RemoveSourceBound removes effects that end because their source left the zone.
func (rm *ReplacementManager) RemoveSourceBound(sourceID string, left object.Zone) {
	rm.removeWhere(func(e durable) bool { return e.SourceID() == sourceID && e.Duration().sourceBound(left) })
}

// RemoveExpired removes effects of the given duration.
func (rm *ReplacementManager) RemoveExpired(d Duration) {
	rm.removeWhere(func(e durable) bool { return e.Duration() == d })
}

func (rm *ReplacementManager) removeWhere(match func(durable) bool) {
	rm.replacements = slices.DeleteFunc(rm.replacements, func(e ReplacementEffect) bool { return match(e) })
	rm.ruleEffects = slices.DeleteFunc(rm.ruleEffects, func(e RuleModifyingEffect) bool { return match(e) })
}

// GetEffect retrieves a replacement effect by ID
func (rm *ReplacementManager) GetEffect(effectID string) (ReplacementEffect, bool) {
	i := slices.IndexFunc(rm.replacements, func(e ReplacementEffect) bool { return e.ID() == effectID })
	if i < 0 {
		return nil, false
	}
	return rm.replacements[i], true
}

// ClearEffects removes all effects
func (rm *ReplacementManager) ClearEffects() {
	rm.replacements = nil
	rm.ruleEffects = nil
}

// IsPrevented reports whether a rule-modifying effect forbids the event.
func (rm *ReplacementManager) IsPrevented(env Env, event rules.Event) (RuleModifyingEffect, bool) {
	for _, e := range rm.ruleEffects {
		if e.ChecksEventType(event.Type) && IsActive(env, e) && e.Prevents(env, event) {
			return e, true
		}
	}
	return nil, false
}

// ReplaceEvent applies all applicable effects to an event. It returns the
// event that actually happens and whether the event was prevented or
// completely replaced.
//
// The algorithm:
// 1. Rule-modifying effects are checked; any of them stops the event
// 2. Find the replacement effects that apply and have not applied yet
// 3. Apply a self-replacement effect if there is one, otherwise the oldest
// 4. Repeat until no more effects can apply
func (rm *ReplacementManager) ReplaceEvent(env Env, event rules.Event) (rules.Event, bool) {
	if rule, ok := rm.IsPrevented(env, event); ok {
		rm.logger.Debug("event prevented by rule-modifying effect",
			zap.String("effect_id", rule.ID()),
			zap.String("event_type", string(event.Type)),
			zap.String("target_id", event.TargetID))
		return event, true
	}

	for {
		applicable := rm.findApplicableEffects(env, event)
		if len(applicable) == 0 {
			return event, false
		}
		chosen := applicable[0]

		replaced, completely := chosen.ReplaceEvent(env, event)
		event = replaced.WithApplied(chosen.ID())

		rm.logger.Debug("applied replacement effect",
			zap.String("effect_id", chosen.ID()),
			zap.String("event_type", string(event.Type)),
			zap.Bool("completely_replaced", completely))

		if x, ok := chosen.(interface{ Exhausted() bool }); ok && x.Exhausted() {
			rm.RemoveEffect(chosen.ID())
		} else if chosen.Duration() == DurationOneUse {
			rm.RemoveEffect(chosen.ID())
		}
		if completely {
			return event, true
		}
	}
}

// findApplicableEffects returns the effects that could apply to the event in
// the order they are applied: self-replacement effects first, then timestamp order.
func (rm *ReplacementManager) findApplicableEffects(env Env, event rules.Event) []ReplacementEffect {
	var applicable []ReplacementEffect
	for _, effect := range rm.replacements {
		if event.Applied(effect.ID()) || !effect.ChecksEventType(event.Type) {
			continue
		}
		if !IsActive(env, effect) || !effect.Applies(env, event) {
			continue
		}
		applicable = append(applicable, effect)
	}
	slices.SortStableFunc(applicable, func(a, b ReplacementEffect) int {
		if a.IsSelfReplacement() != b.IsSelfReplacement() {
			if a.IsSelfReplacement() {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Timestamp(), b.Timestamp())
	})
	return applicable
}

// HasApplicableEffects checks if there are any effects that could apply to the given event type
func (rm *ReplacementManager) HasApplicableEffects(eventType rules.EventType) bool {
	for _, effect := range rm.replacements {
		if effect.ChecksEventType(eventType) {
			return true
		}
	}
	for _, effect := range rm.ruleEffects {
		if effect.ChecksEventType(eventType) {
			return true
		}
	}
	return false
}

// Stats returns statistics about the replacement manager
func (rm *ReplacementManager) Stats() ReplacementManagerStats {
	stats := ReplacementManagerStats{
		TotalEffects:       len(rm.replacements) + len(rm.ruleEffects),
		RuleModifyingCount: len(rm.ruleEffects),
	}
	for _, effect := range rm.replacements {
		if effect.IsSelfReplacement() {
			stats.SelfReplacementCount++
		}
		if _, ok := effect.(*PreventDamageEffect); ok {
			stats.PreventionEffectCount++
		}
	}
	return stats
}

// ReplacementManagerStats contains statistics about the replacement manager
type ReplacementManagerStats struct {
	TotalEffects          int
	SelfReplacementCount  int
	PreventionEffectCount int
	RuleModifyingCount    int
}

// String returns a string representation of the stats
func (s ReplacementManagerStats) String() string {
	return fmt.Sprintf("ReplacementManager[total=%d, self=%d, prevention=%d, rules=%d]",
		s.TotalEffects, s.SelfReplacementCount, s.PreventionEffectCount, s.RuleModifyingCount)
}
