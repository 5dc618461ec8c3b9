// Package effects implements continuous, replacement and rule-modifying
// effects and the layer system that applies continuous effects to objects.
//
// Within a layer, effects apply in timestamp order except that an effect
// waits for the effects it depends on. Dependencies that form a cycle are
// not an error: the effects in the cycle apply in timestamp order, the
// evaluation is flagged with DependencyCycle and a warning is logged.
//
// Effects generated by a static ability are tagged with FromAbility. They
// apply only while their source has that ability after the ability layer,
// so removing the ability switches them off in the later layers.
package effects

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/counters"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// Layer corresponds to the comprehensive rules layers for continuous effects.
type Layer int

const (
	LayerCopy Layer = 1 + iota
	LayerControl
	LayerText
	LayerType
	LayerColor
	LayerAbility
	LayerPowerToughness
	LayerRules
)

var layerNames = map[Layer]string{
	LayerCopy:           "copy",
	LayerControl:        "control",
	LayerText:           "text",
	LayerType:           "type",
	LayerColor:          "color",
	LayerAbility:        "ability",
	LayerPowerToughness: "power/toughness",
	LayerRules:          "rules",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layer%d", int(l))
}

// SubLayer orders effects inside a layer. Characteristic-defining effects
// come first in every layer; the rest only matter in layer 7.
type SubLayer int

const (
	SubLayerNA SubLayer = iota
	SubLayerCharacteristicDefining
	SubLayerSetPT
	SubLayerCounters
	SubLayerModifyPT
	SubLayerSwitchPT
)

var subLayerNames = map[SubLayer]string{
	SubLayerNA:                     "",
	SubLayerCharacteristicDefining: "7a",
	SubLayerSetPT:                  "7b",
	SubLayerCounters:               "7c",
	SubLayerModifyPT:               "7d",
	SubLayerSwitchPT:               "7e",
}

func (s SubLayer) String() string { return subLayerNames[s] }

// Outcome tells whether an effect is good or bad for the affected object's controller.
type Outcome int

const (
	OutcomeNeutral Outcome = iota
	OutcomeBenefit
	OutcomeDetriment
)

type bucket struct {
	layer Layer
	sub   SubLayer
}

var bucketOrder = []bucket{
	{LayerCopy, SubLayerCharacteristicDefining}, {LayerCopy, SubLayerNA},
	{LayerControl, SubLayerCharacteristicDefining}, {LayerControl, SubLayerNA},
	{LayerText, SubLayerCharacteristicDefining}, {LayerText, SubLayerNA},
	{LayerType, SubLayerCharacteristicDefining}, {LayerType, SubLayerNA},
	{LayerColor, SubLayerCharacteristicDefining}, {LayerColor, SubLayerNA},
	{LayerAbility, SubLayerCharacteristicDefining}, {LayerAbility, SubLayerNA},
	{LayerPowerToughness, SubLayerCharacteristicDefining},
	{LayerPowerToughness, SubLayerSetPT},
	{LayerPowerToughness, SubLayerCounters},
	{LayerPowerToughness, SubLayerModifyPT},
	{LayerPowerToughness, SubLayerSwitchPT},
	{LayerRules, SubLayerCharacteristicDefining}, {LayerRules, SubLayerNA},
}

// Env is the game as seen by continuous effects.
type Env interface {
	values.Game
	// ZoneOf returns the zone an object is in, ZoneNone if it does not exist.
	ZoneOf(id string) object.Zone
	// CopiableValues returns an object's characteristics after the copy layer.
	CopiableValues(id string) (*object.Snapshot, bool)
	// AbilityValues returns an object's characteristics after the ability
	// layer. An object being evaluated returns its partial result.
	AbilityValues(id string) (*object.Snapshot, bool)
}

// ContinuousEffect modifies the characteristics of objects for as long as it
// is in the layer system.
type ContinuousEffect interface {
	ID() string
	SourceID() string
	ControllerID() string
	Layer() Layer
	SubLayer() SubLayer
	Duration() Duration
	Outcome() Outcome
	Timestamp() int64
	AppliesTo(env Env, s *object.Snapshot) bool
	// Apply changes the working copy. It must not touch game state.
	Apply(env Env, s *object.Snapshot)
	// DependsOn reports a dependency the effect declares on another effect,
	// beyond the ones the layer system detects.
	DependsOn(other ContinuousEffect) bool
	// Copy returns a copy with the same identity.
	Copy() ContinuousEffect
	Text() string

	setID(id string)
	setTimestamp(ts int64)
	forget(objectID string) bool
}

// Evaluation is the result of applying the layer system to one object.
type Evaluation struct {
	Snapshot *object.Snapshot
	// Applied lists the ids of the effects that applied, in application order.
	Applied []string
	// DependencyCycle is set when dependencies could not be ordered and
	// timestamp order was used instead.
	DependencyCycle bool
	// Reentrant is set when the object was already being evaluated and the
	// partial result of that evaluation was returned.
	Reentrant bool
}

// LayerSystem holds the continuous effects of one game and derives current
// characteristics from them. It is owned by the game and is not safe for
// concurrent use.
type LayerSystem struct {
	effects    []ContinuousEffect
	seq        int
	version    int
	namespace  uuid.UUID
	inProgress map[string]*object.Snapshot
	logger     *zap.Logger
}

// NewLayerSystem constructs an empty layer system. Effect ids are derived from
// namespace so that a replayed game produces the same ids.
func NewLayerSystem(logger *zap.Logger, namespace uuid.UUID) *LayerSystem {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayerSystem{
		namespace:  namespace,
		inProgress: make(map[string]*object.Snapshot),
		logger:     logger,
	}
}

// AddEffect registers an effect with the given timestamp and returns its id.
func (ls *LayerSystem) AddEffect(effect ContinuousEffect, timestamp int64) string {
	if effect == nil {
		return ""
	}
	ls.seq++
	if effect.ID() == "" {
		effect.setID(uuid.NewSHA1(ls.namespace, fmt.Appendf(nil, "continuous/%d", ls.seq)).String())
	}
	effect.setTimestamp(timestamp)
	ls.effects = append(ls.effects, effect)
	ls.version++
	ls.logger.Debug("added continuous effect",
		zap.String("effect_id", effect.ID()),
		zap.String("source_id", effect.SourceID()),
		zap.Stringer("layer", effect.Layer()),
		zap.Int64("timestamp", timestamp))
	return effect.ID()
}

// RemoveEffect removes a registered effect by ID.
func (ls *LayerSystem) RemoveEffect(id string) {
	ls.removeWhere(func(e ContinuousEffect) bool { return e.ID() == id })
}

// RemoveBySource removes every effect created by a source.
func (ls *LayerSystem) RemoveBySource(sourceID string) int {
	return ls.removeWhere(func(e ContinuousEffect) bool { return e.SourceID() == sourceID })
}

// Effects returns the registered effects in registration order.
func (ls *LayerSystem) Effects() []ContinuousEffect {
	return slices.Clone(ls.effects)
}

// Get finds an effect by id.
func (ls *LayerSystem) Get(id string) (ContinuousEffect, bool) {
	i := slices.IndexFunc(ls.effects, func(e ContinuousEffect) bool { return e.ID() == id })
	if i < 0 {
		return nil, false
	}
	return ls.effects[i], true
}

// Len returns the number of registered effects.
func (ls *LayerSystem) Len() int { return len(ls.effects) }

// Version changes whenever an effect is added or removed.
func (ls *LayerSystem) Version() int { return ls.version }

// Evaluate derives the current characteristics of an object from its base
// state. base is not modified.
func (ls *LayerSystem) Evaluate(env Env, base *object.Snapshot) Evaluation {
	return ls.evaluate(env, base, bucket{LayerRules, SubLayerNA})
}

// EvaluateThrough applies effects up to and including the given layer and
// sublayer. Copy effects use it to read copiable values. It panics if the
// sublayer does not exist in that layer, e.g. 7b of the copy layer.
func (ls *LayerSystem) EvaluateThrough(env Env, base *object.Snapshot, layer Layer, sub SubLayer) Evaluation {
	last := bucket{layer, sub}
	if !slices.Contains(bucketOrder, last) {
		panic(fmt.Sprintf("effects: layer %s has no sublayer %d", layer, int(sub)))
	}
	return ls.evaluate(env, base, last)
}

func (ls *LayerSystem) evaluate(env Env, base *object.Snapshot, last bucket) Evaluation {
	if base == nil {
		return Evaluation{}
	}
	if working, ok := ls.inProgress[base.ID]; ok {
		return Evaluation{Snapshot: working.Clone(), Reentrant: true}
	}
	working := base.Clone()
	ls.inProgress[base.ID] = working
	defer delete(ls.inProgress, base.ID)

	var result Evaluation
	for _, b := range bucketOrder {
		if b.sub == SubLayerCounters {
			applyCounters(working)
		} else {
			applied, cycle := ls.applyBucket(env, working, b)
			result.Applied = append(result.Applied, applied...)
			if cycle {
				result.DependencyCycle = true
				ls.logger.Warn("dependency cycle between continuous effects, using timestamp order",
					zap.String("object_id", base.ID),
					zap.Stringer("layer", b.layer),
					zap.Stringer("sublayer", b.sub))
			}
		}
		if b == last {
			break
		}
	}
	result.Snapshot = working
	return result
}

func applyCounters(s *object.Snapshot) {
	if !s.HasPT {
		return
	}
	p, t := counters.Boost(s.Counters)
	s.Power += p
	s.Toughness += t
}

// applyBucket applies the effects of one layer and sublayer. Effects are
// taken in timestamp order, except that an effect waits for the effects it
// depends on. When every remaining effect waits on another, timestamp order
// is used and the cycle is reported.
func (ls *LayerSystem) applyBucket(env Env, working *object.Snapshot, b bucket) ([]string, bool) {
	var remaining []ContinuousEffect
	for _, e := range ls.effects {
		if e.Layer() == b.layer && e.SubLayer() == b.sub && IsActive(env, e) {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == 0 {
		return nil, false
	}
	slices.SortStableFunc(remaining, func(x, y ContinuousEffect) int {
		return cmp.Compare(x.Timestamp(), y.Timestamp())
	})

	var applied []string
	cycle := false
	for len(remaining) > 0 {
		pick := -1
		for i, a := range remaining {
			waiting := false
			for j, other := range remaining {
				if i == j || !ls.dependsOn(env, working, a, other) {
					continue
				}
				if ls.dependsOn(env, working, other, a) {
					cycle = true
					continue
				}
				waiting = true
				break
			}
			if !waiting {
				pick = i
				break
			}
		}
		if pick < 0 {
			cycle = true
			pick = 0
		}
		e := remaining[pick]
		remaining = slices.Delete(remaining, pick, pick+1)
		if e.AppliesTo(env, working) {
			e.Apply(env, working)
			applied = append(applied, e.ID())
		}
	}
	return applied, cycle
}

// dependsOn reports whether a depends on b for the object being evaluated:
// applying b changes whether a applies, or a declares the dependency.
func (ls *LayerSystem) dependsOn(env Env, working *object.Snapshot, a, b ContinuousEffect) bool {
	if a.DependsOn(b) {
		return true
	}
	if !b.AppliesTo(env, working) {
		return false
	}
	trial := working.Clone()
	b.Apply(env, trial)
	return a.AppliesTo(env, working) != a.AppliesTo(env, trial)
}

func (ls *LayerSystem) removeWhere(match func(ContinuousEffect) bool) int {
	before := len(ls.effects)
	ls.effects = slices.DeleteFunc(ls.effects, match)
	removed := before - len(ls.effects)
	if removed > 0 {
		ls.version++
	}
	return removed
}
