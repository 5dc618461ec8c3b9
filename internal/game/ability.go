package game

import (
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/mage-engine-go/internal/game/effects"
	"github.com/magefree/mage-engine-go/internal/game/mana"
	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
	"github.com/magefree/mage-engine-go/internal/game/targeting"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// AbilityKind is the variant of an ability.
type AbilityKind string

const (
	AbilityStatic    AbilityKind = "STATIC"
	AbilityTriggered AbilityKind = "TRIGGERED"
	AbilityActivated AbilityKind = "ACTIVATED"
	AbilitySpell     AbilityKind = "SPELL"
)

// Ability is a template bound to a source object. Card definitions hold
// unbound templates; the game binds a copy to every object it creates.
type Ability interface {
	ID() string
	SourceID() string
	Kind() AbilityKind
	Text() string
	// Zone is where the ability functions.
	Zone() object.Zone
	// Copy clones the ability keeping its identity. Mutable parts (targets,
	// costs, effects) are deep copied; templates are shared.
	Copy() Ability

	bind(id, sourceID string)
}

type abilityBase struct {
	id       string
	sourceID string
	zone     object.Zone
	text     string
}

func (b *abilityBase) ID() string        { return b.id }
func (b *abilityBase) SourceID() string  { return b.sourceID }
func (b *abilityBase) Zone() object.Zone { return b.zone }
func (b *abilityBase) Text() string      { return b.text }

func (b *abilityBase) bind(id, sourceID string) {
	b.id = id
	b.sourceID = sourceID
}

// ContinuousFactory builds a continuous effect for a static ability's source.
type ContinuousFactory func(src values.Source) effects.ContinuousEffect

// ReplacementFactory builds a replacement effect for a static ability's source.
type ReplacementFactory func(src values.Source) effects.ReplacementEffect

// RuleFactory builds a rule-modifying effect for a static ability's source.
type RuleFactory func(src values.Source) effects.RuleModifyingEffect

// StaticAbility generates effects for as long as its object is in the zone it
// functions in. Keywords are static abilities without effects.
type StaticAbility struct {
	abilityBase
	continuous   []ContinuousFactory
	replacements []ReplacementFactory
	rules        []RuleFactory
}

// NewStaticAbility creates a static ability functioning in zone.
func NewStaticAbility(zone object.Zone, text string) *StaticAbility {
	return &StaticAbility{abilityBase: abilityBase{zone: zone, text: text}}
}

// Keyword creates a keyword ability such as Flying or Haste.
func Keyword(name string) *StaticAbility {
	return NewStaticAbility(object.ZoneBattlefield, name)
}

func (a *StaticAbility) WithContinuous(f ...ContinuousFactory) *StaticAbility {
	a.continuous = append(a.continuous, f...)
	return a
}

func (a *StaticAbility) WithReplacement(f ...ReplacementFactory) *StaticAbility {
	a.replacements = append(a.replacements, f...)
	return a
}

func (a *StaticAbility) WithRule(f ...RuleFactory) *StaticAbility {
	a.rules = append(a.rules, f...)
	return a
}

func (a *StaticAbility) Kind() AbilityKind { return AbilityStatic }

func (a *StaticAbility) Copy() Ability {
	cp := *a
	cp.continuous = slices.Clone(a.continuous)
	cp.replacements = slices.Clone(a.replacements)
	cp.rules = slices.Clone(a.rules)
	return &cp
}

// TriggerCheck decides whether an event triggers an ability. It must not change the game.
type TriggerCheck func(g *Game, src values.Source, event rules.Event) bool

// TriggeredAbility goes on the stack when its trigger event happens.
type TriggeredAbility struct {
	abilityBase
	check     TriggerCheck
	condition values.Condition
	optional  bool
	lookBack  bool
	effects   []Effect
	targets   []targeting.TargetRequirement
}

// NewTriggeredAbility creates a triggered ability functioning in zone.
func NewTriggeredAbility(zone object.Zone, text string, check TriggerCheck, effs ...Effect) *TriggeredAbility {
	return &TriggeredAbility{abilityBase: abilityBase{zone: zone, text: text}, check: check, effects: effs}
}

// WithCondition adds an intervening "if" clause, checked when the ability
// triggers and again when it resolves.
func (a *TriggeredAbility) WithCondition(c values.Condition) *TriggeredAbility {
	a.condition = c
	return a
}

func (a *TriggeredAbility) WithTargets(reqs ...targeting.TargetRequirement) *TriggeredAbility {
	a.targets = append(a.targets, reqs...)
	return a
}

// AsOptional makes the effect a "you may" choice made on resolution.
func (a *TriggeredAbility) AsOptional() *TriggeredAbility {
	a.optional = true
	return a
}

// AsLookBack marks a leaves-the-battlefield ability: it triggers from the
// object's last known information after the object has left.
func (a *TriggeredAbility) AsLookBack() *TriggeredAbility {
	a.lookBack = true
	return a
}

func (a *TriggeredAbility) Kind() AbilityKind { return AbilityTriggered }
func (a *TriggeredAbility) Optional() bool    { return a.optional }

func (a *TriggeredAbility) Copy() Ability {
	cp := *a
	cp.effects = copyEffects(a.effects)
	cp.targets = slices.Clone(a.targets)
	return &cp
}

// Timing restricts when an activated ability can be activated.
type Timing int

const (
	TimingInstant Timing = iota
	TimingSorcery
)

// ActivatedAbility is activated by its controller paying its costs.
type ActivatedAbility struct {
	abilityBase
	costs       []Cost
	effects     []Effect
	targets     []targeting.TargetRequirement
	timing      Timing
	manaAbility bool
	condition   values.Condition
}

// NewActivatedAbility creates an activated ability functioning in zone.
func NewActivatedAbility(zone object.Zone, text string, costs []Cost, effs ...Effect) *ActivatedAbility {
	return &ActivatedAbility{abilityBase: abilityBase{zone: zone, text: text}, costs: costs, effects: effs}
}

// NewManaAbility creates "{T}: Add one mana of type t." Mana abilities resolve immediately.
func NewManaAbility(t mana.ManaType) *ActivatedAbility {
	a := NewActivatedAbility(object.ZoneBattlefield, "{T}: Add {"+string(t)+"}.", []Cost{TapSource{}}, AddMana{Type: t, Amount: 1})
	a.manaAbility = true
	return a
}

func (a *ActivatedAbility) WithTargets(reqs ...targeting.TargetRequirement) *ActivatedAbility {
	a.targets = append(a.targets, reqs...)
	return a
}

// WithCondition restricts activation to when c holds.
func (a *ActivatedAbility) WithCondition(c values.Condition) *ActivatedAbility {
	a.condition = c
	return a
}

// SorcerySpeed allows activation only when a sorcery could be cast.
func (a *ActivatedAbility) SorcerySpeed() *ActivatedAbility {
	a.timing = TimingSorcery
	return a
}

func (a *ActivatedAbility) Kind() AbilityKind   { return AbilityActivated }
func (a *ActivatedAbility) IsManaAbility() bool { return a.manaAbility }

func (a *ActivatedAbility) Copy() Ability {
	cp := *a
	cp.costs = make([]Cost, len(a.costs))
	for i, c := range a.costs {
		cp.costs[i] = c.Copy()
	}
	cp.effects = copyEffects(a.effects)
	cp.targets = slices.Clone(a.targets)
	return &cp
}

// SpellAbility is what an instant or sorcery does on resolution. Permanent
// spells have a spell ability without effects.
type SpellAbility struct {
	abilityBase
	effects []Effect
	targets []targeting.TargetRequirement
}

// NewSpellAbility creates the spell ability of a card.
func NewSpellAbility(text string, effs ...Effect) *SpellAbility {
	return &SpellAbility{abilityBase: abilityBase{zone: object.ZoneHand, text: text}, effects: effs}
}

func (a *SpellAbility) WithTargets(reqs ...targeting.TargetRequirement) *SpellAbility {
	a.targets = append(a.targets, reqs...)
	return a
}

func (a *SpellAbility) Kind() AbilityKind { return AbilitySpell }

func (a *SpellAbility) Copy() Ability {
	cp := *a
	cp.effects = copyEffects(a.effects)
	cp.targets = slices.Clone(a.targets)
	return &cp
}

func copyEffects(effs []Effect) []Effect {
	if effs == nil {
		return nil
	}
	out := make([]Effect, len(effs))
	for i, e := range effs {
		out[i] = e.Copy()
	}
	return out
}

// resolvable is implemented by abilities that put effects on the stack.
type resolvable interface {
	Ability
	resolution() ([]Effect, []targeting.TargetRequirement)
}

func (a *TriggeredAbility) resolution() ([]Effect, []targeting.TargetRequirement) {
	return a.effects, a.targets
}

func (a *ActivatedAbility) resolution() ([]Effect, []targeting.TargetRequirement) {
	return a.effects, a.targets
}

func (a *SpellAbility) resolution() ([]Effect, []targeting.TargetRequirement) {
	return a.effects, a.targets
}

// syncKey identifies the state acquired abilities were last synced against.
type syncKey struct {
	layers    int
	timestamp int64
}

const maxSyncPasses = 8

// syncAcquired gives permanents and spells the abilities they have only
// through effects, such as those a copy takes from what it copies, bound to
// the object itself. Abilities an object no longer has are dropped.
func (g *Game) syncAcquired() {
	if g.syncing {
		return
	}
	g.syncing = true
	defer func() { g.syncing = false }()
	for range maxSyncPasses {
		key := syncKey{layers: g.layers.Version(), timestamp: g.timestamp}
		if key == g.synced {
			return
		}
		g.synced = key
		for _, zone := range []object.Zone{object.ZoneBattlefield, object.ZoneStack} {
			for _, id := range g.objectsIn(zone) {
				if c, ok := g.cards[id]; ok {
					g.syncCard(c)
				}
			}
		}
	}
	g.logger.Warn("acquired abilities did not settle", zap.Int("passes", maxSyncPasses))
}

func (g *Game) syncCard(c *Card) {
	var want []string
	if !c.faceDown {
		for _, text := range g.evaluate(c).Abilities {
			if _, ok := g.templates[text]; ok && !c.printed(text) {
				want = append(want, text)
			}
		}
	}
	kept := c.acquired[:0]
	for _, a := range c.acquired {
		if slices.Contains(want, a.Text()) {
			kept = append(kept, a)
			continue
		}
		g.unregisterAbility(c.id, a.ID())
	}
	c.acquired = kept
	for _, text := range want {
		if slices.ContainsFunc(c.acquired, func(a Ability) bool { return a.Text() == text }) {
			continue
		}
		a := g.templates[text].Copy()
		a.bind(g.nextID("ability"), c.id)
		c.acquired = append(c.acquired, a)
		if st, ok := a.(*StaticAbility); ok && st.zone.Includes(c.zone) {
			g.register(c.id, c.controllerID, []Ability{a}, st.zone, c.zoneTimestamp)
		}
		g.logger.Debug("ability acquired",
			zap.String("object_id", c.id),
			zap.String("ability", text))
	}
}

// dropAcquired ends the acquired abilities of an object that stops existing.
func (g *Game) dropAcquired(c *Card) {
	for _, a := range c.acquired {
		g.unregisterAbility(c.id, a.ID())
	}
	c.lastAcquired, c.acquired = c.acquired, nil
}

// abilitiesOf returns the ability instances an object with characteristics s
// has: the printed abilities s still carries, then the acquired ones.
func abilitiesOf(c *Card, s *object.Snapshot, acquired []Ability) []Ability {
	out := make([]Ability, 0, len(c.abilities)+len(acquired))
	for _, a := range c.abilities {
		if a.Kind() == AbilitySpell || a.Text() == "" || s.HasAbility(a.Text()) {
			out = append(out, a)
		}
	}
	for _, a := range acquired {
		if s.HasAbility(a.Text()) {
			out = append(out, a)
		}
	}
	return out
}
