package effects

import (
	"fmt"
	"slices"
	"strings"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/values"
)

// Scope selects the objects a continuous effect applies to.
type Scope struct {
	// SourceOnly restricts the effect to its own source.
	SourceOnly bool
	// ObjectIDs locks the effect to specific objects.
	ObjectIDs []string
	Filter    *object.Filter
	// Zone is where affected objects must be; ZoneNone means the battlefield.
	Zone object.Zone
}

// Self is the scope of "this permanent" effects.
func Self() Scope { return Scope{SourceOnly: true} }

// SelfInAllZones is the scope of characteristic-defining abilities.
func SelfInAllZones() Scope { return Scope{SourceOnly: true, Zone: object.ZoneAll} }

// Objects locks an effect to the given objects.
func Objects(ids ...string) Scope { return Scope{ObjectIDs: ids} }

// Matching is the scope of "all creatures you control" style effects.
func Matching(filter *object.Filter) Scope { return Scope{Filter: filter} }

// Matches reports whether s is in scope.
func (sc Scope) Matches(s *object.Snapshot, ctx object.FilterContext) bool {
	if s == nil {
		return false
	}
	zone := sc.Zone
	if zone == object.ZoneNone {
		zone = object.ZoneBattlefield
	}
	if !zone.Includes(s.Zone) {
		return false
	}
	if sc.SourceOnly && s.ID != ctx.SourceID {
		return false
	}
	if len(sc.ObjectIDs) > 0 && !slices.Contains(sc.ObjectIDs, s.ID) {
		return false
	}
	return sc.Filter.Match(s, ctx)
}

// Copy returns a deep copy.
func (sc Scope) Copy() Scope {
	sc.ObjectIDs = slices.Clone(sc.ObjectIDs)
	return sc
}

// Base carries the bookkeeping shared by continuous effects. Effects embed it
// and implement Apply, Copy and Text.
type Base struct {
	id           string
	sourceID     string
	controllerID string
	layer        Layer
	sub          SubLayer
	duration     Duration
	outcome      Outcome
	timestamp    int64
	scope        Scope
	dependsOn    []string
	ability      string
}

// NewBase creates the shared part of a continuous effect.
func NewBase(sourceID, controllerID string, layer Layer, sub SubLayer, duration Duration, scope Scope) Base {
	return Base{
		sourceID:     sourceID,
		controllerID: controllerID,
		layer:        layer,
		sub:          sub,
		duration:     duration,
		scope:        scope,
	}
}

func (b *Base) ID() string           { return b.id }
func (b *Base) SourceID() string     { return b.sourceID }
func (b *Base) ControllerID() string { return b.controllerID }
func (b *Base) Layer() Layer         { return b.layer }
func (b *Base) SubLayer() SubLayer   { return b.sub }
func (b *Base) Duration() Duration   { return b.duration }
func (b *Base) Outcome() Outcome     { return b.outcome }
func (b *Base) Timestamp() int64     { return b.timestamp }
func (b *Base) Scope() Scope         { return b.scope }

// SourceAbility is the text of the static ability that generates the effect,
// empty for effects of resolved spells and abilities.
func (b *Base) SourceAbility() string { return b.ability }

// SetOutcome records whether the effect helps or hurts the affected objects.
func (b *Base) SetOutcome(o Outcome) { b.outcome = o }

// DeclareDependency makes the effect wait for another effect in the same layer.
func (b *Base) DeclareDependency(effectID string) { b.dependsOn = append(b.dependsOn, effectID) }

func (b *Base) DependsOn(other ContinuousEffect) bool {
	return slices.Contains(b.dependsOn, other.ID())
}

// AppliesTo checks the effect's scope against the working copy.
func (b *Base) AppliesTo(_ Env, s *object.Snapshot) bool {
	return b.scope.Matches(s, b.filterContext())
}

// LockTo narrows the scope to the given objects, used when a resolving
// spell fixes the set of affected objects.
func (b *Base) LockTo(ids []string) {
	b.scope.ObjectIDs = slices.Clone(ids)
	b.scope.Filter = nil
}

func (b *Base) source() values.Source {
	return values.Source{ID: b.sourceID, ControllerID: b.controllerID}
}

func (b *Base) filterContext() object.FilterContext {
	return object.FilterContext{SourceID: b.sourceID, ControllerID: b.controllerID}
}

func (b *Base) copyBase() Base {
	cp := *b
	cp.scope = b.scope.Copy()
	cp.dependsOn = slices.Clone(b.dependsOn)
	return cp
}

func (b *Base) setID(id string)              { b.id = id }
func (b *Base) setTimestamp(ts int64)        { b.timestamp = ts }
func (b *Base) setSourceAbility(text string) { b.ability = text }

func (b *Base) forget(objectID string) bool {
	if len(b.scope.ObjectIDs) == 0 {
		return false
	}
	b.scope.ObjectIDs = slices.DeleteFunc(b.scope.ObjectIDs, func(id string) bool { return id == objectID })
	return len(b.scope.ObjectIDs) == 0
}

// CopyMode selects what a copy effect copies.
type CopyMode int

const (
	// CopyCopiableValues copies the printed values as modified by other copy
	// effects, which is what the rules call copiable values.
	CopyCopiableValues CopyMode = iota
	// CopyCurrentCharacteristics copies the fully evaluated object.
	CopyCurrentCharacteristics
)

// CopyEffect makes objects copies of another object (layer 1).
type CopyEffect struct {
	Base
	CopiedID string
	Mode     CopyMode
}

// NewCopyEffect makes the source a copy of copiedID.
func NewCopyEffect(sourceID, controllerID, copiedID string, duration Duration) *CopyEffect {
	return &CopyEffect{
		Base:     NewBase(sourceID, controllerID, LayerCopy, SubLayerNA, duration, Self()),
		CopiedID: copiedID,
	}
}

func (e *CopyEffect) Apply(env Env, s *object.Snapshot) {
	var copied *object.Snapshot
	var ok bool
	if e.Mode == CopyCurrentCharacteristics {
		copied, ok = env.Object(e.CopiedID)
	} else {
		copied, ok = env.CopiableValues(e.CopiedID)
	}
	if !ok || copied == nil {
		return
	}
	s.Characteristics = copied.Characteristics.Clone()
}

func (e *CopyEffect) Copy() ContinuousEffect {
	return &CopyEffect{Base: e.copyBase(), CopiedID: e.CopiedID, Mode: e.Mode}
}

func (e *CopyEffect) Text() string { return "becomes a copy of " + e.CopiedID }

// GainControlEffect changes the controller of objects (layer 2).
type GainControlEffect struct {
	Base
	NewControllerID string
}

func NewGainControlEffect(sourceID, controllerID string, scope Scope, duration Duration) *GainControlEffect {
	return &GainControlEffect{
		Base:            NewBase(sourceID, controllerID, LayerControl, SubLayerNA, duration, scope),
		NewControllerID: controllerID,
	}
}

func (e *GainControlEffect) Apply(_ Env, s *object.Snapshot) { s.ControllerID = e.NewControllerID }

func (e *GainControlEffect) Copy() ContinuousEffect {
	return &GainControlEffect{Base: e.copyBase(), NewControllerID: e.NewControllerID}
}

func (e *GainControlEffect) Text() string { return "gain control" }

// TextChangeEffect replaces a word in rules text and subtypes (layer 3).
type TextChangeEffect struct {
	Base
	From string
	To   string
}

func NewTextChangeEffect(sourceID, controllerID, from, to string, scope Scope, duration Duration) *TextChangeEffect {
	return &TextChangeEffect{
		Base: NewBase(sourceID, controllerID, LayerText, SubLayerNA, duration, scope),
		From: from,
		To:   to,
	}
}

func (e *TextChangeEffect) Apply(_ Env, s *object.Snapshot) {
	s.Text = strings.ReplaceAll(s.Text, e.From, e.To)
	for i, sub := range s.Subtypes {
		if sub == e.From {
			s.Subtypes[i] = e.To
		}
	}
}

func (e *TextChangeEffect) Copy() ContinuousEffect {
	return &TextChangeEffect{Base: e.copyBase(), From: e.From, To: e.To}
}

func (e *TextChangeEffect) Text() string {
	return fmt.Sprintf("change the text by replacing all instances of %s with %s", e.From, e.To)
}

// AddTypeEffect adds card types and subtypes (layer 4).
type AddTypeEffect struct {
	Base
	Types    []object.CardType
	Subtypes []string
}

func NewAddTypeEffect(sourceID, controllerID string, scope Scope, duration Duration, types []object.CardType, subtypes ...string) *AddTypeEffect {
	return &AddTypeEffect{
		Base:     NewBase(sourceID, controllerID, LayerType, SubLayerNA, duration, scope),
		Types:    types,
		Subtypes: subtypes,
	}
}

func (e *AddTypeEffect) Apply(_ Env, s *object.Snapshot) {
	for _, t := range e.Types {
		s.AddType(t)
	}
	for _, sub := range e.Subtypes {
		s.AddSubtype(sub)
	}
}

func (e *AddTypeEffect) Copy() ContinuousEffect {
	return &AddTypeEffect{Base: e.copyBase(), Types: slices.Clone(e.Types), Subtypes: slices.Clone(e.Subtypes)}
}

func (e *AddTypeEffect) Text() string {
	parts := make([]string, 0, len(e.Types)+len(e.Subtypes))
	for _, t := range e.Types {
		parts = append(parts, string(t))
	}
	parts = append(parts, e.Subtypes...)
	return "becomes " + strings.Join(parts, " ") + " in addition to its other types"
}

// BecomeCreature returns the effects of "becomes an X/Y creature": a type
// change in layer 4 and a power/toughness setting in layer 7b.
func BecomeCreature(sourceID, controllerID string, scope Scope, duration Duration, power, toughness int, subtypes ...string) []ContinuousEffect {
	typ := NewAddTypeEffect(sourceID, controllerID, scope, duration, []object.CardType{object.TypeCreature}, subtypes...)
	pt := NewSetPowerToughnessEffect(sourceID, controllerID, scope.Copy(), duration,
		values.Static(power), values.Static(toughness))
	return []ContinuousEffect{typ, pt}
}

// SetColorEffect sets the colors of objects (layer 5).
type SetColorEffect struct {
	Base
	Colors object.Color
}

func NewSetColorEffect(sourceID, controllerID string, colors object.Color, scope Scope, duration Duration) *SetColorEffect {
	return &SetColorEffect{
		Base:   NewBase(sourceID, controllerID, LayerColor, SubLayerNA, duration, scope),
		Colors: colors,
	}
}

func (e *SetColorEffect) Apply(_ Env, s *object.Snapshot) { s.Colors = e.Colors }

func (e *SetColorEffect) Copy() ContinuousEffect {
	return &SetColorEffect{Base: e.copyBase(), Colors: e.Colors}
}

func (e *SetColorEffect) Text() string { return "becomes " + e.Colors.String() }

// GainAbilityEffect grants an ability (layer 6).
type GainAbilityEffect struct {
	Base
	Ability string
}

func NewGainAbilityEffect(sourceID, controllerID, ability string, scope Scope, duration Duration) *GainAbilityEffect {
	return &GainAbilityEffect{
		Base:    NewBase(sourceID, controllerID, LayerAbility, SubLayerNA, duration, scope),
		Ability: ability,
	}
}

func (e *GainAbilityEffect) Apply(_ Env, s *object.Snapshot) { s.AddAbility(e.Ability) }

func (e *GainAbilityEffect) Copy() ContinuousEffect {
	return &GainAbilityEffect{Base: e.copyBase(), Ability: e.Ability}
}

func (e *GainAbilityEffect) Text() string { return "gains " + e.Ability }

// LoseAllAbilitiesEffect removes every ability (layer 6).
type LoseAllAbilitiesEffect struct {
	Base
}

func NewLoseAllAbilitiesEffect(sourceID, controllerID string, scope Scope, duration Duration) *LoseAllAbilitiesEffect {
	return &LoseAllAbilitiesEffect{Base: NewBase(sourceID, controllerID, LayerAbility, SubLayerNA, duration, scope)}
}

func (e *LoseAllAbilitiesEffect) Apply(_ Env, s *object.Snapshot) { s.Abilities = nil }

func (e *LoseAllAbilitiesEffect) Copy() ContinuousEffect {
	return &LoseAllAbilitiesEffect{Base: e.copyBase()}
}

func (e *LoseAllAbilitiesEffect) Text() string { return "loses all abilities" }

// SetPowerToughnessEffect sets power and/or toughness, in layer 7a when it is
// a characteristic-defining ability and 7b otherwise. A nil value leaves that
// characteristic alone. Values are computed every time the effect applies.
type SetPowerToughnessEffect struct {
	Base
	Power     values.DynamicValue
	Toughness values.DynamicValue
}

func NewSetPowerToughnessEffect(sourceID, controllerID string, scope Scope, duration Duration, power, toughness values.DynamicValue) *SetPowerToughnessEffect {
	return &SetPowerToughnessEffect{
		Base:      NewBase(sourceID, controllerID, LayerPowerToughness, SubLayerSetPT, duration, scope),
		Power:     power,
		Toughness: toughness,
	}
}

// NewSetPowerToughnessSourceEffect is the characteristic-defining ability
// "~'s power and toughness are each equal to X". It functions in all zones.
func NewSetPowerToughnessSourceEffect(sourceID, controllerID string, value values.DynamicValue) *SetPowerToughnessEffect {
	return &SetPowerToughnessEffect{
		Base:      NewBase(sourceID, controllerID, LayerPowerToughness, SubLayerCharacteristicDefining, DurationEndOfGame, SelfInAllZones()),
		Power:     value,
		Toughness: value.Copy(),
	}
}

// NewSetToughnessSourceEffect sets only the source's toughness (layer 7b).
func NewSetToughnessSourceEffect(sourceID, controllerID string, toughness values.DynamicValue, duration Duration) *SetPowerToughnessEffect {
	return NewSetPowerToughnessEffect(sourceID, controllerID, Self(), duration, nil, toughness)
}

func (e *SetPowerToughnessEffect) Apply(env Env, s *object.Snapshot) {
	src := e.source()
	if e.Power != nil {
		s.Power = e.Power.Calculate(env, src)
	}
	if e.Toughness != nil {
		s.Toughness = e.Toughness.Calculate(env, src)
	}
	s.HasPT = true
}

func (e *SetPowerToughnessEffect) Copy() ContinuousEffect {
	cp := &SetPowerToughnessEffect{Base: e.copyBase()}
	if e.Power != nil {
		cp.Power = e.Power.Copy()
	}
	if e.Toughness != nil {
		cp.Toughness = e.Toughness.Copy()
	}
	return cp
}

func (e *SetPowerToughnessEffect) Text() string {
	switch {
	case e.Power == nil && e.Toughness != nil:
		return "toughness is equal to the number of " + e.Toughness.Message()
	case e.Power != nil && e.Toughness != nil && e.sub == SubLayerCharacteristicDefining:
		return "power and toughness are each equal to the number of " + e.Power.Message()
	}
	return "has base power and toughness"
}

// BoostEffect modifies power and toughness (layer 7d).
type BoostEffect struct {
	Base
	Power     values.DynamicValue
	Toughness values.DynamicValue
}

func NewBoostEffect(sourceID, controllerID string, scope Scope, duration Duration, power, toughness values.DynamicValue) *BoostEffect {
	e := &BoostEffect{
		Base:      NewBase(sourceID, controllerID, LayerPowerToughness, SubLayerModifyPT, duration, scope),
		Power:     power,
		Toughness: toughness,
	}
	e.outcome = OutcomeBenefit
	return e
}

// NewFixedBoostEffect is a BoostEffect with constant amounts, e.g. +1/+1.
func NewFixedBoostEffect(sourceID, controllerID string, scope Scope, duration Duration, power, toughness int) *BoostEffect {
	e := NewBoostEffect(sourceID, controllerID, scope, duration, values.Static(power), values.Static(toughness))
	if power < 0 || toughness < 0 {
		e.outcome = OutcomeDetriment
	}
	return e
}

func (e *BoostEffect) AppliesTo(env Env, s *object.Snapshot) bool {
	return s.HasPT && e.Base.AppliesTo(env, s)
}

func (e *BoostEffect) Apply(env Env, s *object.Snapshot) {
	src := e.source()
	s.Power += e.Power.Calculate(env, src)
	s.Toughness += e.Toughness.Calculate(env, src)
}

func (e *BoostEffect) Copy() ContinuousEffect {
	return &BoostEffect{Base: e.copyBase(), Power: e.Power.Copy(), Toughness: e.Toughness.Copy()}
}

func (e *BoostEffect) Text() string {
	p, pok := e.Power.(values.Static)
	t, tok := e.Toughness.(values.Static)
	if pok && tok {
		return fmt.Sprintf("gets %+d/%+d", int(p), int(t))
	}
	return "gets +X/+X where X is the number of " + e.Power.Message()
}

// SwitchPowerToughnessEffect switches power and toughness (layer 7e).
type SwitchPowerToughnessEffect struct {
	Base
}

func NewSwitchPowerToughnessEffect(sourceID, controllerID string, scope Scope, duration Duration) *SwitchPowerToughnessEffect {
	return &SwitchPowerToughnessEffect{Base: NewBase(sourceID, controllerID, LayerPowerToughness, SubLayerSwitchPT, duration, scope)}
}

func (e *SwitchPowerToughnessEffect) Apply(_ Env, s *object.Snapshot) {
	s.Power, s.Toughness = s.Toughness, s.Power
}

func (e *SwitchPowerToughnessEffect) Copy() ContinuousEffect {
	return &SwitchPowerToughnessEffect{Base: e.copyBase()}
}

func (e *SwitchPowerToughnessEffect) Text() string { return "switch its power and toughness" }

// RestrictionEffect adds rules restrictions such as "can't block" (layer 8).
type RestrictionEffect struct {
	Base
	Restrictions object.Restriction
}

func NewRestrictionEffect(sourceID, controllerID string, r object.Restriction, scope Scope, duration Duration) *RestrictionEffect {
	return &RestrictionEffect{
		Base:         NewBase(sourceID, controllerID, LayerRules, SubLayerNA, duration, scope),
		Restrictions: r,
	}
}

func (e *RestrictionEffect) Apply(_ Env, s *object.Snapshot) { s.Restrictions |= e.Restrictions }

func (e *RestrictionEffect) Copy() ContinuousEffect {
	return &RestrictionEffect{Base: e.copyBase(), Restrictions: e.Restrictions}
}

func (e *RestrictionEffect) Text() string {
	var parts []string
	if e.Restrictions.Has(object.RestrictCantAttack) {
		parts = append(parts, "can't attack")
	}
	if e.Restrictions.Has(object.RestrictCantBlock) {
		parts = append(parts, "can't block")
	}
	if e.Restrictions.Has(object.RestrictMustAttack) {
		parts = append(parts, "attacks each combat if able")
	}
	if e.Restrictions.Has(object.RestrictCantBeTargeted) {
		parts = append(parts, "can't be the target of spells or abilities your opponents control")
	}
	return strings.Join(parts, " and ")
}
