package effects

import (
	"slices"

	"github.com/magefree/mage-engine-go/internal/game/object"
	"github.com/magefree/mage-engine-go/internal/game/rules"
)

// ReplacementEffect represents an effect that can replace or modify an event
// before it happens.
//
// Replacement effects apply continuously as events happen. Each one gets a
// single opportunity per event, and self-replacement effects (parts of a
// resolving spell that replace its own effect) are applied first.
type ReplacementEffect interface {
	ID() string
	SourceID() string
	ControllerID() string
	Duration() Duration
	Timestamp() int64

	// ChecksEventType is the cheap first filter.
	ChecksEventType(eventType rules.EventType) bool

	// Applies checks the specific event beyond its type.
	Applies(env Env, event rules.Event) bool

	// ReplaceEvent returns the modified event. The boolean reports that the
	// event was completely replaced and will not happen.
	ReplaceEvent(env Env, event rules.Event) (rules.Event, bool)

	IsSelfReplacement() bool

	setID(id string)
	setTimestamp(ts int64)
}

// RuleModifyingEffect makes an event impossible ("can't be countered").
// Rule-modifying effects are checked before any replacement effect.
type RuleModifyingEffect interface {
	ID() string
	SourceID() string
	ControllerID() string
	Duration() Duration
	Timestamp() int64
	ChecksEventType(eventType rules.EventType) bool
	// Prevents reports whether the effect stops the event.
	Prevents(env Env, event rules.Event) bool
	Text() string

	setID(id string)
	setTimestamp(ts int64)
}

// BaseReplacementEffect provides common functionality for replacement effects
type BaseReplacementEffect struct {
	id              string
	sourceID        string
	controllerID    string
	duration        Duration
	timestamp       int64
	selfReplacement bool
	eventTypes      []rules.EventType
	ability         string
}

// NewBaseReplacementEffect creates a new base replacement effect
func NewBaseReplacementEffect(sourceID, controllerID string, duration Duration, selfReplacement bool, eventTypes ...rules.EventType) BaseReplacementEffect {
	return BaseReplacementEffect{
		sourceID:        sourceID,
		controllerID:    controllerID,
		duration:        duration,
		selfReplacement: selfReplacement,
		eventTypes:      eventTypes,
	}
}

func (e *BaseReplacementEffect) ID() string              { return e.id }
func (e *BaseReplacementEffect) SourceID() string        { return e.sourceID }
func (e *BaseReplacementEffect) ControllerID() string    { return e.controllerID }
func (e *BaseReplacementEffect) Duration() Duration      { return e.duration }
func (e *BaseReplacementEffect) Timestamp() int64        { return e.timestamp }
func (e *BaseReplacementEffect) IsSelfReplacement() bool { return e.selfReplacement }
func (e *BaseReplacementEffect) SourceAbility() string   { return e.ability }

// ChecksEventType returns true if this effect cares about the given event type.
func (e *BaseReplacementEffect) ChecksEventType(eventType rules.EventType) bool {
	return slices.Contains(e.eventTypes, eventType)
}

func (e *BaseReplacementEffect) setID(id string)              { e.id = id }
func (e *BaseReplacementEffect) setTimestamp(ts int64)        { e.timestamp = ts }
func (e *BaseReplacementEffect) setSourceAbility(text string) { e.ability = text }

// CantCounterSourceEffect is the rule-modifying effect "this spell can't be
// countered". It lasts while its source is on the stack.
type CantCounterSourceEffect struct {
	BaseReplacementEffect
}

// NewCantCounterSourceEffect creates the effect for the spell sourceID.
func NewCantCounterSourceEffect(sourceID, controllerID string) *CantCounterSourceEffect {
	return &CantCounterSourceEffect{
		BaseReplacementEffect: NewBaseReplacementEffect(sourceID, controllerID, DurationWhileOnStack, false, rules.EventCounter),
	}
}

func (e *CantCounterSourceEffect) Prevents(_ Env, event rules.Event) bool {
	return event.Type == rules.EventCounter && event.TargetID == e.sourceID
}

func (e *CantCounterSourceEffect) Text() string { return "this spell can't be countered" }

// PreventDamageEffect prevents damage from being dealt.
// Example: "Prevent the next 3 damage that would be dealt to target creature"
type PreventDamageEffect struct {
	BaseReplacementEffect
	TargetID   string // damage recipient, empty = any
	FromSource string // damage source, empty = any
	// All prevents all damage; otherwise Shield is the damage left to prevent.
	All    bool
	Shield int
}

// NewPreventDamageEffect creates a damage prevention effect. A shield of 0
// or less prevents all damage.
func NewPreventDamageEffect(sourceID, controllerID, targetID string, shield int, duration Duration) *PreventDamageEffect {
	return &PreventDamageEffect{
		BaseReplacementEffect: NewBaseReplacementEffect(sourceID, controllerID, duration, false,
			rules.EventDamagePlayer, rules.EventDamagePermanent),
		TargetID: targetID,
		All:      shield <= 0,
		Shield:   max(shield, 0),
	}
}

func (e *PreventDamageEffect) Applies(_ Env, event rules.Event) bool {
	if e.TargetID != "" && event.TargetID != e.TargetID {
		return false
	}
	if e.FromSource != "" && event.SourceID != e.FromSource {
		return false
	}
	return event.Amount > 0 && !e.Exhausted()
}

func (e *PreventDamageEffect) ReplaceEvent(_ Env, event rules.Event) (rules.Event, bool) {
	if e.All {
		event.Amount = 0
		return event, true
	}
	prevented := min(e.Shield, event.Amount)
	e.Shield -= prevented
	event.Amount -= prevented
	return event, event.Amount == 0
}

// Exhausted reports whether a shield effect has nothing left to prevent.
func (e *PreventDamageEffect) Exhausted() bool {
	return !e.All && e.Shield == 0
}

// DoubleAmountEffect doubles an amount in an event.
// Example: "If you would gain life, you gain twice that much life instead"
type DoubleAmountEffect struct {
	BaseReplacementEffect
	// PlayerID restricts the effect to events affecting one player; empty = any.
	PlayerID string
}

// NewDoubleAmountEffect creates a doubling replacement effect.
func NewDoubleAmountEffect(sourceID, controllerID, playerID string, duration Duration, eventTypes ...rules.EventType) *DoubleAmountEffect {
	return &DoubleAmountEffect{
		BaseReplacementEffect: NewBaseReplacementEffect(sourceID, controllerID, duration, false, eventTypes...),
		PlayerID:              playerID,
	}
}

func (e *DoubleAmountEffect) Applies(_ Env, event rules.Event) bool {
	return e.PlayerID == "" || event.PlayerID == e.PlayerID || event.TargetID == e.PlayerID
}

func (e *DoubleAmountEffect) ReplaceEvent(_ Env, event rules.Event) (rules.Event, bool) {
	event.Amount *= 2
	return event, false
}

// ExileInsteadOfGraveyardEffect replaces where a card goes during a zone change.
// Example: "If a creature would die, exile it instead"
type ExileInsteadOfGraveyardEffect struct {
	BaseReplacementEffect
	// ObjectID restricts the effect to one object; empty = any object matching Filter.
	ObjectID string
	Filter   *object.Filter
}

// NewExileInsteadOfGraveyardEffect creates the replacement.
func NewExileInsteadOfGraveyardEffect(sourceID, controllerID, objectID string, filter *object.Filter, duration Duration) *ExileInsteadOfGraveyardEffect {
	return &ExileInsteadOfGraveyardEffect{
		BaseReplacementEffect: NewBaseReplacementEffect(sourceID, controllerID, duration, false, rules.EventZoneChange),
		ObjectID:              objectID,
		Filter:                filter,
	}
}

func (e *ExileInsteadOfGraveyardEffect) Applies(_ Env, event rules.Event) bool {
	if event.ToZone != object.ZoneGraveyard {
		return false
	}
	if e.ObjectID != "" && event.TargetID != e.ObjectID {
		return false
	}
	if e.Filter == nil {
		return true
	}
	ctx := object.FilterContext{SourceID: e.sourceID, ControllerID: e.controllerID}
	return e.Filter.Match(event.Target, ctx)
}

func (e *ExileInsteadOfGraveyardEffect) ReplaceEvent(_ Env, event rules.Event) (rules.Event, bool) {
	event.ToZone = object.ZoneExile
	return event, false
}
