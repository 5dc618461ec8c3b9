package rules

import (
	"slices"

	"github.com/magefree/mage-engine-go/internal/game/object"
)

// EventType identifies a kind of game event. Present-tense types are posted
// before the occurrence and may be replaced or prevented; past-tense types
// report what happened and are what triggered abilities usually watch.
type EventType string

const (
	EventBeginTurn   EventType = "BEGIN_TURN"
	EventStepStarted EventType = "STEP_STARTED"
	EventStepEnded   EventType = "STEP_ENDED"
	EventStepSkipped EventType = "STEP_SKIPPED"
	EventExtraTurn   EventType = "EXTRA_TURN"

	EventZoneChange EventType = "ZONE_CHANGE"
	EventDrawCard   EventType = "DRAW_CARD"
	EventDrewCard   EventType = "DREW_CARD"
	EventPlayLand   EventType = "PLAY_LAND"
	EventLandPlayed EventType = "LAND_PLAYED"

	EventCastSpell        EventType = "CAST_SPELL"
	EventSpellCast        EventType = "SPELL_CAST"
	EventActivateAbility  EventType = "ACTIVATE_ABILITY"
	EventActivatedAbility EventType = "ACTIVATED_ABILITY"
	EventTriggeredAbility EventType = "TRIGGERED_ABILITY"
	EventResolved         EventType = "RESOLVED"
	EventCounter          EventType = "COUNTER"
	EventCountered        EventType = "COUNTERED"
	EventFizzled          EventType = "FIZZLED"

	EventDamagePermanent  EventType = "DAMAGE_PERMANENT"
	EventDamagedPermanent EventType = "DAMAGED_PERMANENT"
	EventDamagePlayer     EventType = "DAMAGE_PLAYER"
	EventDamagedPlayer    EventType = "DAMAGED_PLAYER"
	EventGainLife         EventType = "GAIN_LIFE"
	EventGainedLife       EventType = "GAINED_LIFE"
	EventLoseLife         EventType = "LOSE_LIFE"
	EventLostLife         EventType = "LOST_LIFE"

	EventAddCounters    EventType = "ADD_COUNTERS"
	EventCounterAdded   EventType = "COUNTER_ADDED"
	EventCounterRemoved EventType = "COUNTER_REMOVED"

	EventTapped              EventType = "TAPPED"
	EventUntapped            EventType = "UNTAPPED"
	EventDestroyPermanent    EventType = "DESTROY_PERMANENT"
	EventDestroyedPermanent  EventType = "DESTROYED_PERMANENT"
	EventSacrificedPermanent EventType = "SACRIFICED_PERMANENT"
	EventTokenCreated        EventType = "TOKEN_CREATED"
	EventBecameMonstrous     EventType = "BECAME_MONSTROUS"

	EventPlayerLost EventType = "PLAYER_LOST"
	EventGameOver   EventType = "GAME_OVER"
)

// Event is an immutable record of one discrete game occurrence.
type Event struct {
	Type     EventType
	Sequence int64
	SourceID string
	TargetID string
	PlayerID string
	Amount   int
	Flag     bool
	Data     string
	FromZone object.Zone
	ToZone   object.Zone
	// Target is the last known information of the target object, captured
	// when the event was created. Leaves-the-battlefield triggers read it.
	Target *object.Snapshot
	// AppliedEffects lists replacement effects already applied to this event.
	AppliedEffects []string
}

// NewEvent creates an event.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{Type: eventType, TargetID: targetID, SourceID: sourceID, PlayerID: playerID}
}

// NewAmountEvent creates an event carrying an amount.
func NewAmountEvent(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	e := NewEvent(eventType, targetID, sourceID, playerID)
	e.Amount = amount
	return e
}

// NewZoneChangeEvent creates a zone change event with the departing object's snapshot.
func NewZoneChangeEvent(target *object.Snapshot, sourceID, playerID string, from, to object.Zone) Event {
	e := NewEvent(EventZoneChange, target.ID, sourceID, playerID)
	e.FromZone = from
	e.ToZone = to
	e.Target = target.Clone()
	return e
}

// WithApplied returns a copy of the event marked as modified by effectID.
func (e Event) WithApplied(effectID string) Event {
	e.AppliedEffects = append(slices.Clone(e.AppliedEffects), effectID)
	return e
}

// Applied reports whether effectID already modified this event.
func (e Event) Applied(effectID string) bool {
	return slices.Contains(e.AppliedEffects, effectID)
}

// IsDies reports whether the event moves a permanent from the battlefield to a graveyard.
func (e Event) IsDies() bool {
	return e.Type == EventZoneChange && e.FromZone == object.ZoneBattlefield && e.ToZone == object.ZoneGraveyard
}

// IsEntersBattlefield reports whether the event puts an object onto the battlefield.
func (e Event) IsEntersBattlefield() bool {
	return e.Type == EventZoneChange && e.ToZone == object.ZoneBattlefield
}

// IsLeavesBattlefield reports whether the event removes a permanent from the battlefield.
func (e Event) IsLeavesBattlefield() bool {
	return e.Type == EventZoneChange && e.FromZone == object.ZoneBattlefield && e.ToZone != object.ZoneBattlefield
}

// EventHandler receives published events.
type EventHandler func(Event)

type subscription struct {
	id      int
	types   []EventType
	handler EventHandler
}

// EventBus delivers events to subscribers synchronously, in subscription order.
// It is owned by a single game and is not safe for concurrent use.
type EventBus struct {
	subs     []subscription
	nextID   int
	sequence int64
}

// NewEventBus creates an event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every event and returns its handle.
func (b *EventBus) Subscribe(handler EventHandler) int {
	return b.SubscribeTyped(handler)
}

// SubscribeTyped registers a handler for the given event types; no types means all.
func (b *EventBus) SubscribeTyped(handler EventHandler, types ...EventType) int {
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, types: types, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler.
func (b *EventBus) Unsubscribe(handle int) {
	b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == handle })
}

// Publish stamps the event with the next sequence number, delivers it and
// returns the stamped event.
func (b *EventBus) Publish(event Event) Event {
	b.sequence++
	event.Sequence = b.sequence
	// handlers may subscribe while being notified; deliver to the current set
	subs := slices.Clone(b.subs)
	for _, s := range subs {
		if len(s.types) == 0 || slices.Contains(s.types, event.Type) {
			s.handler(event)
		}
	}
	return event
}

// Sequence returns the number of events published so far.
func (b *EventBus) Sequence() int64 {
	return b.sequence
}
